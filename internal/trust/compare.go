package trust

import (
	"fmt"
	"sort"
)

// Comparison is a cross-provider view over a set of trust results.
type Comparison struct {
	Ranked            []*Result     `json:"ranked"` // descending by score, scored providers only
	Best              *Result       `json:"best,omitempty"`
	Worst             *Result       `json:"worst,omitempty"`
	MeanScore         float64       `json:"mean_score"`
	GradeDistribution map[Grade]int `json:"grade_distribution"`
	InsufficientData  int           `json:"insufficient_data"`
	Recommendations   []string      `json:"recommendations"`
}

// Compare ranks a set of provider results. Providers without enough history
// are counted but excluded from ranking and the mean.
func (e *Engine) Compare(results []*Result) *Comparison {
	cmp := &Comparison{
		GradeDistribution: make(map[Grade]int),
		Recommendations:   []string{},
	}

	var scoreSum float64
	var belowFullConfidence int
	for _, res := range results {
		if res.Tier == TierInsufficientData {
			cmp.InsufficientData++
			continue
		}
		cmp.Ranked = append(cmp.Ranked, res)
		cmp.GradeDistribution[res.Grade]++
		scoreSum += res.TrustScore
		if res.SampleSize < int(fullConfidenceSamples) {
			belowFullConfidence++
		}
	}

	sort.SliceStable(cmp.Ranked, func(i, j int) bool {
		return cmp.Ranked[i].TrustScore > cmp.Ranked[j].TrustScore
	})

	if len(cmp.Ranked) > 0 {
		cmp.Best = cmp.Ranked[0]
		cmp.Worst = cmp.Ranked[len(cmp.Ranked)-1]
		cmp.MeanScore = scoreSum / float64(len(cmp.Ranked))
	}

	if cmp.Best != nil && cmp.Best.TrustScore >= 80 {
		cmp.Recommendations = append(cmp.Recommendations,
			fmt.Sprintf("provider %s is a top performer (score %.1f); consider prioritizing its signals",
				cmp.Best.ProviderID, cmp.Best.TrustScore))
	}
	if belowFullConfidence > 0 {
		cmp.Recommendations = append(cmp.Recommendations,
			fmt.Sprintf("%d provider(s) have fewer than %.0f signals; scores carry reduced confidence",
				belowFullConfidence, fullConfidenceSamples))
	}
	if cmp.InsufficientData > 0 {
		cmp.Recommendations = append(cmp.Recommendations,
			fmt.Sprintf("%d provider(s) lack sufficient history and were excluded from ranking",
				cmp.InsufficientData))
	}
	return cmp
}

package trust

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalward/signalward/internal/domain"
)

var baseTime = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func closedRec(id string, outcome domain.Outcome, pnl float64, holdSeconds int) domain.SignalExecutionData {
	closeAt := baseTime.Add(time.Duration(holdSeconds) * time.Second)
	return domain.SignalExecutionData{
		ID:            id,
		ProviderID:    "p",
		Status:        domain.StatusClosed,
		Outcome:       outcome,
		PnL:           pnl,
		ExecutionTime: baseTime,
		CloseTime:     &closeAt,
	}
}

func TestEngine_InsufficientSampleYieldsNeutralResult(t *testing.T) {
	engine := NewEngine(&Config{MinSampleSize: 10, Weights: DefaultConfig().Weights})

	recs := []domain.SignalExecutionData{
		closedRec("1", domain.OutcomeWin, 50, 600),
		closedRec("2", domain.OutcomeLoss, -30, 600),
		closedRec("3", domain.OutcomeWin, 40, 600),
	}
	res := engine.Score("p", recs)

	assert.Equal(t, TierInsufficientData, res.Tier)
	assert.Equal(t, 50.0, res.TrustScore)
	assert.Equal(t, Grade("C"), res.Grade)
	assert.Equal(t, 3, res.SampleSize)
	assert.Nil(t, res.RawMetrics)
}

func TestEngine_ScoreHandComputed(t *testing.T) {
	engine := NewEngine(nil)

	// 10 closed signals: 6 wins (+50 each), 4 losses (-20 each), 10s holds,
	// no parser confidence recorded.
	recs := make([]domain.SignalExecutionData, 0, 10)
	for i := 0; i < 6; i++ {
		recs = append(recs, closedRec(string(rune('a'+i)), domain.OutcomeWin, 50, 10))
	}
	for i := 0; i < 4; i++ {
		recs = append(recs, closedRec(string(rune('w'+i)), domain.OutcomeLoss, -20, 10))
	}

	res := engine.Score("p", recs)
	require.NotEqual(t, TierInsufficientData, res.Tier)

	// raw metrics
	assert.InDelta(t, 0.6, res.RawMetrics[MetricTPRate], 1e-9)
	assert.InDelta(t, 0.4, res.RawMetrics[MetricSLRate], 1e-9)
	assert.InDelta(t, 20.0, res.RawMetrics[MetricAvgDrawdown], 1e-9)
	assert.InDelta(t, 0.0, res.RawMetrics[MetricCancelRate], 1e-9)
	assert.InDelta(t, 0.5, res.RawMetrics[MetricConfidence], 1e-9)
	assert.InDelta(t, 10.0, res.RawMetrics[MetricLatency], 1e-9)
	assert.InDelta(t, 1.0, res.RawMetrics[MetricExecutionRate], 1e-9)

	// normalized: tp .6, sl .6, drawdown .8, cancel 1, confidence .5,
	// latency 1-10/30=.6667, execution 1
	assert.InDelta(t, 0.8, res.Normalized[MetricAvgDrawdown], 1e-9)
	assert.InDelta(t, 2.0/3.0, res.Normalized[MetricLatency], 1e-9)

	// 100*(.6*.25+.6*.15+.8*.15+1*.10+.5*.15+.6667*.10+1*.10) = 70.1667
	assert.InDelta(t, 70.1667, res.TrustScore, 0.01)
	assert.Equal(t, Grade("C"), res.Grade)

	// tier: 10 samples -> multiplier 0.2 -> adjusted 14.03 -> POOR
	assert.Equal(t, TierPoor, res.Tier)
}

func TestEngine_TierReachesExcellentWithFullSample(t *testing.T) {
	engine := NewEngine(nil)

	// 60 flawless signals: multiplier 1.0, near-perfect normalized metrics
	conf := 0.95
	recs := make([]domain.SignalExecutionData, 0, 60)
	for i := 0; i < 60; i++ {
		rec := closedRec(string(rune(i)), domain.OutcomeWin, 80, 3)
		rec.Confidence = &conf
		recs = append(recs, rec)
	}

	res := engine.Score("p", recs)
	// tp 1(.25) + sl 1(.15) + drawdown 1(.15) + cancel 1(.10) + conf .95(.15)
	// + latency .9(.10) + execution 1(.10) -> 98.25
	assert.InDelta(t, 98.25, res.TrustScore, 0.01)
	assert.Equal(t, Grade("A+"), res.Grade)
	assert.Equal(t, TierExcellent, res.Tier)
}

func TestEngine_GradeThresholds(t *testing.T) {
	tests := []struct {
		score    float64
		expected Grade
	}{
		{96, "A+"}, {95, "A+"}, {94.9, "A"}, {90, "A"}, {87, "B+"},
		{82, "B"}, {76, "C+"}, {71, "C"}, {65, "D"}, {59.9, "F"}, {0, "F"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, gradeFor(tt.score), "score %.1f", tt.score)
	}
}

func TestEngine_CancelledAndPendingSignals(t *testing.T) {
	engine := NewEngine(nil)

	recs := make([]domain.SignalExecutionData, 0, 10)
	for i := 0; i < 5; i++ {
		recs = append(recs, closedRec(string(rune('a'+i)), domain.OutcomeWin, 50, 10))
	}
	for i := 0; i < 3; i++ {
		recs = append(recs, domain.SignalExecutionData{
			ID: string(rune('m' + i)), ProviderID: "p",
			Status: domain.StatusCancelled, ExecutionTime: baseTime,
		})
	}
	for i := 0; i < 2; i++ {
		recs = append(recs, domain.SignalExecutionData{
			ID: string(rune('x' + i)), ProviderID: "p",
			Status: domain.StatusPending, ExecutionTime: baseTime,
		})
	}

	res := engine.Score("p", recs)
	assert.InDelta(t, 0.3, res.RawMetrics[MetricCancelRate], 1e-9)
	assert.InDelta(t, 0.5, res.RawMetrics[MetricExecutionRate], 1e-9) // 5 closed of 10
	assert.InDelta(t, 1.0, res.RawMetrics[MetricTPRate], 1e-9)        // all closed are wins
}

func TestEngine_LatencyDefaultsWhenNeverClosed(t *testing.T) {
	engine := NewEngine(&Config{MinSampleSize: 1, Weights: DefaultConfig().Weights})

	recs := []domain.SignalExecutionData{
		{ID: "a", ProviderID: "p", Status: domain.StatusPending, ExecutionTime: baseTime},
		{ID: "b", ProviderID: "p", Status: domain.StatusPending, ExecutionTime: baseTime},
	}
	res := engine.Score("p", recs)
	assert.InDelta(t, 5.0, res.RawMetrics[MetricLatency], 1e-9)
}

func TestEngine_Compare(t *testing.T) {
	engine := NewEngine(nil)

	mk := func(id string, score float64, samples int, tier Tier) *Result {
		return &Result{ProviderID: id, TrustScore: score, SampleSize: samples,
			Grade: gradeFor(score), Tier: tier}
	}
	results := []*Result{
		mk("mid", 72, 40, TierGood),
		mk("top", 88, 60, TierExcellent),
		mk("low", 45, 55, TierPoor),
		mk("newbie", 50, 3, TierInsufficientData),
	}

	cmp := engine.Compare(results)

	require.Len(t, cmp.Ranked, 3)
	assert.Equal(t, "top", cmp.Best.ProviderID)
	assert.Equal(t, "low", cmp.Worst.ProviderID)
	assert.InDelta(t, (88.0+72.0+45.0)/3.0, cmp.MeanScore, 1e-9)
	assert.Equal(t, 1, cmp.InsufficientData)
	assert.Equal(t, 1, cmp.GradeDistribution[Grade("B+")])

	require.Len(t, cmp.Recommendations, 3)
	assert.Contains(t, cmp.Recommendations[0], "top")
	assert.Contains(t, cmp.Recommendations[1], "1 provider(s) have fewer than 50")
	assert.Contains(t, cmp.Recommendations[2], "lack sufficient history")
}

func TestEngine_CompareEmpty(t *testing.T) {
	engine := NewEngine(nil)
	cmp := engine.Compare(nil)
	assert.Empty(t, cmp.Ranked)
	assert.Nil(t, cmp.Best)
	assert.Equal(t, 0.0, cmp.MeanScore)
	assert.Empty(t, cmp.Recommendations)
}

// Package trust scores signal providers from their execution history. The
// engine is a pure function of the record stream plus its configured
// weights; it keeps no state between calls.
package trust

import (
	"time"

	"github.com/signalward/signalward/internal/domain"
)

// Grade is a letter grade derived from the trust score.
type Grade string

// Tier is the coarse reliability bucket combining score and sample-size
// confidence.
type Tier string

const (
	TierExcellent        Tier = "EXCELLENT"
	TierGood             Tier = "GOOD"
	TierAverage          Tier = "AVERAGE"
	TierPoor             Tier = "POOR"
	TierInsufficientData Tier = "INSUFFICIENT_DATA"
)

// Raw metric names used as keys in Result.RawMetrics and Result.Normalized.
const (
	MetricTPRate        = "tp_rate"
	MetricSLRate        = "sl_rate"
	MetricAvgDrawdown   = "avg_drawdown" // mean per-trade loss, not the tracker's peak drawdown
	MetricCancelRate    = "cancel_rate"
	MetricConfidence    = "confidence"
	MetricLatency       = "latency"
	MetricExecutionRate = "execution_rate"
)

const (
	defaultConfidence     = 0.5
	defaultLatencySeconds = 5.0
	fullConfidenceSamples = 50.0
)

// Weights distributes the trust score across normalized metrics. The
// defaults sum to 1.0; Score renormalizes defensively when they do not.
type Weights struct {
	TPRate        float64 `yaml:"tp_rate"`
	SLRate        float64 `yaml:"sl_rate"`
	AvgDrawdown   float64 `yaml:"avg_drawdown"`
	CancelRate    float64 `yaml:"cancel_rate"`
	Confidence    float64 `yaml:"confidence"`
	Latency       float64 `yaml:"latency"`
	ExecutionRate float64 `yaml:"execution_rate"`
}

// Config holds the engine's weight profile and minimum sample size.
type Config struct {
	MinSampleSize int     `yaml:"min_sample_size"`
	Weights       Weights `yaml:"weights"`
}

func DefaultConfig() *Config {
	return &Config{
		MinSampleSize: 10,
		Weights: Weights{
			TPRate:        0.25,
			SLRate:        0.15,
			AvgDrawdown:   0.15,
			CancelRate:    0.10,
			Confidence:    0.15,
			Latency:       0.10,
			ExecutionRate: 0.10,
		},
	}
}

// Result is the trust evaluation for one provider.
type Result struct {
	ProviderID string             `json:"provider_id"`
	SampleSize int                `json:"sample_size"`
	RawMetrics map[string]float64 `json:"raw_metrics,omitempty"`
	Normalized map[string]float64 `json:"normalized,omitempty"`
	TrustScore float64            `json:"trust_score"` // 0-100
	Grade      Grade              `json:"grade"`
	Tier       Tier               `json:"tier"`
	ComputedAt time.Time          `json:"computed_at"`
}

// Engine computes trust scores.
type Engine struct {
	config *Config
}

func NewEngine(config *Config) *Engine {
	if config == nil {
		config = DefaultConfig()
	}
	return &Engine{config: config}
}

// Score evaluates one provider from its execution-data stream. Providers
// below the minimum sample size get a neutral, clearly tagged result
// rather than an error.
func (e *Engine) Score(providerID string, recs []domain.SignalExecutionData) *Result {
	res := &Result{
		ProviderID: providerID,
		SampleSize: len(recs),
		ComputedAt: time.Now(),
	}
	if len(recs) < e.config.MinSampleSize {
		res.TrustScore = 50
		res.Grade = "C"
		res.Tier = TierInsufficientData
		return res
	}

	res.RawMetrics = extractMetrics(recs)
	res.Normalized = normalize(res.RawMetrics)
	res.TrustScore = e.weightedScore(res.Normalized)
	res.Grade = gradeFor(res.TrustScore)
	res.Tier = e.tierFor(res.TrustScore, res.SampleSize)
	return res
}

func extractMetrics(recs []domain.SignalExecutionData) map[string]float64 {
	var (
		closed, wins, losses, cancelled, executed int
		lossSum                                   float64
		lossCount                                 int
		confidenceSum                             float64
		latencySum                                float64
		latencyCount                              int
	)

	for _, rec := range recs {
		if rec.IsExecuted() {
			executed++
		}
		switch rec.Status {
		case domain.StatusCancelled:
			cancelled++
		case domain.StatusClosed:
			closed++
			switch rec.Outcome {
			case domain.OutcomeWin:
				wins++
			case domain.OutcomeLoss:
				losses++
			}
			if rec.PnL < 0 {
				lossSum += -rec.PnL
				lossCount++
			}
		}
		if rec.Confidence != nil {
			confidenceSum += *rec.Confidence
		} else {
			confidenceSum += defaultConfidence
		}
		if rec.CloseTime != nil {
			latencySum += rec.CloseTime.Sub(rec.ExecutionTime).Seconds()
			latencyCount++
		}
	}

	total := float64(len(recs))
	metrics := map[string]float64{
		MetricCancelRate:    float64(cancelled) / total,
		MetricConfidence:    confidenceSum / total,
		MetricExecutionRate: float64(executed) / total,
	}
	if closed > 0 {
		metrics[MetricTPRate] = float64(wins) / float64(closed)
		metrics[MetricSLRate] = float64(losses) / float64(closed)
	}
	if lossCount > 0 {
		metrics[MetricAvgDrawdown] = lossSum / float64(lossCount)
	}
	if latencyCount > 0 {
		metrics[MetricLatency] = latencySum / float64(latencyCount)
	} else {
		metrics[MetricLatency] = defaultLatencySeconds
	}
	return metrics
}

// normalize maps every raw metric into [0,1] with "higher is better"
// orientation: failure-flavored metrics are inverted, scale-bearing ones
// are capped before inversion.
func normalize(raw map[string]float64) map[string]float64 {
	return map[string]float64{
		MetricTPRate:        clip01(raw[MetricTPRate]),
		MetricSLRate:        clip01(1 - raw[MetricSLRate]),
		MetricAvgDrawdown:   clip01(1 - min1(raw[MetricAvgDrawdown]/100)),
		MetricCancelRate:    clip01(1 - raw[MetricCancelRate]),
		MetricConfidence:    clip01(raw[MetricConfidence]),
		MetricLatency:       clip01(1 - min1(raw[MetricLatency]/30)),
		MetricExecutionRate: clip01(raw[MetricExecutionRate]),
	}
}

func (e *Engine) weightedScore(normalized map[string]float64) float64 {
	w := e.config.Weights
	score := normalized[MetricTPRate]*w.TPRate +
		normalized[MetricSLRate]*w.SLRate +
		normalized[MetricAvgDrawdown]*w.AvgDrawdown +
		normalized[MetricCancelRate]*w.CancelRate +
		normalized[MetricConfidence]*w.Confidence +
		normalized[MetricLatency]*w.Latency +
		normalized[MetricExecutionRate]*w.ExecutionRate

	weightSum := w.TPRate + w.SLRate + w.AvgDrawdown + w.CancelRate +
		w.Confidence + w.Latency + w.ExecutionRate
	if weightSum > 0 && weightSum != 1 {
		score /= weightSum
	}
	return clip(score*100, 0, 100)
}

func gradeFor(score float64) Grade {
	switch {
	case score >= 95:
		return "A+"
	case score >= 90:
		return "A"
	case score >= 85:
		return "B+"
	case score >= 80:
		return "B"
	case score >= 75:
		return "C+"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

// tierFor discounts the score by sample-size confidence before bucketing:
// a provider with few signals cannot land in a high tier on score alone.
func (e *Engine) tierFor(score float64, sampleSize int) Tier {
	multiplier := float64(sampleSize) / fullConfidenceSamples
	if multiplier > 1 {
		multiplier = 1
	}
	adjusted := score * multiplier
	switch {
	case adjusted >= 85:
		return TierExcellent
	case adjusted >= 70:
		return TierGood
	case adjusted >= 55:
		return TierAverage
	default:
		return TierPoor
	}
}

func clip01(v float64) float64 { return clip(v, 0, 1) }

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func min1(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}

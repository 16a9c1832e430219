package tracker

import (
	"sort"
	"time"

	"github.com/signalward/signalward/internal/domain"
)

// ProviderSuccessStats is the derived per-provider aggregate. It is always
// reproducible by replaying the provider's full execution-data set; it is
// never mutated independently.
type ProviderSuccessStats struct {
	ProviderID     string `json:"provider_id"`
	TotalSignals   int    `json:"total_signals"`
	ExecutedCount  int    `json:"executed_count"` // closed with a recorded outcome
	WinCount       int    `json:"win_count"`
	LossCount      int    `json:"loss_count"`
	BreakevenCount int    `json:"breakeven_count"`
	PendingCount   int    `json:"pending_count"`
	CancelledCount int    `json:"cancelled_count"`

	WinRate       float64 `json:"win_rate"`       // percent of executed
	AverageRR     float64 `json:"average_rr"`
	BestRR        float64 `json:"best_rr"`
	WorstRR       float64 `json:"worst_rr"`
	TotalPnL      float64 `json:"total_pnl"`
	MaxDrawdown   float64 `json:"max_drawdown"`   // peak-to-trough over cumulative pnl
	ExecutionRate float64 `json:"execution_rate"` // percent of total

	AverageHoldTime    time.Duration  `json:"average_hold_time"`
	FormatDistribution map[string]int `json:"format_distribution"`

	PerformanceGrade string    `json:"performance_grade"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// computeStats replays a provider's full record set into fresh statistics.
func computeStats(providerID string, recs []domain.SignalExecutionData) *ProviderSuccessStats {
	stats := &ProviderSuccessStats{
		ProviderID:         providerID,
		TotalSignals:       len(recs),
		FormatDistribution: make(map[string]int),
		UpdatedAt:          time.Now(),
	}

	var (
		rrSum, rrBest, rrWorst float64
		rrCount                int
		holdSum                time.Duration
		holdCount              int
		executed               []domain.SignalExecutionData
	)

	for _, rec := range recs {
		switch rec.Status {
		case domain.StatusPending:
			stats.PendingCount++
		case domain.StatusCancelled:
			stats.CancelledCount++
		}
		if rec.IsResolved() {
			stats.ExecutedCount++
			executed = append(executed, rec)
			stats.TotalPnL += rec.PnL
			switch rec.Outcome {
			case domain.OutcomeWin:
				stats.WinCount++
			case domain.OutcomeLoss:
				stats.LossCount++
			case domain.OutcomeBreakeven:
				stats.BreakevenCount++
			}
		}
		if rec.RiskRewardRatio != nil {
			rr := *rec.RiskRewardRatio
			if rrCount == 0 || rr > rrBest {
				rrBest = rr
			}
			if rrCount == 0 || rr < rrWorst {
				rrWorst = rr
			}
			rrSum += rr
			rrCount++
		}
		if ht := rec.HoldTime(); ht > 0 {
			holdSum += ht
			holdCount++
		}
		if rec.SignalFormat != "" {
			stats.FormatDistribution[rec.SignalFormat]++
		}
	}

	if stats.ExecutedCount > 0 {
		stats.WinRate = float64(stats.WinCount) / float64(stats.ExecutedCount) * 100
	}
	if rrCount > 0 {
		stats.AverageRR = rrSum / float64(rrCount)
		stats.BestRR = rrBest
		stats.WorstRR = rrWorst
	}
	if holdCount > 0 {
		stats.AverageHoldTime = holdSum / time.Duration(holdCount)
	}
	if stats.TotalSignals > 0 {
		stats.ExecutionRate = float64(stats.ExecutedCount) / float64(stats.TotalSignals) * 100
	}
	stats.MaxDrawdown = maxDrawdown(executed)
	stats.PerformanceGrade = performanceGrade(stats.WinRate, stats.AverageRR, stats.ExecutionRate)
	return stats
}

// maxDrawdown tracks the running peak of cumulative pnl over executed
// signals in execution-time order and reports the deepest trough below it.
func maxDrawdown(executed []domain.SignalExecutionData) float64 {
	if len(executed) == 0 {
		return 0
	}
	sorted := make([]domain.SignalExecutionData, len(executed))
	copy(sorted, executed)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ExecutionTime.Before(sorted[j].ExecutionTime)
	})

	var running, peak, worst float64
	for _, rec := range sorted {
		running += rec.PnL
		if running > peak {
			peak = running
		}
		if dd := peak - running; dd > worst {
			worst = dd
		}
	}
	return worst
}

// performanceGrade maps a blended score of win rate, risk:reward, and
// execution rate onto a letter grade.
func performanceGrade(winRate, averageRR, executionRate float64) string {
	rrComponent := averageRR * 25
	if rrComponent > 100 {
		rrComponent = 100
	}
	score := winRate*0.4 + rrComponent*0.4 + executionRate*0.2
	switch {
	case score >= 80:
		return "A"
	case score >= 70:
		return "B"
	case score >= 60:
		return "C"
	case score >= 50:
		return "D"
	default:
		return "F"
	}
}

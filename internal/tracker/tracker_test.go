package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalward/signalward/internal/domain"
)

func rrPtr(v float64) *float64 { return &v }

func closedRecord(id, provider string, outcome domain.Outcome, pnl float64, executedAt time.Time) domain.SignalExecutionData {
	closeAt := executedAt.Add(2 * time.Hour)
	return domain.SignalExecutionData{
		ID:            id,
		ProviderID:    provider,
		Symbol:        "EURUSD",
		Direction:     domain.ActionBuy,
		Status:        domain.StatusClosed,
		Outcome:       outcome,
		PnL:           pnl,
		ExecutionTime: executedAt,
		CloseTime:     &closeAt,
	}
}

func TestTracker_UpsertLaw(t *testing.T) {
	tr := New(NewMemoryStore(), nil)
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	rec := closedRecord("sig-1", "prov-a", domain.OutcomeWin, 100, base)
	require.NoError(t, tr.AddSignalData(ctx, rec))

	// same ID again with updated fields replaces, never duplicates
	rec.Outcome = domain.OutcomeLoss
	rec.PnL = -40
	require.NoError(t, tr.AddSignalData(ctx, rec))

	stats, err := tr.SuccessStats(ctx, "prov-a")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalSignals, "upsert must count the record once")
	assert.Equal(t, 1, stats.LossCount)
	assert.Equal(t, 0, stats.WinCount)
	assert.InDelta(t, -40, stats.TotalPnL, 1e-9)
}

func TestTracker_StatsComputation(t *testing.T) {
	tr := New(NewMemoryStore(), nil)
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	win1 := closedRecord("s1", "p", domain.OutcomeWin, 100, base)
	win1.RiskRewardRatio = rrPtr(2.0)
	win1.SignalFormat = "structured"
	loss := closedRecord("s2", "p", domain.OutcomeLoss, -50, base.Add(time.Hour))
	loss.RiskRewardRatio = rrPtr(1.0)
	loss.SignalFormat = "structured"
	win2 := closedRecord("s3", "p", domain.OutcomeWin, 80, base.Add(2*time.Hour))
	win2.RiskRewardRatio = rrPtr(3.0)
	win2.SignalFormat = "freeform"
	pending := domain.SignalExecutionData{
		ID: "s4", ProviderID: "p", Status: domain.StatusPending,
		ExecutionTime: base.Add(3 * time.Hour),
	}
	cancelled := domain.SignalExecutionData{
		ID: "s5", ProviderID: "p", Status: domain.StatusCancelled,
		ExecutionTime: base.Add(4 * time.Hour),
	}

	require.NoError(t, tr.AddSignalDataBatch(ctx, []domain.SignalExecutionData{win1, loss, win2, pending, cancelled}))

	stats, err := tr.SuccessStats(ctx, "p")
	require.NoError(t, err)

	assert.Equal(t, 5, stats.TotalSignals)
	assert.Equal(t, 3, stats.ExecutedCount)
	assert.Equal(t, 1, stats.PendingCount)
	assert.Equal(t, 1, stats.CancelledCount)
	assert.InDelta(t, 66.666667, stats.WinRate, 1e-4)
	assert.InDelta(t, 2.0, stats.AverageRR, 1e-9)
	assert.Equal(t, 3.0, stats.BestRR)
	assert.Equal(t, 1.0, stats.WorstRR)
	assert.InDelta(t, 130, stats.TotalPnL, 1e-9)
	assert.InDelta(t, 60, stats.ExecutionRate, 1e-9) // 3 of 5
	assert.Equal(t, 2*time.Hour, stats.AverageHoldTime)
	assert.Equal(t, map[string]int{"structured": 2, "freeform": 1}, stats.FormatDistribution)
}

func TestTracker_MaxDrawdownPeakTracking(t *testing.T) {
	tr := New(NewMemoryStore(), nil)
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	// cumulative pnl: 100, 50, -30, 0 -> peak 100, deepest trough -30
	pnls := []float64{100, -50, -80, 30}
	recs := make([]domain.SignalExecutionData, 0, len(pnls))
	for i, pnl := range pnls {
		outcome := domain.OutcomeWin
		if pnl < 0 {
			outcome = domain.OutcomeLoss
		}
		recs = append(recs, closedRecord(
			string(rune('a'+i)), "p", outcome, pnl, base.Add(time.Duration(i)*time.Hour)))
	}
	require.NoError(t, tr.AddSignalDataBatch(ctx, recs))

	stats, err := tr.SuccessStats(ctx, "p")
	require.NoError(t, err)
	assert.InDelta(t, 130, stats.MaxDrawdown, 1e-9)
}

func TestTracker_PerformanceGrade(t *testing.T) {
	tests := []struct {
		name                              string
		winRate, averageRR, executionRate float64
		expected                          string
	}{
		{"strong everything", 90, 4.0, 100, "A"}, // 36 + 40 + 20 = 96
		{"solid", 75, 2.5, 90, "B"},              // 30 + 25 + 18 = 73
		{"middling", 60, 2.0, 80, "C"},           // 24 + 20 + 16 = 60
		{"marginal", 50, 2.0, 60, "D"},           // 20 + 20 + 12 = 52
		{"weak", 20, 0.5, 40, "F"},               // 8 + 5 + 8 = 21
		{"rr component caps at 100", 90, 10.0, 100, "A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, performanceGrade(tt.winRate, tt.averageRR, tt.executionRate))
		})
	}
}

func TestTracker_IdempotentReadsWithinTTL(t *testing.T) {
	tr := New(NewMemoryStore(), &Config{CacheTTL: time.Hour})
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	require.NoError(t, tr.AddSignalData(ctx, closedRecord("s1", "p", domain.OutcomeWin, 50, base)))

	first, err := tr.AllProviderStats(ctx)
	require.NoError(t, err)
	second, err := tr.AllProviderStats(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second, "repeated reads within the TTL must not drift")
	assert.Same(t, first["p"], second["p"], "cached stats are served, not recomputed")
}

func TestTracker_Reset(t *testing.T) {
	tr := New(NewMemoryStore(), nil)
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	require.NoError(t, tr.AddSignalData(ctx, closedRecord("s1", "pa", domain.OutcomeWin, 50, base)))
	require.NoError(t, tr.AddSignalData(ctx, closedRecord("s2", "pb", domain.OutcomeLoss, -20, base)))

	require.NoError(t, tr.Reset(ctx, "pa"))
	providers, err := tr.ProviderIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"pb"}, providers)

	stats, err := tr.SuccessStats(ctx, "pa")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalSignals)

	require.NoError(t, tr.Reset(ctx, ""))
	total, err := tr.TotalSignals(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestTracker_AssignsIDWhenMissing(t *testing.T) {
	tr := New(NewMemoryStore(), nil)
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	rec := closedRecord("", "p", domain.OutcomeWin, 10, base)
	require.NoError(t, tr.AddSignalData(ctx, rec))
	rec2 := closedRecord("", "p", domain.OutcomeWin, 10, base)
	require.NoError(t, tr.AddSignalData(ctx, rec2))

	stats, err := tr.SuccessStats(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalSignals, "generated IDs must not collide")
}

func TestTracker_RejectsMissingProvider(t *testing.T) {
	tr := New(NewMemoryStore(), nil)
	err := tr.AddSignalData(context.Background(), domain.SignalExecutionData{ID: "x"})
	assert.Error(t, err)
}

package metrics

import (
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalward/signalward/internal/filters"
)

func gatherFamily(t *testing.T, c *Collector, name string) *dto.MetricFamily {
	t.Helper()
	families, err := c.Registry().Gather()
	require.NoError(t, err)
	for _, fam := range families {
		if fam.GetName() == name {
			return fam
		}
	}
	return nil
}

func counterValue(fam *dto.MetricFamily, label, value string) float64 {
	if fam == nil {
		return 0
	}
	for _, m := range fam.GetMetric() {
		for _, lp := range m.GetLabel() {
			if lp.GetName() == label && lp.GetValue() == value {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestCollector_RecordVerdict(t *testing.T) {
	c := NewCollector()

	blocked := &filters.Verdict{
		Allow: false,
		Results: map[string]*filters.Result{
			filters.EvaluatorRiskReward: {Passes: false, Reason: "ratio too low"},
			filters.EvaluatorMargin:     {Passes: true},
			filters.EvaluatorKeywords:   {Passes: false, Reason: "blocked keyword"},
		},
	}
	c.RecordVerdict(blocked, 2*time.Millisecond)
	c.RecordVerdict(&filters.Verdict{Allow: true, Results: map[string]*filters.Result{}}, time.Millisecond)

	verdicts := gatherFamily(t, c, "signalward_verdicts_total")
	assert.Equal(t, 1.0, counterValue(verdicts, "result", "blocked"))
	assert.Equal(t, 1.0, counterValue(verdicts, "result", "admitted"))

	failures := gatherFamily(t, c, "signalward_filter_failures_total")
	assert.Equal(t, 1.0, counterValue(failures, "evaluator", filters.EvaluatorRiskReward))
	assert.Equal(t, 1.0, counterValue(failures, "evaluator", filters.EvaluatorKeywords))
	assert.Equal(t, 0.0, counterValue(failures, "evaluator", filters.EvaluatorMargin))

	duration := gatherFamily(t, c, "signalward_evaluation_duration_seconds")
	require.NotNil(t, duration)
	require.Len(t, duration.GetMetric(), 1)
	assert.Equal(t, uint64(2), duration.GetMetric()[0].GetHistogram().GetSampleCount())
}

func TestCollector_RecordIngest(t *testing.T) {
	c := NewCollector()
	c.RecordIngest(3)
	c.RecordIngest(1)

	fam := gatherFamily(t, c, "signalward_execution_records_total")
	require.NotNil(t, fam)
	require.Len(t, fam.GetMetric(), 1)
	assert.Equal(t, 4.0, fam.GetMetric()[0].GetCounter().GetValue())
}

package filters

import (
	"fmt"
	"time"

	"github.com/signalward/signalward/internal/domain"
)

// Evaluator names used as keys in Verdict.Results and as metric labels.
const (
	EvaluatorRiskReward = "risk_reward"
	EvaluatorMargin     = "margin"
	EvaluatorTimeWindow = "time_window"
	EvaluatorKeywords   = "keyword_blacklist"
)

// Verdict is the pipeline's admission decision for one signal.
type Verdict struct {
	Allow     bool               `json:"allow"`
	Reasons   []string           `json:"reasons"`
	Results   map[string]*Result `json:"results"`
	Timestamp time.Time          `json:"timestamp"`
}

// Summary returns a one-line human-readable verdict.
func (v *Verdict) Summary() string {
	if v.Allow {
		return fmt.Sprintf("✅ ADMITTED (%d evaluators passed)", len(v.Results))
	}
	return fmt.Sprintf("❌ BLOCKED (%d failures: %s)", len(v.Reasons), v.Reasons[0])
}

// PipelineConfig bundles the four evaluator configurations. Each evaluator
// is independently enabled; disabled evaluators are skipped and contribute
// no veto.
type PipelineConfig struct {
	RiskReward RiskRewardConfig       `yaml:"risk_reward"`
	Margin     MarginFilterConfig     `yaml:"margin"`
	TimeWindow TimeWindowConfig       `yaml:"time_window"`
	Keywords   KeywordBlacklistConfig `yaml:"keyword_blacklist"`
}

func DefaultPipelineConfig() *PipelineConfig {
	return &PipelineConfig{
		RiskReward: *DefaultRiskRewardConfig(),
		Margin:     *DefaultMarginFilterConfig(),
		TimeWindow: *DefaultTimeWindowConfig(),
		Keywords:   *DefaultKeywordBlacklistConfig(),
	}
}

// Pipeline composes the four admission evaluators. It holds no mutable
// state: Evaluate is a pure function of (signal, margin snapshot, clock,
// configs), so it is safely re-runnable against historical snapshots for
// backtesting.
type Pipeline struct {
	config     *PipelineConfig
	riskReward *RiskRewardFilter
	margin     *MarginFilter
	timeWindow *TimeWindowFilter
	keywords   *KeywordFilter
}

// NewPipeline builds a pipeline from the given configuration. A nil holiday
// calendar disables the holiday exclusion.
func NewPipeline(config *PipelineConfig, holidays HolidayCalendar) *Pipeline {
	if config == nil {
		config = DefaultPipelineConfig()
	}
	return &Pipeline{
		config:     config,
		riskReward: NewRiskRewardFilter(&config.RiskReward),
		margin:     NewMarginFilter(&config.Margin),
		timeWindow: NewTimeWindowFilter(&config.TimeWindow, holidays),
		keywords:   NewKeywordFilter(&config.Keywords),
	}
}

// Evaluate runs every enabled evaluator independently and admits the signal
// only when all of them pass. Reasons carries every failing evaluator's
// reason, not just the first.
func (p *Pipeline) Evaluate(sig *domain.Signal, margin *domain.MarginStatus, now time.Time) *Verdict {
	verdict := &Verdict{
		Reasons:   []string{},
		Results:   make(map[string]*Result, 4),
		Timestamp: now,
	}

	if p.config.RiskReward.Enabled {
		verdict.Results[EvaluatorRiskReward] = p.riskReward.Evaluate(sig)
	}
	if p.config.Margin.Enabled {
		verdict.Results[EvaluatorMargin] = p.margin.Evaluate(sig, margin)
	}
	if p.config.TimeWindow.Enabled {
		verdict.Results[EvaluatorTimeWindow] = p.timeWindow.Evaluate(now)
	}
	if p.config.Keywords.Enabled {
		verdict.Results[EvaluatorKeywords] = p.keywords.Evaluate(sig.RawMessage)
	}

	for _, name := range []string{EvaluatorRiskReward, EvaluatorMargin, EvaluatorTimeWindow, EvaluatorKeywords} {
		if res, ok := verdict.Results[name]; ok && !res.Passes {
			verdict.Reasons = append(verdict.Reasons, fmt.Sprintf("%s: %s", name, res.Reason))
		}
	}
	verdict.Allow = len(verdict.Reasons) == 0
	return verdict
}

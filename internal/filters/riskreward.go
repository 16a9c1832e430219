package filters

import (
	"fmt"

	"github.com/signalward/signalward/internal/domain"
	"github.com/signalward/signalward/internal/instrument"
)

// RRMethod selects how multi-target rewards are aggregated into one number.
type RRMethod string

const (
	RRSimple       RRMethod = "simple"       // reward = distance to TP1 only
	RRWeighted     RRMethod = "weighted"     // weighted mean over configured TP weights
	RRConservative RRMethod = "conservative" // nearest TP in the profit direction
)

// RiskRewardConfig configures the risk:reward evaluator.
type RiskRewardConfig struct {
	Enabled      bool                           `yaml:"enabled"`
	MinimumRatio float64                        `yaml:"minimum_ratio"`
	Method       RRMethod                       `yaml:"method"`
	TPWeights    [domain.MaxTakeProfits]float64 `yaml:"tp_weights"`
}

// DefaultRiskRewardConfig returns the production defaults: 1.5 minimum with
// simple TP1-based rewards and front-loaded weights for the weighted method.
func DefaultRiskRewardConfig() *RiskRewardConfig {
	return &RiskRewardConfig{
		Enabled:      true,
		MinimumRatio: 1.5,
		Method:       RRSimple,
		TPWeights:    [domain.MaxTakeProfits]float64{0.5, 0.3, 0.2, 0, 0},
	}
}

// RiskRewardFilter admits signals whose risk:reward ratio clears the
// configured minimum.
type RiskRewardFilter struct {
	config *RiskRewardConfig
}

func NewRiskRewardFilter(config *RiskRewardConfig) *RiskRewardFilter {
	if config == nil {
		config = DefaultRiskRewardConfig()
	}
	return &RiskRewardFilter{config: config}
}

// Evaluate computes the signal's risk:reward ratio under the configured
// aggregation method and checks it against the minimum. Missing entry,
// stop-loss, or take-profits block the signal; they never raise.
func (f *RiskRewardFilter) Evaluate(sig *domain.Signal) *Result {
	if sig.EntryPrice <= 0 || sig.StopLoss <= 0 {
		res := block("entry or stop-loss missing", 0)
		res.Details["ratio"] = 0.0
		return res
	}

	risk := instrument.Pips(sig.Symbol, sig.EntryPrice, sig.StopLoss)
	if risk <= 0 {
		// Entry equals stop-loss: zero risk distance is never admissible,
		// regardless of reward.
		res := block("zero risk distance (entry equals stop-loss)", 0)
		res.Details["ratio"] = 0.0
		return res
	}

	targets := presentTargets(sig)
	if len(targets) == 0 {
		res := block("no take-profit levels", 0)
		res.Details["ratio"] = 0.0
		return res
	}

	reward := f.reward(sig, targets)
	ratio := reward / risk
	passes := ratio >= f.config.MinimumRatio

	var confidence float64
	if passes {
		confidence = clamp(50+(ratio-f.config.MinimumRatio)*25, 0, 100)
	} else if f.config.MinimumRatio > 0 {
		confidence = clamp(ratio/f.config.MinimumRatio*50, 0, 100)
	}

	res := &Result{Passes: passes, Confidence: confidence, Details: map[string]interface{}{}}
	res.Details["ratio"] = ratio
	res.Details["risk_pips"] = risk
	res.Details["reward_pips"] = reward
	res.Details["method"] = string(f.config.Method)
	if passes {
		res.Reason = fmt.Sprintf("risk:reward %.2f meets minimum %.2f", ratio, f.config.MinimumRatio)
	} else {
		res.Reason = fmt.Sprintf("risk:reward %.2f below minimum %.2f", ratio, f.config.MinimumRatio)
	}
	return res
}

// presentTargets collects the configured take-profit levels in TP1..TP5
// order, keeping their original slot index for weight lookup.
type target struct {
	slot  int
	price float64
}

func presentTargets(sig *domain.Signal) []target {
	targets := make([]target, 0, domain.MaxTakeProfits)
	for i, tp := range sig.TakeProfits {
		if i >= domain.MaxTakeProfits {
			break
		}
		if tp > 0 {
			targets = append(targets, target{slot: i, price: tp})
		}
	}
	return targets
}

func (f *RiskRewardFilter) reward(sig *domain.Signal, targets []target) float64 {
	switch f.config.Method {
	case RRWeighted:
		return f.weightedReward(sig, targets)
	case RRConservative:
		return f.conservativeReward(sig, targets)
	default:
		return instrument.Pips(sig.Symbol, sig.EntryPrice, targets[0].price)
	}
}

// weightedReward sums pip distances scaled by per-slot weights and
// renormalizes when the configured weights do not sum to 1.
func (f *RiskRewardFilter) weightedReward(sig *domain.Signal, targets []target) float64 {
	var reward, weightSum float64
	for _, tp := range targets {
		w := f.config.TPWeights[tp.slot]
		if w <= 0 {
			continue
		}
		reward += instrument.Pips(sig.Symbol, sig.EntryPrice, tp.price) * w
		weightSum += w
	}
	if weightSum > 0 && weightSum != 1 {
		reward /= weightSum
	}
	return reward
}

// conservativeReward picks the take-profit nearest to entry in the profit
// direction: the lowest TP above entry for BUY, the highest TP below entry
// for SELL. A signal with no target on the profit side earns zero reward.
func (f *RiskRewardFilter) conservativeReward(sig *domain.Signal, targets []target) float64 {
	var chosen float64
	found := false
	for _, tp := range targets {
		switch sig.Action {
		case domain.ActionSell:
			if tp.price < sig.EntryPrice && (!found || tp.price > chosen) {
				chosen = tp.price
				found = true
			}
		default:
			if tp.price > sig.EntryPrice && (!found || tp.price < chosen) {
				chosen = tp.price
				found = true
			}
		}
	}
	if !found {
		return 0
	}
	return instrument.Pips(sig.Symbol, sig.EntryPrice, chosen)
}

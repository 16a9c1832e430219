package filters

import (
	"fmt"

	"github.com/signalward/signalward/internal/domain"
)

// MarginFilterType selects which margin figure is compared to its threshold.
type MarginFilterType string

const (
	MarginPercentage MarginFilterType = "percentage" // margin level vs percentage threshold
	MarginAbsolute   MarginFilterType = "absolute"   // free margin vs absolute threshold
)

// MarginFilterConfig configures the margin evaluator.
type MarginFilterConfig struct {
	Enabled             bool             `yaml:"enabled"`
	FilterType          MarginFilterType `yaml:"filter_type"`
	ThresholdPercentage float64          `yaml:"threshold_percentage"`
	ThresholdAbsolute   float64          `yaml:"threshold_absolute"`
	AllowOverride       bool             `yaml:"allow_override"`
	OverrideSignalTypes []string         `yaml:"override_signal_types"`
	EmergencyThreshold  float64          `yaml:"emergency_threshold"`
}

func DefaultMarginFilterConfig() *MarginFilterConfig {
	return &MarginFilterConfig{
		Enabled:             true,
		FilterType:          MarginPercentage,
		ThresholdPercentage: 200.0,
		ThresholdAbsolute:   1000.0,
		AllowOverride:       false,
		EmergencyThreshold:  110.0,
	}
}

// MarginFilter admits signals based on the live account margin snapshot.
type MarginFilter struct {
	config *MarginFilterConfig
}

func NewMarginFilter(config *MarginFilterConfig) *MarginFilter {
	if config == nil {
		config = DefaultMarginFilterConfig()
	}
	return &MarginFilter{config: config}
}

// Evaluate checks the margin snapshot against the configured threshold.
// A breached emergency threshold vetoes every override: no signal type or
// manual bypass may execute once margin level drops below it. A missing or
// disconnected snapshot blocks fail-safe rather than crashing.
func (f *MarginFilter) Evaluate(sig *domain.Signal, status *domain.MarginStatus) *Result {
	if status == nil || !status.IsConnected {
		return block("margin data unavailable", 0)
	}

	currentValue := status.MarginLevel
	threshold := f.config.ThresholdPercentage
	if f.config.FilterType == MarginAbsolute {
		currentValue = status.FreeMargin
		threshold = f.config.ThresholdAbsolute
	}

	emergency := status.MarginLevel < f.config.EmergencyThreshold
	overrideApplies := f.config.AllowOverride && containsString(f.config.OverrideSignalTypes, sig.SignalType)
	basePass := currentValue >= threshold
	passes := !emergency && (basePass || overrideApplies)

	res := &Result{Passes: passes, Details: map[string]interface{}{}}
	res.Details["filter_type"] = string(f.config.FilterType)
	res.Details["current_value"] = currentValue
	res.Details["threshold"] = threshold
	res.Details["emergency"] = emergency
	res.Details["override_applied"] = passes && !basePass && overrideApplies

	switch {
	case emergency:
		res.Confidence = 0
		res.Reason = fmt.Sprintf("emergency: margin level %.2f%% below emergency threshold %.2f%%",
			status.MarginLevel, f.config.EmergencyThreshold)
	case passes && basePass:
		res.Confidence = 100
		res.Reason = fmt.Sprintf("margin %.2f meets threshold %.2f", currentValue, threshold)
	case passes:
		res.Confidence = 100
		res.Reason = fmt.Sprintf("margin %.2f below threshold %.2f, admitted by %q override",
			currentValue, threshold, sig.SignalType)
	default:
		res.Confidence = marginConfidence(currentValue, threshold)
		res.Reason = fmt.Sprintf("margin %.2f below threshold %.2f", currentValue, threshold)
	}
	return res
}

// marginConfidence scales with how close the account came to clearing the
// threshold, so near-misses report higher confidence of being admissible
// after a small margin recovery.
func marginConfidence(current, threshold float64) float64 {
	if threshold <= 0 {
		return 0
	}
	return clamp(current/threshold*100, 0, 100)
}

func containsString(list []string, v string) bool {
	if v == "" {
		return false
	}
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

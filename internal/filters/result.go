package filters

// Result is the outcome of a single evaluator run. Produced fresh on every
// evaluation and never persisted.
type Result struct {
	Passes     bool                   `json:"passes"`
	Reason     string                 `json:"reason"`
	Confidence float64                `json:"confidence"` // 0-100
	Details    map[string]interface{} `json:"details,omitempty"`
}

func pass(reason string, confidence float64) *Result {
	return &Result{Passes: true, Reason: reason, Confidence: confidence, Details: map[string]interface{}{}}
}

func block(reason string, confidence float64) *Result {
	return &Result{Passes: false, Reason: reason, Confidence: confidence, Details: map[string]interface{}{}}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

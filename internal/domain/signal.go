package domain

import "time"

// Action is the trade direction of a parsed signal.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// MaxTakeProfits is the maximum number of take-profit levels a signal carries.
const MaxTakeProfits = 5

// Signal is a parsed trading signal as produced by the external message
// parser. Immutable once produced; the admission pipeline only reads it.
// Zero prices mean "not present in the original message".
type Signal struct {
	Symbol      string    `json:"symbol"`
	Action      Action    `json:"action"`
	EntryPrice  float64   `json:"entry_price"`
	StopLoss    float64   `json:"stop_loss"`
	TakeProfits []float64 `json:"take_profits"` // up to 5 levels, zero entries absent
	LotSize     float64   `json:"lot_size"`
	RawMessage  string    `json:"raw_message"`
	SignalType  string    `json:"signal_type,omitempty"` // optional tag, e.g. "vip"
	Confidence  float64   `json:"confidence,omitempty"`  // parser confidence 0-1
}

// MarginStatus is a snapshot of live account margin supplied by the external
// broker bridge. The pipeline must tolerate a disconnected snapshot as a
// blocking condition, never a crash.
type MarginStatus struct {
	FreeMargin  float64   `json:"free_margin"`
	MarginLevel float64   `json:"margin_level"`
	Equity      float64   `json:"equity"`
	Balance     float64   `json:"balance"`
	IsConnected bool      `json:"is_connected"`
	Timestamp   time.Time `json:"timestamp"`
}

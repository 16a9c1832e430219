package domain

import "time"

// SignalStatus tracks a dispatched signal through its lifecycle.
type SignalStatus string

const (
	StatusPending   SignalStatus = "PENDING"
	StatusExecuted  SignalStatus = "EXECUTED"
	StatusClosed    SignalStatus = "CLOSED"
	StatusCancelled SignalStatus = "CANCELLED"
)

// Outcome is the terminal result of a closed signal. Empty until closed.
type Outcome string

const (
	OutcomeWin       Outcome = "WIN"
	OutcomeLoss      Outcome = "LOSS"
	OutcomeBreakeven Outcome = "BREAKEVEN"
)

// SignalExecutionData is the durable record of one signal's lifecycle,
// reported by the external order-execution subsystem. Records are created
// when a signal is dispatched and updated in place by ID as status
// progresses. Upsert-by-ID is the only legal mutation.
type SignalExecutionData struct {
	ID              string            `json:"id" db:"id"`
	ProviderID      string            `json:"provider_id" db:"provider_id"`
	Symbol          string            `json:"symbol" db:"symbol"`
	EntryPrice      float64           `json:"entry_price" db:"entry_price"`
	ExitPrice       float64           `json:"exit_price" db:"exit_price"`
	StopLoss        float64           `json:"stop_loss" db:"stop_loss"`
	TakeProfit      float64           `json:"take_profit" db:"take_profit"`
	LotSize         float64           `json:"lot_size" db:"lot_size"`
	Direction       Action            `json:"direction" db:"direction"`
	Status          SignalStatus      `json:"status" db:"status"`
	Outcome         Outcome           `json:"outcome,omitempty" db:"outcome"`
	PnL             float64           `json:"pnl" db:"pnl"`
	RiskRewardRatio *float64          `json:"risk_reward_ratio,omitempty" db:"risk_reward_ratio"`
	ExecutionTime   time.Time         `json:"execution_time" db:"execution_time"`
	CloseTime       *time.Time        `json:"close_time,omitempty" db:"close_time"`
	Confidence      *float64          `json:"confidence,omitempty" db:"confidence"`
	SignalFormat    string            `json:"signal_format,omitempty" db:"signal_format"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// IsExecuted reports whether the signal reached the market (filled or
// filled-then-closed).
func (d *SignalExecutionData) IsExecuted() bool {
	return d.Status == StatusExecuted || d.Status == StatusClosed
}

// IsResolved reports whether the signal is closed with a recorded outcome.
func (d *SignalExecutionData) IsResolved() bool {
	return d.Status == StatusClosed && d.Outcome != ""
}

// HoldTime returns the time between execution and close, or zero when the
// signal has not closed yet.
func (d *SignalExecutionData) HoldTime() time.Duration {
	if d.CloseTime == nil {
		return 0
	}
	return d.CloseTime.Sub(d.ExecutionTime)
}

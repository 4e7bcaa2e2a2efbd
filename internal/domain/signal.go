package domain

import "time"

// SignalAction is the trade a strategy wants executed.
type SignalAction string

const (
	ActionBuyYes SignalAction = "BUY_YES"
	ActionBuyNo  SignalAction = "BUY_NO"
)

// StrategySignal is emitted by a strategy to request order execution. The
// signal itself never mutates the ledger; only a confirmed fill does.
type StrategySignal struct {
	ID        string
	Action    SignalAction
	MarketID  string
	TokenID   string
	Size      float64
	Price     float64
	Reason    string
	CreatedAt time.Time
}

// Value is the USD notional of the signal.
func (s StrategySignal) Value() float64 {
	return s.Size * s.Price
}

// Valid reports whether the signal is executable: positive size and a price
// strictly inside (0, 1). Prices at the bounds carry no edge by construction.
func (s StrategySignal) Valid() bool {
	if s.Size <= 0 {
		return false
	}
	if s.Price <= 0 || s.Price >= 1 {
		return false
	}
	return true
}

// Side maps the signal action to the outcome side it buys.
func (s StrategySignal) Side() Side {
	if s.Action == ActionBuyYes {
		return SideYes
	}
	return SideNo
}

// Fill is a confirmed execution of a signal, as reported by an executor.
type Fill struct {
	ID       string
	MarketID string
	TokenID  string
	Action   SignalAction
	Size     float64
	Price    float64
	FilledAt time.Time
}

// Value is the USD notional of the fill.
func (f Fill) Value() float64 {
	return f.Size * f.Price
}

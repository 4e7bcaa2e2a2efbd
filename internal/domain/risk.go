package domain

// CircuitBreakerState is the latched trading-halt state of the risk governor.
type CircuitBreakerState string

const (
	// BreakerClosed is normal operation: trades may pass the gate.
	BreakerClosed CircuitBreakerState = "closed"
	// BreakerOpen is an automatic halt. It is sticky: only the daily reset
	// or an explicit operator reset clears it, never the passage of time.
	BreakerOpen CircuitBreakerState = "open"
	// BreakerManual is the operator kill switch. The daily reset does NOT
	// clear it; only explicit operator action does.
	BreakerManual CircuitBreakerState = "manual"
)

// RiskCheck is the result of a pre-trade gate evaluation. Reason is
// human-readable and always populated on denial.
type RiskCheck struct {
	Passed bool
	Reason string
}

// RiskStatus is a point-in-time snapshot of the governor's counters, exposed
// through the status query so denials are always observable.
type RiskStatus struct {
	CircuitBreaker     CircuitBreakerState `json:"circuit_breaker"`
	DailyPnL           float64             `json:"daily_pnl"`
	RealizedPnL        float64             `json:"realized_pnl"`
	UnrealizedByMarket map[string]float64  `json:"unrealized_pnl_by_market"`
	TotalPosition      float64             `json:"total_position"`
	MarketPositions    map[string]float64  `json:"market_positions"`
	OrdersThisMinute   int                 `json:"orders_this_minute"`
	SecondsSinceData   float64             `json:"time_since_data"`
	LossLimitRemaining float64             `json:"loss_limit_remaining"`
	LastTripReason     string              `json:"last_trip_reason,omitempty"`
}

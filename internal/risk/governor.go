// Package risk implements the circuit-breaker gate that must approve every
// order. The governor keeps rolling counters (orders per minute, daily P&L,
// position values, data freshness) and latches open on violations that
// indicate the process should stop trading rather than retry.
package risk

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/parityarb/paritybot/internal/domain"
)

// Config holds the governor's limits.
type Config struct {
	// MaxDailyLoss halts trading when daily P&L (realized + unrealized)
	// reaches -MaxDailyLoss, in USD.
	MaxDailyLoss float64
	// MaxPositionPerMarket caps the absolute cost basis per market, in USD.
	MaxPositionPerMarket float64
	// MaxPositionTotal caps the absolute cost basis across all markets, in USD.
	MaxPositionTotal float64
	// StaleDataTimeout halts trading when no market data has arrived for
	// this long.
	StaleDataTimeout time.Duration
	// MaxOrdersPerMinute bounds approved orders within a one-minute window.
	MaxOrdersPerMinute int
	// CooldownAfterError denies trades for this long after a recorded error.
	CooldownAfterError time.Duration
}

// Governor enforces risk controls at three levels: pre-trade checks before
// order placement, post-trade accounting after fills, and circuit breakers
// that auto-halt on violations. All counters live behind one mutex so checks
// observe a consistent state even when multiple feeds share the governor.
type Governor struct {
	cfg    Config
	logger *slog.Logger

	mu             sync.Mutex
	breaker        domain.CircuitBreakerState
	lastTripReason string
	onTrip         func(reason string)

	realizedPnL        float64
	dailyPnL           float64
	totalPosition      float64
	marketPositions    map[string]float64
	unrealizedByMarket map[string]float64

	lastDataUpdate time.Time

	ordersThisMinute int
	minuteStart      time.Time
	errorCount       int
	lastErrorTime    time.Time

	dayStart time.Time

	// now is swapped in tests to drive window and rollover logic.
	now func() time.Time
}

// NewGovernor creates a Governor in the closed (trading allowed) state.
func NewGovernor(cfg Config, logger *slog.Logger) *Governor {
	now := time.Now()
	return &Governor{
		cfg:                cfg,
		logger:             logger.With(slog.String("component", "risk_governor")),
		breaker:            domain.BreakerClosed,
		marketPositions:    make(map[string]float64),
		unrealizedByMarket: make(map[string]float64),
		lastDataUpdate:     now,
		minuteStart:        now,
		dayStart:           now,
		now:                time.Now,
	}
}

// OnTrip registers a callback invoked (outside the lock) whenever the breaker
// trips automatically. Used to push operator alerts.
func (g *Governor) OnTrip(fn func(reason string)) {
	g.mu.Lock()
	g.onTrip = fn
	g.mu.Unlock()
}

// PreTradeCheck decides whether a proposed order may proceed. Checks run in a
// fixed order and short-circuit on the first failure. Denials other than loss
// and staleness violations leave all state unchanged; loss and staleness
// violations additionally trip the circuit breaker.
func (g *Governor) PreTradeCheck(marketID string, orderSize, orderValue float64) domain.RiskCheck {
	g.mu.Lock()

	now := g.now()
	g.checkDailyResetLocked(now)

	// 1. Circuit breaker.
	if g.breaker != domain.BreakerClosed {
		state := g.breaker
		g.mu.Unlock()
		return domain.RiskCheck{Passed: false, Reason: fmt.Sprintf("circuit breaker %s", state)}
	}

	// 2. Daily loss limit.
	if g.dailyPnL <= -g.cfg.MaxDailyLoss {
		cb := g.tripLocked("daily loss limit exceeded")
		g.mu.Unlock()
		if cb != nil {
			cb("daily loss limit exceeded")
		}
		return domain.RiskCheck{Passed: false, Reason: "daily loss limit exceeded"}
	}

	// 3. Per-market position limit.
	newMarketPosition := g.marketPositions[marketID] + orderValue
	if abs(newMarketPosition) > g.cfg.MaxPositionPerMarket {
		g.mu.Unlock()
		return domain.RiskCheck{
			Passed: false,
			Reason: fmt.Sprintf("market position limit exceeded: %.2f > %.2f", newMarketPosition, g.cfg.MaxPositionPerMarket),
		}
	}

	// 4. Total position limit.
	newTotalPosition := g.totalPosition + orderValue
	if abs(newTotalPosition) > g.cfg.MaxPositionTotal {
		g.mu.Unlock()
		return domain.RiskCheck{
			Passed: false,
			Reason: fmt.Sprintf("total position limit exceeded: %.2f > %.2f", newTotalPosition, g.cfg.MaxPositionTotal),
		}
	}

	// 5. Stale data.
	sinceData := now.Sub(g.lastDataUpdate)
	if sinceData > g.cfg.StaleDataTimeout {
		reason := fmt.Sprintf("stale data: %.0fs since last update", sinceData.Seconds())
		cb := g.tripLocked(reason)
		g.mu.Unlock()
		if cb != nil {
			cb(reason)
		}
		return domain.RiskCheck{Passed: false, Reason: "stale data"}
	}

	// 6. Rate limit: the window resets wholesale once 60s have elapsed.
	if now.Sub(g.minuteStart) > time.Minute {
		g.ordersThisMinute = 0
		g.minuteStart = now
	}
	if g.ordersThisMinute >= g.cfg.MaxOrdersPerMinute {
		count := g.ordersThisMinute
		g.mu.Unlock()
		return domain.RiskCheck{Passed: false, Reason: fmt.Sprintf("rate limit: %d orders this minute", count)}
	}

	// 7. Post-error cooldown.
	if !g.lastErrorTime.IsZero() {
		sinceError := now.Sub(g.lastErrorTime)
		if sinceError < g.cfg.CooldownAfterError {
			remaining := g.cfg.CooldownAfterError - sinceError
			g.mu.Unlock()
			return domain.RiskCheck{Passed: false, Reason: fmt.Sprintf("cooldown: %.0fs remaining", remaining.Seconds())}
		}
	}

	g.mu.Unlock()
	return domain.RiskCheck{Passed: true}
}

// PostTradeUpdate adjusts counters after a confirmed fill and re-checks the
// daily loss threshold: mark-to-market drift between the pre-trade check and
// the fill can still cross the line.
func (g *Governor) PostTradeUpdate(marketID string, pnlChange, positionChange float64) {
	g.mu.Lock()

	g.realizedPnL += pnlChange
	g.totalPosition += positionChange
	g.marketPositions[marketID] += positionChange
	g.ordersThisMinute++
	g.recomputeDailyPnLLocked()

	g.logger.Info("risk counters updated",
		slog.Float64("daily_pnl", g.dailyPnL),
		slog.Float64("total_position", g.totalPosition),
		slog.Float64("market_position", g.marketPositions[marketID]),
	)

	var cb func(string)
	if g.dailyPnL <= -g.cfg.MaxDailyLoss {
		cb = g.tripLocked("daily loss limit exceeded")
	}
	g.mu.Unlock()
	if cb != nil {
		cb("daily loss limit exceeded")
	}
}

// UpdateMarkToMarket recomputes one market's unrealized P&L from liquidation
// bids. It runs on every book update regardless of whether a trade occurs, so
// the daily loss check always sees current valuations.
func (g *Governor) UpdateMarkToMarket(marketID string, pos *domain.MarketPosition, bidYes, bidNo float64) {
	mtm := pos.MarkToMarketPnL(bidYes, bidNo)
	g.mu.Lock()
	g.unrealizedByMarket[marketID] = mtm
	g.recomputeDailyPnLLocked()
	g.mu.Unlock()
}

// MarkDataUpdate stamps the arrival of fresh market data.
func (g *Governor) MarkDataUpdate() {
	g.mu.Lock()
	g.lastDataUpdate = g.now()
	g.mu.Unlock()
}

// RecordError starts the post-error cooldown window.
func (g *Governor) RecordError() {
	g.mu.Lock()
	g.errorCount++
	g.lastErrorTime = g.now()
	count := g.errorCount
	g.mu.Unlock()
	g.logger.Warn("error recorded", slog.Int("error_count", count))
}

// TripCircuitBreaker transitions the breaker CLOSED→OPEN. The transition is
// one-directional: only the daily reset or an operator reset reopens trading.
func (g *Governor) TripCircuitBreaker(reason string) {
	g.mu.Lock()
	cb := g.tripLocked(reason)
	g.mu.Unlock()
	if cb != nil {
		cb(reason)
	}
}

// tripLocked flips the breaker if currently closed and returns the trip
// callback to invoke after the lock is released.
func (g *Governor) tripLocked(reason string) func(string) {
	if g.breaker != domain.BreakerClosed {
		return nil
	}
	g.breaker = domain.BreakerOpen
	g.lastTripReason = reason
	g.logger.Error("CIRCUIT BREAKER TRIPPED", slog.String("reason", reason))
	return g.onTrip
}

// ManualKillSwitch halts trading until an operator explicitly resets. The
// daily reset deliberately does not clear this state.
func (g *Governor) ManualKillSwitch() {
	g.mu.Lock()
	g.breaker = domain.BreakerManual
	g.lastTripReason = "manual kill switch"
	g.mu.Unlock()
	g.logger.Error("MANUAL KILL SWITCH ACTIVATED")
}

// OperatorReset clears any breaker state, including manual. Operator-only.
func (g *Governor) OperatorReset() {
	g.mu.Lock()
	g.breaker = domain.BreakerClosed
	g.lastTripReason = ""
	g.mu.Unlock()
	g.logger.Warn("circuit breaker reset by operator")
}

// TradingAllowed reports whether the breaker is closed.
func (g *Governor) TradingAllowed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.breaker == domain.BreakerClosed
}

// Status returns a snapshot of the governor's state for the status query.
func (g *Governor) Status() domain.RiskStatus {
	g.mu.Lock()
	defer g.mu.Unlock()

	unrealized := make(map[string]float64, len(g.unrealizedByMarket))
	for k, v := range g.unrealizedByMarket {
		unrealized[k] = v
	}
	positions := make(map[string]float64, len(g.marketPositions))
	for k, v := range g.marketPositions {
		positions[k] = v
	}

	return domain.RiskStatus{
		CircuitBreaker:     g.breaker,
		DailyPnL:           g.dailyPnL,
		RealizedPnL:        g.realizedPnL,
		UnrealizedByMarket: unrealized,
		TotalPosition:      g.totalPosition,
		MarketPositions:    positions,
		OrdersThisMinute:   g.ordersThisMinute,
		SecondsSinceData:   g.now().Sub(g.lastDataUpdate).Seconds(),
		LossLimitRemaining: g.cfg.MaxDailyLoss + g.dailyPnL,
		LastTripReason:     g.lastTripReason,
	}
}

// checkDailyResetLocked rolls daily counters when the wall-clock date has
// advanced past the stored day start. An OPEN breaker reopens with the new
// day; a MANUAL breaker stays latched until an operator clears it.
func (g *Governor) checkDailyResetLocked(now time.Time) {
	if !dateAfter(now, g.dayStart) {
		return
	}
	g.logger.Info("new trading day, resetting daily counters")
	g.realizedPnL = 0
	g.unrealizedByMarket = make(map[string]float64)
	g.dailyPnL = 0
	g.ordersThisMinute = 0
	g.dayStart = now
	if g.breaker == domain.BreakerOpen {
		g.breaker = domain.BreakerClosed
		g.lastTripReason = ""
	}
}

func (g *Governor) recomputeDailyPnLLocked() {
	total := g.realizedPnL
	for _, v := range g.unrealizedByMarket {
		total += v
	}
	g.dailyPnL = total
}

func dateAfter(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	if ay != by {
		return ay > by
	}
	if am != bm {
		return am > bm
	}
	return ad > bd
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

package risk

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parityarb/paritybot/internal/domain"
)

func testConfig() Config {
	return Config{
		MaxDailyLoss:         50,
		MaxPositionPerMarket: 100,
		MaxPositionTotal:     500,
		StaleDataTimeout:     30 * time.Second,
		MaxOrdersPerMinute:   3,
		CooldownAfterError:   30 * time.Second,
	}
}

// testGovernor returns a governor on a frozen clock. Mutate *clock to advance
// time; call MarkDataUpdate afterwards unless the test wants stale data.
func testGovernor(t *testing.T, cfg Config) (*Governor, *time.Time) {
	t.Helper()
	clock := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	g := NewGovernor(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	g.now = func() time.Time { return clock }
	g.lastDataUpdate = clock
	g.minuteStart = clock
	g.dayStart = clock
	return g, &clock
}

func TestPreTradeCheck_Passes(t *testing.T) {
	g, _ := testGovernor(t, testConfig())

	check := g.PreTradeCheck("mkt-1", 10, 5)
	assert.True(t, check.Passed)
	assert.Empty(t, check.Reason)
}

func TestPreTradeCheck_BreakerBlocksEverything(t *testing.T) {
	g, _ := testGovernor(t, testConfig())
	g.TripCircuitBreaker("test trip")

	check := g.PreTradeCheck("mkt-1", 10, 5)
	assert.False(t, check.Passed)
	assert.Equal(t, "circuit breaker open", check.Reason)
	assert.False(t, g.TradingAllowed())
}

func TestPreTradeCheck_DailyLossTripsAndLatches(t *testing.T) {
	g, _ := testGovernor(t, testConfig())

	pos := &domain.MarketPosition{}
	pos.Yes.AddShares(100, 0.60)
	// Bids collapsed to zero: mark-to-market -60, past the -50 limit.
	g.UpdateMarkToMarket("mkt-1", pos, 0, 0)

	check := g.PreTradeCheck("mkt-1", 10, 5)
	require.False(t, check.Passed)
	assert.Equal(t, "daily loss limit exceeded", check.Reason)

	// Latched: the follow-up denial comes from the breaker even if the
	// valuation recovers.
	g.UpdateMarkToMarket("mkt-1", pos, 0.60, 0)
	check = g.PreTradeCheck("mkt-1", 10, 5)
	assert.False(t, check.Passed)
	assert.Equal(t, "circuit breaker open", check.Reason)
}

func TestPreTradeCheck_PositionLimits(t *testing.T) {
	g, _ := testGovernor(t, testConfig())

	// Per-market cap: existing 95 + 10 > 100.
	g.PostTradeUpdate("mkt-1", 0, 95)
	check := g.PreTradeCheck("mkt-1", 10, 10)
	require.False(t, check.Passed)
	assert.Contains(t, check.Reason, "market position limit exceeded")

	// A different market is unaffected by the per-market cap.
	check = g.PreTradeCheck("mkt-2", 10, 10)
	assert.True(t, check.Passed)
}

func TestPreTradeCheck_TotalPositionLimit(t *testing.T) {
	cfg := testConfig()
	cfg.MaxPositionPerMarket = 500
	g, _ := testGovernor(t, cfg)

	g.PostTradeUpdate("mkt-1", 0, 250)
	g.PostTradeUpdate("mkt-2", 0, 245)

	check := g.PreTradeCheck("mkt-3", 10, 10)
	require.False(t, check.Passed)
	assert.Contains(t, check.Reason, "total position limit exceeded")
}

func TestPreTradeCheck_StaleDataTrips(t *testing.T) {
	g, clock := testGovernor(t, testConfig())

	*clock = clock.Add(31 * time.Second)

	check := g.PreTradeCheck("mkt-1", 10, 5)
	require.False(t, check.Passed)
	assert.Equal(t, "stale data", check.Reason)
	assert.False(t, g.TradingAllowed())

	// Fresh data alone does not reopen the breaker.
	g.MarkDataUpdate()
	check = g.PreTradeCheck("mkt-1", 10, 5)
	assert.Equal(t, "circuit breaker open", check.Reason)
}

func TestPreTradeCheck_RateWindowResetsWholesale(t *testing.T) {
	g, clock := testGovernor(t, testConfig())

	for i := 0; i < 3; i++ {
		require.True(t, g.PreTradeCheck("mkt-1", 1, 1).Passed)
		g.PostTradeUpdate("mkt-1", 0, 1)
	}

	check := g.PreTradeCheck("mkt-1", 1, 1)
	require.False(t, check.Passed)
	assert.Equal(t, "rate limit: 3 orders this minute", check.Reason)

	// Past the window the counter resets in one step.
	*clock = clock.Add(61 * time.Second)
	g.MarkDataUpdate()
	assert.True(t, g.PreTradeCheck("mkt-1", 1, 1).Passed)
	assert.Equal(t, 0, g.Status().OrdersThisMinute)
}

func TestPreTradeCheck_ErrorCooldown(t *testing.T) {
	g, clock := testGovernor(t, testConfig())

	g.RecordError()

	check := g.PreTradeCheck("mkt-1", 1, 1)
	require.False(t, check.Passed)
	assert.Equal(t, "cooldown: 30s remaining", check.Reason)

	*clock = clock.Add(30 * time.Second)
	g.MarkDataUpdate()
	assert.True(t, g.PreTradeCheck("mkt-1", 1, 1).Passed)
}

func TestPostTradeUpdate_CanTripLossLimit(t *testing.T) {
	g, _ := testGovernor(t, testConfig())

	var tripped string
	g.OnTrip(func(reason string) { tripped = reason })

	g.PostTradeUpdate("mkt-1", -60, 10)

	assert.Equal(t, "daily loss limit exceeded", tripped)
	assert.False(t, g.TradingAllowed())
}

func TestDailyReset_ReopensAutomaticTripOnly(t *testing.T) {
	g, clock := testGovernor(t, testConfig())

	g.TripCircuitBreaker("bad day")
	g.PostTradeUpdate("mkt-1", -10, 20)

	// Next calendar day: counters clear and the OPEN breaker reopens.
	*clock = clock.Add(24 * time.Hour)
	g.MarkDataUpdate()
	check := g.PreTradeCheck("mkt-1", 1, 1)
	assert.True(t, check.Passed)

	status := g.Status()
	assert.Equal(t, 0.0, status.DailyPnL)
	assert.Equal(t, domain.BreakerClosed, status.CircuitBreaker)
	// Position caps persist across days.
	assert.InDelta(t, 20.0, status.TotalPosition, 1e-9)
}

func TestDailyReset_ManualStaysLatched(t *testing.T) {
	g, clock := testGovernor(t, testConfig())

	g.ManualKillSwitch()

	*clock = clock.Add(24 * time.Hour)
	g.MarkDataUpdate()
	check := g.PreTradeCheck("mkt-1", 1, 1)
	require.False(t, check.Passed)
	assert.Equal(t, "circuit breaker manual", check.Reason)

	// Only the operator clears manual.
	g.OperatorReset()
	assert.True(t, g.PreTradeCheck("mkt-1", 1, 1).Passed)
}

func TestOnTrip_FiresOncePerTrip(t *testing.T) {
	g, _ := testGovernor(t, testConfig())

	var calls int
	g.OnTrip(func(string) { calls++ })

	g.TripCircuitBreaker("first")
	g.TripCircuitBreaker("second") // already open, no second callback

	assert.Equal(t, 1, calls)
	assert.Equal(t, "first", g.Status().LastTripReason)
}

func TestStatus_Snapshot(t *testing.T) {
	g, clock := testGovernor(t, testConfig())

	g.PostTradeUpdate("mkt-1", 0, 9.7)
	pos := &domain.MarketPosition{}
	pos.Yes.AddShares(10, 0.45)
	pos.No.AddShares(10, 0.52)
	g.UpdateMarkToMarket("mkt-1", pos, 0.50, 0.50)
	*clock = clock.Add(5 * time.Second)

	status := g.Status()
	assert.Equal(t, domain.BreakerClosed, status.CircuitBreaker)
	assert.InDelta(t, 0.30, status.DailyPnL, 1e-9)
	assert.InDelta(t, 0.30, status.UnrealizedByMarket["mkt-1"], 1e-9)
	assert.InDelta(t, 9.7, status.MarketPositions["mkt-1"], 1e-9)
	assert.Equal(t, 1, status.OrdersThisMinute)
	assert.InDelta(t, 5.0, status.SecondsSinceData, 1e-9)
	assert.InDelta(t, 50.30, status.LossLimitRemaining, 1e-9)
}

package engine

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parityarb/paritybot/internal/domain"
	"github.com/parityarb/paritybot/internal/ledger"
	"github.com/parityarb/paritybot/internal/risk"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testStrategyConfig() Config {
	return Config{
		PairCostThreshold: 0.99,
		OrderSize:         10,
		MinLiquidity:      50,
		MaxImbalance:      0.30,
		SlippageBuffer:    0.008,
		SafetyMargin:      0.005,
		FeeExtraMargin:    0.010,
	}
}

func newTestStrategy(t *testing.T, cfg Config) (*BinaryParity, *ledger.Ledger) {
	t.Helper()
	book := ledger.New(testLogger())
	gov := risk.NewGovernor(risk.Config{
		MaxDailyLoss:         1000,
		MaxPositionPerMarket: 1000,
		MaxPositionTotal:     5000,
		StaleDataTimeout:     time.Minute,
		MaxOrdersPerMinute:   100,
		CooldownAfterError:   time.Second,
	}, testLogger())
	return NewBinaryParity(cfg, book, gov, testLogger()), book
}

func testState() domain.MarketState {
	return domain.MarketState{
		MarketID:     "mkt-1",
		ConditionID:  "0xc0ffee",
		YesTokenID:   "yes-1",
		NoTokenID:    "no-1",
		PriceYes:     0.45,
		PriceNo:      0.52,
		LiquidityYes: 500,
		LiquidityNo:  500,
		Timestamp:    time.Now().UTC(),
	}
}

func TestFactory(t *testing.T) {
	book := ledger.New(testLogger())
	gov := risk.NewGovernor(risk.Config{}, testLogger())

	strat, err := New("binary_parity", testStrategyConfig(), book, gov, testLogger())
	require.NoError(t, err)
	assert.Equal(t, "binary_parity", strat.Name())

	_, err = New("momentum", testStrategyConfig(), book, gov, testLogger())
	assert.ErrorIs(t, err, domain.ErrUnknownStrategy)
}

func TestEffectiveThreshold(t *testing.T) {
	strat, _ := newTestStrategy(t, testStrategyConfig())

	// min(0.99, 1 - 0.008 - 0.005) = 0.987
	assert.InDelta(t, 0.987, strat.effectiveThreshold(false), 1e-9)
	// Fee-enabled markets subtract the extra margin.
	assert.InDelta(t, 0.977, strat.effectiveThreshold(true), 1e-9)

	// A tighter configured threshold wins.
	cfg := testStrategyConfig()
	cfg.PairCostThreshold = 0.95
	strat, _ = newTestStrategy(t, cfg)
	assert.InDelta(t, 0.95, strat.effectiveThreshold(false), 1e-9)
}

func TestOnMarketUpdate_BuysYesFirst(t *testing.T) {
	// A first buy on an empty position always projects imbalance 1.0, so
	// allow it here; the imbalance gate has its own test.
	cfg := testStrategyConfig()
	cfg.MaxImbalance = 1.0
	strat, _ := newTestStrategy(t, cfg)

	sig, err := strat.OnMarketUpdate(context.Background(), testState())
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, domain.ActionBuyYes, sig.Action)
	assert.Equal(t, "yes-1", sig.TokenID)
	assert.InDelta(t, 0.45, sig.Price, 1e-9)
	assert.InDelta(t, 10.0, sig.Size, 1e-9)
	assert.NotEmpty(t, sig.ID)
	assert.Contains(t, sig.Reason, "BUY_YES")
}

func TestOnMarketUpdate_ImbalanceGateForcesAlternation(t *testing.T) {
	strat, book := newTestStrategy(t, testStrategyConfig())

	// Holding 10 YES: another YES buy projects imbalance 1.0, blocked; a NO
	// buy balances to 0.0, allowed.
	book.GetOrCreate("mkt-1", "0xc0ffee", "yes-1", "no-1")
	require.NoError(t, book.ApplyFill("mkt-1", "yes-1", 10, 0.45))

	sig, err := strat.OnMarketUpdate(context.Background(), testState())
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, domain.ActionBuyNo, sig.Action)
	assert.Equal(t, "no-1", sig.TokenID)
}

func TestOnMarketUpdate_InvalidSignalFallsThroughToNo(t *testing.T) {
	cfg := testStrategyConfig()
	cfg.MaxImbalance = 1.0
	strat, _ := newTestStrategy(t, cfg)

	// A zero YES price passes every gate (projected pair cost 0) but fails
	// signal validation; the NO candidate must still be evaluated.
	state := testState()
	state.PriceYes = 0

	sig, err := strat.OnMarketUpdate(context.Background(), state)
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, domain.ActionBuyNo, sig.Action)
	assert.InDelta(t, 0.52, sig.Price, 1e-9)
}

func TestOnMarketUpdate_ThresholdGate(t *testing.T) {
	cfg := testStrategyConfig()
	cfg.MaxImbalance = 1.0
	strat, _ := newTestStrategy(t, cfg)

	// On an empty position the projected pair cost equals the buy price;
	// 0.99 exceeds the 0.987 effective threshold on both sides.
	state := testState()
	state.PriceYes = 0.99
	state.PriceNo = 0.99

	sig, err := strat.OnMarketUpdate(context.Background(), state)
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestOnMarketUpdate_LiquidityGate(t *testing.T) {
	cfg := testStrategyConfig()
	cfg.MaxImbalance = 1.0
	strat, _ := newTestStrategy(t, cfg)

	// YES side too thin: the strategy falls through to NO.
	state := testState()
	state.LiquidityYes = 10

	sig, err := strat.OnMarketUpdate(context.Background(), state)
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, domain.ActionBuyNo, sig.Action)

	// Both sides too thin: no signal.
	state.LiquidityNo = 10
	sig, err = strat.OnMarketUpdate(context.Background(), state)
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestOnMarketUpdate_FeeMarginTightensThreshold(t *testing.T) {
	cfg := testStrategyConfig()
	cfg.MaxImbalance = 1.0
	strat, _ := newTestStrategy(t, cfg)

	// 0.98 passes the fee-free threshold 0.987 but not the fee-enabled 0.977.
	state := testState()
	state.PriceYes = 0.98
	state.PriceNo = 0.99

	sig, err := strat.OnMarketUpdate(context.Background(), state)
	require.NoError(t, err)
	require.NotNil(t, sig)

	// Signals do not mutate the ledger, so the position is still empty here.
	state.FeesEnabled = true
	sig, err = strat.OnMarketUpdate(context.Background(), state)
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestOnFill_CommitsToLedger(t *testing.T) {
	strat, book := newTestStrategy(t, testStrategyConfig())
	book.GetOrCreate("mkt-1", "0xc0ffee", "yes-1", "no-1")

	fill := domain.Fill{
		ID:       "fill-1",
		MarketID: "mkt-1",
		TokenID:  "yes-1",
		Action:   domain.ActionBuyYes,
		Size:     10,
		Price:    0.45,
		FilledAt: time.Now().UTC(),
	}
	require.NoError(t, strat.OnFill(context.Background(), fill))

	pos, ok := book.Get("mkt-1")
	require.True(t, ok)
	assert.InDelta(t, 10.0, pos.Yes.Quantity, 1e-9)

	// Unknown token surfaces the ledger error.
	fill.TokenID = "stranger"
	err := strat.OnFill(context.Background(), fill)
	assert.ErrorIs(t, err, domain.ErrUnknownToken)
}

func TestState_SnapshotsPositions(t *testing.T) {
	strat, book := newTestStrategy(t, testStrategyConfig())
	book.GetOrCreate("mkt-1", "0xc0ffee", "yes-1", "no-1")
	require.NoError(t, book.ApplyFill("mkt-1", "yes-1", 10, 0.45))
	require.NoError(t, book.ApplyFill("mkt-1", "no-1", 10, 0.52))

	state := strat.State()
	require.Len(t, state.Positions, 1)
	assert.InDelta(t, 9.7, state.TotalCost, 1e-9)
	assert.InDelta(t, 0.30, state.TotalEstimatedPnL, 1e-9)
}

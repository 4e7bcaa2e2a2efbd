package ledger

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parityarb/paritybot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLedger_GetOrCreateIsIdempotent(t *testing.T) {
	l := New(testLogger())

	a := l.GetOrCreate("mkt-1", "0xc0ffee", "yes-1", "no-1")
	b := l.GetOrCreate("mkt-1", "other", "other-yes", "other-no")

	// Same instance; the second call's metadata is ignored.
	assert.Same(t, a, b)
	assert.Equal(t, "yes-1", b.Yes.TokenID)
}

func TestLedger_ApplyFillRoutesByToken(t *testing.T) {
	l := New(testLogger())
	l.GetOrCreate("mkt-1", "0xc0ffee", "yes-1", "no-1")

	require.NoError(t, l.ApplyFill("mkt-1", "yes-1", 10, 0.45))
	require.NoError(t, l.ApplyFill("mkt-1", "no-1", 10, 0.52))

	pos, ok := l.Get("mkt-1")
	require.True(t, ok)
	assert.InDelta(t, 10.0, pos.Yes.Quantity, 1e-9)
	assert.InDelta(t, 10.0, pos.No.Quantity, 1e-9)
	assert.InDelta(t, 0.97, pos.PairCost(), 1e-9)
}

func TestLedger_ApplyFillUnknownToken(t *testing.T) {
	l := New(testLogger())
	l.GetOrCreate("mkt-1", "0xc0ffee", "yes-1", "no-1")

	err := l.ApplyFill("mkt-1", "stranger", 10, 0.45)
	assert.ErrorIs(t, err, domain.ErrUnknownToken)
}

func TestLedger_ApplyFillUnknownMarket(t *testing.T) {
	l := New(testLogger())

	err := l.ApplyFill("nope", "yes-1", 10, 0.45)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLedger_RemoveSharesClamps(t *testing.T) {
	l := New(testLogger())
	l.GetOrCreate("mkt-1", "0xc0ffee", "yes-1", "no-1")
	require.NoError(t, l.ApplyFill("mkt-1", "yes-1", 10, 0.50))

	costRemoved, err := l.RemoveShares("mkt-1", "yes-1", 25)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, costRemoved, 1e-9)

	pos, _ := l.Get("mkt-1")
	assert.Equal(t, 0.0, pos.Yes.Quantity)
}

func TestLedger_Totals(t *testing.T) {
	l := New(testLogger())
	l.GetOrCreate("mkt-1", "c1", "y1", "n1")
	l.GetOrCreate("mkt-2", "c2", "y2", "n2")
	require.NoError(t, l.ApplyFill("mkt-1", "y1", 10, 0.45))
	require.NoError(t, l.ApplyFill("mkt-1", "n1", 10, 0.52))
	require.NoError(t, l.ApplyFill("mkt-2", "y2", 5, 0.40))

	assert.InDelta(t, 9.7+2.0, l.TotalValue(), 1e-9)
	// Only mkt-1 has matched pairs: 10 * (1 - 0.97)
	assert.InDelta(t, 0.30, l.TotalEstimatedPnL(), 1e-9)

	sums := l.Summaries()
	require.Len(t, sums, 2)
	assert.InDelta(t, 0.97, sums["mkt-1"].PairCost, 1e-9)
	assert.Equal(t, 0.0, sums["mkt-2"].MatchedPairs)
}

func TestLedger_Reset(t *testing.T) {
	l := New(testLogger())
	l.GetOrCreate("mkt-1", "c1", "y1", "n1")

	l.Reset()

	_, ok := l.Get("mkt-1")
	assert.False(t, ok)
	assert.Equal(t, 0.0, l.TotalValue())
}

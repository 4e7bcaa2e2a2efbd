package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPosition_AveragePrice(t *testing.T) {
	var p Position
	assert.Equal(t, 0.0, p.AveragePrice())

	// 10 @ 0.40 + 10 @ 0.60 -> avg 0.50
	p.AddShares(10, 0.40)
	p.AddShares(10, 0.60)
	assert.InDelta(t, 0.50, p.AveragePrice(), 1e-9)
	assert.InDelta(t, 10.0, p.TotalCost, 1e-9)
}

func TestPosition_RemoveShares_Clamped(t *testing.T) {
	p := Position{Quantity: 5, TotalCost: 2.5}

	costRemoved, removed := p.RemoveShares(8)
	assert.InDelta(t, 2.5, costRemoved, 1e-9)
	assert.InDelta(t, 5.0, removed, 1e-9)
	assert.Equal(t, 0.0, p.Quantity)
}

func TestMarketPosition_EmptyDerivedValues(t *testing.T) {
	var m MarketPosition

	assert.Equal(t, 0.0, m.PairCost())
	assert.Equal(t, 0.0, m.MatchedPairs())
	assert.Equal(t, 1.0, m.BalanceRatio())
	assert.Equal(t, 0.0, m.Imbalance())
	assert.Equal(t, 0.0, m.EstimatedPnL())
}

func TestMarketPosition_OneSidedHasNoEstimatedPnL(t *testing.T) {
	var m MarketPosition
	m.Yes.AddShares(20, 0.45)

	// No NO shares: zero matched pairs, zero settlement estimate.
	assert.Equal(t, 0.0, m.MatchedPairs())
	assert.Equal(t, 0.0, m.EstimatedPnL())
	assert.Equal(t, 0.0, m.BalanceRatio())
	assert.Equal(t, 1.0, m.Imbalance())
	assert.InDelta(t, 20.0, m.UnmatchedYes(), 1e-9)
}

func TestMarketPosition_PairArbitrageLifecycle(t *testing.T) {
	var m MarketPosition

	// 10 YES @ 0.45 + 10 NO @ 0.52 -> pair cost 0.97, 10 matched pairs,
	// settlement estimate 10 * (1 - 0.97) = 0.30.
	m.Yes.AddShares(10, 0.45)
	m.No.AddShares(10, 0.52)

	assert.InDelta(t, 0.97, m.PairCost(), 1e-9)
	assert.InDelta(t, 10.0, m.MatchedPairs(), 1e-9)
	assert.InDelta(t, 0.30, m.EstimatedPnL(), 1e-9)
	assert.InDelta(t, 9.7, m.TotalCost(), 1e-9)
	assert.InDelta(t, 1.0, m.BalanceRatio(), 1e-9)
	assert.InDelta(t, 0.0, m.Imbalance(), 1e-9)
}

func TestMarketPosition_ProjectedPairCostIsPure(t *testing.T) {
	var m MarketPosition
	m.Yes.AddShares(10, 0.45)
	m.No.AddShares(10, 0.52)

	// Buying 10 more NO @ 0.48 drops the NO average to 0.50.
	projected := m.ProjectedPairCost(SideNo, 10, 0.48)
	assert.InDelta(t, 0.45+0.50, projected, 1e-9)

	// The simulation must not have touched the position.
	assert.InDelta(t, 0.97, m.PairCost(), 1e-9)
	assert.InDelta(t, 10.0, m.No.Quantity, 1e-9)
}

func TestMarketPosition_ProjectedPairCost_FirstBuy(t *testing.T) {
	var m MarketPosition

	// First YES buy on an empty position: pair cost equals the buy price.
	projected := m.ProjectedPairCost(SideYes, 10, 0.47)
	assert.InDelta(t, 0.47, projected, 1e-9)
}

func TestMarketPosition_ProjectedImbalance(t *testing.T) {
	var m MarketPosition
	m.Yes.AddShares(10, 0.45)

	// Adding 10 NO balances the book completely.
	assert.InDelta(t, 0.0, m.ProjectedImbalance(SideNo, 10), 1e-9)
	// Adding 10 more YES: |20-0|/20 = 1.0
	assert.InDelta(t, 1.0, m.ProjectedImbalance(SideYes, 10), 1e-9)
	// Purity.
	assert.InDelta(t, 1.0, m.Imbalance(), 1e-9)
}

func TestMarketPosition_MarkToMarketPnL(t *testing.T) {
	var m MarketPosition
	m.Yes.AddShares(10, 0.45)
	m.No.AddShares(10, 0.52)

	// Valued at bids 0.50/0.50: 10*0.50 + 10*0.50 - 9.7 = 0.30
	assert.InDelta(t, 0.30, m.MarkToMarketPnL(0.50, 0.50), 1e-9)
	// Crashed bids show the drawdown.
	assert.InDelta(t, -9.7, m.MarkToMarketPnL(0.0, 0.0), 1e-9)
}

func TestMarketPosition_UnmatchedExposure(t *testing.T) {
	var m MarketPosition
	m.Yes.AddShares(15, 0.45)
	m.No.AddShares(10, 0.52)

	// 5 surplus YES valued at the YES bid.
	assert.InDelta(t, 5*0.40, m.UnmatchedExposure(0.40, 0.55), 1e-9)
	assert.InDelta(t, 5.0, m.UnmatchedYes(), 1e-9)
	assert.Equal(t, 0.0, m.UnmatchedNo())
}

func TestMarketPosition_Summary(t *testing.T) {
	m := MarketPosition{MarketID: "mkt-1", ConditionID: "0xc0ffee"}
	m.Yes.AddShares(10, 0.45)
	m.No.AddShares(10, 0.52)

	sum := m.Summary()
	assert.Equal(t, "mkt-1", sum.MarketID)
	assert.InDelta(t, 0.45, sum.YesAvg, 1e-9)
	assert.InDelta(t, 0.52, sum.NoAvg, 1e-9)
	assert.InDelta(t, 0.97, sum.PairCost, 1e-9)
	assert.InDelta(t, 10.0, sum.MatchedPairs, 1e-9)
	assert.InDelta(t, 0.30, sum.EstimatedPnL, 1e-9)
}

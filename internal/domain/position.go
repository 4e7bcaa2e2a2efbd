package domain

import "math"

// Side identifies one outcome of a binary market.
type Side string

const (
	SideYes Side = "YES"
	SideNo  Side = "NO"
)

// Position tracks acquired shares for a single outcome token. Quantity and
// TotalCost only grow through AddShares; average cost never moves otherwise.
type Position struct {
	TokenID   string
	Quantity  float64
	TotalCost float64
}

// AveragePrice returns the average entry price, or 0 when no shares are held.
func (p *Position) AveragePrice() float64 {
	if p.Quantity == 0 {
		return 0
	}
	return p.TotalCost / p.Quantity
}

// AddShares records a purchase of quantity shares at the given price.
func (p *Position) AddShares(quantity, price float64) {
	p.Quantity += quantity
	p.TotalCost += quantity * price
}

// RemoveShares removes shares at the current average cost, for corrective
// adjustments only. Requests beyond the held quantity are clamped; the caller
// is expected to warn when the returned removed quantity is short. It returns
// the cost basis removed and the quantity actually removed.
func (p *Position) RemoveShares(quantity float64) (costRemoved, removed float64) {
	if quantity > p.Quantity {
		quantity = p.Quantity
	}
	costRemoved = quantity * p.AveragePrice()
	p.Quantity -= quantity
	p.TotalCost -= costRemoved
	return costRemoved, quantity
}

// MarketPosition tracks both sides of a binary market. It is owned exclusively
// by the ledger; readers derive values through methods and never mutate fields.
type MarketPosition struct {
	MarketID    string
	ConditionID string
	Yes         Position
	No          Position
}

// PairCost is the combined average entry price of one YES plus one NO share,
// the at-risk cost of one guaranteed $1 settlement. Empty sides contribute 0.
func (m *MarketPosition) PairCost() float64 {
	return m.Yes.AveragePrice() + m.No.AveragePrice()
}

// TotalShares is the share count across both sides.
func (m *MarketPosition) TotalShares() float64 {
	return m.Yes.Quantity + m.No.Quantity
}

// TotalCost is the combined cost basis of both sides.
func (m *MarketPosition) TotalCost() float64 {
	return m.Yes.TotalCost + m.No.TotalCost
}

// MatchedPairs is the number of YES+NO pairs redeemable for $1 at settlement.
func (m *MarketPosition) MatchedPairs() float64 {
	return math.Min(m.Yes.Quantity, m.No.Quantity)
}

// UnmatchedYes is the YES share surplus over NO.
func (m *MarketPosition) UnmatchedYes() float64 {
	return math.Max(0, m.Yes.Quantity-m.No.Quantity)
}

// UnmatchedNo is the NO share surplus over YES.
func (m *MarketPosition) UnmatchedNo() float64 {
	return math.Max(0, m.No.Quantity-m.Yes.Quantity)
}

// BalanceRatio is the smaller side divided by the larger side: 1.0 is
// perfectly balanced, 0.0 completely one-sided. An empty position counts
// as balanced.
func (m *MarketPosition) BalanceRatio() float64 {
	if m.TotalShares() == 0 {
		return 1.0
	}
	smaller := math.Min(m.Yes.Quantity, m.No.Quantity)
	larger := math.Max(m.Yes.Quantity, m.No.Quantity)
	if larger == 0 {
		return 1.0
	}
	return smaller / larger
}

// Imbalance is the absolute side difference as a fraction of total shares:
// 0.0 balanced, 1.0 completely one-sided. An empty position reports 0.0.
func (m *MarketPosition) Imbalance() float64 {
	total := m.TotalShares()
	if total == 0 {
		return 0.0
	}
	return math.Abs(m.Yes.Quantity-m.No.Quantity) / total
}

// ProjectedPairCost simulates what PairCost would become after a hypothetical
// purchase of quantity shares at price on the given side. It is pure: the
// decision engine calls it before committing, and only a later ApplyFill on
// the ledger mutates anything.
func (m *MarketPosition) ProjectedPairCost(side Side, quantity, price float64) float64 {
	if side == SideYes {
		newQty := m.Yes.Quantity + quantity
		newCost := m.Yes.TotalCost + quantity*price
		return newCost/newQty + m.No.AveragePrice()
	}
	newQty := m.No.Quantity + quantity
	newCost := m.No.TotalCost + quantity*price
	return m.Yes.AveragePrice() + newCost/newQty
}

// ProjectedImbalance simulates the imbalance after a hypothetical purchase.
func (m *MarketPosition) ProjectedImbalance(side Side, quantity float64) float64 {
	yesQty, noQty := m.Yes.Quantity, m.No.Quantity
	if side == SideYes {
		yesQty += quantity
	} else {
		noQty += quantity
	}
	total := yesQty + noQty
	if total == 0 {
		return 0.0
	}
	return math.Abs(yesQty-noQty) / total
}

// MarkToMarketPnL values both sides at the given liquidation bids and returns
// the unrealized gain over cost. Bids deliberately understate paper gains
// relative to mid prices.
func (m *MarketPosition) MarkToMarketPnL(bidYes, bidNo float64) float64 {
	value := m.Yes.Quantity*bidYes + m.No.Quantity*bidNo
	return value - m.TotalCost()
}

// UnmatchedExposure is the dollar value of the unmatched side at liquidation bids.
func (m *MarketPosition) UnmatchedExposure(bidYes, bidNo float64) float64 {
	if uy := m.UnmatchedYes(); uy > 0 {
		return uy * bidYes
	}
	if un := m.UnmatchedNo(); un > 0 {
		return un * bidNo
	}
	return 0.0
}

// EstimatedPnL is the settlement profit of matched pairs only: each pair cost
// PairCost and pays $1 when the outcomes settle complementarily. No P&L is
// realized on fills; pairs are held to settlement.
func (m *MarketPosition) EstimatedPnL() float64 {
	matched := m.MatchedPairs()
	if matched == 0 {
		return 0.0
	}
	return matched * (1.0 - m.PairCost())
}

// PositionSummary is a read-only snapshot of one market's position for status
// reporting and persistence.
type PositionSummary struct {
	MarketID     string  `json:"market_id"`
	ConditionID  string  `json:"condition_id"`
	YesQty       float64 `json:"yes_qty"`
	YesAvg       float64 `json:"yes_avg"`
	NoQty        float64 `json:"no_qty"`
	NoAvg        float64 `json:"no_avg"`
	PairCost     float64 `json:"pair_cost"`
	MatchedPairs float64 `json:"matched_pairs"`
	BalanceRatio float64 `json:"balance_ratio"`
	Imbalance    float64 `json:"imbalance"`
	EstimatedPnL float64 `json:"estimated_pnl"`
	TotalCost    float64 `json:"total_cost"`
}

// Summary captures the current derived values of the position.
func (m *MarketPosition) Summary() PositionSummary {
	return PositionSummary{
		MarketID:     m.MarketID,
		ConditionID:  m.ConditionID,
		YesQty:       m.Yes.Quantity,
		YesAvg:       m.Yes.AveragePrice(),
		NoQty:        m.No.Quantity,
		NoAvg:        m.No.AveragePrice(),
		PairCost:     m.PairCost(),
		MatchedPairs: m.MatchedPairs(),
		BalanceRatio: m.BalanceRatio(),
		Imbalance:    m.Imbalance(),
		EstimatedPnL: m.EstimatedPnL(),
		TotalCost:    m.TotalCost(),
	}
}

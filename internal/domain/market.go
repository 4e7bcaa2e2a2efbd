package domain

import "time"

// Market is the metadata for one binary prediction market as discovered from
// the catalog API.
type Market struct {
	ID          string
	Question    string
	Slug        string
	ConditionID string
	YesTokenID  string
	NoTokenID   string
	FeesEnabled bool
	Volume      float64
	Liquidity   float64
	EndDate     time.Time
	Active      bool
}

// MarketState bundles everything a strategy needs to evaluate one market on a
// single book update: depth-aware executable buy prices, displayed liquidity,
// and liquidation bids for mark-to-market.
type MarketState struct {
	MarketID    string
	ConditionID string
	YesTokenID  string
	NoTokenID   string

	// PriceYes/PriceNo are executable VWAP buy prices for the configured
	// order size, not top-of-book quotes.
	PriceYes float64
	PriceNo  float64

	LiquidityYes float64
	LiquidityNo  float64

	AskYes float64
	AskNo  float64
	BidYes float64
	BidNo  float64
	MidYes float64
	MidNo  float64

	FeesEnabled bool
	Timestamp   time.Time
}

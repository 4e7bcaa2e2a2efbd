package domain

import "time"

// depthLevels is the number of top-of-book levels counted as displayed liquidity.
const depthLevels = 5

// PriceLevel is a single price+size entry in an orderbook. Prices for binary
// outcome tokens live in [0, 1].
type PriceLevel struct {
	Price float64
	Size  float64
}

// OrderbookSnapshot is a full snapshot of resting bids and asks for one
// outcome token. A new snapshot fully replaces the prior one; there is no
// incremental diffing. Bids are sorted descending by price, asks ascending.
type OrderbookSnapshot struct {
	TokenID   string
	Bids      []PriceLevel
	Asks      []PriceLevel
	Timestamp time.Time
}

// BestBid returns the highest resting bid, or 0 if the bid side is empty.
func (s OrderbookSnapshot) BestBid() float64 {
	if len(s.Bids) == 0 {
		return 0
	}
	return s.Bids[0].Price
}

// BestAsk returns the lowest resting ask. An empty ask side returns 1.0, the
// worst-case buy price for a binary token, so callers never see a free fill.
func (s OrderbookSnapshot) BestAsk() float64 {
	if len(s.Asks) == 0 {
		return 1.0
	}
	return s.Asks[0].Price
}

// MidPrice returns the midpoint between the best bid and best ask.
func (s OrderbookSnapshot) MidPrice() float64 {
	return (s.BestBid() + s.BestAsk()) / 2
}

// Spread returns the bid-ask spread.
func (s OrderbookSnapshot) Spread() float64 {
	return s.BestAsk() - s.BestBid()
}

// DepthBid returns the total displayed size over the top levels of the bid side.
func (s OrderbookSnapshot) DepthBid() float64 {
	return sumDepth(s.Bids)
}

// DepthAsk returns the total displayed size over the top levels of the ask side.
func (s OrderbookSnapshot) DepthAsk() float64 {
	return sumDepth(s.Asks)
}

func sumDepth(levels []PriceLevel) float64 {
	var total float64
	for i, lvl := range levels {
		if i >= depthLevels {
			break
		}
		total += lvl.Size
	}
	return total
}

// VWAPAsk returns the volume-weighted average price to buy quantity shares by
// walking the ask side from the best price. If the resting depth cannot fill
// the full quantity it returns 1.0: buying at $1 is unprofitable by
// construction, so the sentinel tells callers not to trade.
func (s OrderbookSnapshot) VWAPAsk(quantity float64) float64 {
	if quantity <= 0 {
		return s.BestAsk()
	}
	cost, filled := walkLevels(s.Asks, quantity)
	if filled < quantity-1e-6 {
		return 1.0
	}
	return cost / filled
}

// VWAPBid returns the volume-weighted average price to sell quantity shares by
// walking the bid side from the best price. Insufficient depth returns the
// symmetric sentinel 0.0.
func (s OrderbookSnapshot) VWAPBid(quantity float64) float64 {
	if quantity <= 0 {
		return s.BestBid()
	}
	proceeds, filled := walkLevels(s.Bids, quantity)
	if filled < quantity-1e-6 {
		return 0.0
	}
	return proceeds / filled
}

func walkLevels(levels []PriceLevel, quantity float64) (value, filled float64) {
	remaining := quantity
	for _, lvl := range levels {
		take := lvl.Size
		if take > remaining {
			take = remaining
		}
		if take <= 0 {
			continue
		}
		value += lvl.Price * take
		filled += take
		remaining -= take
		if remaining <= 1e-9 {
			break
		}
	}
	return value, filled
}

package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testBook() OrderbookSnapshot {
	return OrderbookSnapshot{
		TokenID: "tok-1",
		Bids: []PriceLevel{
			{Price: 0.44, Size: 100},
			{Price: 0.43, Size: 200},
		},
		Asks: []PriceLevel{
			{Price: 0.46, Size: 50},
			{Price: 0.47, Size: 100},
			{Price: 0.50, Size: 500},
		},
	}
}

func TestOrderbookSnapshot_TopOfBook(t *testing.T) {
	book := testBook()

	assert.InDelta(t, 0.44, book.BestBid(), 1e-9)
	assert.InDelta(t, 0.46, book.BestAsk(), 1e-9)
	assert.InDelta(t, 0.45, book.MidPrice(), 1e-9)
	assert.InDelta(t, 0.02, book.Spread(), 1e-9)
}

func TestOrderbookSnapshot_EmptySentinels(t *testing.T) {
	var empty OrderbookSnapshot

	// Empty asks quote the worst-case buy price, never a free fill.
	assert.Equal(t, 1.0, empty.BestAsk())
	assert.Equal(t, 0.0, empty.BestBid())
	assert.Equal(t, 0.5, empty.MidPrice())
}

func TestOrderbookSnapshot_Depth(t *testing.T) {
	book := testBook()

	assert.InDelta(t, 300.0, book.DepthBid(), 1e-9)
	assert.InDelta(t, 650.0, book.DepthAsk(), 1e-9)
}

func TestOrderbookSnapshot_DepthCountsTopLevelsOnly(t *testing.T) {
	book := OrderbookSnapshot{
		Asks: []PriceLevel{
			{Price: 0.40, Size: 10},
			{Price: 0.41, Size: 10},
			{Price: 0.42, Size: 10},
			{Price: 0.43, Size: 10},
			{Price: 0.44, Size: 10},
			{Price: 0.45, Size: 1000}, // beyond the counted levels
		},
	}
	assert.InDelta(t, 50.0, book.DepthAsk(), 1e-9)
}

func TestOrderbookSnapshot_VWAPAskWalksLevels(t *testing.T) {
	book := testBook()

	// 100 shares: 50 @ 0.46 + 50 @ 0.47 -> (23 + 23.5) / 100 = 0.465
	assert.InDelta(t, 0.465, book.VWAPAsk(100), 1e-9)
	// Fully inside the first level.
	assert.InDelta(t, 0.46, book.VWAPAsk(50), 1e-9)
}

func TestOrderbookSnapshot_VWAPAskInsufficientDepth(t *testing.T) {
	book := testBook()

	// 650 shares rest in total; asking for more returns the $1 sentinel.
	assert.Equal(t, 1.0, book.VWAPAsk(1000))
}

func TestOrderbookSnapshot_VWAPBid(t *testing.T) {
	book := testBook()

	// 200 shares: 100 @ 0.44 + 100 @ 0.43 -> 0.435
	assert.InDelta(t, 0.435, book.VWAPBid(200), 1e-9)
	// Insufficient bid depth returns the symmetric sentinel.
	assert.Equal(t, 0.0, book.VWAPBid(1000))
}

func TestOrderbookSnapshot_VWAPZeroQuantity(t *testing.T) {
	book := testBook()

	assert.InDelta(t, 0.46, book.VWAPAsk(0), 1e-9)
	assert.InDelta(t, 0.44, book.VWAPBid(0), 1e-9)
}

package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/parityarb/paritybot/internal/domain"
)

// PriceCache mirrors best bid/ask per token into Redis hashes so external
// monitors can watch the feed without touching the process. Each token is a
// hash at "price:{tokenID}" with fields "bid", "ask" and "ts" (Unix
// nanoseconds).
type PriceCache struct {
	rdb *redis.Client
}

var _ domain.PriceCache = (*PriceCache)(nil)

// NewPriceCache creates a PriceCache backed by the given Client.
func NewPriceCache(c *Client) *PriceCache {
	return &PriceCache{rdb: c.Underlying()}
}

func priceKey(tokenID string) string {
	return "price:" + tokenID
}

// SetPrice stores the latest best bid/ask and timestamp for a token.
func (pc *PriceCache) SetPrice(ctx context.Context, tokenID string, bestBid, bestAsk float64, ts time.Time) error {
	fields := map[string]interface{}{
		"bid": strconv.FormatFloat(bestBid, 'f', -1, 64),
		"ask": strconv.FormatFloat(bestAsk, 'f', -1, 64),
		"ts":  strconv.FormatInt(ts.UnixNano(), 10),
	}
	if err := pc.rdb.HSet(ctx, priceKey(tokenID), fields).Err(); err != nil {
		return fmt.Errorf("redis: set price %s: %w", tokenID, err)
	}
	return nil
}

// GetPrice retrieves the latest best bid/ask for a token. It returns
// domain.ErrNotFound when the key does not exist.
func (pc *PriceCache) GetPrice(ctx context.Context, tokenID string) (float64, float64, error) {
	vals, err := pc.rdb.HGetAll(ctx, priceKey(tokenID)).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("redis: get price %s: %w", tokenID, err)
	}
	if len(vals) == 0 {
		return 0, 0, domain.ErrNotFound
	}

	bid, err := strconv.ParseFloat(vals["bid"], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("redis: parse bid %s: %w", tokenID, err)
	}
	ask, err := strconv.ParseFloat(vals["ask"], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("redis: parse ask %s: %w", tokenID, err)
	}
	return bid, ask, nil
}

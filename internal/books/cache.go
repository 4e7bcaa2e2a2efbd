// Package books holds the in-process orderbook cache. The feed is the only
// writer; strategies and the mark-to-market path read it synchronously between
// messages, so a single RWMutex is enough to keep snapshots consistent.
package books

import (
	"sync"
	"time"

	"github.com/parityarb/paritybot/internal/domain"
)

// Cache stores the latest orderbook snapshot per token. Each update fully
// replaces the prior snapshot for that token.
type Cache struct {
	mu    sync.RWMutex
	books map[string]domain.OrderbookSnapshot
}

// NewCache creates an empty Cache.
func NewCache() *Cache {
	return &Cache{books: make(map[string]domain.OrderbookSnapshot)}
}

// Update replaces the snapshot for tokenID. Levels must arrive sorted (bids
// descending, asks ascending); the feed normalizes ordering before calling.
func (c *Cache) Update(tokenID string, bids, asks []domain.PriceLevel, ts time.Time) domain.OrderbookSnapshot {
	snap := domain.OrderbookSnapshot{
		TokenID:   tokenID,
		Bids:      bids,
		Asks:      asks,
		Timestamp: ts,
	}
	c.mu.Lock()
	c.books[tokenID] = snap
	c.mu.Unlock()
	return snap
}

// Get returns the latest snapshot for tokenID, if any.
func (c *Cache) Get(tokenID string) (domain.OrderbookSnapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap, ok := c.books[tokenID]
	return snap, ok
}

// Len returns the number of tokens with a cached snapshot.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.books)
}

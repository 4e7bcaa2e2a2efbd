package domain

import (
	"context"
	"time"
)

// MarketCatalog looks up tradable markets from the exchange's REST catalog.
type MarketCatalog interface {
	// GetMarket returns a single market by its catalog ID.
	GetMarket(ctx context.Context, id string) (Market, error)
	// GetMarketBySlug returns a single market looked up by its URL slug.
	GetMarketBySlug(ctx context.Context, slug string) (Market, error)
	// CurrentShortTermMarket returns the active short-horizon up/down market
	// for the given coin symbol, or ErrNotFound when none is live.
	CurrentShortTermMarket(ctx context.Context, coin string) (Market, error)
}

// Executor places an order for a signal and reports the resulting fill.
// Implementations may simulate (paper) or route to an exchange.
type Executor interface {
	Execute(ctx context.Context, signal StrategySignal) (Fill, error)
}

// FillStore journals confirmed fills and per-market position snapshots.
type FillStore interface {
	InsertFill(ctx context.Context, fill Fill) error
	UpsertPositionSnapshot(ctx context.Context, summary PositionSummary) error
	ListFills(ctx context.Context, marketID string, limit int) ([]Fill, error)
}

// PriceCache mirrors the latest best prices for external monitors.
type PriceCache interface {
	SetPrice(ctx context.Context, tokenID string, bestBid, bestAsk float64, ts time.Time) error
	GetPrice(ctx context.Context, tokenID string) (bestBid, bestAsk float64, err error)
}

// SignalBus publishes trading events (signals, fills, risk trips) for
// out-of-process observers.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// ReportWriter persists rendered status reports to blob storage.
type ReportWriter interface {
	Put(ctx context.Context, path string, data []byte, contentType string) error
}

// Package executor turns approved signals into fills. The paper executor
// simulates execution; a live executor would route to the exchange's order
// endpoint behind the same interface.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/parityarb/paritybot/internal/domain"
)

// Paper fills every valid signal immediately and completely at the signal
// price. Good enough for strategy evaluation: the signal price is already the
// depth-aware VWAP for the order size.
type Paper struct {
	logger *slog.Logger
}

var _ domain.Executor = (*Paper)(nil)

// NewPaper creates a paper executor.
func NewPaper(logger *slog.Logger) *Paper {
	return &Paper{logger: logger.With(slog.String("component", "paper_executor"))}
}

// Execute simulates an immediate full fill at the signal price.
func (p *Paper) Execute(_ context.Context, signal domain.StrategySignal) (domain.Fill, error) {
	if !signal.Valid() {
		return domain.Fill{}, fmt.Errorf("executor: signal %s: %w", signal.ID, domain.ErrInvalidSignal)
	}

	fill := domain.Fill{
		ID:       uuid.New().String(),
		MarketID: signal.MarketID,
		TokenID:  signal.TokenID,
		Action:   signal.Action,
		Size:     signal.Size,
		Price:    signal.Price,
		FilledAt: time.Now().UTC(),
	}

	p.logger.Info("paper fill",
		slog.String("fill_id", fill.ID),
		slog.String("signal_id", signal.ID),
		slog.String("action", string(fill.Action)),
		slog.String("market_id", fill.MarketID),
		slog.Float64("size", fill.Size),
		slog.Float64("price", fill.Price),
		slog.Float64("value", fill.Value()),
	)
	return fill, nil
}

// Package ledger owns the per-market YES/NO position records. All mutation
// flows through ApplyFill; everything else is a read or a pure simulation,
// which is what lets the engine decide on a trade and only commit it after a
// confirmed execution.
package ledger

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/parityarb/paritybot/internal/domain"
)

// Ledger tracks MarketPositions across markets. Entries are created lazily on
// first reference and live for the process lifetime (or until Reset).
type Ledger struct {
	mu        sync.Mutex
	positions map[string]*domain.MarketPosition
	logger    *slog.Logger
}

// New creates an empty Ledger.
func New(logger *slog.Logger) *Ledger {
	return &Ledger{
		positions: make(map[string]*domain.MarketPosition),
		logger:    logger.With(slog.String("component", "ledger")),
	}
}

// GetOrCreate returns the position for marketID, creating it on first
// reference. Repeat calls with the same marketID return the same instance.
func (l *Ledger) GetOrCreate(marketID, conditionID, yesTokenID, noTokenID string) *domain.MarketPosition {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.positions[marketID]
	if !ok {
		pos = &domain.MarketPosition{
			MarketID:    marketID,
			ConditionID: conditionID,
			Yes:         domain.Position{TokenID: yesTokenID},
			No:          domain.Position{TokenID: noTokenID},
		}
		l.positions[marketID] = pos
		l.logger.Info("position tracker created", slog.String("market_id", marketID))
	}
	return pos
}

// Get returns the position for marketID, if tracked.
func (l *Ledger) Get(marketID string) (*domain.MarketPosition, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pos, ok := l.positions[marketID]
	return pos, ok
}

// ApplyFill is the only mutating entry point. It routes the fill to the side
// whose token ID matches and returns ErrUnknownToken when the token matches
// neither side of the stored position.
func (l *Ledger) ApplyFill(marketID, tokenID string, quantity, price float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.positions[marketID]
	if !ok {
		return fmt.Errorf("ledger: apply fill: market %s: %w", marketID, domain.ErrNotFound)
	}

	var side domain.Side
	switch tokenID {
	case pos.Yes.TokenID:
		pos.Yes.AddShares(quantity, price)
		side = domain.SideYes
	case pos.No.TokenID:
		pos.No.AddShares(quantity, price)
		side = domain.SideNo
	default:
		return fmt.Errorf("ledger: apply fill: market %s token %s: %w", marketID, tokenID, domain.ErrUnknownToken)
	}

	l.logger.Info("fill applied",
		slog.String("market_id", marketID),
		slog.String("side", string(side)),
		slog.Float64("size", quantity),
		slog.Float64("price", price),
		slog.Float64("pair_cost", pos.PairCost()),
		slog.Float64("matched_pairs", pos.MatchedPairs()),
	)
	return nil
}

// RemoveShares applies a corrective share removal at average cost. The removed
// quantity is clamped to the held quantity; over-requests log a warning and
// proceed with the clamped amount.
func (l *Ledger) RemoveShares(marketID, tokenID string, quantity float64) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.positions[marketID]
	if !ok {
		return 0, fmt.Errorf("ledger: remove shares: market %s: %w", marketID, domain.ErrNotFound)
	}

	var side *domain.Position
	switch tokenID {
	case pos.Yes.TokenID:
		side = &pos.Yes
	case pos.No.TokenID:
		side = &pos.No
	default:
		return 0, fmt.Errorf("ledger: remove shares: market %s token %s: %w", marketID, tokenID, domain.ErrUnknownToken)
	}

	if quantity > side.Quantity {
		l.logger.Warn("remove request exceeds held quantity, clamping",
			slog.String("market_id", marketID),
			slog.Float64("requested", quantity),
			slog.Float64("held", side.Quantity),
		)
	}
	costRemoved, _ := side.RemoveShares(quantity)
	return costRemoved, nil
}

// TotalValue is the cost basis across all tracked positions.
func (l *Ledger) TotalValue() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	var total float64
	for _, pos := range l.positions {
		total += pos.TotalCost()
	}
	return total
}

// TotalEstimatedPnL is the settlement-estimate P&L across all positions.
func (l *Ledger) TotalEstimatedPnL() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	var total float64
	for _, pos := range l.positions {
		total += pos.EstimatedPnL()
	}
	return total
}

// Summaries returns a snapshot of every tracked position keyed by market ID.
func (l *Ledger) Summaries() map[string]domain.PositionSummary {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]domain.PositionSummary, len(l.positions))
	for id, pos := range l.positions {
		out[id] = pos.Summary()
	}
	return out
}

// Reset clears all tracked positions, for daily or market-rotation resets
// driven by the orchestrator.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.positions = make(map[string]*domain.MarketPosition)
	l.logger.Info("ledger reset")
}

// Package engine holds the trading strategies and the factory that constructs
// them. Strategies are pure deciders: they read market state and position
// simulations, emit at most one signal per update, and never touch the ledger
// until a confirmed fill arrives through OnFill.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/parityarb/paritybot/internal/domain"
	"github.com/parityarb/paritybot/internal/ledger"
	"github.com/parityarb/paritybot/internal/risk"
)

// Strategy defines the contract for trading strategies.
type Strategy interface {
	Name() string
	// OnMarketUpdate evaluates a fresh market state and returns a signal to
	// execute, or nil when no opportunity qualifies.
	OnMarketUpdate(ctx context.Context, state domain.MarketState) (*domain.StrategySignal, error)
	// OnFill commits a confirmed execution to the ledger and risk counters.
	OnFill(ctx context.Context, fill domain.Fill) error
	// State snapshots the strategy's positions for status reporting.
	State() State
}

// State is a read-only snapshot of a strategy's positions.
type State struct {
	Positions         map[string]domain.PositionSummary `json:"positions"`
	TotalCost         float64                           `json:"total_cost"`
	TotalEstimatedPnL float64                           `json:"total_estimated_pnl"`
}

// Config holds strategy parameters shared by the factory.
type Config struct {
	// PairCostThreshold is the maximum acceptable avg(YES)+avg(NO) after a
	// candidate buy.
	PairCostThreshold float64
	// OrderSize is the share count per order.
	OrderSize float64
	// MinLiquidity is the minimum displayed ask depth required on a side
	// before buying it.
	MinLiquidity float64
	// MaxImbalance caps the projected position imbalance after a buy.
	MaxImbalance float64
	// SlippageBuffer, SafetyMargin and FeeExtraMargin tighten the threshold
	// below the break-even $1.00 pair price.
	SlippageBuffer float64
	SafetyMargin   float64
	FeeExtraMargin float64
}

// New constructs a strategy by kind. The variant set is closed; unknown kinds
// return ErrUnknownStrategy.
func New(kind string, cfg Config, book *ledger.Ledger, governor *risk.Governor, logger *slog.Logger) (Strategy, error) {
	switch kind {
	case "binary_parity":
		return NewBinaryParity(cfg, book, governor, logger), nil
	default:
		return nil, fmt.Errorf("engine: %q: %w", kind, domain.ErrUnknownStrategy)
	}
}

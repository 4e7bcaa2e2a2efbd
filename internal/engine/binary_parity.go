package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/parityarb/paritybot/internal/domain"
	"github.com/parityarb/paritybot/internal/ledger"
	"github.com/parityarb/paritybot/internal/risk"
)

// BinaryParity accumulates both sides of a binary market whenever doing so
// keeps the combined average pair cost under $1 minus configured margins.
// Matched YES+NO pairs redeem for exactly $1 at settlement regardless of
// outcome, so any pair acquired below the effective threshold locks in the
// spread.
type BinaryParity struct {
	cfg      Config
	book     *ledger.Ledger
	governor *risk.Governor
	logger   *slog.Logger
}

// NewBinaryParity creates a binary parity strategy.
func NewBinaryParity(cfg Config, book *ledger.Ledger, governor *risk.Governor, logger *slog.Logger) *BinaryParity {
	return &BinaryParity{
		cfg:      cfg,
		book:     book,
		governor: governor,
		logger:   logger.With(slog.String("strategy", "binary_parity")),
	}
}

// Name returns the strategy identifier.
func (b *BinaryParity) Name() string { return "binary_parity" }

// effectiveThreshold tightens the configured pair cost threshold by the
// slippage and safety buffers, plus an extra fee margin on fee-enabled
// markets. The configured threshold is an upper bound, never exceeded.
func (b *BinaryParity) effectiveThreshold(feesEnabled bool) float64 {
	threshold := 1.0 - b.cfg.SlippageBuffer - b.cfg.SafetyMargin
	if feesEnabled {
		threshold -= b.cfg.FeeExtraMargin
	}
	if b.cfg.PairCostThreshold < threshold {
		threshold = b.cfg.PairCostThreshold
	}
	return threshold
}

// OnMarketUpdate evaluates both sides against the effective threshold. YES is
// evaluated before NO and the first qualifying side wins; at most one signal
// is emitted per update.
func (b *BinaryParity) OnMarketUpdate(_ context.Context, state domain.MarketState) (*domain.StrategySignal, error) {
	pos := b.book.GetOrCreate(state.MarketID, state.ConditionID, state.YesTokenID, state.NoTokenID)
	threshold := b.effectiveThreshold(state.FeesEnabled)

	type candidate struct {
		action    domain.SignalAction
		side      domain.Side
		tokenID   string
		price     float64
		liquidity float64
	}
	candidates := []candidate{
		{domain.ActionBuyYes, domain.SideYes, state.YesTokenID, state.PriceYes, state.LiquidityYes},
		{domain.ActionBuyNo, domain.SideNo, state.NoTokenID, state.PriceNo, state.LiquidityNo},
	}

	for _, c := range candidates {
		if c.liquidity < b.cfg.MinLiquidity {
			continue
		}
		projectedCost := pos.ProjectedPairCost(c.side, b.cfg.OrderSize, c.price)
		if projectedCost >= threshold {
			continue
		}
		if pos.ProjectedImbalance(c.side, b.cfg.OrderSize) > b.cfg.MaxImbalance {
			continue
		}

		sig := &domain.StrategySignal{
			ID:       uuid.New().String(),
			Action:   c.action,
			MarketID: state.MarketID,
			TokenID:  c.tokenID,
			Size:     b.cfg.OrderSize,
			Price:    c.price,
			Reason: fmt.Sprintf("binary_parity %s projected_pair_cost=%.4f threshold=%.4f",
				c.action, projectedCost, threshold),
			CreatedAt: time.Now().UTC(),
		}
		if !sig.Valid() {
			b.logger.Warn("discarding invalid signal",
				slog.String("market_id", state.MarketID),
				slog.Float64("size", sig.Size),
				slog.Float64("price", sig.Price),
			)
			continue
		}

		b.logger.Info("signal",
			slog.String("signal_id", sig.ID),
			slog.String("action", string(c.action)),
			slog.String("market_id", state.MarketID),
			slog.Float64("price", c.price),
			slog.Float64("projected_pair_cost", projectedCost),
			slog.Float64("threshold", threshold),
		)
		return sig, nil
	}

	return nil, nil
}

// OnFill commits the fill to the ledger and updates risk counters. Pairs are
// held to settlement, so fills accrue no realized P&L; only position value
// moves.
func (b *BinaryParity) OnFill(_ context.Context, fill domain.Fill) error {
	if err := b.book.ApplyFill(fill.MarketID, fill.TokenID, fill.Size, fill.Price); err != nil {
		return fmt.Errorf("engine: on fill: %w", err)
	}
	b.governor.PostTradeUpdate(fill.MarketID, 0, fill.Value())
	return nil
}

// State snapshots positions and totals for status reporting.
func (b *BinaryParity) State() State {
	return State{
		Positions:         b.book.Summaries(),
		TotalCost:         b.book.TotalValue(),
		TotalEstimatedPnL: b.book.TotalEstimatedPnL(),
	}
}

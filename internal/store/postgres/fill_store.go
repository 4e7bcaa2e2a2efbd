package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parityarb/paritybot/internal/domain"
)

// FillStore implements domain.FillStore using PostgreSQL.
type FillStore struct {
	pool *pgxpool.Pool
}

var _ domain.FillStore = (*FillStore)(nil)

// NewFillStore creates a FillStore backed by the given connection pool.
func NewFillStore(pool *pgxpool.Pool) *FillStore {
	return &FillStore{pool: pool}
}

// InsertFill journals one confirmed fill.
func (s *FillStore) InsertFill(ctx context.Context, fill domain.Fill) error {
	const query = `
		INSERT INTO fills (id, market_id, token_id, action, size, price, filled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.pool.Exec(ctx, query,
		fill.ID, fill.MarketID, fill.TokenID, string(fill.Action),
		fill.Size, fill.Price, fill.FilledAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert fill %s: %w", fill.ID, err)
	}
	return nil
}

// UpsertPositionSnapshot replaces the stored snapshot for the market.
func (s *FillStore) UpsertPositionSnapshot(ctx context.Context, sum domain.PositionSummary) error {
	const query = `
		INSERT INTO position_snapshots (
			market_id, condition_id, yes_qty, yes_avg, no_qty, no_avg,
			pair_cost, matched_pairs, balance_ratio, imbalance,
			estimated_pnl, total_cost, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		ON CONFLICT (market_id) DO UPDATE SET
			condition_id  = EXCLUDED.condition_id,
			yes_qty       = EXCLUDED.yes_qty,
			yes_avg       = EXCLUDED.yes_avg,
			no_qty        = EXCLUDED.no_qty,
			no_avg        = EXCLUDED.no_avg,
			pair_cost     = EXCLUDED.pair_cost,
			matched_pairs = EXCLUDED.matched_pairs,
			balance_ratio = EXCLUDED.balance_ratio,
			imbalance     = EXCLUDED.imbalance,
			estimated_pnl = EXCLUDED.estimated_pnl,
			total_cost    = EXCLUDED.total_cost,
			updated_at    = NOW()`

	_, err := s.pool.Exec(ctx, query,
		sum.MarketID, sum.ConditionID, sum.YesQty, sum.YesAvg, sum.NoQty, sum.NoAvg,
		sum.PairCost, sum.MatchedPairs, sum.BalanceRatio, sum.Imbalance,
		sum.EstimatedPnL, sum.TotalCost,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert position snapshot %s: %w", sum.MarketID, err)
	}
	return nil
}

// ListFills returns the most recent fills for a market, newest first.
func (s *FillStore) ListFills(ctx context.Context, marketID string, limit int) ([]domain.Fill, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `
		SELECT id, market_id, token_id, action, size, price, filled_at
		FROM fills
		WHERE market_id = $1
		ORDER BY filled_at DESC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, marketID, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list fills for %s: %w", marketID, err)
	}
	defer rows.Close()

	var fills []domain.Fill
	for rows.Next() {
		var f domain.Fill
		var action string
		if err := rows.Scan(&f.ID, &f.MarketID, &f.TokenID, &action, &f.Size, &f.Price, &f.FilledAt); err != nil {
			return nil, fmt.Errorf("postgres: scan fill: %w", err)
		}
		f.Action = domain.SignalAction(action)
		fills = append(fills, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate fills: %w", err)
	}
	return fills, nil
}

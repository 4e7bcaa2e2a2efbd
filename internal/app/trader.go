package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/parityarb/paritybot/internal/config"
	"github.com/parityarb/paritybot/internal/domain"
	"github.com/parityarb/paritybot/internal/notify"
	"github.com/parityarb/paritybot/internal/report"
)

// fillsChannel is the event bus channel for confirmed fills.
const fillsChannel = "paritybot:fills"

// trader is the orchestrator: it discovers markets, keeps the feed
// subscribed, and drives the strategy/risk/executor pipeline from every book
// update. With trading disabled it degrades to a monitor that only tracks
// prices and mark-to-market.
type trader struct {
	cfg     *config.Config
	deps    *Dependencies
	logger  *slog.Logger
	trading bool

	// runCtx is the lifetime context of Run, used by the synchronous book
	// observer for executor and persistence calls.
	runCtx context.Context

	mu      sync.Mutex
	markets map[string]domain.Market // market ID -> market
	byToken map[string]string        // token ID -> market ID
}

func newTrader(cfg *config.Config, deps *Dependencies, logger *slog.Logger, trading bool) *trader {
	return &trader{
		cfg:     cfg,
		deps:    deps,
		logger:  logger.With(slog.String("component", "trader")),
		trading: trading,
		markets: make(map[string]domain.Market),
		byToken: make(map[string]string),
	}
}

// Run discovers markets, subscribes the feed, and blocks until ctx is
// cancelled or the feed gives up reconnecting.
func (t *trader) Run(ctx context.Context) error {
	t.runCtx = ctx

	found, err := t.discover(ctx)
	if err != nil {
		return fmt.Errorf("app: initial market discovery: %w", err)
	}
	if len(found) == 0 {
		return fmt.Errorf("app: no tradable markets discovered")
	}
	t.setMarkets(found)

	t.deps.Governor.OnTrip(func(reason string) {
		notifyCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = t.deps.Notifier.Notify(notifyCtx, notify.EventBreakerTrip,
			"Circuit breaker tripped", reason)
	})

	t.deps.Feed.OnBook(t.onBook)
	t.deps.Feed.OnPriceChange(func(string) { t.deps.Governor.MarkDataUpdate() })
	t.deps.Feed.OnLastTrade(func(_ string, _, _ float64) { t.deps.Governor.MarkDataUpdate() })

	if err := t.deps.Feed.SetAssets(t.tokenIDs()); err != nil {
		return fmt.Errorf("app: subscribe: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return t.deps.Feed.Run(gctx) })
	g.Go(func() error { return t.statusLoop(gctx) })
	g.Go(func() error { return t.refreshLoop(gctx) })

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return context.Canceled
	}
	return err
}

// onBook is the feed's book observer: every snapshot updates freshness and
// mark-to-market, and (when trading) runs one strategy evaluation for the
// snapshot's market.
func (t *trader) onBook(snap domain.OrderbookSnapshot) {
	ctx := t.runCtx
	t.deps.Governor.MarkDataUpdate()

	if t.deps.PriceCache != nil {
		if err := t.deps.PriceCache.SetPrice(ctx, snap.TokenID, snap.BestBid(), snap.BestAsk(), snap.Timestamp); err != nil {
			t.logger.Debug("price mirror update failed", slog.String("error", err.Error()))
		}
	}

	mkt, ok := t.marketForToken(snap.TokenID)
	if !ok {
		return
	}

	yesSnap, yesOK := t.deps.Books.Get(mkt.YesTokenID)
	noSnap, noOK := t.deps.Books.Get(mkt.NoTokenID)
	if !yesOK || !noOK {
		// Wait for the first snapshot of the sibling token.
		return
	}

	pos := t.deps.Ledger.GetOrCreate(mkt.ID, mkt.ConditionID, mkt.YesTokenID, mkt.NoTokenID)
	t.deps.Governor.UpdateMarkToMarket(mkt.ID, pos, yesSnap.BestBid(), noSnap.BestBid())

	if !t.trading {
		return
	}

	size := t.cfg.Strategy.OrderSize
	state := domain.MarketState{
		MarketID:     mkt.ID,
		ConditionID:  mkt.ConditionID,
		YesTokenID:   mkt.YesTokenID,
		NoTokenID:    mkt.NoTokenID,
		PriceYes:     yesSnap.VWAPAsk(size),
		PriceNo:      noSnap.VWAPAsk(size),
		LiquidityYes: yesSnap.DepthAsk(),
		LiquidityNo:  noSnap.DepthAsk(),
		AskYes:       yesSnap.BestAsk(),
		AskNo:        noSnap.BestAsk(),
		BidYes:       yesSnap.BestBid(),
		BidNo:        noSnap.BestBid(),
		MidYes:       yesSnap.MidPrice(),
		MidNo:        noSnap.MidPrice(),
		FeesEnabled:  mkt.FeesEnabled,
		Timestamp:    snap.Timestamp,
	}

	signal, err := t.deps.Strategy.OnMarketUpdate(ctx, state)
	if err != nil {
		t.logger.Error("strategy evaluation failed",
			slog.String("market_id", mkt.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	if signal == nil {
		return
	}

	check := t.deps.Governor.PreTradeCheck(mkt.ID, signal.Size, signal.Value())
	if !check.Passed {
		t.logger.Info("signal blocked by risk check",
			slog.String("signal_id", signal.ID),
			slog.String("reason", check.Reason),
		)
		return
	}

	fill, err := t.deps.Executor.Execute(ctx, *signal)
	if err != nil {
		t.deps.Governor.RecordError()
		t.logger.Error("execution failed",
			slog.String("signal_id", signal.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	if err := t.deps.Strategy.OnFill(ctx, fill); err != nil {
		t.deps.Governor.RecordError()
		t.logger.Error("fill handling failed",
			slog.String("fill_id", fill.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	t.persistFill(ctx, mkt.ID, fill)
}

// persistFill journals the fill and fans it out to the optional sinks.
func (t *trader) persistFill(ctx context.Context, marketID string, fill domain.Fill) {
	if t.deps.FillStore != nil {
		if err := t.deps.FillStore.InsertFill(ctx, fill); err != nil {
			t.logger.Error("fill journal insert failed", slog.String("error", err.Error()))
		}
		if pos, ok := t.deps.Ledger.Get(marketID); ok {
			if err := t.deps.FillStore.UpsertPositionSnapshot(ctx, pos.Summary()); err != nil {
				t.logger.Error("position snapshot upsert failed", slog.String("error", err.Error()))
			}
		}
	}

	if t.deps.SignalBus != nil {
		if payload, err := json.Marshal(fill); err == nil {
			if err := t.deps.SignalBus.Publish(ctx, fillsChannel, payload); err != nil {
				t.logger.Debug("fill publish failed", slog.String("error", err.Error()))
			}
		}
	}

	_ = t.deps.Notifier.Notify(ctx, notify.EventFill, "Fill",
		fmt.Sprintf("%s %g @ %.4f on %s", fill.Action, fill.Size, fill.Price, marketID))
}

// statusLoop periodically logs risk and position state and archives a report
// snapshot when S3 is configured.
func (t *trader) statusLoop(ctx context.Context) error {
	ticker := time.NewTicker(t.cfg.Report.Interval.Duration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		status := t.deps.Governor.Status()
		state := t.deps.Strategy.State()

		t.logger.Info("status",
			slog.String("breaker", string(status.CircuitBreaker)),
			slog.Float64("daily_pnl", status.DailyPnL),
			slog.Float64("total_position", status.TotalPosition),
			slog.Int("orders_this_minute", status.OrdersThisMinute),
			slog.Float64("seconds_since_data", status.SecondsSinceData),
			slog.Int("tracked_markets", len(state.Positions)),
			slog.Float64("estimated_pnl", state.TotalEstimatedPnL),
			slog.String("feed", string(t.deps.Feed.State())),
		)
		for id, sum := range state.Positions {
			if sum.YesQty == 0 && sum.NoQty == 0 {
				continue
			}
			t.logger.Info("position",
				slog.String("market_id", id),
				slog.Float64("yes_qty", sum.YesQty),
				slog.Float64("no_qty", sum.NoQty),
				slog.Float64("pair_cost", sum.PairCost),
				slog.Float64("matched_pairs", sum.MatchedPairs),
				slog.Float64("estimated_pnl", sum.EstimatedPnL),
			)
		}

		if t.deps.Archiver != nil {
			snap := report.Snapshot{GeneratedAt: time.Now().UTC(), Risk: status, Strategy: state}
			if err := t.deps.Archiver.Archive(ctx, snap); err != nil {
				t.logger.Error("report archive failed", slog.String("error", err.Error()))
			}
		}
	}
}

// refreshLoop rediscovers markets on the configured interval. Short-horizon
// markets roll over continuously, so the subscription must follow the series.
func (t *trader) refreshLoop(ctx context.Context) error {
	ticker := time.NewTicker(t.cfg.Markets.RefreshInterval.Duration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		found, err := t.discover(ctx)
		if err != nil {
			t.logger.Warn("market refresh failed", slog.String("error", err.Error()))
			continue
		}
		if len(found) == 0 {
			t.logger.Warn("market refresh found no markets, keeping current set")
			continue
		}

		before := t.tokenIDs()
		t.setMarkets(found)
		after := t.tokenIDs()
		if tokenSetChanged(before, after) {
			t.logger.Info("market set changed, resubscribing",
				slog.Int("markets", len(found)),
			)
			if err := t.deps.Feed.SetAssets(after); err != nil {
				t.logger.Warn("resubscribe failed, will replay on next reconnect",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// discover resolves the configured market set: pinned slugs when given,
// otherwise the live short-horizon market per focus coin.
func (t *trader) discover(ctx context.Context) ([]domain.Market, error) {
	var found []domain.Market

	if len(t.cfg.Markets.Slugs) > 0 {
		for _, slug := range t.cfg.Markets.Slugs {
			mkt, err := t.deps.Catalog.GetMarketBySlug(ctx, slug)
			if err != nil {
				t.logger.Warn("slug lookup failed",
					slog.String("slug", slug),
					slog.String("error", err.Error()),
				)
				continue
			}
			found = append(found, mkt)
		}
		return found, nil
	}

	for _, coin := range t.cfg.Markets.FocusCoins {
		mkt, err := t.deps.Catalog.CurrentShortTermMarket(ctx, coin)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				t.logger.Warn("no live market for coin", slog.String("coin", coin))
				continue
			}
			return nil, err
		}
		t.logger.Info("market discovered",
			slog.String("coin", coin),
			slog.String("market_id", mkt.ID),
			slog.String("question", mkt.Question),
		)
		found = append(found, mkt)
	}
	return found, nil
}

func (t *trader) setMarkets(markets []domain.Market) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.markets = make(map[string]domain.Market, len(markets))
	t.byToken = make(map[string]string, len(markets)*2)
	for _, m := range markets {
		if m.YesTokenID == "" || m.NoTokenID == "" {
			continue
		}
		t.markets[m.ID] = m
		t.byToken[m.YesTokenID] = m.ID
		t.byToken[m.NoTokenID] = m.ID
	}
}

func (t *trader) marketForToken(tokenID string) (domain.Market, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id, ok := t.byToken[tokenID]
	if !ok {
		return domain.Market{}, false
	}
	return t.markets[id], true
}

func (t *trader) tokenIDs() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]string, 0, len(t.byToken))
	for id := range t.byToken {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func tokenSetChanged(a, b []string) bool {
	return strings.Join(a, ",") != strings.Join(b, ",")
}

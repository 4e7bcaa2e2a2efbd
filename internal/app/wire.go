package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/parityarb/paritybot/internal/blob/s3"
	"github.com/parityarb/paritybot/internal/books"
	"github.com/parityarb/paritybot/internal/cache/redis"
	"github.com/parityarb/paritybot/internal/config"
	"github.com/parityarb/paritybot/internal/domain"
	"github.com/parityarb/paritybot/internal/engine"
	"github.com/parityarb/paritybot/internal/executor"
	"github.com/parityarb/paritybot/internal/feed"
	"github.com/parityarb/paritybot/internal/ledger"
	"github.com/parityarb/paritybot/internal/notify"
	"github.com/parityarb/paritybot/internal/platform/polymarket"
	"github.com/parityarb/paritybot/internal/report"
	"github.com/parityarb/paritybot/internal/risk"
	"github.com/parityarb/paritybot/internal/store/postgres"
)

// Dependencies bundles everything the trading loop needs. Optional
// infrastructure (postgres, redis, s3) stays nil when disabled in config; the
// trader checks for nil before using them.
type Dependencies struct {
	Catalog  domain.MarketCatalog
	Books    *books.Cache
	Ledger   *ledger.Ledger
	Governor *risk.Governor
	Strategy engine.Strategy
	Executor domain.Executor
	Feed     *feed.Client

	FillStore  domain.FillStore
	PriceCache domain.PriceCache
	SignalBus  domain.SignalBus
	Archiver   *report.Archiver

	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them with a cleanup function for shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Core trading components ---
	deps.Catalog = polymarket.NewGammaClient(cfg.Polymarket.GammaHost)
	deps.Books = books.NewCache()
	deps.Ledger = ledger.New(logger)
	deps.Governor = risk.NewGovernor(risk.Config{
		MaxDailyLoss:         cfg.Risk.MaxDailyLoss,
		MaxPositionPerMarket: cfg.Risk.MaxPositionPerMarket,
		MaxPositionTotal:     cfg.Risk.MaxPositionTotal,
		StaleDataTimeout:     cfg.Risk.StaleDataTimeout.Duration,
		MaxOrdersPerMinute:   cfg.Risk.MaxOrdersPerMinute,
		CooldownAfterError:   cfg.Risk.CooldownAfterError.Duration,
	}, logger)

	strat, err := engine.New(cfg.Strategy.Kind, engine.Config{
		PairCostThreshold: cfg.Strategy.PairCostThreshold,
		OrderSize:         cfg.Strategy.OrderSize,
		MinLiquidity:      cfg.Strategy.MinLiquidity,
		MaxImbalance:      cfg.Strategy.MaxImbalance,
		SlippageBuffer:    cfg.Strategy.SlippageBuffer,
		SafetyMargin:      cfg.Strategy.SafetyMargin,
		FeeExtraMargin:    cfg.Strategy.FeeExtraMargin,
	}, deps.Ledger, deps.Governor, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: strategy: %w", err)
	}
	deps.Strategy = strat

	// Live order routing is not implemented; live mode falls back to paper
	// execution with a warning at startup.
	deps.Executor = executor.NewPaper(logger)

	deps.Feed = feed.NewClient(feed.Config{
		URL:                  cfg.Polymarket.WsHost,
		ReconnectDelay:       cfg.Feed.ReconnectDelay.Duration,
		MaxReconnectAttempts: cfg.Feed.MaxReconnectAttempts,
	}, deps.Books, logger)

	// --- PostgreSQL fill journal ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}
		deps.FillStore = postgres.NewFillStore(pgClient.Pool())
	}

	// --- Redis price mirror + event bus ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.PriceCache = redis.NewPriceCache(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)
	}

	// --- S3 report archiver ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		// Fail at startup on an unreachable bucket, like the postgres and
		// redis pings above.
		if err := s3Client.Health(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		deps.Archiver = report.NewArchiver(s3blob.NewWriter(s3Client), cfg.Report.S3Prefix, logger)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}

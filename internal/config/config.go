// Package config defines the top-level configuration for the parity bot and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by PARITY_* environment variables.
type Config struct {
	Polymarket PolymarketConfig `toml:"polymarket"`
	Markets    MarketsConfig    `toml:"markets"`
	Strategy   StrategyConfig   `toml:"strategy"`
	Risk       RiskConfig       `toml:"risk"`
	Feed       FeedConfig       `toml:"feed"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Report     ReportConfig     `toml:"report"`
	Notify     NotifyConfig     `toml:"notify"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// PolymarketConfig holds the exchange API endpoints.
type PolymarketConfig struct {
	GammaHost string `toml:"gamma_host"`
	WsHost    string `toml:"ws_host"`
}

// MarketsConfig controls market discovery and rotation.
type MarketsConfig struct {
	// FocusCoins selects the short-horizon up/down series to trade (e.g.
	// "BTC", "ETH"). Ignored when Slugs is non-empty.
	FocusCoins []string `toml:"focus_coins"`
	// Slugs pins discovery to explicit market slugs.
	Slugs []string `toml:"slugs"`
	// RefreshInterval is how often discovery reruns to pick up the next
	// market in each series.
	RefreshInterval duration `toml:"refresh_interval"`
}

// StrategyConfig holds the arbitrage strategy parameters.
type StrategyConfig struct {
	Kind              string  `toml:"kind"`
	PairCostThreshold float64 `toml:"pair_cost_threshold"`
	OrderSize         float64 `toml:"order_size"`
	MinLiquidity      float64 `toml:"min_liquidity"`
	MaxImbalance      float64 `toml:"max_imbalance"`
	SlippageBuffer    float64 `toml:"slippage_buffer"`
	SafetyMargin      float64 `toml:"safety_margin"`
	FeeExtraMargin    float64 `toml:"fee_extra_margin"`
}

// RiskConfig holds the circuit breaker limits.
type RiskConfig struct {
	MaxDailyLoss         float64  `toml:"max_daily_loss"`
	MaxPositionPerMarket float64  `toml:"max_position_per_market"`
	MaxPositionTotal     float64  `toml:"max_position_total"`
	StaleDataTimeout     duration `toml:"stale_data_timeout"`
	MaxOrdersPerMinute   int      `toml:"max_orders_per_minute"`
	CooldownAfterError   duration `toml:"cooldown_after_error"`
}

// FeedConfig holds websocket reconnect parameters.
type FeedConfig struct {
	ReconnectDelay       duration `toml:"reconnect_delay"`
	MaxReconnectAttempts int      `toml:"max_reconnect_attempts"`
}

// PostgresConfig holds PostgreSQL connection parameters for the fill journal.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters for the price mirror and
// event bus.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for report archival.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ReportConfig controls periodic status reporting.
type ReportConfig struct {
	Interval duration `toml:"interval"`
	S3Prefix string   `toml:"s3_prefix"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Polymarket: PolymarketConfig{
			GammaHost: "https://gamma-api.polymarket.com",
			WsHost:    "wss://ws-subscriptions-clob.polymarket.com/ws/market",
		},
		Markets: MarketsConfig{
			FocusCoins:      []string{"BTC", "ETH"},
			RefreshInterval: duration{15 * time.Minute},
		},
		Strategy: StrategyConfig{
			Kind:              "binary_parity",
			PairCostThreshold: 0.99,
			OrderSize:         10.0,
			MinLiquidity:      50.0,
			MaxImbalance:      0.30,
			SlippageBuffer:    0.008,
			SafetyMargin:      0.005,
			FeeExtraMargin:    0.010,
		},
		Risk: RiskConfig{
			MaxDailyLoss:         50.0,
			MaxPositionPerMarket: 100.0,
			MaxPositionTotal:     500.0,
			StaleDataTimeout:     duration{30 * time.Second},
			MaxOrdersPerMinute:   10,
			CooldownAfterError:   duration{30 * time.Second},
		},
		Feed: FeedConfig{
			ReconnectDelay:       duration{5 * time.Second},
			MaxReconnectAttempts: 10,
		},
		Postgres: PostgresConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "paritybot",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "paritybot-reports",
			ForcePathStyle: true,
		},
		Report: ReportConfig{
			Interval: duration{time.Minute},
			S3Prefix: "reports",
		},
		Notify: NotifyConfig{
			Events: []string{"breaker_trip"},
		},
		Mode:     "paper",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"paper":   true,
	"live":    true,
	"monitor": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: paper, live, monitor)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Polymarket.GammaHost == "" {
		errs = append(errs, "polymarket: gamma_host must not be empty")
	}
	if c.Polymarket.WsHost == "" {
		errs = append(errs, "polymarket: ws_host must not be empty")
	}

	if len(c.Markets.FocusCoins) == 0 && len(c.Markets.Slugs) == 0 {
		errs = append(errs, "markets: focus_coins or slugs must be set")
	}
	if c.Markets.RefreshInterval.Duration <= 0 {
		errs = append(errs, "markets: refresh_interval must be > 0")
	}

	if c.Strategy.Kind == "" {
		errs = append(errs, "strategy: kind must not be empty")
	}
	if c.Strategy.PairCostThreshold <= 0 || c.Strategy.PairCostThreshold >= 1 {
		errs = append(errs, fmt.Sprintf("strategy: pair_cost_threshold must be in (0,1), got %g", c.Strategy.PairCostThreshold))
	}
	if c.Strategy.OrderSize <= 0 {
		errs = append(errs, "strategy: order_size must be > 0")
	}
	if c.Strategy.MaxImbalance < 0 || c.Strategy.MaxImbalance > 1 {
		errs = append(errs, fmt.Sprintf("strategy: max_imbalance must be in [0,1], got %g", c.Strategy.MaxImbalance))
	}
	if c.Strategy.SlippageBuffer < 0 || c.Strategy.SafetyMargin < 0 || c.Strategy.FeeExtraMargin < 0 {
		errs = append(errs, "strategy: margins must be >= 0")
	}

	if c.Risk.MaxDailyLoss <= 0 {
		errs = append(errs, "risk: max_daily_loss must be > 0")
	}
	if c.Risk.MaxPositionPerMarket <= 0 {
		errs = append(errs, "risk: max_position_per_market must be > 0")
	}
	if c.Risk.MaxPositionTotal < c.Risk.MaxPositionPerMarket {
		errs = append(errs, "risk: max_position_total must be >= max_position_per_market")
	}
	if c.Risk.StaleDataTimeout.Duration <= 0 {
		errs = append(errs, "risk: stale_data_timeout must be > 0")
	}
	if c.Risk.MaxOrdersPerMinute < 1 {
		errs = append(errs, "risk: max_orders_per_minute must be >= 1")
	}

	if c.Feed.ReconnectDelay.Duration <= 0 {
		errs = append(errs, "feed: reconnect_delay must be > 0")
	}
	if c.Feed.MaxReconnectAttempts < 1 {
		errs = append(errs, "feed: max_reconnect_attempts must be >= 1")
	}

	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 || c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must be in [0, pool_max_conns]")
		}
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty")
		}
	}

	if c.Report.Interval.Duration <= 0 {
		errs = append(errs, "report: interval must be > 0")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies PARITY_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known PARITY_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Polymarket ──
	setStr(&cfg.Polymarket.GammaHost, "PARITY_POLYMARKET_GAMMA_HOST")
	setStr(&cfg.Polymarket.WsHost, "PARITY_POLYMARKET_WS_HOST")

	// ── Markets ──
	setStringSlice(&cfg.Markets.FocusCoins, "PARITY_MARKETS_FOCUS_COINS")
	setStringSlice(&cfg.Markets.Slugs, "PARITY_MARKETS_SLUGS")
	setDuration(&cfg.Markets.RefreshInterval, "PARITY_MARKETS_REFRESH_INTERVAL")

	// ── Strategy ──
	setStr(&cfg.Strategy.Kind, "PARITY_STRATEGY_KIND")
	setFloat64(&cfg.Strategy.PairCostThreshold, "PARITY_STRATEGY_PAIR_COST_THRESHOLD")
	setFloat64(&cfg.Strategy.OrderSize, "PARITY_STRATEGY_ORDER_SIZE")
	setFloat64(&cfg.Strategy.MinLiquidity, "PARITY_STRATEGY_MIN_LIQUIDITY")
	setFloat64(&cfg.Strategy.MaxImbalance, "PARITY_STRATEGY_MAX_IMBALANCE")
	setFloat64(&cfg.Strategy.SlippageBuffer, "PARITY_STRATEGY_SLIPPAGE_BUFFER")
	setFloat64(&cfg.Strategy.SafetyMargin, "PARITY_STRATEGY_SAFETY_MARGIN")
	setFloat64(&cfg.Strategy.FeeExtraMargin, "PARITY_STRATEGY_FEE_EXTRA_MARGIN")

	// ── Risk ──
	setFloat64(&cfg.Risk.MaxDailyLoss, "PARITY_RISK_MAX_DAILY_LOSS")
	setFloat64(&cfg.Risk.MaxPositionPerMarket, "PARITY_RISK_MAX_POSITION_PER_MARKET")
	setFloat64(&cfg.Risk.MaxPositionTotal, "PARITY_RISK_MAX_POSITION_TOTAL")
	setDuration(&cfg.Risk.StaleDataTimeout, "PARITY_RISK_STALE_DATA_TIMEOUT")
	setInt(&cfg.Risk.MaxOrdersPerMinute, "PARITY_RISK_MAX_ORDERS_PER_MINUTE")
	setDuration(&cfg.Risk.CooldownAfterError, "PARITY_RISK_COOLDOWN_AFTER_ERROR")

	// ── Feed ──
	setDuration(&cfg.Feed.ReconnectDelay, "PARITY_FEED_RECONNECT_DELAY")
	setInt(&cfg.Feed.MaxReconnectAttempts, "PARITY_FEED_MAX_RECONNECT_ATTEMPTS")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "PARITY_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "PARITY_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "PARITY_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "PARITY_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "PARITY_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "PARITY_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "PARITY_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "PARITY_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "PARITY_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "PARITY_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "PARITY_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "PARITY_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "PARITY_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "PARITY_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "PARITY_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "PARITY_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "PARITY_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "PARITY_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "PARITY_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "PARITY_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "PARITY_S3_REGION")
	setStr(&cfg.S3.Bucket, "PARITY_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "PARITY_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "PARITY_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "PARITY_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "PARITY_S3_FORCE_PATH_STYLE")

	// ── Report ──
	setDuration(&cfg.Report.Interval, "PARITY_REPORT_INTERVAL")
	setStr(&cfg.Report.S3Prefix, "PARITY_REPORT_S3_PREFIX")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "PARITY_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "PARITY_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "PARITY_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "PARITY_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "PARITY_MODE")
	setStr(&cfg.LogLevel, "PARITY_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}

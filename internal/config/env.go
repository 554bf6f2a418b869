package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/0xsamyy/buywatch/internal/chain"
)

// Config holds all runtime configuration for the service.
type Config struct {
	// Required
	TelegramBotToken    string
	TelegramAdminChatID int64
	ResolverAPIURL      string // token metadata HTTP API
	FeedWSS             string // purchase feed WebSocket endpoint

	// Optional (with defaults)
	DBPath             string // default: "buywatch.db"
	DefaultMinUSD      float64
	BNBExplorerBase    string
	SolanaExplorerBase string
	LogLevel           string
}

// Load reads environment variables, applies defaults, validates,
// and returns a Config instance. It attempts to load .env if present.
func Load() (Config, error) {
	// Load .env if it exists; ignore if missing.
	_ = godotenv.Load()

	var cfg Config
	var errs []string

	// --- Required Fields ---

	// Required: TELEGRAM_BOT_TOKEN
	cfg.TelegramBotToken = strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
	if cfg.TelegramBotToken == "" {
		errs = append(errs, "TELEGRAM_BOT_TOKEN is required (get it from @BotFather)")
	}

	// Required: TELEGRAM_ADMIN_CHAT_ID (must be a valid int64)
	adminStr := strings.TrimSpace(os.Getenv("TELEGRAM_ADMIN_CHAT_ID"))
	if adminStr == "" {
		errs = append(errs, "TELEGRAM_ADMIN_CHAT_ID is required (your numeric chat id)")
	} else {
		id, err := strconv.ParseInt(adminStr, 10, 64)
		if err != nil || id == 0 {
			errs = append(errs, fmt.Sprintf("TELEGRAM_ADMIN_CHAT_ID must be a valid integer, got %q", adminStr))
		} else {
			cfg.TelegramAdminChatID = id
		}
	}

	// Required: RESOLVER_API_URL (must start with https://)
	cfg.ResolverAPIURL = strings.TrimSpace(os.Getenv("RESOLVER_API_URL"))
	if cfg.ResolverAPIURL == "" {
		errs = append(errs, "RESOLVER_API_URL is required (token metadata API base URL)")
	} else if !strings.HasPrefix(strings.ToLower(cfg.ResolverAPIURL), "https://") {
		errs = append(errs, fmt.Sprintf("RESOLVER_API_URL must start with https://, got %q", cfg.ResolverAPIURL))
	}

	// Required: FEED_WSS (must start with wss://)
	cfg.FeedWSS = strings.TrimSpace(os.Getenv("FEED_WSS"))
	if cfg.FeedWSS == "" {
		errs = append(errs, "FEED_WSS is required (purchase feed WebSocket URL, incl. api key)")
	} else if !strings.HasPrefix(strings.ToLower(cfg.FeedWSS), "wss://") {
		errs = append(errs, fmt.Sprintf("FEED_WSS must start with wss://, got %q", cfg.FeedWSS))
	}

	// --- Optional Fields with Defaults ---

	// Optional: DB_PATH (default: buywatch.db)
	cfg.DBPath = strings.TrimSpace(os.Getenv("DB_PATH"))
	if cfg.DBPath == "" {
		cfg.DBPath = "buywatch.db"
	}

	// Optional: DEFAULT_MIN_USD (default: 0, i.e. report every purchase)
	minUSDStr := strings.TrimSpace(os.Getenv("DEFAULT_MIN_USD"))
	if minUSDStr != "" {
		v, err := strconv.ParseFloat(minUSDStr, 64)
		if err != nil || v < 0 {
			errs = append(errs, fmt.Sprintf("DEFAULT_MIN_USD must be a non-negative number, got %q", minUSDStr))
		} else {
			cfg.DefaultMinUSD = v
		}
	}

	// Optional: explorer base URLs (raw tx id is appended to these)
	cfg.BNBExplorerBase = strings.TrimSpace(os.Getenv("BNB_EXPLORER_BASE"))
	if cfg.BNBExplorerBase == "" {
		cfg.BNBExplorerBase = chain.DefaultExplorers()[chain.BNB]
	}
	cfg.SolanaExplorerBase = strings.TrimSpace(os.Getenv("SOLANA_EXPLORER_BASE"))
	if cfg.SolanaExplorerBase == "" {
		cfg.SolanaExplorerBase = chain.DefaultExplorers()[chain.Solana]
	}

	// Optional: LOG_LEVEL (default: info)
	logLevel := strings.TrimSpace(strings.ToLower(os.Getenv("LOG_LEVEL")))
	switch logLevel {
	case "", "info", "debug", "warn", "error":
		// OK (empty becomes "info")
	default:
		errs = append(errs, fmt.Sprintf("LOG_LEVEL must be one of debug|info|warn|error, got %q", logLevel))
	}
	if logLevel == "" {
		logLevel = "info"
	}
	cfg.LogLevel = logLevel

	if len(errs) > 0 {
		return Config{}, errors.New("config validation error:\n  - " + strings.Join(errs, "\n  - "))
	}

	return cfg, nil
}

// MustLoad is a convenience for main(): exit fast with a readable error.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		// Print a clean error (no stack trace) so non-Go users can fix env quickly.
		fmt.Fprintf(os.Stderr, "\nFATAL: %v\n\n", err)
		os.Exit(1)
	}
	return cfg
}

// Explorers assembles the per-network explorer bases for the formatter.
func (c Config) Explorers() chain.ExplorerBases {
	return chain.ExplorerBases{
		chain.BNB:    c.BNBExplorerBase,
		chain.Solana: c.SolanaExplorerBase,
	}
}

// RedactedSummary returns a safe human-readable snapshot of the config.
// Useful to log at startup for quick debugging without leaking secrets.
func (c Config) RedactedSummary() string {
	return fmt.Sprintf(
		"config{ db=%s, resolver_api=%s, feed_wss=%s, min_usd=%.2f, telegram_bot_token=%s, admin_chat_id=%d, log_level=%s }",
		c.DBPath,
		redactURL(c.ResolverAPIURL),
		redactURL(c.FeedWSS),
		c.DefaultMinUSD,
		redactToken(c.TelegramBotToken),
		c.TelegramAdminChatID,
		c.LogLevel,
	)
}

func redactToken(tok string) string {
	if len(tok) > 6 {
		return tok[:6] + "...(redacted)"
	}
	if tok == "" {
		return "(empty)"
	}
	return "***"
}

func redactURL(u string) string {
	parts := strings.Split(u, "api-key=")
	if len(parts) < 2 {
		return u
	}
	tail := parts[1]
	if i := strings.IndexAny(tail, "&;"); i >= 0 {
		tail = tail[:i]
	}
	return strings.Replace(u, "api-key="+tail, "api-key=***", 1)
}

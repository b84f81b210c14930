package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"paperTrader/internal/adapters/logger" // Import the logger package for LogLevel
	"paperTrader/internal/domain"
)

// Quote provider names accepted by QUOTE_PROVIDER.
const (
	ProviderIEX     = "iex"
	ProviderBinance = "binance"
	ProviderStatic  = "static"
)

// Ledger store names accepted by LEDGER_STORE.
const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Config holds all application configuration.
type Config struct {
	// HTTP server
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Ledger
	LedgerStore  string       // sqlite or memory
	DBPath       string       // SQLite file, used when LedgerStore is sqlite
	StartingCash domain.Money // Balance of a newly opened account

	// Quotes
	QuoteProvider     string
	APIKey            string // IEX token
	IEXBaseURL        string
	BinanceUseTestnet bool
	QuotesFile        string // CSV sheet for the static provider
	QuoteTimeout      time.Duration

	// Logging
	LogLevel  logger.LogLevel // Use the LogLevel type from the logger adapter
	LogFormat string          // text or json
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	return load(true)
}

// LoadLedgerConfig loads everything except the quote provider settings, for
// tools that only read the ledger (reconcile, history export).
func LoadLedgerConfig() (*Config, error) {
	return load(false)
}

func load(withQuotes bool) (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// HTTP server
	cfg.Port, err = getEnvAsIntRequired("PORT", 8080)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid PORT: %v", err))
	} else if cfg.Port <= 0 || cfg.Port > 65535 {
		errs = append(errs, "PORT must be between 1 and 65535")
	}

	for _, d := range []struct {
		key   string
		def   time.Duration
		field *time.Duration
	}{
		{"READ_TIMEOUT", 10 * time.Second, &cfg.ReadTimeout},
		{"WRITE_TIMEOUT", 15 * time.Second, &cfg.WriteTimeout},
		{"IDLE_TIMEOUT", 60 * time.Second, &cfg.IdleTimeout},
		{"SHUTDOWN_TIMEOUT", 10 * time.Second, &cfg.ShutdownTimeout},
		{"QUOTE_TIMEOUT", 5 * time.Second, &cfg.QuoteTimeout},
	} {
		*d.field, err = getEnvAsDurationRequired(d.key, d.def)
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid %s: %v", d.key, err))
		} else if *d.field <= 0 {
			errs = append(errs, d.key+" must be positive")
		}
	}

	// Ledger
	cfg.LedgerStore = strings.ToLower(getEnv("LEDGER_STORE", StoreSQLite))
	switch cfg.LedgerStore {
	case StoreSQLite:
		cfg.DBPath = getEnv("DB_PATH", "./data/ledger.db")
	case StoreMemory:
	default:
		errs = append(errs, fmt.Sprintf("LEDGER_STORE must be %q or %q", StoreSQLite, StoreMemory))
	}

	cfg.StartingCash, err = domain.ParseMoney(getEnv("STARTING_CASH", domain.DefaultStartingCash.Plain()))
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid STARTING_CASH: %v", err))
	} else if cfg.StartingCash.IsNegative() {
		errs = append(errs, "STARTING_CASH cannot be negative")
	}

	// Quotes
	if withQuotes {
		errs = append(errs, loadQuotes(cfg)...)
	}

	// Logging
	logLevelStr := getEnv("LOG_LEVEL", "INFO")
	cfg.LogLevel = logger.ParseLevel(logLevelStr) // Use the parser from the logger package

	cfg.LogFormat = strings.ToLower(getEnv("LOG_FORMAT", "text"))
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		errs = append(errs, "LOG_FORMAT must be text or json")
	}

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

func loadQuotes(cfg *Config) []string {
	var errs []string
	cfg.QuoteProvider = strings.ToLower(getEnv("QUOTE_PROVIDER", ProviderIEX))
	switch cfg.QuoteProvider {
	case ProviderIEX:
		cfg.APIKey = getEnv("API_KEY", "")
		if cfg.APIKey == "" {
			errs = append(errs, "API_KEY must be set")
		}
		cfg.IEXBaseURL = getEnv("IEX_BASE_URL", "https://cloud.iexapis.com")
	case ProviderBinance:
		cfg.BinanceUseTestnet = getEnvAsBool("BINANCE_USE_TESTNET", false)
	case ProviderStatic:
		cfg.QuotesFile = getEnv("QUOTES_FILE", "./data/quotes.csv")
	default:
		errs = append(errs, fmt.Sprintf("QUOTE_PROVIDER must be one of %q, %q, %q", ProviderIEX, ProviderBinance, ProviderStatic))
	}
	return errs
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

// getEnvAsDurationRequired accepts Go durations ("5s") or a bare number of seconds.
func getEnvAsDurationRequired(key string, defaultValue time.Duration) (time.Duration, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid duration value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

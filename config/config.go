package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"binanceTracker/internal/adapters/binanceclient"
	"binanceTracker/internal/adapters/krakenclient"
	"binanceTracker/internal/adapters/logger" // Import the logger package for LogLevel
	"binanceTracker/internal/depth"
	"binanceTracker/internal/domain"
)

// Supported market data providers.
const (
	ProviderBinance = "binance"
	ProviderKraken  = "kraken"
)

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Config holds all application configuration.
type Config struct {
	// Market data provider
	Provider      string // "binance" or "kraken"
	BinanceMarket string // "spot" or "futures"
	Symbol        string // Provider-native symbol, e.g. BTCUSDT (Binance) or XBTUSD (Kraken)
	APIKey        string // Optional, only public endpoints are used
	SecretKey     string
	IsTestnet     bool
	KrakenBaseURL string
	HTTPTimeout   time.Duration

	// Polling
	RefreshInterval time.Duration
	OrderBookLimit  int
	CandleInterval  string // e.g. "1d", "1w"
	CandleLimit     int    // Lookback window, in candles

	// Depth buckets
	Buckets      []domain.Bucket
	BucketColors []string // One "#rrggbb" per bucket

	// Price chart overlay
	MAPeriod int    // 0 disables the overlay
	MAType   string // "SMA" or "EMA"

	// Presentation
	DashboardEnabled bool
	HTTPAddr         string // Empty disables the JSON API

	// Logging
	LogLevel logger.LogLevel // Use the LogLevel type from the logger adapter
	LogFile  string          // Empty logs to stderr
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Provider
	cfg.Provider = strings.ToLower(getEnv("PROVIDER", ProviderBinance))
	if cfg.Provider != ProviderBinance && cfg.Provider != ProviderKraken {
		errs = append(errs, fmt.Sprintf("PROVIDER must be %q or %q", ProviderBinance, ProviderKraken))
	}
	cfg.BinanceMarket = strings.ToLower(getEnv("BINANCE_MARKET", "spot"))
	if cfg.BinanceMarket != "spot" && cfg.BinanceMarket != "futures" {
		errs = append(errs, "BINANCE_MARKET must be spot or futures")
	}

	defaultSymbol := "BTCUSDT"
	if cfg.Provider == ProviderKraken {
		defaultSymbol = "XBTUSD"
	}
	cfg.Symbol = strings.ToUpper(getEnv("SYMBOL", defaultSymbol))
	if cfg.Symbol == "" {
		errs = append(errs, "SYMBOL must be set")
	}

	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", false)
	cfg.KrakenBaseURL = getEnv("KRAKEN_BASE_URL", "https://api.kraken.com")

	timeoutSeconds, err := getEnvAsIntRequired("HTTP_TIMEOUT_SECONDS", 10)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid HTTP_TIMEOUT_SECONDS: %v", err))
	} else if timeoutSeconds <= 0 {
		errs = append(errs, "HTTP_TIMEOUT_SECONDS must be positive")
	}
	cfg.HTTPTimeout = time.Duration(timeoutSeconds) * time.Second

	// Polling
	refreshSeconds, err := getEnvAsIntRequired("REFRESH_INTERVAL_SECONDS", 5)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid REFRESH_INTERVAL_SECONDS: %v", err))
	} else if refreshSeconds <= 0 {
		errs = append(errs, "REFRESH_INTERVAL_SECONDS must be positive")
	}
	cfg.RefreshInterval = time.Duration(refreshSeconds) * time.Second

	cfg.OrderBookLimit, err = getEnvAsIntRequired("ORDER_BOOK_LIMIT", 100)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid ORDER_BOOK_LIMIT: %v", err))
	} else if maxLimit := maxOrderBookLimit(cfg.Provider); cfg.OrderBookLimit <= 0 || cfg.OrderBookLimit > maxLimit {
		errs = append(errs, fmt.Sprintf("ORDER_BOOK_LIMIT must be between 1 and %d for %s", maxLimit, cfg.Provider))
	}

	cfg.CandleInterval = getEnv("CANDLE_INTERVAL", "1w")
	cfg.CandleLimit, err = getEnvAsIntRequired("CANDLE_LIMIT", 100)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid CANDLE_LIMIT: %v", err))
	} else if cfg.CandleLimit <= 0 {
		errs = append(errs, "CANDLE_LIMIT must be positive")
	}

	// Depth buckets: rejected here, before any fetch cycle runs
	cfg.Buckets = domain.DefaultBuckets()
	if raw := os.Getenv("DEPTH_BUCKETS"); raw != "" {
		buckets, perr := ParseBuckets(raw)
		if perr != nil {
			errs = append(errs, fmt.Sprintf("invalid DEPTH_BUCKETS: %v", perr))
		} else {
			cfg.Buckets = buckets
		}
	}
	if verr := depth.ValidateTable(cfg.Buckets); verr != nil {
		errs = append(errs, verr.Error())
	}

	cfg.BucketColors = domain.DefaultBucketColors()
	if raw := os.Getenv("DEPTH_COLORS"); raw != "" {
		cfg.BucketColors = splitList(raw)
	}
	if len(cfg.BucketColors) < len(cfg.Buckets) {
		errs = append(errs, fmt.Sprintf("DEPTH_COLORS needs one colour per bucket (%d < %d)", len(cfg.BucketColors), len(cfg.Buckets)))
	}
	for _, c := range cfg.BucketColors {
		if !hexColor.MatchString(c) {
			errs = append(errs, fmt.Sprintf("invalid colour %q in DEPTH_COLORS, expected #rrggbb", c))
		}
	}

	// Overlay
	cfg.MAPeriod = getEnvAsInt("MA_PERIOD", 20)
	if cfg.MAPeriod < 0 {
		errs = append(errs, "MA_PERIOD cannot be negative")
	}
	cfg.MAType = strings.ToUpper(getEnv("MA_TYPE", "SMA"))
	if cfg.MAType != "SMA" && cfg.MAType != "EMA" {
		errs = append(errs, "MA_TYPE must be SMA or EMA")
	}

	// Presentation
	cfg.DashboardEnabled = getEnvAsBool("DASHBOARD_ENABLED", true)
	cfg.HTTPAddr = getEnv("HTTP_ADDR", "")

	// Logging
	logLevelStr := getEnv("LOG_LEVEL", "INFO")
	cfg.LogLevel = logger.ParseLevel(logLevelStr) // Use the parser from the logger package
	cfg.LogFile = getEnv("LOG_FILE", "")

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// ParseBuckets parses a "low:high:label,low:high:label" list. Validation of
// ordering and overlap is left to depth.ValidateTable.
func ParseBuckets(raw string) ([]domain.Bucket, error) {
	var buckets []domain.Bucket
	for _, item := range splitList(raw) {
		parts := strings.SplitN(item, ":", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("bucket %q must be low:high:label", item)
		}
		low, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("bucket %q: invalid low bound: %w", item, err)
		}
		high, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("bucket %q: invalid high bound: %w", item, err)
		}
		buckets = append(buckets, domain.Bucket{Low: low, High: high, Label: strings.TrimSpace(parts[2])})
	}
	if len(buckets) == 0 {
		return nil, fmt.Errorf("no buckets defined")
	}
	return buckets, nil
}

// maxOrderBookLimit returns the largest depth the provider serves per request.
func maxOrderBookLimit(provider string) int {
	if provider == ProviderKraken {
		return krakenclient.MaxDepthCount
	}
	return binanceclient.MaxDepthLimit
}

// --- Env Var Helpers ---

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
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

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// All environment variables are read here and nowhere else.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Market data source
	MarketData MarketDataConfig

	// Pipeline
	Pipeline PipelineConfig

	// ML signal service
	Predictor PredictorConfig

	// Backtesting defaults
	Backtest BacktestConfig

	// Alerts
	Alerts AlertsConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Enabled  bool
}

// MarketDataConfig holds the upstream OHLCV source configuration
type MarketDataConfig struct {
	BaseURL      string
	QuoteBaseURL string  // profile/quote pages, used for symbol validation
	RatePerSec   float64 // upstream throttles aggressively
	Burst        int
}

// PipelineConfig holds dataset build configuration
type PipelineConfig struct {
	LookbackDays int     // warm-up rows dropped per ticker
	Workers      int     // concurrent tickers
	FxRate       float64 // static price conversion factor, 1.0 = no conversion
	TickerFile   string  // optional seed list, one symbol per line
}

// PredictorConfig holds ML signal service configuration
type PredictorConfig struct {
	BaseURL             string
	ConfidenceThreshold float64 // below this the raw prediction collapses to HOLD
	WindowSize          int     // trailing feature rows sent per prediction
	Timeout             time.Duration
}

// BacktestConfig holds simulation defaults
type BacktestConfig struct {
	InitialCapital float64
	FeeRate        float64 // proportional fee per fill
	SlippageRate   float64
	RiskFreeRate   float64
}

// AlertsConfig holds SMTP alert delivery configuration
type AlertsConfig struct {
	Enabled     bool
	SMTPHost    string
	SMTPPort    string
	Sender      string
	Password    string
	Recipients  []string
	CronSpec    string // signal evaluation schedule
	RefreshCron string // nightly pipeline refresh schedule
}

// Load reads configuration from environment variables.
// This is the only function that calls os.Getenv().
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
		},

		MarketData: MarketDataConfig{
			BaseURL:      getEnv("MARKET_DATA_BASE_URL", "https://query1.finance.yahoo.com"),
			QuoteBaseURL: getEnv("MARKET_DATA_QUOTE_URL", "https://finance.yahoo.com"),
			RatePerSec:   getEnvAsFloat("MARKET_DATA_RATE_PER_SEC", 2.0),
			Burst:        getEnvAsInt("MARKET_DATA_BURST", 4),
		},

		Pipeline: PipelineConfig{
			LookbackDays: getEnvAsInt("PIPELINE_LOOKBACK_DAYS", 50),
			Workers:      getEnvAsInt("PIPELINE_WORKERS", 4),
			FxRate:       getEnvAsFloat("PIPELINE_FX_RATE", 1.0),
			TickerFile:   getEnv("PIPELINE_TICKER_FILE", ""),
		},

		Predictor: PredictorConfig{
			BaseURL:             getEnv("PREDICTOR_BASE_URL", "http://localhost:8001"),
			ConfidenceThreshold: getEnvAsFloat("PREDICTOR_CONFIDENCE_THRESHOLD", 0.60),
			WindowSize:          getEnvAsInt("PREDICTOR_WINDOW_SIZE", 30),
			Timeout:             getEnvAsDuration("PREDICTOR_TIMEOUT", "30s"),
		},

		Backtest: BacktestConfig{
			InitialCapital: getEnvAsFloat("BACKTEST_INITIAL_CAPITAL", 1_000_000),
			FeeRate:        getEnvAsFloat("BACKTEST_FEE_RATE", 0.002),
			SlippageRate:   getEnvAsFloat("BACKTEST_SLIPPAGE_RATE", 0.0),
			RiskFreeRate:   getEnvAsFloat("BACKTEST_RISK_FREE_RATE", 0.0),
		},

		Alerts: AlertsConfig{
			Enabled:     getEnvAsBool("ALERTS_ENABLED", false),
			SMTPHost:    getEnv("ALERTS_SMTP_HOST", "smtp.gmail.com"),
			SMTPPort:    getEnv("ALERTS_SMTP_PORT", "587"),
			Sender:      getEnv("ALERTS_SENDER", ""),
			Password:    getEnv("ALERTS_PASSWORD", ""),
			Recipients:  getEnvAsList("ALERTS_RECIPIENTS"),
			CronSpec:    getEnv("ALERTS_CRON", "0 0 17 * * MON-FRI"),
			RefreshCron: getEnv("PIPELINE_REFRESH_CRON", "0 30 6 * * TUE-SAT"),
		},

		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Predictor.ConfidenceThreshold < 0 || c.Predictor.ConfidenceThreshold > 1 {
		return fmt.Errorf("PREDICTOR_CONFIDENCE_THRESHOLD must be in [0, 1]")
	}

	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("PIPELINE_WORKERS must be at least 1")
	}

	if c.Alerts.Enabled && c.Alerts.Sender == "" {
		return fmt.Errorf("ALERTS_SENDER is required when alerts are enabled")
	}

	return nil
}

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
		"backend/.env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
			filepath.Join(exeDir, "..", "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
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

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

func getEnvAsList(key string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return nil
	}

	var out []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

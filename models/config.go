package models

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime settings, loaded from environment variables
type Config struct {
	Instruments []string `env:"INSTRUMENTS" envDefault:"EUR/USD,GBP/USD,USD/JPY"`
	Timeframe   string   `env:"TIMEFRAME" envDefault:"M5"`

	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"60s"`
	CandleCount  int           `env:"CANDLE_COUNT" envDefault:"250"`

	RiskPerTradePercent          float64 `env:"RISK_PER_TRADE_PERCENT" envDefault:"1.0"`
	AccountBalance               float64 `env:"ACCOUNT_BALANCE" envDefault:"10000"`
	MaxTradesPerDay              int     `env:"MAX_TRADES_PER_DAY" envDefault:"10"`
	MaxTradesPerInstrumentPerDay int     `env:"MAX_TRADES_PER_INSTRUMENT_PER_DAY" envDefault:"3"`

	MLBaseURL string        `env:"ML_BASE_URL"`
	MLTimeout time.Duration `env:"ML_TIMEOUT" envDefault:"5s"`

	DataDir          string        `env:"DATA_DIR" envDefault:"data"`
	TradesDir        string        `env:"TRADES_DIR" envDefault:"trades"`
	CalendarFile     string        `env:"CALENDAR_FILE"`
	DatabaseURL      string        `env:"DATABASE_URL"`
	DecisionCacheTTL time.Duration `env:"DECISION_CACHE_TTL" envDefault:"2h"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`
}

// ActiveTradesPath is the persistence file for open positions.
func (c *Config) ActiveTradesPath() string {
	return c.DataDir + string(os.PathSeparator) + "active_trades.json"
}

// LoadConfig reads configuration from the environment, falling back to
// defaults for anything unset.
func LoadConfig() *Config {
	return &Config{
		Instruments: envStrings("INSTRUMENTS", []string{"EUR/USD", "GBP/USD", "USD/JPY"}),
		Timeframe:   envString("TIMEFRAME", "M5"),

		PollInterval: envDuration("POLL_INTERVAL", 60*time.Second),
		CandleCount:  envInt("CANDLE_COUNT", 250),

		RiskPerTradePercent:          envFloat("RISK_PER_TRADE_PERCENT", 1.0),
		AccountBalance:               envFloat("ACCOUNT_BALANCE", 10000),
		MaxTradesPerDay:              envInt("MAX_TRADES_PER_DAY", 10),
		MaxTradesPerInstrumentPerDay: envInt("MAX_TRADES_PER_INSTRUMENT_PER_DAY", 3),

		MLBaseURL: envString("ML_BASE_URL", ""),
		MLTimeout: envDuration("ML_TIMEOUT", 5*time.Second),

		DataDir:          envString("DATA_DIR", "data"),
		TradesDir:        envString("TRADES_DIR", "trades"),
		CalendarFile:     envString("CALENDAR_FILE", ""),
		DatabaseURL:      envString("DATABASE_URL", ""),
		DecisionCacheTTL: envDuration("DECISION_CACHE_TTL", 2*time.Hour),

		LogLevel:  envString("LOG_LEVEL", "info"),
		LogFormat: envString("LOG_FORMAT", "console"),
	}
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envStrings(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

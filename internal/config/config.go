// Package config reads service settings from the environment. A .env file
// in the working directory is loaded first when present.
package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

type Config struct {
	Port              string
	DatabaseURL       string
	DBMigrate         bool
	RedisURL          string
	AuthMode          string
	AuthHMACSecret    string
	RateRPS           float64
	RateBurst         int
	LogLevel          string
	LogFormat         string
	ScoringConfigPath string
	WebhookURL        string
	WebhookSecret     string
	RescheduleWorkers int
}

// Load reads the environment, after an optional .env file. It fails only on
// values that are present but malformed.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

func FromEnv() (Config, error) {
	c := Config{
		Port:              getEnv("PORT", "8080"),
		DatabaseURL:       strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMigrate:         os.Getenv("DB_MIGRATE") != "false",
		RedisURL:          strings.TrimSpace(os.Getenv("REDIS_URL")),
		AuthMode:          strings.ToLower(getEnv("AUTH_MODE", "dev")),
		AuthHMACSecret:    os.Getenv("AUTH_HMAC_SECRET"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "console"),
		ScoringConfigPath: os.Getenv("SCORING_CONFIG"),
		WebhookURL:        os.Getenv("WEBHOOK_URL"),
		WebhookSecret:     os.Getenv("WEBHOOK_SECRET"),
	}
	var err error
	if c.RateRPS, err = getFloat("RATE_RPS", 20); err != nil {
		return c, err
	}
	if c.RateBurst, err = getInt("RATE_BURST", 40); err != nil {
		return c, err
	}
	if c.RescheduleWorkers, err = getInt("RESCHEDULE_WORKERS", 4); err != nil {
		return c, err
	}
	switch c.AuthMode {
	case "dev", "hmac":
	default:
		return c, fmt.Errorf("AUTH_MODE: unknown mode %q", c.AuthMode)
	}
	if c.AuthMode == "hmac" && c.AuthHMACSecret == "" {
		return c, fmt.Errorf("AUTH_HMAC_SECRET is required when AUTH_MODE=hmac")
	}
	return c, nil
}

// Logger builds the process logger. LOG_FORMAT=json writes plain JSON lines,
// anything else a human-readable console format.
func (c Config) Logger(out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if c.LogFormat != "json" {
		out = zerolog.ConsoleWriter{Out: out}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, def float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

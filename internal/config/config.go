package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the focus-tracker service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool

	AIAdapterMode string
	AIGatewayURL  string

	DatabaseURL string

	DraftTTL        time.Duration
	FeedbackLinkTTL time.Duration
	PlanWeeks       int
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "horizon"),
		AllowAnyOrigin:   false,
		AIAdapterMode:    envOrDefault("AI_ADAPTER_MODE", "auto"),
		AIGatewayURL:     trimmedEnv("AI_GATEWAY_URL"),
		DatabaseURL:      trimmedEnv("DATABASE_URL"),
		ShutdownTimeout:  15 * time.Second,
		DraftTTL:         7 * 24 * time.Hour,
		FeedbackLinkTTL:  14 * 24 * time.Hour,
		PlanWeeks:        12,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.DraftTTL, err = durationFromEnv("APP_DRAFT_TTL", cfg.DraftTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.FeedbackLinkTTL, err = durationFromEnv("APP_FEEDBACK_LINK_TTL", cfg.FeedbackLinkTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.PlanWeeks, err = intFromEnv("APP_PLAN_WEEKS", cfg.PlanWeeks)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.DraftTTL < time.Minute {
		return Config{}, fmt.Errorf("APP_DRAFT_TTL must be at least 1m")
	}
	if cfg.FeedbackLinkTTL < time.Hour {
		return Config{}, fmt.Errorf("APP_FEEDBACK_LINK_TTL must be at least 1h")
	}
	if cfg.PlanWeeks <= 0 {
		return Config{}, fmt.Errorf("APP_PLAN_WEEKS must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func trimmedEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(trimmedEnv(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}

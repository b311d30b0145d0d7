// Package config loads server settings from the environment.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Prefix is prepended to every variable name. Fields with an explicit
// envconfig tag also fall back to the unprefixed name, so GEMINI_API_KEY works.
const Prefix = "MAMACHEF"

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds the configuration for the server.
type Config struct {
	// HTTP Configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	// Storage
	DBDriver    string `envconfig:"DB_DRIVER" default:"sqlite"`
	DBPath      string `envconfig:"DB_PATH" default:"./data/mamachef.db"`
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`

	// Model service
	GeminiAPIKey      string        `envconfig:"GEMINI_API_KEY" default:""`
	GeminiBaseURL     string        `envconfig:"GEMINI_BASE_URL" default:""`
	ChatModel         string        `envconfig:"CHAT_MODEL" default:"gemini-2.5-flash"`
	VisionModel       string        `envconfig:"VISION_MODEL" default:"gemini-2.5-flash"`
	ImageModel        string        `envconfig:"IMAGE_MODEL" default:"gemini-2.5-flash-image"`
	VideoModel        string        `envconfig:"VIDEO_MODEL" default:"veo-3.1-fast-generate-preview"`
	Temperature       float64       `envconfig:"TEMPERATURE" default:"0.7"`
	GatewayMaxTries   uint          `envconfig:"GATEWAY_MAX_TRIES" default:"3"`
	GatewayTimeout    time.Duration `envconfig:"GATEWAY_TIMEOUT" default:"60s"`
	VideoTimeout      time.Duration `envconfig:"VIDEO_TIMEOUT" default:"6m"`
	VideoPollInterval time.Duration `envconfig:"VIDEO_POLL_INTERVAL" default:"10s"`

	// Chat and tracker
	HistoryWindow int `envconfig:"HISTORY_WINDOW" default:"12"`
	MealRetention int `envconfig:"MEAL_RETENTION" default:"500"`

	// Sessions
	JWTSecret          string        `envconfig:"JWT_SECRET" default:""`
	SessionTTL         time.Duration `envconfig:"SESSION_TTL" default:"24h"`
	SessionSweepPeriod time.Duration `envconfig:"SESSION_SWEEP_PERIOD" default:"5m"`

	// Logging
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
}

// ResolveDefaults validates the loaded values and fills derived ones.
func (c *Config) ResolveDefaults() error {
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	switch c.DBDriver {
	case DriverSQLite:
		if c.DBPath == "" {
			return fmt.Errorf("DB_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.DBDriver)
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
		c.LogFormat = strings.ToLower(c.LogFormat)
	default:
		return fmt.Errorf("unsupported LOG_FORMAT: %s", c.LogFormat)
	}

	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("TEMPERATURE must be within [0, 2], got %v", c.Temperature)
	}
	if c.VideoPollInterval <= 0 {
		return fmt.Errorf("VIDEO_POLL_INTERVAL must be positive, got %v", c.VideoPollInterval)
	}
	if c.HistoryWindow <= 0 {
		return fmt.Errorf("HISTORY_WINDOW must be positive, got %d", c.HistoryWindow)
	}
	if c.MealRetention < 0 {
		return fmt.Errorf("MEAL_RETENTION must not be negative, got %d", c.MealRetention)
	}
	if c.GatewayMaxTries == 0 {
		c.GatewayMaxTries = 1
	}

	if c.JWTSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			return fmt.Errorf("failed to generate JWT secret: %w", err)
		}
		c.JWTSecret = secret
		slog.Warn("JWT_SECRET not set; using an ephemeral secret, sessions will not survive a restart")
	}
	return nil
}

// New creates a new Config by parsing environment variables.
// Example: MAMACHEF_HTTP_PORT, MAMACHEF_DB_DRIVER.
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	slog.Info("Configuration loaded",
		"port", cfg.HTTPPort,
		"db_driver", cfg.DBDriver,
		"chat_model", cfg.ChatModel,
		"vision_model", cfg.VisionModel,
		"history_window", cfg.HistoryWindow,
		"meal_retention", cfg.MealRetention,
		"api_key_present", cfg.GeminiAPIKey != "",
	)
	return &cfg, nil
}

// NewForTesting creates a config specifically for testing.
func NewForTesting() *Config {
	return &Config{
		HTTPPort:           0,
		DBDriver:           DriverSQLite,
		DBPath:             "test.db",
		GeminiAPIKey:       "test-key",
		ChatModel:          "gemini-2.5-flash",
		VisionModel:        "gemini-2.5-flash",
		ImageModel:         "gemini-2.5-flash-image",
		VideoModel:         "veo-3.1-fast-generate-preview",
		Temperature:        0.7,
		GatewayMaxTries:    1,
		GatewayTimeout:     5 * time.Second,
		VideoTimeout:       10 * time.Second,
		VideoPollInterval:  10 * time.Millisecond,
		HistoryWindow:      12,
		MealRetention:      500,
		JWTSecret:          "test-secret",
		SessionTTL:         time.Hour,
		SessionSweepPeriod: time.Minute,
		LogLevel:           "debug",
		LogFormat:          "text",
	}
}

// HTTPAddr returns the HTTP server address.
func (c *Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

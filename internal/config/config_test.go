package config

import (
	"os"
	"testing"
	"time"
)

func TestConfigLoad_Defaults(t *testing.T) {
	t.Setenv("MAMACHEF_GEMINI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	cfg, err := New()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	if cfg.HTTPPort != 8080 || cfg.DBDriver != DriverSQLite || cfg.ChatModel != "gemini-2.5-flash" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Temperature != 0.7 || cfg.HistoryWindow != 12 || cfg.MealRetention != 500 {
		t.Fatalf("unexpected chat defaults: %+v", cfg)
	}
	if cfg.GatewayMaxTries != 3 || cfg.SessionTTL != 24*time.Hour {
		t.Fatalf("unexpected gateway/session defaults: %+v", cfg)
	}
	if cfg.ImageModel != "gemini-2.5-flash-image" || cfg.VideoModel != "veo-3.1-fast-generate-preview" || cfg.VideoTimeout != 6*time.Minute {
		t.Fatalf("unexpected media defaults: %+v", cfg)
	}
	if cfg.JWTSecret == "" {
		t.Fatal("expected an ephemeral JWT secret")
	}
}

func TestConfigLoad_EnvOverride(t *testing.T) {
	t.Setenv("MAMACHEF_HISTORY_WINDOW", "4")
	t.Setenv("MAMACHEF_MEAL_RETENTION", "0")
	t.Setenv("MAMACHEF_SESSION_TTL", "30m")

	cfg, err := New()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	if cfg.HistoryWindow != 4 || cfg.MealRetention != 0 || cfg.SessionTTL != 30*time.Minute {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestConfigLoad_UnprefixedAPIKey(t *testing.T) {
	t.Setenv("MAMACHEF_GEMINI_API_KEY", "")
	os.Unsetenv("MAMACHEF_GEMINI_API_KEY")
	t.Setenv("GEMINI_API_KEY", "from-plain-env")

	cfg, err := New()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	if cfg.GeminiAPIKey != "from-plain-env" {
		t.Fatalf("GeminiAPIKey = %q, want fallback value", cfg.GeminiAPIKey)
	}

	t.Setenv("MAMACHEF_GEMINI_API_KEY", "prefixed")
	cfg, err = New()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	if cfg.GeminiAPIKey != "prefixed" {
		t.Fatalf("prefixed value should win, got %q", cfg.GeminiAPIKey)
	}
}

func TestResolveDefaults(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"testing config is valid", func(c *Config) {}, false},
		{"unknown driver", func(c *Config) { c.DBDriver = "mysql" }, true},
		{"postgres without dsn", func(c *Config) { c.DBDriver = "postgres" }, true},
		{"postgres with dsn", func(c *Config) {
			c.DBDriver = "Postgres"
			c.PostgresDSN = "postgres://localhost/mamachef"
		}, false},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, true},
		{"temperature too high", func(c *Config) { c.Temperature = 3 }, true},
		{"zero window", func(c *Config) { c.HistoryWindow = 0 }, true},
		{"negative retention", func(c *Config) { c.MealRetention = -1 }, true},
		{"zero video poll interval", func(c *Config) { c.VideoPollInterval = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewForTesting()
			tt.mutate(cfg)
			err := cfg.ResolveDefaults()
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResolveDefaults() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHTTPAddr(t *testing.T) {
	cfg := NewForTesting()
	cfg.HTTPPort = 9000
	if got := cfg.HTTPAddr(); got != ":9000" {
		t.Errorf("HTTPAddr() = %q", got)
	}
}

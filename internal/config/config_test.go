package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/newthinker/btdesk/internal/core"
)

func TestLoad_FromFile(t *testing.T) {
	content := []byte(`
backend:
  base_url: "http://10.0.0.5:8000"

server:
  port: 8088

layout:
  variant: narrow
`)

	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Backend.BaseURL != "http://10.0.0.5:8000" {
		t.Errorf("expected base url from file, got %s", cfg.Backend.BaseURL)
	}
	if cfg.Server.Port != 8088 {
		t.Errorf("expected port 8088, got %d", cfg.Server.Port)
	}
	if cfg.Layout.Variant != "narrow" {
		t.Errorf("expected narrow, got %s", cfg.Layout.Variant)
	}

	// unset keys fall back to defaults
	if cfg.Server.MaxSessions != 1000 {
		t.Errorf("expected default max_sessions 1000, got %d", cfg.Server.MaxSessions)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("loaded config should validate: %v", err)
	}
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("MY_BACKEND", "http://backend.internal:9000")
	t.Setenv("MY_API_KEY", "s3cret")

	content := []byte(`
backend:
  base_url: "${MY_BACKEND}"
server:
  api_key: "${MY_API_KEY}"
`)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Backend.BaseURL != "http://backend.internal:9000" {
		t.Errorf("expected expanded base url, got %s", cfg.Backend.BaseURL)
	}
	if cfg.Server.APIKey != "s3cret" {
		t.Errorf("expected expanded api key, got %q", cfg.Server.APIKey)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("BTDESK_BACKEND_BASE_URL", "http://override:8000")
	t.Setenv("BTDESK_SERVER_PORT", "4000")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv failed: %v", err)
	}
	if cfg.Backend.BaseURL != "http://override:8000" {
		t.Errorf("expected env base url, got %s", cfg.Backend.BaseURL)
	}
	if cfg.Server.Port != 4000 {
		t.Errorf("expected port 4000, got %d", cfg.Server.Port)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Backend.BaseURL != "http://127.0.0.1:8000" {
		t.Errorf("expected default backend, got %s", cfg.Backend.BaseURL)
	}
	if cfg.Layout.Variant != "wide" {
		t.Errorf("expected default variant wide, got %s", cfg.Layout.Variant)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config { return *Defaults() }

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr *core.Error
	}{
		{"valid config", func(c *Config) {}, nil},
		{"missing backend", func(c *Config) { c.Backend.BaseURL = "" }, core.ErrConfigMissing},
		{"non-http backend", func(c *Config) { c.Backend.BaseURL = "grpc://x:1" }, core.ErrConfigInvalid},
		{"invalid port - zero", func(c *Config) { c.Server.Port = 0 }, core.ErrConfigInvalid},
		{"invalid port - too high", func(c *Config) { c.Server.Port = 70000 }, core.ErrConfigInvalid},
		{"zero sessions", func(c *Config) { c.Server.MaxSessions = 0 }, core.ErrConfigInvalid},
		{"negative ttl", func(c *Config) { c.Server.SessionTTLMinutes = -1 }, core.ErrConfigInvalid},
		{"unknown variant", func(c *Config) { c.Layout.Variant = "tall" }, core.ErrConfigInvalid},
		{"bad metrics path", func(c *Config) { c.Metrics.Path = "metrics" }, core.ErrConfigInvalid},
		{"metrics disabled ignores path", func(c *Config) { c.Metrics.Enabled = false; c.Metrics.Path = "" }, nil},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, core.ErrConfigInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestServerConfig_SessionTTL(t *testing.T) {
	s := ServerConfig{SessionTTLMinutes: 90}
	if s.SessionTTL().Minutes() != 90 {
		t.Errorf("expected 90 minutes, got %v", s.SessionTTL())
	}
}

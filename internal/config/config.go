package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/newthinker/btdesk/internal/core"
	"github.com/newthinker/btdesk/internal/layout"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. BTDESK_BACKEND_BASE_URL.
const EnvPrefix = "BTDESK"

type Config struct {
	Backend BackendConfig `mapstructure:"backend"`
	Server  ServerConfig  `mapstructure:"server"`
	Layout  LayoutConfig  `mapstructure:"layout"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Log     LogConfig     `mapstructure:"log"`
}

// BackendConfig locates the backtest service.
type BackendConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

type ServerConfig struct {
	Host              string `mapstructure:"host"`
	Port              int    `mapstructure:"port"`
	SessionTTLMinutes int    `mapstructure:"session_ttl_minutes"`
	MaxSessions       int    `mapstructure:"max_sessions"`
	APIKey            string `mapstructure:"api_key"` // empty disables auth on /api/v1
}

// SessionTTL returns the idle lifetime of a browser session.
func (s ServerConfig) SessionTTL() time.Duration {
	return time.Duration(s.SessionTTLMinutes) * time.Minute
}

// LayoutConfig selects the panel resize bounds.
type LayoutConfig struct {
	Variant string `mapstructure:"variant"` // "wide" (30-70%) or "narrow" (20-60%)
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
	File        string `mapstructure:"file"` // used by the terminal UI
}

// Load reads configuration from file, layered over Defaults.
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return decode(v)
}

// FromEnv builds a config from Defaults and environment overrides only.
func FromEnv() (*Config, error) {
	return decode(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v, Defaults())

	// Support environment variable overrides
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("backend.base_url", d.Backend.BaseURL)
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.session_ttl_minutes", d.Server.SessionTTLMinutes)
	v.SetDefault("server.max_sessions", d.Server.MaxSessions)
	v.SetDefault("server.api_key", d.Server.APIKey)
	v.SetDefault("layout.variant", d.Layout.Variant)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.path", d.Metrics.Path)
	v.SetDefault("log.development", d.Log.Development)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL: "http://127.0.0.1:8000",
		},
		Server: ServerConfig{
			Host:              "127.0.0.1",
			Port:              3000,
			SessionTTLMinutes: 60,
			MaxSessions:       1000,
		},
		Layout: LayoutConfig{
			Variant: layout.Wide.Name,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Backend validation
	if c.Backend.BaseURL == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("backend.base_url is required"))
	}
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("backend.base_url must be an http(s) URL, got %q", c.Backend.BaseURL))
	}

	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.MaxSessions < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("max_sessions must be positive, got %d", c.Server.MaxSessions))
	}
	if c.Server.SessionTTLMinutes < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("session_ttl_minutes cannot be negative, got %d", c.Server.SessionTTLMinutes))
	}

	// Layout validation
	if _, err := layout.VariantByName(c.Layout.Variant); err != nil {
		return core.WrapError(core.ErrConfigInvalid, err)
	}

	// Metrics validation
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("metrics path must start with /, got %q", c.Metrics.Path))
	}

	// Log validation
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown log level %q", c.Log.Level))
	}

	return nil
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces every environment variable.
const EnvPrefix = "DCMMETA"

type Config struct {
	LogLevel      string        `mapstructure:"LOG_LEVEL"`
	LogFormat     string        `mapstructure:"LOG_FORMAT"`
	HTTPTimeout   time.Duration `mapstructure:"HTTP_TIMEOUT"`
	AllowHTTP     bool          `mapstructure:"ALLOW_HTTP"`
	Manifest      string        `mapstructure:"MANIFEST"`
	SimulateQuery bool          `mapstructure:"SIMULATE_QUERY"`
	OutputDir     string        `mapstructure:"OUTPUT_DIR"`
}

var keys = []string{
	"LOG_LEVEL",
	"LOG_FORMAT",
	"HTTP_TIMEOUT",
	"ALLOW_HTTP",
	"MANIFEST",
	"SIMULATE_QUERY",
	"OUTPUT_DIR",
}

// Load reads DCMMETA_* environment variables on top of an optional config
// file. An empty path skips the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("HTTP_TIMEOUT", "30s")
	v.SetDefault("ALLOW_HTTP", true)
	v.SetDefault("MANIFEST", "")
	v.SetDefault("SIMULATE_QUERY", false)
	v.SetDefault("OUTPUT_DIR", ".")

	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the rest of the program cannot honour.
func (c *Config) Validate() error {
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be console or json, got %q", c.LogFormat)
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("HTTP_TIMEOUT must not be negative, got %s", c.HTTPTimeout)
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		return fmt.Errorf("OUTPUT_DIR is required")
	}
	return nil
}

// Package config loads squad-server settings: defaults, then an optional
// YAML file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Addr        string   `yaml:"addr"`
	MCPPath     string   `yaml:"mcp_path"`
	APIKey      string   `yaml:"api_key"`
	APIKeyHdr   string   `yaml:"api_key_header"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// StoreConfig selects where locally-authored teams live. Driver is one of
// "json", "sqlite" or "postgres".
type StoreConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn"`
}

type ProviderConfig struct {
	BaseURL     string        `yaml:"base_url"`
	UserAgent   string        `yaml:"user_agent"`
	Sleep       time.Duration `yaml:"sleep"`
	RawRoot     string        `yaml:"raw_root"`
	DerivedRoot string        `yaml:"derived_root"`
}

// RedisConfig enables the team-view cache when URL is set.
type RedisConfig struct {
	URL string        `yaml:"url"`
	TTL time.Duration `yaml:"ttl"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Store    StoreConfig    `yaml:"store"`
	Provider ProviderConfig `yaml:"provider"`
	Redis    RedisConfig    `yaml:"redis"`
	Log      LogConfig      `yaml:"log"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:      "127.0.0.1:8080",
			MCPPath:   "/mcp",
			APIKeyHdr: "X-API-Key",
		},
		Store: StoreConfig{
			Driver: "json",
			Path:   "data/local/squads.db",
		},
		Provider: ProviderConfig{
			BaseURL:     "https://fbref.com",
			UserAgent:   "squad-raw/1.0",
			Sleep:       2 * time.Second,
			RawRoot:     "data/raw",
			DerivedRoot: "data/derived",
		},
		Redis: RedisConfig{
			TTL: 6 * time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path when it exists (an empty path skips the file) and applies
// environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Addr = getEnv("SQUAD_ADDR", c.Server.Addr)
	c.Server.MCPPath = getEnv("SQUAD_MCP_PATH", c.Server.MCPPath)
	c.Server.APIKey = getEnv("SQUAD_MCP_API_KEY", c.Server.APIKey)
	c.Server.APIKeyHdr = getEnv("SQUAD_MCP_API_KEY_HEADER", c.Server.APIKeyHdr)
	if origins := getEnv("SQUAD_CORS_ORIGINS", ""); origins != "" {
		c.Server.CORSOrigins = splitList(origins)
	}

	c.Store.Driver = strings.ToLower(getEnv("SQUAD_STORE_DRIVER", c.Store.Driver))
	c.Store.Path = getEnv("SQUAD_STORE_PATH", c.Store.Path)
	c.Store.DSN = getEnv("SQUAD_STORE_DSN", c.Store.DSN)

	c.Provider.BaseURL = getEnv("SQUAD_PROVIDER_URL", c.Provider.BaseURL)
	c.Provider.RawRoot = getEnv("SQUAD_RAW_ROOT", c.Provider.RawRoot)
	c.Provider.DerivedRoot = getEnv("SQUAD_DERIVED_ROOT", c.Provider.DerivedRoot)
	c.Provider.Sleep = getEnvDuration("SQUAD_PROVIDER_SLEEP", c.Provider.Sleep)

	c.Redis.URL = getEnv("REDIS_URL", c.Redis.URL)
	c.Redis.TTL = getEnvDuration("REDIS_TTL", c.Redis.TTL)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
}

func (c Config) Validate() error {
	switch c.Store.Driver {
	case "json", "sqlite":
	case "postgres":
		if c.Store.DSN == "" {
			return errors.New("store driver postgres needs a dsn (SQUAD_STORE_DSN)")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if !strings.HasPrefix(c.Server.MCPPath, "/") {
		return fmt.Errorf("mcp path %q must start with /", c.Server.MCPPath)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "BAGSTORE"

type Config struct {
	ListenAddr string        `mapstructure:"listen_addr"`
	ApiBaseURL string        `mapstructure:"api_base_url"`
	Locale     string        `mapstructure:"locale"`
	Storage    StorageConfig `mapstructure:"storage"`
	Cache      CacheConfig   `mapstructure:"cache"`
	Session    SessionConfig `mapstructure:"session"`
	Cart       CartConfig    `mapstructure:"cart"`
	HTTP       HTTPConfig    `mapstructure:"http"`
	Order      OrderConfig   `mapstructure:"order"`
}

// StorageConfig selects the key/value backend: memory, redis, sqlite or postgres.
type StorageConfig struct {
	Backend     string `mapstructure:"backend"`
	RedisURL    string `mapstructure:"redis_url"`
	SqlitePath  string `mapstructure:"sqlite_path"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

type CacheConfig struct {
	TTL        time.Duration `mapstructure:"ttl"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
}

type SessionConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type CartConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type HTTPConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type OrderConfig struct {
	RefreshItems bool `mapstructure:"refresh_items"`
}

var defaults = map[string]any{
	"listen_addr":          ":8080",
	"api_base_url":         "http://localhost:8000/api/",
	"locale":               "ru",
	"storage.backend":      "memory",
	"storage.redis_url":    "redis://localhost:6379/0",
	"storage.sqlite_path":  "~/.bagstore/store.db",
	"storage.postgres_dsn": "",
	"cache.ttl":            time.Hour,
	"cache.session_ttl":    30 * time.Minute,
	"session.ttl":          24 * time.Hour,
	"cart.ttl":             30 * 24 * time.Hour,
	"http.timeout":         15 * time.Second,
	"order.refresh_items":  true,
}

// Load reads .env (when present), then the optional yaml file at path, then
// BAGSTORE_* environment variables. Later sources win.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "memory", "redis", "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Storage.Backend == "postgres" && c.Storage.PostgresDSN == "" {
		return errors.New("storage.postgres_dsn is required for the postgres backend")
	}
	if c.Locale != "ru" && c.Locale != "uz" {
		return fmt.Errorf("unsupported locale %q", c.Locale)
	}
	if c.ApiBaseURL == "" {
		return errors.New("api_base_url is required")
	}
	if c.Cache.TTL <= 0 || c.Cache.SessionTTL <= 0 {
		return errors.New("cache ttl must be positive")
	}
	return nil
}

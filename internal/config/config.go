package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const EnvPrefix = "TASKBOARD"

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Logging    LoggingConfig    `yaml:"logging"`
	Repository RepositoryConfig `yaml:"repository"`
	Cache      CacheConfig      `yaml:"cache"`
	Board      BoardConfig      `yaml:"board"`
	Auth       AuthConfig       `yaml:"auth"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	Host            string        `yaml:"host"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	RateLimit       int           `yaml:"rate_limit"`
}

type DatabaseConfig struct {
	URL            string        `yaml:"url"`
	MaxConnections int           `yaml:"max_connections"`
	MinConnections int           `yaml:"min_connections"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	Migrate        bool          `yaml:"migrate"`
}

type LoggingConfig struct {
	Development bool `yaml:"development"`
}

type RepositoryConfig struct {
	Type string `yaml:"type"` // "postgres" or "inmemory"
}

type CacheConfig struct {
	Enabled   bool          `yaml:"enabled"`
	RedisAddr string        `yaml:"redis_addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	TTL       time.Duration `yaml:"ttl"`
}

// BoardConfig configures the board client.
type BoardConfig struct {
	StoreURL       string        `yaml:"store_url"`
	SyncInterval   time.Duration `yaml:"sync_interval"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	ListRetries    int           `yaml:"list_retries"`
}

type AuthConfig struct {
	TokenSecret string `yaml:"token_secret"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			Host:            "",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimit:       100,
		},
		Database: DatabaseConfig{
			MaxConnections: 10,
			MinConnections: 2,
			IdleTimeout:    5 * time.Minute,
			Migrate:        true,
		},
		Repository: RepositoryConfig{Type: "inmemory"},
		Cache: CacheConfig{
			RedisAddr: "localhost:6379",
			TTL:       30 * time.Second,
		},
		Board: BoardConfig{
			StoreURL:       "http://localhost:8080",
			SyncInterval:   time.Minute,
			RequestTimeout: 10 * time.Second,
			ListRetries:    3,
		},
	}
}

// Load reads defaults, then the YAML file at path (skipped when path is empty), then
// TASKBOARD_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer file.Close()

		decoder := yaml.NewDecoder(file)
		if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setString(v, "server.port", &cfg.Server.Port)
	setString(v, "server.host", &cfg.Server.Host)
	setDuration(v, "server.read_timeout", &cfg.Server.ReadTimeout)
	setDuration(v, "server.write_timeout", &cfg.Server.WriteTimeout)
	setDuration(v, "server.request_timeout", &cfg.Server.RequestTimeout)
	setDuration(v, "server.shutdown_timeout", &cfg.Server.ShutdownTimeout)
	setInt(v, "server.rate_limit", &cfg.Server.RateLimit)
	if v.IsSet("server.cors_origins") {
		cfg.Server.CORSOrigins = strings.Split(v.GetString("server.cors_origins"), ",")
	}

	setString(v, "database.url", &cfg.Database.URL)
	setInt(v, "database.max_connections", &cfg.Database.MaxConnections)
	setInt(v, "database.min_connections", &cfg.Database.MinConnections)
	setDuration(v, "database.idle_timeout", &cfg.Database.IdleTimeout)
	setBool(v, "database.migrate", &cfg.Database.Migrate)

	setBool(v, "logging.development", &cfg.Logging.Development)
	setString(v, "repository.type", &cfg.Repository.Type)

	setBool(v, "cache.enabled", &cfg.Cache.Enabled)
	setString(v, "cache.redis_addr", &cfg.Cache.RedisAddr)
	setString(v, "cache.password", &cfg.Cache.Password)
	setInt(v, "cache.db", &cfg.Cache.DB)
	setDuration(v, "cache.ttl", &cfg.Cache.TTL)

	setString(v, "board.store_url", &cfg.Board.StoreURL)
	setDuration(v, "board.sync_interval", &cfg.Board.SyncInterval)
	setDuration(v, "board.request_timeout", &cfg.Board.RequestTimeout)
	setInt(v, "board.list_retries", &cfg.Board.ListRetries)

	setString(v, "auth.token_secret", &cfg.Auth.TokenSecret)
}

func setString(v *viper.Viper, key string, dst *string) {
	if v.IsSet(key) {
		*dst = v.GetString(key)
	}
}

func setInt(v *viper.Viper, key string, dst *int) {
	if v.IsSet(key) {
		*dst = v.GetInt(key)
	}
}

func setBool(v *viper.Viper, key string, dst *bool) {
	if v.IsSet(key) {
		*dst = v.GetBool(key)
	}
}

func setDuration(v *viper.Viper, key string, dst *time.Duration) {
	if v.IsSet(key) {
		*dst = v.GetDuration(key)
	}
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Repository.Type {
	case "inmemory":
	case "postgres":
		if c.Database.URL == "" {
			errs = append(errs, errors.New("database.url is required for the postgres repository"))
		}
	default:
		errs = append(errs, fmt.Errorf("repository.type: unknown value %q", c.Repository.Type))
	}

	durations := map[string]time.Duration{
		"server.read_timeout":     c.Server.ReadTimeout,
		"server.write_timeout":    c.Server.WriteTimeout,
		"server.request_timeout":  c.Server.RequestTimeout,
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
		"board.sync_interval":     c.Board.SyncInterval,
		"board.request_timeout":   c.Board.RequestTimeout,
	}
	for name, d := range durations {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if c.Cache.Enabled && c.Cache.RedisAddr == "" {
		errs = append(errs, errors.New("cache.redis_addr is required when the cache is enabled"))
	}
	if c.Server.RateLimit <= 0 {
		errs = append(errs, errors.New("server.rate_limit must be positive"))
	}
	if c.Board.ListRetries < 0 {
		errs = append(errs, errors.New("board.list_retries must not be negative"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

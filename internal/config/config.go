// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type ServerConfig struct {
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type StripeConfig struct {
	WebhookSecret string `yaml:"webhook_secret"`
}

type BackendConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"` // reconcile result cache TTL
}

type ReconcileConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	PollAttempts int           `yaml:"poll_attempts"`
	NotifyDelay  time.Duration `yaml:"notify_delay"`
}

type SweeperConfig struct {
	Interval   time.Duration `yaml:"interval"`
	StaleAfter time.Duration `yaml:"stale_after"`
}

type NotifyConfig struct {
	QueueSize       int           `yaml:"queue_size"`
	ToastTTL        time.Duration `yaml:"toast_ttl"`
	RenewalSoonDays int           `yaml:"renewal_soon_days"`
}

type Config struct {
	Log       LogConfig       `yaml:"log"`
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	Stripe    StripeConfig    `yaml:"stripe"`
	Backend   BackendConfig   `yaml:"backend"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
	Sweeper   SweeperConfig   `yaml:"sweeper"`
	Notify    NotifyConfig    `yaml:"notify"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RequestTimeout <= 0 {
		cfg.Server.RequestTimeout = 30 * time.Second
	}
	if cfg.Backend.Timeout <= 0 {
		cfg.Backend.Timeout = 10 * time.Second
	}
	if cfg.Redis.TTL <= 0 {
		cfg.Redis.TTL = 15 * time.Minute
	}
	if cfg.Reconcile.PollInterval <= 0 {
		cfg.Reconcile.PollInterval = 2 * time.Second
	}
	if cfg.Reconcile.PollAttempts <= 0 {
		cfg.Reconcile.PollAttempts = 5
	}
	if cfg.Reconcile.NotifyDelay <= 0 {
		cfg.Reconcile.NotifyDelay = time.Second
	}
	if cfg.Sweeper.Interval <= 0 {
		cfg.Sweeper.Interval = time.Minute
	}
	if cfg.Sweeper.StaleAfter <= 0 {
		cfg.Sweeper.StaleAfter = 10 * time.Minute
	}
	if cfg.Notify.QueueSize <= 0 {
		cfg.Notify.QueueSize = 256
	}
	if cfg.Notify.ToastTTL <= 0 {
		cfg.Notify.ToastTTL = 8 * time.Second
	}
	if cfg.Notify.RenewalSoonDays <= 0 {
		cfg.Notify.RenewalSoonDays = 7
	}

	// Minimal validation
	if cfg.Stripe.WebhookSecret == "" {
		return nil, errors.New("stripe.webhook_secret is required")
	}
	if cfg.Backend.BaseURL == "" {
		return nil, errors.New("backend.base_url is required")
	}
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("auth.jwt_secret is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

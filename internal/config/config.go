// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type AdminConfig struct {
	Port int `yaml:"port"` // metrics + health
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type AIConfig struct {
	// ClassifyTimeout bounds the blocking emotion call per turn.
	ClassifyTimeout time.Duration `yaml:"classify_timeout"`
	// StreamTimeout is the per-turn deadline for the generation stream.
	StreamTimeout time.Duration `yaml:"stream_timeout"`
	// ClassifyMaxTokens caps classifier output (a short label is expected).
	ClassifyMaxTokens int `yaml:"classify_max_tokens"`
}

type RateLimitConfig struct {
	SendPerMinute int `yaml:"send_per_minute"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Admin     AdminConfig     `yaml:"admin"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Auth      AuthConfig      `yaml:"auth"`
	AI        AIConfig        `yaml:"ai"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`

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
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Admin.Port == 0 {
		cfg.Admin.Port = 9090
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.AI.ClassifyTimeout <= 0 {
		cfg.AI.ClassifyTimeout = 15 * time.Second
	}
	if cfg.AI.StreamTimeout <= 0 {
		cfg.AI.StreamTimeout = 10 * time.Minute
	}
	if cfg.AI.ClassifyMaxTokens <= 0 {
		cfg.AI.ClassifyMaxTokens = 100
	}
	if cfg.RateLimit.SendPerMinute <= 0 {
		cfg.RateLimit.SendPerMinute = 20
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)
	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func normalizeTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 15 * time.Minute
	}
	return ttl
}

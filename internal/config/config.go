// Package config loads settings from the environment, optionally seeded
// from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	// Server settings
	Port      int    `env:"PORT" envDefault:"3000"`
	StaticDir string `env:"STATIC_DIR" envDefault:"."`

	// Upstream chat completion API (OpenAI compatible)
	APIKey          string        `env:"GROQ_API_KEY"`
	APIBaseURL      string        `env:"GROQ_API_URL" envDefault:"https://api.groq.com/openai/v1"`
	Model           string        `env:"GROQ_MODEL" envDefault:"llama3-8b-8192"`
	Temperature     float64       `env:"GROQ_TEMPERATURE" envDefault:"0.7"`
	MaxTokens       int           `env:"GROQ_MAX_TOKENS" envDefault:"2048"`
	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"60s"`

	// Conversation storage. Redis is used when RedisAddr is set.
	DBPath        string `env:"DB_PATH" envDefault:"quanta.db"`
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisUsername string `env:"REDIS_USERNAME"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	// Relay used by the terminal client
	RelayURL string `env:"QUANTA_RELAY_URL" envDefault:"http://localhost:3000"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads files (default ".env") into the environment if they exist and
// parses the environment into a Config.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT out of range: %d", c.Port)
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be positive, got %s", c.UpstreamTimeout)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// NewLogger builds the production zap logger at the configured level.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

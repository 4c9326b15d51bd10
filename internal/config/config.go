// Package config loads relay configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Addr         string `env:"ADDR" envDefault:":8080"`
	DatabaseURL  string `env:"DATABASE_URL"`
	SharedSecret string `env:"SHARED_SECRET" envDefault:"dev-only-secret"`

	PingInterval       time.Duration `env:"PING_INTERVAL" envDefault:"30s"`
	HeartbeatThreshold time.Duration `env:"HEARTBEAT_THRESHOLD" envDefault:"60s"`
	ReapInterval       time.Duration `env:"REAP_INTERVAL" envDefault:"30s"`
	PersistDebounce    time.Duration `env:"PERSIST_DEBOUNCE" envDefault:"1s"`

	WinThreshold int `env:"WIN_THRESHOLD" envDefault:"8"`
	MaxRounds    int `env:"MAX_ROUNDS" envDefault:"10"`
}

// Load reads .env (when present) and parses the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

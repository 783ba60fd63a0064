package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds everything the client needs to reach the quiz server.
type Config struct {
	ServerURL string `env:"BUZZLE_SERVER_URL" envDefault:"http://localhost:8080"`
	Token     string `env:"BUZZLE_TOKEN"`
	Debug     bool   `env:"BUZZLE_DEBUG" envDefault:"false"`
}

// Load reads .env if present, then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

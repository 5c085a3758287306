package config

import (
	"github.com/caarlos0/env/v10"
)

// Config holds the process configuration, parsed from the environment.
type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	DBPath      string `env:"ONETWORK_DB_PATH" envDefault:"onetwork.db"`
	BaseURL     string `env:"ONETWORK_BASE_URL" envDefault:"http://localhost:8080"`
	JWTSecret   string `env:"JWT_SECRET" envDefault:"onetwork-dev-secret-change-in-production"`
	StoragePath string `env:"ONETWORK_STORAGE_PATH" envDefault:"storage/profile-pictures"`
}

// Load parses the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

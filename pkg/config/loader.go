package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Load parses environment variables into the provided struct.
// The struct should use `env` tags to define mappings.
//
// Example:
//
//	type Config struct {
//	    APIURL   string `env:"STOREFRONT_API_URL" envDefault:"http://localhost:3001/api"`
//	    LogLevel string `env:"LOG_LEVEL" envDefault:"warn"`
//	}
func Load(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// LoadDotEnv merges KEY=VALUE pairs from the given files into the process
// environment. Variables already set in the environment win. Missing files
// are skipped so a checked-out tree works without a .env.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// LoadWithDotEnv reads the dotenv files first and then parses cfg.
func LoadWithDotEnv(cfg any, paths ...string) error {
	if err := LoadDotEnv(paths...); err != nil {
		return err
	}
	return Load(cfg)
}

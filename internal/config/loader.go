package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	envConfigPath     = "CONFIG_PATH"
	defaultConfigPath = "./config.yaml"
)

// Load builds the Config. Variables from ./.env are exported first, never
// replacing ones already set. A YAML file named by CONFIG_PATH must exist;
// ./config.yaml is read only when present. Environment values win over the
// file, and env-default tags fill whatever is left.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: read .env: %w", err)
	}

	var cfg Config
	if err := read(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

func read(cfg *Config) error {
	path, required := os.LookupEnv(envConfigPath)
	if !required || path == "" {
		path, required = defaultConfigPath, false
	}

	_, statErr := os.Stat(path)
	switch {
	case statErr == nil:
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return fmt.Errorf("config: read %s: %w", path, err)
		}
	case required:
		return fmt.Errorf("config: %s=%s: %w", envConfigPath, path, statErr)
	default:
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return fmt.Errorf("config: read env: %w", err)
		}
	}
	return nil
}

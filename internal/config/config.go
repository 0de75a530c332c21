// Package config loads application settings from an optional YAML file,
// a .env file and environment variables.
package config

import (
	"strconv"
	"time"
)

// Config is the root application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Import  ImportConfig  `yaml:"import"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"             env-default:"0.0.0.0"`
	Port            int           `yaml:"port"             env:"SERVER_PORT"             env-default:"8081"`
	Mode            string        `yaml:"mode"             env:"GIN_MODE"                env-default:"release"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// StorageConfig selects and configures the persistence driver.
type StorageConfig struct {
	// Driver is one of memory, sqlite, postgres.
	Driver      string        `yaml:"driver"       env:"STORAGE_DRIVER"       env-default:"sqlite"`
	Path        string        `yaml:"path"         env:"STORAGE_PATH"         env-default:"./data/scale_tracker.db"`
	Key         string        `yaml:"key"          env:"STORAGE_KEY"          env-default:"scaleTracker"`
	DatabaseURL string        `yaml:"database_url" env:"DATABASE_URL"`
	Timeout     time.Duration `yaml:"timeout"      env:"STORAGE_TIMEOUT"      env-default:"5s"`
}

// ImportConfig bounds uploads and range entry.
type ImportConfig struct {
	MaxFileSize    int64 `yaml:"max_file_size"    env:"IMPORT_MAX_FILE_SIZE" env-default:"10485760"`
	RangeMaxLength int   `yaml:"range_max_length" env:"RANGE_MAX_LENGTH"     env-default:"10000"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// Addr returns the server listen address in host:port format.
func (c ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"scale_tracker/internal/serial"
)

var (
	storageDrivers = []string{"memory", "sqlite", "postgres"}
	logLevels      = []string{"debug", "info", "warn", "error"}
	logFormats     = []string{"json", "console"}
	ginModes       = []string{"debug", "release", "test"}
)

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port))
	}
	if !slices.Contains(ginModes, c.Server.Mode) {
		errs = append(errs, fmt.Errorf("GIN_MODE must be one of %s, got %q", strings.Join(ginModes, ", "), c.Server.Mode))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("SERVER_SHUTDOWN_TIMEOUT must be positive"))
	}

	switch c.Storage.Driver {
	case "sqlite":
		if c.Storage.Path == "" {
			errs = append(errs, errors.New("STORAGE_PATH is required for the sqlite driver"))
		}
	case "postgres":
		if c.Storage.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("STORAGE_DRIVER must be one of %s, got %q", strings.Join(storageDrivers, ", "), c.Storage.Driver))
	}
	if c.Storage.Key == "" {
		errs = append(errs, errors.New("STORAGE_KEY must not be empty"))
	}

	if c.Import.MaxFileSize <= 0 {
		errs = append(errs, errors.New("IMPORT_MAX_FILE_SIZE must be positive"))
	}
	if c.Import.RangeMaxLength < 0 || c.Import.RangeMaxLength > serial.MaxRangeLength {
		errs = append(errs, fmt.Errorf("RANGE_MAX_LENGTH must be between 0 and %d, got %d", serial.MaxRangeLength, c.Import.RangeMaxLength))
	}

	if !slices.Contains(logLevels, strings.ToLower(c.Log.Level)) {
		errs = append(errs, fmt.Errorf("LOG_LEVEL must be one of %s, got %q", strings.Join(logLevels, ", "), c.Log.Level))
	}
	if !slices.Contains(logFormats, strings.ToLower(c.Log.Format)) {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be one of %s, got %q", strings.Join(logFormats, ", "), c.Log.Format))
	}

	return errors.Join(errs...)
}

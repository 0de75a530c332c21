package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func validConfig() *Config {
	return &Config{
		Server:  ServerConfig{Host: "0.0.0.0", Port: 8081, Mode: "release", ShutdownTimeout: time.Second},
		Storage: StorageConfig{Driver: "memory", Key: "k"},
		Import:  ImportConfig{MaxFileSize: 1, RangeMaxLength: 10},
		Log:     LogConfig{Level: "info", Format: "json"},
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8081 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8081)
	}
	if cfg.Server.Addr() != "0.0.0.0:8081" {
		t.Errorf("Server.Addr() = %q, want %q", cfg.Server.Addr(), "0.0.0.0:8081")
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Storage.Path != "./data/scale_tracker.db" || cfg.Storage.Key != "scaleTracker" {
		t.Errorf("Storage = %+v, want sqlite driver at ./data/scale_tracker.db with key scaleTracker", cfg.Storage)
	}
	if cfg.Import.RangeMaxLength != 10000 {
		t.Errorf("Import.RangeMaxLength = %d, want %d", cfg.Import.RangeMaxLength, 10000)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v, want info/json", cfg.Log)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/tracker")
	t.Setenv("STORAGE_TIMEOUT", "1m30s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9090)
	}
	if cfg.Storage.Timeout != 90*time.Second {
		t.Errorf("Storage.Timeout = %v, want %v", cfg.Storage.Timeout, 90*time.Second)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := writeFile(t, dir, "tracker.yaml", `
server:
  port: 7070
storage:
  driver: memory
log:
  level: debug
  format: console
`)
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 7070)
	}
	if cfg.Storage.Driver != "memory" {
		t.Errorf("Storage.Driver = %q, want memory", cfg.Storage.Driver)
	}
	if cfg.Log.Format != "console" {
		t.Errorf("Log.Format = %q, want console", cfg.Log.Format)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_PATH", "/nonexistent/tracker.yaml")

	if _, err := Load(); err == nil {
		t.Fatal("Load() expected error for missing CONFIG_PATH file")
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, dir, ".env", "STORAGE_KEY=fromdotenv\n")
	t.Setenv("STORAGE_KEY", "")
	os.Unsetenv("STORAGE_KEY")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Storage.Key != "fromdotenv" {
		t.Errorf("Storage.Key = %q, want fromdotenv", cfg.Storage.Key)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 99999 }, "SERVER_PORT"},
		{"bad gin mode", func(c *Config) { c.Server.Mode = "loud" }, "GIN_MODE"},
		{"bad driver", func(c *Config) { c.Storage.Driver = "redis" }, "STORAGE_DRIVER"},
		{"postgres without url", func(c *Config) { c.Storage.Driver = "postgres" }, "DATABASE_URL"},
		{"sqlite without path", func(c *Config) { c.Storage.Driver = "sqlite" }, "STORAGE_PATH"},
		{"empty key", func(c *Config) { c.Storage.Key = "" }, "STORAGE_KEY"},
		{"bad level", func(c *Config) { c.Log.Level = "verbose" }, "LOG_LEVEL"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "LOG_FORMAT"},
		{"negative range", func(c *Config) { c.Import.RangeMaxLength = -1 }, "RANGE_MAX_LENGTH"},
		{"range above hard cap", func(c *Config) { c.Import.RangeMaxLength = 2_000_000 }, "RANGE_MAX_LENGTH"},
		{"zero upload size", func(c *Config) { c.Import.MaxFileSize = 0 }, "IMPORT_MAX_FILE_SIZE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error mentioning %s", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error should mention %s: %v", tt.wantErr, err)
			}
		})
	}
}

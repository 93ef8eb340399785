// Package cli provides common process initialization used by cmd/timesplit.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"timesplit/internal/config"
	applog "timesplit/internal/log"
)

// SetupLogger builds the application logger from the configured level and
// format and installs it as the slog default.
func SetupLogger(w io.Writer, level, format string) *applog.Logger {
	if w == nil {
		w = os.Stdout
	}
	logger := applog.New(applog.Config{
		Component: applog.ComponentApp,
		Handler:   applog.NewHandler(w, applog.ParseLevel(level), format),
	})
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// A missing file is not an error.
func LoadEnvFile(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// ConfigOverride adjusts the loaded configuration before validation.
type ConfigOverride func(*config.Config) error

// FromConfigFile layers a TOML file under the environment. An empty path
// does nothing.
func FromConfigFile(path string) ConfigOverride {
	return func(cfg *config.Config) error {
		if path == "" {
			return nil
		}
		fc, err := config.LoadFile(path)
		if err != nil {
			return err
		}
		fc.ApplyTo(cfg)
		return nil
	}
}

// LoadAndValidateConfig loads configuration from the environment, applies
// overrides such as a config file or command-line flags in order, and
// validates the result.
func LoadAndValidateConfig(overrides ...ConfigOverride) (*config.Config, error) {
	cfg := config.Load()
	for _, o := range overrides {
		if err := o(cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

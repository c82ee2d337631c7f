// Package config loads ambientctl settings from the environment and opens
// the configured storage backend.
package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/goliatone/go-ambient"
	"github.com/goliatone/go-ambient/pkg/storage"
)

// Storage drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverFile   = "file"
	DriverNATS   = "nats"
)

// Drivers lists the accepted AMBIENT_STORAGE_DRIVER values.
var Drivers = []string{DriverMemory, DriverSQLite, DriverFile, DriverNATS}

// Config holds the CLI settings.
type Config struct {
	Driver       string        `env:"AMBIENT_STORAGE_DRIVER" envDefault:"file"`
	Path         string        `env:"AMBIENT_STORAGE_PATH"   envDefault:"ambient.yaml"`
	DefaultsPath string        `env:"AMBIENT_DEFAULTS_PATH"`
	NATSURL      string        `env:"AMBIENT_NATS_URL"       envDefault:"nats://127.0.0.1:4222"`
	NATSBucket   string        `env:"AMBIENT_NATS_BUCKET"    envDefault:"ambient"`
	NATSTimeout  time.Duration `env:"AMBIENT_NATS_TIMEOUT"   envDefault:"5s"`
	Namespace    string        `env:"AMBIENT_NAMESPACE"`
	QuotaBytes   int           `env:"AMBIENT_QUOTA_BYTES"`
	LogLevel     string        `env:"AMBIENT_LOG_LEVEL"      envDefault:"info"`
}

// Load parses the process environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Driver = strings.ToLower(strings.TrimSpace(cfg.Driver))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the driver and the settings it depends on.
func (c Config) Validate() error {
	switch c.Driver {
	case DriverMemory:
	case DriverSQLite, DriverFile:
		if strings.TrimSpace(c.Path) == "" {
			return fmt.Errorf("config: AMBIENT_STORAGE_PATH is required for driver %q", c.Driver)
		}
	case DriverNATS:
		if c.NATSURL == "" || c.NATSBucket == "" {
			return fmt.Errorf("config: AMBIENT_NATS_URL and AMBIENT_NATS_BUCKET are required for driver %q", c.Driver)
		}
	default:
		return fmt.Errorf("config: unknown storage driver %q: must be one of %v", c.Driver, Drivers)
	}
	if c.QuotaBytes < 0 {
		return fmt.Errorf("config: AMBIENT_QUOTA_BYTES must not be negative")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses LogLevel (debug, info, warn, error).
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("config: invalid AMBIENT_LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// Logger returns a text logger writing to w at the configured level.
func (c Config) Logger(w io.Writer) *slog.Logger {
	level, _ := c.SlogLevel()
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Backend is an opened storage backend plus its release function.
type Backend struct {
	ambient.Backend
	close func() error
}

// Close releases the backend's resources.
func (b *Backend) Close() error {
	if b == nil || b.close == nil {
		return nil
	}
	return b.close()
}

// Keys lists stored keys when the backend supports it.
func (b *Backend) Keys() ([]string, error) {
	lister, ok := b.Backend.(storage.Lister)
	if !ok {
		return nil, fmt.Errorf("config: driver does not support listing keys")
	}
	return lister.Keys()
}

// Open constructs the backend described by c. When DefaultsPath is set the
// backend is layered over that read-only YAML file; the namespace, when set,
// wraps the result.
func Open(ctx context.Context, c Config) (*Backend, error) {
	var (
		backend ambient.Backend
		closer  func() error
	)
	switch c.Driver {
	case DriverMemory:
		backend = storage.NewMemory(storage.WithQuota(c.QuotaBytes))
	case DriverSQLite:
		store, err := storage.OpenSQLite(c.Path)
		if err != nil {
			return nil, err
		}
		backend, closer = store, store.Close
	case DriverFile:
		store, err := storage.OpenFile(c.Path)
		if err != nil {
			return nil, err
		}
		backend = store
	case DriverNATS:
		store, err := storage.ConnectNATSKV(ctx, c.NATSURL, c.NATSBucket, storage.WithNATSTimeout(c.NATSTimeout))
		if err != nil {
			return nil, err
		}
		backend, closer = store, store.Close
	default:
		return nil, fmt.Errorf("config: unknown storage driver %q", c.Driver)
	}
	if c.DefaultsPath != "" {
		defaults, err := storage.OpenFile(c.DefaultsPath)
		if err != nil {
			if closer != nil {
				_ = closer()
			}
			return nil, fmt.Errorf("open defaults: %w", err)
		}
		layered, err := storage.NewLayered(
			storage.Layer{Name: c.Driver, Priority: 1, Backend: backend},
			storage.Layer{Name: "defaults", Priority: 0, Backend: defaults, ReadOnly: true},
		)
		if err != nil {
			if closer != nil {
				_ = closer()
			}
			return nil, err
		}
		backend = layered
	}
	if c.Namespace != "" {
		backend = storage.WithNamespace(backend, c.Namespace)
	}
	return &Backend{Backend: backend, close: closer}, nil
}

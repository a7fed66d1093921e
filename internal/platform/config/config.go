package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	StoreSQLite = "sqlite"
	StoreVault  = "vault"
	StoreMemory = "memory"

	FileName = "config.yaml"
)

// Config holds runtime settings. Values are layered: defaults, then
// <data-dir>/config.yaml, then DEEPWORK_* environment variables. CLI flags
// are applied last by the caller.
type Config struct {
	DataDir            string        `yaml:"-"`
	DBPath             string        `yaml:"db_path" env:"DEEPWORK_DB_PATH"`
	Store              string        `yaml:"store" env:"DEEPWORK_STORE"`
	SocketPath         string        `yaml:"socket" env:"DEEPWORK_SOCKET"`
	SweepInterval      time.Duration `yaml:"sweep_interval" env:"DEEPWORK_SWEEP_INTERVAL"`
	OverdueGrace       time.Duration `yaml:"overdue_grace" env:"DEEPWORK_OVERDUE_GRACE"`
	InactivityTimeout  time.Duration `yaml:"inactivity_timeout" env:"DEEPWORK_INACTIVITY_TIMEOUT"`
	InterruptThreshold int           `yaml:"interrupt_threshold" env:"DEEPWORK_INTERRUPT_THRESHOLD"`
	LogFormat          string        `yaml:"log_format" env:"DEEPWORK_LOG_FORMAT"`
	Debug              bool          `yaml:"debug" env:"DEEPWORK_DEBUG"`
}

// New returns the default configuration rooted at dataDir.
func New(dataDir string) (Config, error) {
	if strings.TrimSpace(dataDir) == "" {
		return Config{}, fmt.Errorf("data dir is required")
	}
	return Config{
		DataDir:            dataDir,
		DBPath:             filepath.Join(dataDir, "deepwork.db"),
		Store:              StoreSQLite,
		SocketPath:         filepath.Join(dataDir, "deepwork.sock"),
		SweepInterval:      60 * time.Second,
		OverdueGrace:       24 * time.Hour,
		InactivityTimeout:  2 * time.Hour,
		InterruptThreshold: 4,
		LogFormat:          "auto",
	}, nil
}

// Load builds the layered configuration for dataDir.
func Load(dataDir string) (Config, error) {
	cfg, err := New(dataDir)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.mergeFile(filepath.Join(dataDir, FileName)); err != nil {
		return Config{}, err
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	return nil
}

func (c Config) Validate() error {
	switch c.Store {
	case StoreSQLite, StoreVault, StoreMemory:
	default:
		return fmt.Errorf("unknown store %q: must be one of sqlite|vault|memory", c.Store)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("sweep interval must be positive")
	}
	if c.OverdueGrace <= 0 {
		return fmt.Errorf("overdue grace must be positive")
	}
	if c.InactivityTimeout <= 0 {
		return fmt.Errorf("inactivity timeout must be positive")
	}
	if c.InterruptThreshold < 1 {
		return fmt.Errorf("interrupt threshold must be at least 1")
	}
	return nil
}

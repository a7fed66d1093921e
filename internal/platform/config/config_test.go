package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"deepwork/internal/platform/config"
)

func TestNewDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := config.New("/data")
	if err != nil {
		t.Fatalf("new config: %v", err)
	}
	if cfg.DBPath != filepath.Join("/data", "deepwork.db") || cfg.Store != config.StoreSQLite {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.SweepInterval != time.Minute || cfg.InterruptThreshold != 4 {
		t.Fatalf("unexpected policy defaults: %+v", cfg)
	}
	if _, err := config.New(" "); err == nil {
		t.Fatalf("blank data dir must fail")
	}
}

func TestLoadLayersFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	file := "store: vault\nsweep_interval: 30s\noverdue_grace: 12h\ninterrupt_threshold: 3\n"
	if err := os.WriteFile(filepath.Join(dir, config.FileName), []byte(file), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("DEEPWORK_OVERDUE_GRACE", "90m")
	t.Setenv("DEEPWORK_INACTIVITY_TIMEOUT", "45m")

	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store != config.StoreVault || cfg.SweepInterval != 30*time.Second || cfg.InterruptThreshold != 3 {
		t.Fatalf("file layer not applied: %+v", cfg)
	}
	if cfg.OverdueGrace != 90*time.Minute || cfg.InactivityTimeout != 45*time.Minute {
		t.Fatalf("env layer not applied: %+v", cfg)
	}
	if cfg.DataDir != dir {
		t.Fatalf("data dir must come from the caller, got %q", cfg.DataDir)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DEEPWORK_STORE", "postgres")
	if _, err := config.Load(dir); err == nil {
		t.Fatalf("unknown store must fail")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	base, err := config.New("/data")
	if err != nil {
		t.Fatalf("new config: %v", err)
	}
	cases := []func(*config.Config){
		func(c *config.Config) { c.SweepInterval = 0 },
		func(c *config.Config) { c.OverdueGrace = -time.Second },
		func(c *config.Config) { c.InactivityTimeout = 0 },
		func(c *config.Config) { c.InterruptThreshold = 0 },
	}
	for i, mutate := range cases {
		cfg := base
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

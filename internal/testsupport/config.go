package testsupport

import (
	"path/filepath"
	"testing"

	"punchlist/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.LedgerDir = filepath.Join(base, "ledgers")
	cfg.Paths.SessionDir = filepath.Join(base, "sessions")
	cfg.Paths.DrawingDir = filepath.Join(base, "drawings")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.DashboardDB = filepath.Join(base, "dashboard.db")

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithFirstDataRow overrides the ledger's first data row, covering the
// template variant that starts at row 8.
func WithFirstDataRow(row int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Ledger.FirstDataRow = row
	}
}

// WithDirectClosure selects the direct-closure workflow variant.
func WithDirectClosure() ConfigOption {
	return func(cfg *config.Config) {
		cfg.Workflow.RequireImplementedBeforeClose = false
	}
}

// WithSerialScanCap overrides the ledger scan safety cap.
func WithSerialScanCap(cap int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Ledger.SerialScanCap = cap
	}
}

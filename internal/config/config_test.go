package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"punchlist/internal/config"
)

func TestLoadDefaultsAndExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantLedgers := filepath.Join(tempHome, ".local", "share", "punchlist", "ledgers")
	if cfg.Paths.LedgerDir != wantLedgers {
		t.Fatalf("unexpected ledger dir: got %q want %q", cfg.Paths.LedgerDir, wantLedgers)
	}
	if cfg.Paths.DashboardDB != filepath.Join(tempHome, ".local", "share", "punchlist", "dashboard.db") {
		t.Fatalf("unexpected dashboard db: %q", cfg.Paths.DashboardDB)
	}
	if cfg.Ledger.SheetName != "PunchList" || cfg.Ledger.FirstDataRow != 9 {
		t.Fatalf("unexpected ledger layout: %+v", cfg.Ledger)
	}
	if cfg.Ledger.Columns.Serial != "A" || cfg.Ledger.Columns.ClosedDate != "J" {
		t.Fatalf("unexpected ledger columns: %+v", cfg.Ledger.Columns)
	}
	if cfg.Checklist.SheetName != "Checklist" || cfg.Checklist.FirstDataRow != 6 {
		t.Fatalf("unexpected checklist layout: %+v", cfg.Checklist)
	}
	if !cfg.Workflow.RequireImplementedBeforeClose {
		t.Fatal("expected verification variant by default")
	}
	if cfg.Annotations.UndoDepth != 50 || cfg.Annotations.MarkColor != "red" || cfg.Annotations.ResolvedColor != "green" {
		t.Fatalf("unexpected annotation defaults: %+v", cfg.Annotations)
	}
}

func TestLoadExplicitFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := strings.Join([]string{
		"[ledger]",
		`sheet_name = "Punch List"`,
		"first_data_row = 8",
		"",
		"[workflow]",
		"require_implemented_before_close = false",
		"",
		"[annotations]",
		`resolved_color = "blue"`,
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("resolved=%q exists=%t", resolved, exists)
	}
	if cfg.Ledger.SheetName != "Punch List" || cfg.Ledger.FirstDataRow != 8 {
		t.Fatalf("overrides not applied: %+v", cfg.Ledger)
	}
	if cfg.Workflow.RequireImplementedBeforeClose {
		t.Fatal("workflow override not applied")
	}
	if cfg.Annotations.ResolvedColor != "blue" {
		t.Fatalf("annotation override not applied: %+v", cfg.Annotations)
	}
	// Untouched sections keep their defaults.
	if cfg.Checklist.SheetName != "Checklist" {
		t.Fatalf("checklist defaults lost: %+v", cfg.Checklist)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"scan cap below data row", "[ledger]\nfirst_data_row = 100\nserial_scan_cap = 50\n"},
		{"bad column letter", "[ledger.columns]\nserial = \"a1\"\n"},
		{"empty sheet name", "[checklist]\nsheet_name = \"  \"\n"},
		{"zero undo depth", "[annotations]\nundo_depth = 0\n"},
		{"bad log format", "[logging]\nformat = \"xml\"\n"},
	}
	for _, tc := range cases {
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
			t.Fatalf("%s: write config: %v", tc.name, err)
		}
		if _, _, _, err := config.Load(path); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}

func TestCabinetPaths(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LedgerDir = "/data/ledgers"
	cfg.Paths.SessionDir = "/data/sessions"
	cfg.Paths.DrawingDir = "/data/drawings"

	if got := cfg.LedgerPath("CAB-1"); got != "/data/ledgers/CAB-1.xlsx" {
		t.Fatalf("ledger path = %q", got)
	}
	if got := cfg.SessionPath("CAB-1"); got != "/data/sessions/CAB-1.json" {
		t.Fatalf("session path = %q", got)
	}
	if got := cfg.DrawingPath("CAB-1"); got != "/data/drawings/CAB-1.pdf" {
		t.Fatalf("drawing path = %q", got)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.LedgerDir = filepath.Join(base, "ledgers")
	cfg.Paths.SessionDir = filepath.Join(base, "sessions")
	cfg.Paths.DrawingDir = filepath.Join(base, "drawings")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.DashboardDB = filepath.Join(base, "db", "dashboard.db")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	for _, dir := range []string{
		cfg.Paths.LedgerDir,
		cfg.Paths.SessionDir,
		cfg.Paths.LogDir,
		filepath.Join(base, "db"),
	} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("directory %q missing: %v", dir, err)
		}
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("create sample: %v", err)
	}
	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("sample config failed to load: exists=%t err=%v", exists, err)
	}
}

func TestExpandPathHome(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	got, err := config.ExpandPath("~/ledgers")
	if err != nil {
		t.Fatalf("expand path: %v", err)
	}
	if got != filepath.Join(tempHome, "ledgers") {
		t.Fatalf("expanded = %q", got)
	}
}

package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and store location configuration.
type Paths struct {
	LedgerDir   string `toml:"ledger_dir"`
	SessionDir  string `toml:"session_dir"`
	DrawingDir  string `toml:"drawing_dir"`
	LogDir      string `toml:"log_dir"`
	DashboardDB string `toml:"dashboard_db"`
}

// LedgerColumns holds the fixed column letters of the punch ledger sheet.
type LedgerColumns struct {
	Serial          string `toml:"serial"`
	Reference       string `toml:"reference"`
	Description     string `toml:"description"`
	Category        string `toml:"category"`
	CheckedBy       string `toml:"checked_by"`
	CheckedDate     string `toml:"checked_date"`
	ImplementedBy   string `toml:"implemented_by"`
	ImplementedDate string `toml:"implemented_date"`
	ClosedBy        string `toml:"closed_by"`
	ClosedDate      string `toml:"closed_date"`
}

// LedgerLayout describes where punch rows live inside a ledger workbook.
// The two source tool variants disagree on the first data row (8 vs 9), so it
// is configuration rather than a constant.
type LedgerLayout struct {
	SheetName     string        `toml:"sheet_name"`
	FirstDataRow  int           `toml:"first_data_row"`
	SerialScanCap int           `toml:"serial_scan_cap"`
	Columns       LedgerColumns `toml:"columns"`
}

// ChecklistColumns holds the fixed column letters of the checklist sheet.
type ChecklistColumns struct {
	Reference    string `toml:"reference"`
	Description  string `toml:"description"`
	Status       string `toml:"status"`
	DisposedBy   string `toml:"disposed_by"`
	DisposedDate string `toml:"disposed_date"`
	Remark       string `toml:"remark"`
}

// ChecklistLayout describes where checklist rows live inside the workbook.
type ChecklistLayout struct {
	SheetName    string           `toml:"sheet_name"`
	FirstDataRow int              `toml:"first_data_row"`
	Columns      ChecklistColumns `toml:"columns"`
}

// Annotations contains configuration for the annotation session editor.
type Annotations struct {
	UndoDepth     int    `toml:"undo_depth"`
	MarkColor     string `toml:"mark_color"`
	ResolvedColor string `toml:"resolved_color"`
}

// Workflow contains cabinet workflow compatibility flags.
type Workflow struct {
	// RequireImplementedBeforeClose selects the verification variant in which
	// every punch must be marked implemented before it may be closed. The
	// direct-closure variant sets this to false.
	RequireImplementedBeforeClose bool `toml:"require_implemented_before_close"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for punchlist.
//
// Configuration sections by subsystem:
//   - Paths: store directories and the dashboard database location
//   - Ledger: punch ledger sheet layout (row offsets, column letters)
//   - Checklist: checklist sheet layout
//   - Annotations: session editor settings
//   - Workflow: cross-tool compatibility flags
//   - Logging: log format and level
type Config struct {
	Paths       Paths           `toml:"paths"`
	Ledger      LedgerLayout    `toml:"ledger"`
	Checklist   ChecklistLayout `toml:"checklist"`
	Annotations Annotations     `toml:"annotations"`
	Workflow    Workflow        `toml:"workflow"`
	Logging     Logging         `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/punchlist/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("punchlist.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for tool operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.LedgerDir, c.Paths.SessionDir, c.Paths.LogDir}
	if db := strings.TrimSpace(c.Paths.DashboardDB); db != "" {
		dirs = append(dirs, filepath.Dir(db))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.DrawingDir) != "" {
		// Best-effort so config load survives offline drawing storage.
		_ = os.MkdirAll(c.Paths.DrawingDir, 0o755)
	}
	return nil
}

// LedgerPath returns the ledger workbook location for a cabinet.
func (c *Config) LedgerPath(cabinetID string) string {
	return filepath.Join(c.Paths.LedgerDir, cabinetID+".xlsx")
}

// SessionPath returns the annotation session document location for a cabinet.
func (c *Config) SessionPath(cabinetID string) string {
	return filepath.Join(c.Paths.SessionDir, cabinetID+".json")
}

// DrawingPath returns the engineering drawing location for a cabinet.
func (c *Config) DrawingPath(cabinetID string) string {
	return filepath.Join(c.Paths.DrawingDir, cabinetID+".pdf")
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.LedgerDir, err = expandPath(c.Paths.LedgerDir); err != nil {
		return err
	}
	if c.Paths.SessionDir, err = expandPath(c.Paths.SessionDir); err != nil {
		return err
	}
	if c.Paths.DrawingDir, err = expandPath(c.Paths.DrawingDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	if c.Paths.DashboardDB, err = expandPath(c.Paths.DashboardDB); err != nil {
		return err
	}
	c.Ledger.SheetName = strings.TrimSpace(c.Ledger.SheetName)
	c.Checklist.SheetName = strings.TrimSpace(c.Checklist.SheetName)
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

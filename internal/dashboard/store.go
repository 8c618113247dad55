package dashboard

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"punchlist/internal/ledger"
)

// Store manages the shared aggregate database backed by SQLite. It is the
// most contended store in the system: every annotation save, punch creation,
// and page render may trigger a counters-only refresh.
type Store struct {
	db   *sql.DB
	path string
}

const (
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open initializes or connects to the dashboard database.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure dashboard directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database location.
func (s *Store) Path() string { return s.path }

func (s *Store) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS cabinets (
            cabinet_id TEXT PRIMARY KEY,
            project_name TEXT,
            sales_order_no TEXT,
            storage_location TEXT,
            status TEXT NOT NULL,
            total_pages INTEGER NOT NULL DEFAULT 0,
            annotated_pages INTEGER NOT NULL DEFAULT 0,
            total_punches INTEGER NOT NULL DEFAULT 0,
            open_punches INTEGER NOT NULL DEFAULT 0,
            implemented_punches INTEGER NOT NULL DEFAULT 0,
            closed_punches INTEGER NOT NULL DEFAULT 0,
            ledger_path TEXT,
            session_path TEXT,
            drawing_path TEXT,
            created_date TEXT NOT NULL,
            last_updated TEXT NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS handovers (
            id TEXT PRIMARY KEY,
            cabinet_id TEXT NOT NULL,
            status TEXT NOT NULL,
            requested_by TEXT NOT NULL,
            requested_at TEXT NOT NULL,
            accepted_by TEXT,
            accepted_at TEXT,
            completed_by TEXT,
            completed_at TEXT
        )`,
		`CREATE TABLE IF NOT EXISTS handbacks (
            id TEXT PRIMARY KEY,
            cabinet_id TEXT NOT NULL,
            status TEXT NOT NULL,
            requested_by TEXT NOT NULL,
            requested_at TEXT NOT NULL,
            verified_by TEXT,
            verified_at TEXT,
            closed_by TEXT,
            closed_at TEXT
        )`,
		`CREATE INDEX IF NOT EXISTS idx_handovers_cabinet ON handovers(cabinet_id)`,
		`CREATE INDEX IF NOT EXISTS idx_handbacks_cabinet ON handbacks(cabinet_id)`,
	}
	for _, statement := range statements {
		if _, err := s.db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// GetCabinet fetches an aggregate record, or nil when none exists.
func (s *Store) GetCabinet(ctx context.Context, cabinetID string) (*Cabinet, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+cabinetColumns+` FROM cabinets WHERE cabinet_id = ?`, cabinetID)
	cab, err := scanCabinet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cabinet: %w", err)
	}
	return cab, nil
}

// ListCabinets returns every aggregate record ordered by cabinet id.
func (s *Store) ListCabinets(ctx context.Context) ([]*Cabinet, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+cabinetColumns+` FROM cabinets ORDER BY cabinet_id`)
	if err != nil {
		return nil, fmt.Errorf("list cabinets: %w", err)
	}
	defer rows.Close()

	var cabinets []*Cabinet
	for rows.Next() {
		cab, err := scanCabinet(rows)
		if err != nil {
			return nil, err
		}
		cabinets = append(cabinets, cab)
	}
	return cabinets, rows.Err()
}

// RefreshCounters upserts the aggregate record with freshly recomputed punch
// counters. A new record seeds its status from seed.Status; an existing
// record's status is never modified here. Idempotent on an unchanged ledger.
func (s *Store) RefreshCounters(ctx context.Context, cabinetID string, counters ledger.Counters, seed Seed) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	existing, err := s.GetCabinet(ctx, cabinetID)
	if err != nil {
		return err
	}
	if existing == nil {
		status := strings.TrimSpace(seed.Status)
		if status == "" {
			status = "quality_inspection"
		}
		return s.execWithRetry(ctx,
			`INSERT INTO cabinets (
                cabinet_id, project_name, sales_order_no, storage_location, status,
                total_punches, open_punches, implemented_punches, closed_punches,
                ledger_path, session_path, drawing_path, created_date, last_updated
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			cabinetID,
			seed.ProjectName,
			seed.SalesOrderNo,
			seed.StorageLocation,
			status,
			counters.Total,
			counters.Open,
			counters.Implemented,
			counters.Closed,
			seed.LedgerPath,
			seed.SessionPath,
			seed.DrawingPath,
			now,
			now,
		)
	}

	return s.execWithRetry(ctx,
		`UPDATE cabinets
         SET total_punches = ?, open_punches = ?, implemented_punches = ?, closed_punches = ?,
             last_updated = ?
         WHERE cabinet_id = ?`,
		counters.Total,
		counters.Open,
		counters.Implemented,
		counters.Closed,
		now,
		cabinetID,
	)
}

// ApplyTransition replaces both status and counters in one write.
func (s *Store) ApplyTransition(ctx context.Context, cabinetID, newStatus string, counters ledger.Counters) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	return s.execWithRetry(ctx,
		`UPDATE cabinets
         SET status = ?, total_punches = ?, open_punches = ?, implemented_punches = ?,
             closed_punches = ?, last_updated = ?
         WHERE cabinet_id = ?`,
		newStatus,
		counters.Total,
		counters.Open,
		counters.Implemented,
		counters.Closed,
		now,
		cabinetID,
	)
}

// RecordPages stores the page counters maintained by the annotation surface.
func (s *Store) RecordPages(ctx context.Context, cabinetID string, totalPages, annotatedPages int) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	return s.execWithRetry(ctx,
		`UPDATE cabinets SET total_pages = ?, annotated_pages = ?, last_updated = ? WHERE cabinet_id = ?`,
		totalPages,
		annotatedPages,
		now,
		cabinetID,
	)
}

const cabinetColumns = "cabinet_id, project_name, sales_order_no, storage_location, status, total_pages, annotated_pages, total_punches, open_punches, implemented_punches, closed_punches, ledger_path, session_path, drawing_path, created_date, last_updated"

func scanCabinet(scanner interface{ Scan(dest ...any) error }) (*Cabinet, error) {
	var (
		cab         Cabinet
		project     sql.NullString
		salesOrder  sql.NullString
		storage     sql.NullString
		ledgerPath  sql.NullString
		sessionPath sql.NullString
		drawingPath sql.NullString
		createdRaw  string
		lastUpdated string
	)
	if err := scanner.Scan(
		&cab.CabinetID,
		&project,
		&salesOrder,
		&storage,
		&cab.Status,
		&cab.TotalPages,
		&cab.AnnotatedPages,
		&cab.TotalPunches,
		&cab.OpenPunches,
		&cab.ImplementedPunches,
		&cab.ClosedPunches,
		&ledgerPath,
		&sessionPath,
		&drawingPath,
		&createdRaw,
		&lastUpdated,
	); err != nil {
		return nil, err
	}
	cab.ProjectName = project.String
	cab.SalesOrderNo = salesOrder.String
	cab.StorageLocation = storage.String
	cab.LedgerPath = ledgerPath.String
	cab.SessionPath = sessionPath.String
	cab.DrawingPath = drawingPath.String
	if created, err := parseTimeString(createdRaw); err == nil {
		cab.CreatedDate = created
	}
	if updated, err := parseTimeString(lastUpdated); err == nil {
		cab.LastUpdated = updated
	}
	return &cab, nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == 5 {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) error {
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

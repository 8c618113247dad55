package ledger

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"punchlist/internal/config"
	"punchlist/internal/faults"
	"punchlist/internal/sheet"
)

// Ledger provides append-only punch access over one cabinet's workbook.
// Single-writer-per-file is a hard precondition: serial allocation reads the
// previous row, which is only gap-free when no other writer touches the same
// row region. The workbook's exclusive open enforces that within this suite.
type Ledger struct {
	wb     *sheet.Workbook
	layout config.LedgerLayout
}

// Open opens the ledger workbook at path with the configured layout.
func Open(path string, layout config.LedgerLayout) (*Ledger, error) {
	wb, err := sheet.Open(path)
	if err != nil {
		return nil, err
	}
	l, err := New(wb, layout)
	if err != nil {
		_ = wb.Close()
		return nil, err
	}
	return l, nil
}

// New wraps an already opened workbook.
func New(wb *sheet.Workbook, layout config.LedgerLayout) (*Ledger, error) {
	if !wb.HasSheet(layout.SheetName) {
		return nil, faults.Wrap(faults.ErrMissingResource, "ledger", "open",
			fmt.Sprintf("sheet %q not found in %s", layout.SheetName, wb.Path()), nil)
	}
	return &Ledger{wb: wb, layout: layout}, nil
}

// Close releases the underlying workbook.
func (l *Ledger) Close() error {
	if l == nil {
		return nil
	}
	return l.wb.Close()
}

// Path returns the backing workbook location.
func (l *Ledger) Path() string { return l.wb.Path() }

// NextRow scans from the first data row for the first empty serial cell.
// A scan past the safety cap is a corruption condition, never a wraparound.
func (l *Ledger) NextRow() (int, error) {
	for row := l.layout.FirstDataRow; row <= l.layout.SerialScanCap; row++ {
		value, err := l.wb.Cell(l.layout.SheetName, l.layout.Columns.Serial, row)
		if err != nil {
			return 0, err
		}
		if strings.TrimSpace(value) == "" {
			return row, nil
		}
	}
	return 0, faults.Wrap(faults.ErrSequenceCorruption, "ledger", "next row",
		fmt.Sprintf("no empty serial slot below row %d", l.layout.SerialScanCap), nil)
}

// AllocateSerial derives the serial for a new punch at row: one more than the
// previous row's serial when that parses as an integer, otherwise 1.
func (l *Ledger) AllocateSerial(row int) (int, error) {
	if row <= l.layout.FirstDataRow {
		return 1, nil
	}
	value, err := l.wb.Cell(l.layout.SheetName, l.layout.Columns.Serial, row-1)
	if err != nil {
		return 0, err
	}
	previous, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 1, nil
	}
	return previous + 1, nil
}

// CreatePunch validates the fields, appends a full row, and returns the new
// punch with its assigned serial. Validation failures reject before any write
// so no partial row can exist.
func (l *Ledger) CreatePunch(fields Fields, actor string) (*Punch, error) {
	if strings.TrimSpace(fields.Description) == "" {
		return nil, faults.Wrap(faults.ErrValidation, "ledger", "create punch", "description is required", nil)
	}
	if strings.TrimSpace(fields.Reference) == "" {
		return nil, faults.Wrap(faults.ErrValidation, "ledger", "create punch", "reference number is required", nil)
	}
	if strings.TrimSpace(actor) == "" {
		return nil, faults.Wrap(faults.ErrValidation, "ledger", "create punch", "actor is required", nil)
	}

	row, err := l.NextRow()
	if err != nil {
		return nil, err
	}
	serial, err := l.AllocateSerial(row)
	if err != nil {
		return nil, err
	}

	punch := &Punch{
		Serial:      serial,
		Row:         row,
		Reference:   strings.TrimSpace(fields.Reference),
		Description: strings.TrimSpace(fields.Description),
		Category:    strings.TrimSpace(fields.Category),
		CheckedBy:   strings.TrimSpace(actor),
		CheckedDate: time.Now().Format(DateLayout),
	}

	cols := l.layout.Columns
	writes := []struct {
		col   string
		value any
	}{
		{cols.Serial, punch.Serial},
		{cols.Reference, punch.Reference},
		{cols.Description, punch.Description},
		{cols.Category, punch.Category},
		{cols.CheckedBy, punch.CheckedBy},
		{cols.CheckedDate, punch.CheckedDate},
	}
	for _, wr := range writes {
		if err := l.wb.SetCell(l.layout.SheetName, wr.col, punch.Row, wr.value); err != nil {
			return nil, err
		}
	}
	if err := l.wb.Save(); err != nil {
		return nil, err
	}
	return punch, nil
}

// MarkImplemented stamps the implemented-by and implemented-date columns.
// A non-empty remark is appended to the description cell.
func (l *Ledger) MarkImplemented(row int, actor, remark string) error {
	punch, err := l.readRow(row)
	if err != nil {
		return err
	}
	if punch == nil {
		return faults.Wrap(faults.ErrValidation, "ledger", "mark implemented",
			fmt.Sprintf("row %d holds no punch", row), nil)
	}
	if punch.Closed() {
		return faults.Wrap(faults.ErrValidation, "ledger", "mark implemented",
			fmt.Sprintf("punch %d is already closed", punch.Serial), nil)
	}
	if strings.TrimSpace(actor) == "" {
		return faults.Wrap(faults.ErrValidation, "ledger", "mark implemented", "actor is required", nil)
	}

	cols := l.layout.Columns
	if err := l.wb.SetCell(l.layout.SheetName, cols.ImplementedBy, row, strings.TrimSpace(actor)); err != nil {
		return err
	}
	if err := l.wb.SetCell(l.layout.SheetName, cols.ImplementedDate, row, time.Now().Format(DateLayout)); err != nil {
		return err
	}
	if remark = strings.TrimSpace(remark); remark != "" {
		updated := punch.Description + " [" + remark + "]"
		if err := l.wb.SetCell(l.layout.SheetName, cols.Description, row, updated); err != nil {
			return err
		}
	}
	return l.wb.Save()
}

// MarkClosed stamps the closed-by and closed-date columns. Implementation
// fields are left as they were.
func (l *Ledger) MarkClosed(row int, actor string) error {
	punch, err := l.readRow(row)
	if err != nil {
		return err
	}
	if punch == nil {
		return faults.Wrap(faults.ErrValidation, "ledger", "mark closed",
			fmt.Sprintf("row %d holds no punch", row), nil)
	}
	if punch.Closed() {
		return faults.Wrap(faults.ErrValidation, "ledger", "mark closed",
			fmt.Sprintf("punch %d is already closed", punch.Serial), nil)
	}
	if strings.TrimSpace(actor) == "" {
		return faults.Wrap(faults.ErrValidation, "ledger", "mark closed", "actor is required", nil)
	}

	cols := l.layout.Columns
	if err := l.wb.SetCell(l.layout.SheetName, cols.ClosedBy, row, strings.TrimSpace(actor)); err != nil {
		return err
	}
	if err := l.wb.SetCell(l.layout.SheetName, cols.ClosedDate, row, time.Now().Format(DateLayout)); err != nil {
		return err
	}
	return l.wb.Save()
}

// Punches returns every ledger row in serial order.
func (l *Ledger) Punches() ([]Punch, error) {
	var punches []Punch
	for row := l.layout.FirstDataRow; row <= l.layout.SerialScanCap; row++ {
		punch, err := l.readRow(row)
		if err != nil {
			return nil, err
		}
		if punch == nil {
			return punches, nil
		}
		punches = append(punches, *punch)
	}
	return nil, faults.Wrap(faults.ErrSequenceCorruption, "ledger", "scan",
		fmt.Sprintf("no empty serial slot below row %d", l.layout.SerialScanCap), nil)
}

// ListOpen returns the punches whose closed-by column is still empty. Both
// closing workflows drive off this list.
func (l *Ledger) ListOpen() ([]Punch, error) {
	punches, err := l.Punches()
	if err != nil {
		return nil, err
	}
	var open []Punch
	for _, punch := range punches {
		if !punch.Closed() {
			open = append(open, punch)
		}
	}
	return open, nil
}

// FindBySerial returns the punch with the given serial, or nil.
func (l *Ledger) FindBySerial(serial int) (*Punch, error) {
	punches, err := l.Punches()
	if err != nil {
		return nil, err
	}
	for i := range punches {
		if punches[i].Serial == serial {
			return &punches[i], nil
		}
	}
	return nil, nil
}

// Count recomputes the derived counters by a direct recount of the ledger.
func (l *Ledger) Count() (Counters, error) {
	punches, err := l.Punches()
	if err != nil {
		return Counters{}, err
	}
	var c Counters
	for _, punch := range punches {
		c.Total++
		switch {
		case punch.Closed():
			c.Closed++
		case punch.Implemented():
			c.Implemented++
			c.Open++
		default:
			c.Open++
		}
	}
	return c, nil
}

func (l *Ledger) readRow(row int) (*Punch, error) {
	cols := l.layout.Columns
	serialRaw, err := l.wb.Cell(l.layout.SheetName, cols.Serial, row)
	if err != nil {
		return nil, err
	}
	serialRaw = strings.TrimSpace(serialRaw)
	if serialRaw == "" {
		return nil, nil
	}
	serial, err := strconv.Atoi(serialRaw)
	if err != nil {
		return nil, faults.Wrap(faults.ErrSequenceCorruption, "ledger", "read row",
			fmt.Sprintf("row %d serial %q is not an integer", row, serialRaw), nil)
	}

	punch := Punch{Serial: serial, Row: row}
	reads := []struct {
		col  string
		dest *string
	}{
		{cols.Reference, &punch.Reference},
		{cols.Description, &punch.Description},
		{cols.Category, &punch.Category},
		{cols.CheckedBy, &punch.CheckedBy},
		{cols.CheckedDate, &punch.CheckedDate},
		{cols.ImplementedBy, &punch.ImplementedBy},
		{cols.ImplementedDate, &punch.ImplementedDate},
		{cols.ClosedBy, &punch.ClosedBy},
		{cols.ClosedDate, &punch.ClosedDate},
	}
	for _, rd := range reads {
		value, err := l.wb.Cell(l.layout.SheetName, rd.col, row)
		if err != nil {
			return nil, err
		}
		*rd.dest = strings.TrimSpace(value)
	}
	return &punch, nil
}

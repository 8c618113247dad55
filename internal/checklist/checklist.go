package checklist

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"punchlist/internal/config"
	"punchlist/internal/faults"
	"punchlist/internal/sheet"
)

// DateLayout is the cell format for the disposed-date column.
const DateLayout = "2006-01-02"

// Disposition values a checklist item may carry. Empty means undisposed.
const (
	StatusOK  = "OK"
	StatusNOK = "NOK"
	StatusNA  = "N/A"
)

// Item is one checklist row requiring a terminal disposition before closure.
type Item struct {
	Row          int
	Reference    string
	Description  string
	Status       string
	DisposedBy   string
	DisposedDate string
	Remark       string
}

// Disposed reports whether the item carries a terminal status.
func (i Item) Disposed() bool {
	switch i.Status {
	case StatusOK, StatusNOK, StatusNA:
		return true
	default:
		return false
	}
}

// Gate reads and disposes checklist rows and answers the completeness
// question that gates the final closure transition.
type Gate struct {
	wb     *sheet.Workbook
	layout config.ChecklistLayout
}

// Open opens the checklist workbook at path with the configured layout.
func Open(path string, layout config.ChecklistLayout) (*Gate, error) {
	wb, err := sheet.Open(path)
	if err != nil {
		return nil, err
	}
	g, err := New(wb, layout)
	if err != nil {
		_ = wb.Close()
		return nil, err
	}
	return g, nil
}

// New wraps an already opened workbook.
func New(wb *sheet.Workbook, layout config.ChecklistLayout) (*Gate, error) {
	if !wb.HasSheet(layout.SheetName) {
		return nil, faults.Wrap(faults.ErrMissingResource, "checklist", "open",
			fmt.Sprintf("sheet %q not found in %s", layout.SheetName, wb.Path()), nil)
	}
	return &Gate{wb: wb, layout: layout}, nil
}

// Close releases the underlying workbook.
func (g *Gate) Close() error {
	if g == nil {
		return nil
	}
	return g.wb.Close()
}

// Items returns every checklist row with a non-empty reference.
func (g *Gate) Items() ([]Item, error) {
	var items []Item
	emptyStreak := 0
	for row := g.layout.FirstDataRow; ; row++ {
		item, err := g.readRow(row)
		if err != nil {
			return nil, err
		}
		if item == nil {
			// Checklist sheets may contain spacer rows between sections;
			// two consecutive empty references end the scan.
			emptyStreak++
			if emptyStreak >= 2 {
				return items, nil
			}
			continue
		}
		emptyStreak = 0
		items = append(items, *item)
	}
}

// PendingItems returns undisposed rows whose reference is not excluded.
func (g *Gate) PendingItems(excludeReferences []string) ([]Item, error) {
	excluded := make(map[string]struct{}, len(excludeReferences))
	for _, ref := range excludeReferences {
		excluded[strings.TrimSpace(ref)] = struct{}{}
	}
	items, err := g.Items()
	if err != nil {
		return nil, err
	}
	var pending []Item
	for _, item := range items {
		if _, ok := excluded[item.Reference]; ok {
			continue
		}
		if !item.Disposed() {
			pending = append(pending, item)
		}
	}
	return pending, nil
}

// Dispose writes a terminal status to the row. N/A requires a non-empty
// remark; the call is rejected before any write otherwise.
func (g *Gate) Dispose(row int, status, actor, remark string) error {
	status = strings.ToUpper(strings.TrimSpace(status))
	switch status {
	case StatusOK, StatusNOK, StatusNA:
	default:
		return faults.Wrap(faults.ErrValidation, "checklist", "dispose",
			fmt.Sprintf("status %q is not OK, NOK, or N/A", status), nil)
	}
	remark = strings.TrimSpace(remark)
	if status == StatusNA && remark == "" {
		return faults.Wrap(faults.ErrValidation, "checklist", "dispose", "N/A requires a remark", nil)
	}
	if strings.TrimSpace(actor) == "" {
		return faults.Wrap(faults.ErrValidation, "checklist", "dispose", "actor is required", nil)
	}

	item, err := g.readRow(row)
	if err != nil {
		return err
	}
	if item == nil {
		return faults.Wrap(faults.ErrValidation, "checklist", "dispose",
			fmt.Sprintf("row %d holds no checklist item", row), nil)
	}

	cols := g.layout.Columns
	if err := g.wb.SetCell(g.layout.SheetName, cols.Status, row, status); err != nil {
		return err
	}
	if err := g.wb.SetCell(g.layout.SheetName, cols.DisposedBy, row, strings.TrimSpace(actor)); err != nil {
		return err
	}
	if err := g.wb.SetCell(g.layout.SheetName, cols.DisposedDate, row, time.Now().Format(DateLayout)); err != nil {
		return err
	}
	if remark != "" {
		if err := g.wb.SetCell(g.layout.SheetName, cols.Remark, row, remark); err != nil {
			return err
		}
	}
	return g.wb.Save()
}

// MarkNOK flags the item matching reference as NOK. Creating a punch against
// a checklist reference side-effects this; a missing reference is a no-op.
func (g *Gate) MarkNOK(reference, actor string) error {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil
	}
	items, err := g.Items()
	if err != nil {
		return err
	}
	for _, item := range items {
		if item.Reference == reference {
			return g.Dispose(item.Row, StatusNOK, actor, "")
		}
	}
	return nil
}

// IsComplete reports whether every row with a non-empty reference carries a
// terminal status, returning the offending references otherwise.
func (g *Gate) IsComplete() (bool, []string, error) {
	items, err := g.Items()
	if err != nil {
		return false, nil, err
	}
	var offenders []string
	for _, item := range items {
		if !item.Disposed() {
			offenders = append(offenders, item.Reference)
		}
	}
	return len(offenders) == 0, offenders, nil
}

// InferPhase classifies the cabinet's inspection phase from the numerically
// lowest disposed reference. Used only to seed a brand-new aggregate record.
// Returns ok=false when no row is disposed or no reference is numeric.
func (g *Gate) InferPhase() (string, bool, error) {
	items, err := g.Items()
	if err != nil {
		return "", false, err
	}
	lowest := 0
	found := false
	for _, item := range items {
		if !item.Disposed() {
			continue
		}
		ref, err := strconv.Atoi(item.Reference)
		if err != nil {
			continue
		}
		if !found || ref < lowest {
			lowest = ref
			found = true
		}
	}
	if !found {
		return "", false, nil
	}
	return PhaseForReference(lowest), true, nil
}

// PhaseForReference maps a checklist reference number to its phase name.
//
//	1-2   project_info
//	3-9   mechanical_assembly
//	10-18 component_assembly
//	19-27 wiring
//	28+   testing
func PhaseForReference(ref int) string {
	switch {
	case ref <= 2:
		return "project_info"
	case ref <= 9:
		return "mechanical_assembly"
	case ref <= 18:
		return "component_assembly"
	case ref <= 27:
		return "wiring"
	default:
		return "testing"
	}
}

func (g *Gate) readRow(row int) (*Item, error) {
	cols := g.layout.Columns
	reference, err := g.wb.Cell(g.layout.SheetName, cols.Reference, row)
	if err != nil {
		return nil, err
	}
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, nil
	}

	item := Item{Row: row, Reference: reference}
	reads := []struct {
		col  string
		dest *string
	}{
		{cols.Description, &item.Description},
		{cols.Status, &item.Status},
		{cols.DisposedBy, &item.DisposedBy},
		{cols.DisposedDate, &item.DisposedDate},
		{cols.Remark, &item.Remark},
	}
	for _, rd := range reads {
		value, err := g.wb.Cell(g.layout.SheetName, rd.col, row)
		if err != nil {
			return nil, err
		}
		*rd.dest = strings.TrimSpace(value)
	}
	item.Status = strings.ToUpper(item.Status)
	return &item, nil
}

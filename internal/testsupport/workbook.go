package testsupport

import (
	"fmt"
	"testing"

	"github.com/xuri/excelize/v2"

	"punchlist/internal/config"
)

// ChecklistRow seeds one checklist item in a generated workbook.
type ChecklistRow struct {
	Reference   string
	Description string
	Status      string
	DisposedBy  string
	Remark      string
}

// NewLedgerWorkbook writes a cabinet workbook containing the punch ledger
// sheet and, when rows are provided, the checklist sheet. The header band
// above the first data row gets a merged title region so merged-cell
// resolution is exercised by every test that reads the sheet.
func NewLedgerWorkbook(t testing.TB, cfg *config.Config, cabinetID string, checklistRows ...ChecklistRow) string {
	t.Helper()

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			t.Fatalf("close workbook builder: %v", err)
		}
	}()

	if _, err := f.NewSheet(cfg.Ledger.SheetName); err != nil {
		t.Fatalf("create ledger sheet: %v", err)
	}
	if err := f.SetCellValue(cfg.Ledger.SheetName, "A1", "Punch List - "+cabinetID); err != nil {
		t.Fatalf("write ledger title: %v", err)
	}
	if err := f.MergeCell(cfg.Ledger.SheetName, "A1", "J2"); err != nil {
		t.Fatalf("merge ledger title: %v", err)
	}
	headerRow := cfg.Ledger.FirstDataRow - 1
	if headerRow >= 3 {
		headers := map[string]string{
			cfg.Ledger.Columns.Serial:      "No.",
			cfg.Ledger.Columns.Reference:   "Ref",
			cfg.Ledger.Columns.Description: "Description",
			cfg.Ledger.Columns.Category:    "Category",
			cfg.Ledger.Columns.CheckedBy:   "Checked",
			cfg.Ledger.Columns.ClosedBy:    "Closed",
		}
		for col, label := range headers {
			cell := fmt.Sprintf("%s%d", col, headerRow)
			if err := f.SetCellValue(cfg.Ledger.SheetName, cell, label); err != nil {
				t.Fatalf("write ledger header: %v", err)
			}
		}
	}

	if len(checklistRows) > 0 {
		if _, err := f.NewSheet(cfg.Checklist.SheetName); err != nil {
			t.Fatalf("create checklist sheet: %v", err)
		}
		if err := f.SetCellValue(cfg.Checklist.SheetName, "A1", "Inspection Checklist"); err != nil {
			t.Fatalf("write checklist title: %v", err)
		}
		if err := f.MergeCell(cfg.Checklist.SheetName, "A1", "F2"); err != nil {
			t.Fatalf("merge checklist title: %v", err)
		}
		cols := cfg.Checklist.Columns
		for i, row := range checklistRows {
			rowNum := cfg.Checklist.FirstDataRow + i
			cells := map[string]string{
				cols.Reference:   row.Reference,
				cols.Description: row.Description,
				cols.Status:      row.Status,
				cols.DisposedBy:  row.DisposedBy,
				cols.Remark:      row.Remark,
			}
			for col, value := range cells {
				if value == "" {
					continue
				}
				cell := fmt.Sprintf("%s%d", col, rowNum)
				if err := f.SetCellValue(cfg.Checklist.SheetName, cell, value); err != nil {
					t.Fatalf("write checklist row: %v", err)
				}
			}
		}
	}

	path := cfg.LedgerPath(cabinetID)
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return path
}

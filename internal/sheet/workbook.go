package sheet

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/xuri/excelize/v2"

	"punchlist/internal/faults"
)

// Workbook wraps a spreadsheet file with the access rules every tabular store
// in this system needs: exclusive-open detection, merged-region anchor
// resolution, and an atomic save that never leaves a partially written file.
type Workbook struct {
	path   string
	file   *excelize.File
	lock   *flock.Flock
	merges map[string][]mergeRegion
}

type mergeRegion struct {
	minCol, minRow int
	maxCol, maxRow int
	anchor         string
}

// Open opens a workbook for exclusive read/write access. A missing file maps
// to ErrMissingResource; a file held elsewhere (advisory sidecar lock or an
// Excel owner marker) maps to ErrResourceLocked with no state mutated.
func Open(path string) (*Workbook, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, faults.Wrap(faults.ErrMissingResource, "sheet", "open", path, nil)
		}
		return nil, fmt.Errorf("stat workbook: %w", err)
	}

	if ownerMarkerExists(path) {
		return nil, faults.Wrap(faults.ErrResourceLocked, "sheet", "open", path+" is open in Excel", nil)
	}

	lock := flock.New(lockPath(path))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire workbook lock: %w", err)
	}
	if !ok {
		return nil, faults.Wrap(faults.ErrResourceLocked, "sheet", "open", path+" held by another process", nil)
	}

	file, err := excelize.OpenFile(path)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}

	return &Workbook{path: path, file: file, lock: lock, merges: map[string][]mergeRegion{}}, nil
}

// Path returns the workbook's on-disk location.
func (w *Workbook) Path() string { return w.path }

// HasSheet reports whether the named sheet exists.
func (w *Workbook) HasSheet(name string) bool {
	idx, err := w.file.GetSheetIndex(name)
	return err == nil && idx >= 0
}

// Cell reads the value at (column letter, row), resolving through any merged
// region's anchor first: only the anchor cell of a merge holds a value.
func (w *Workbook) Cell(sheet, col string, row int) (string, error) {
	ref, err := w.resolveAnchor(sheet, col, row)
	if err != nil {
		return "", err
	}
	value, err := w.file.GetCellValue(sheet, ref)
	if err != nil {
		return "", fmt.Errorf("read cell %s!%s: %w", sheet, ref, err)
	}
	return value, nil
}

// SetCell writes the value at (column letter, row) through the merged-region
// anchor. The write stays in memory until Save.
func (w *Workbook) SetCell(sheet, col string, row int, value any) error {
	ref, err := w.resolveAnchor(sheet, col, row)
	if err != nil {
		return err
	}
	if err := w.file.SetCellValue(sheet, ref, value); err != nil {
		return fmt.Errorf("write cell %s!%s: %w", sheet, ref, err)
	}
	return nil
}

// Save writes the workbook atomically: a temp file in the same directory is
// fully written first, then renamed over the original. A failed save leaves
// the original bytes untouched.
func (w *Workbook) Save() error {
	dir := filepath.Dir(w.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(w.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp workbook: %w", err)
	}
	tmpName := tmp.Name()

	if err := w.file.Write(tmp); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write workbook: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("flush workbook: %w", err)
	}
	if err := os.Rename(tmpName, w.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace workbook: %w", err)
	}
	return nil
}

// Close releases the workbook and its advisory lock.
func (w *Workbook) Close() error {
	if w == nil {
		return nil
	}
	var first error
	if w.file != nil {
		first = w.file.Close()
	}
	if w.lock != nil {
		if err := w.lock.Unlock(); err != nil && first == nil {
			first = err
		}
		_ = os.Remove(lockPath(w.path))
	}
	return first
}

func (w *Workbook) resolveAnchor(sheet, col string, row int) (string, error) {
	colNum, err := excelize.ColumnNameToNumber(col)
	if err != nil {
		return "", fmt.Errorf("column %q: %w", col, err)
	}
	regions, err := w.sheetMerges(sheet)
	if err != nil {
		return "", err
	}
	for _, region := range regions {
		if colNum >= region.minCol && colNum <= region.maxCol && row >= region.minRow && row <= region.maxRow {
			return region.anchor, nil
		}
	}
	ref, err := excelize.CoordinatesToCellName(colNum, row)
	if err != nil {
		return "", fmt.Errorf("cell (%s,%d): %w", col, row, err)
	}
	return ref, nil
}

// sheetMerges snapshots merge regions per sheet on first access. This code
// never adds or removes merges, so a load-time snapshot stays valid.
func (w *Workbook) sheetMerges(sheet string) ([]mergeRegion, error) {
	if regions, ok := w.merges[sheet]; ok {
		return regions, nil
	}
	cells, err := w.file.GetMergeCells(sheet)
	if err != nil {
		return nil, fmt.Errorf("merge cells for %s: %w", sheet, err)
	}
	regions := make([]mergeRegion, 0, len(cells))
	for _, cell := range cells {
		start := cell.GetStartAxis()
		end := cell.GetEndAxis()
		minCol, minRow, err := excelize.CellNameToCoordinates(start)
		if err != nil {
			return nil, fmt.Errorf("merge start %q: %w", start, err)
		}
		maxCol, maxRow, err := excelize.CellNameToCoordinates(end)
		if err != nil {
			return nil, fmt.Errorf("merge end %q: %w", end, err)
		}
		if minCol > maxCol {
			minCol, maxCol = maxCol, minCol
		}
		if minRow > maxRow {
			minRow, maxRow = maxRow, minRow
		}
		regions = append(regions, mergeRegion{
			minCol: minCol, minRow: minRow,
			maxCol: maxCol, maxRow: maxRow,
			anchor: start,
		})
	}
	w.merges[sheet] = regions
	return regions, nil
}

func lockPath(path string) string {
	return path + ".lock"
}

// ownerMarkerExists reports whether Excel's owner file (~$name.xlsx) is
// present next to the workbook, which means a desktop Excel instance holds it.
func ownerMarkerExists(path string) bool {
	dir := filepath.Dir(path)
	marker := filepath.Join(dir, "~$"+filepath.Base(path))
	_, err := os.Stat(marker)
	return err == nil
}

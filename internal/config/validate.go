package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLedger(); err != nil {
		return err
	}
	if err := c.validateChecklist(); err != nil {
		return err
	}
	if err := c.validateAnnotations(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLedger() error {
	if c.Ledger.SheetName == "" {
		return errors.New("ledger.sheet_name must be set")
	}
	if c.Ledger.FirstDataRow < 1 {
		return errors.New("ledger.first_data_row must be at least 1")
	}
	if c.Ledger.SerialScanCap <= c.Ledger.FirstDataRow {
		return errors.New("ledger.serial_scan_cap must exceed ledger.first_data_row")
	}
	cols := map[string]string{
		"ledger.columns.serial":           c.Ledger.Columns.Serial,
		"ledger.columns.reference":        c.Ledger.Columns.Reference,
		"ledger.columns.description":      c.Ledger.Columns.Description,
		"ledger.columns.category":         c.Ledger.Columns.Category,
		"ledger.columns.checked_by":       c.Ledger.Columns.CheckedBy,
		"ledger.columns.checked_date":     c.Ledger.Columns.CheckedDate,
		"ledger.columns.implemented_by":   c.Ledger.Columns.ImplementedBy,
		"ledger.columns.implemented_date": c.Ledger.Columns.ImplementedDate,
		"ledger.columns.closed_by":        c.Ledger.Columns.ClosedBy,
		"ledger.columns.closed_date":      c.Ledger.Columns.ClosedDate,
	}
	return validateColumns(cols)
}

func (c *Config) validateChecklist() error {
	if c.Checklist.SheetName == "" {
		return errors.New("checklist.sheet_name must be set")
	}
	if c.Checklist.FirstDataRow < 1 {
		return errors.New("checklist.first_data_row must be at least 1")
	}
	cols := map[string]string{
		"checklist.columns.reference":     c.Checklist.Columns.Reference,
		"checklist.columns.description":   c.Checklist.Columns.Description,
		"checklist.columns.status":        c.Checklist.Columns.Status,
		"checklist.columns.disposed_by":   c.Checklist.Columns.DisposedBy,
		"checklist.columns.disposed_date": c.Checklist.Columns.DisposedDate,
		"checklist.columns.remark":        c.Checklist.Columns.Remark,
	}
	return validateColumns(cols)
}

func (c *Config) validateAnnotations() error {
	if c.Annotations.UndoDepth < 1 {
		return errors.New("annotations.undo_depth must be at least 1")
	}
	if strings.TrimSpace(c.Annotations.MarkColor) == "" {
		return errors.New("annotations.mark_color must be set")
	}
	if strings.TrimSpace(c.Annotations.ResolvedColor) == "" {
		return errors.New("annotations.resolved_color must be set")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}

func validateColumns(cols map[string]string) error {
	for key, value := range cols {
		value = strings.TrimSpace(value)
		if value == "" {
			return fmt.Errorf("%s must be set", key)
		}
		for _, r := range value {
			if r < 'A' || r > 'Z' {
				return fmt.Errorf("%s must be an uppercase column letter, got %q", key, value)
			}
		}
	}
	return nil
}

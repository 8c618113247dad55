package config

const (
	defaultLedgerDir   = "~/.local/share/punchlist/ledgers"
	defaultSessionDir  = "~/.local/share/punchlist/sessions"
	defaultDrawingDir  = "~/.local/share/punchlist/drawings"
	defaultLogDir      = "~/.local/share/punchlist/logs"
	defaultDashboardDB = "~/.local/share/punchlist/dashboard.db"

	defaultLedgerSheet = "PunchList"
	// The verification-variant tool starts data at row 9; the direct-closure
	// variant used row 8. Both remain supported through configuration.
	defaultLedgerFirstDataRow = 9
	defaultSerialScanCap      = 5000

	defaultChecklistSheet        = "Checklist"
	defaultChecklistFirstDataRow = 6

	defaultUndoDepth     = 50
	defaultMarkColor     = "red"
	defaultResolvedColor = "green"

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LedgerDir:   defaultLedgerDir,
			SessionDir:  defaultSessionDir,
			DrawingDir:  defaultDrawingDir,
			LogDir:      defaultLogDir,
			DashboardDB: defaultDashboardDB,
		},
		Ledger: LedgerLayout{
			SheetName:     defaultLedgerSheet,
			FirstDataRow:  defaultLedgerFirstDataRow,
			SerialScanCap: defaultSerialScanCap,
			Columns: LedgerColumns{
				Serial:          "A",
				Reference:       "B",
				Description:     "C",
				Category:        "D",
				CheckedBy:       "E",
				CheckedDate:     "F",
				ImplementedBy:   "G",
				ImplementedDate: "H",
				ClosedBy:        "I",
				ClosedDate:      "J",
			},
		},
		Checklist: ChecklistLayout{
			SheetName:    defaultChecklistSheet,
			FirstDataRow: defaultChecklistFirstDataRow,
			Columns: ChecklistColumns{
				Reference:    "A",
				Description:  "B",
				Status:       "C",
				DisposedBy:   "D",
				DisposedDate: "E",
				Remark:       "F",
			},
		},
		Annotations: Annotations{
			UndoDepth:     defaultUndoDepth,
			MarkColor:     defaultMarkColor,
			ResolvedColor: defaultResolvedColor,
		},
		Workflow: Workflow{
			RequireImplementedBeforeClose: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

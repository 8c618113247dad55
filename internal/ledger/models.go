package ledger

import "strings"

// DateLayout is the cell format for every date column in the ledger.
const DateLayout = "2006-01-02"

// Punch is one defect row in the ledger. Identity is (cabinet, serial); the
// serial is assigned at creation, strictly increasing, and never reused.
type Punch struct {
	Serial          int
	Row             int
	Reference       string
	Description     string
	Category        string
	CheckedBy       string
	CheckedDate     string
	ImplementedBy   string
	ImplementedDate string
	ClosedBy        string
	ClosedDate      string
}

// Implemented reports whether production has marked the punch implemented.
func (p Punch) Implemented() bool {
	return strings.TrimSpace(p.ImplementedBy) != ""
}

// Closed reports whether quality has closed the punch.
func (p Punch) Closed() bool {
	return strings.TrimSpace(p.ClosedBy) != ""
}

// State returns the punch sub-state: open, implemented, or closed. The
// sub-state machine is monotonic; closing never clears implementation fields.
func (p Punch) State() string {
	switch {
	case p.Closed():
		return "closed"
	case p.Implemented():
		return "implemented"
	default:
		return "open"
	}
}

// Fields carries the caller-supplied values for a new punch.
type Fields struct {
	Reference   string
	Description string
	Category    string
}

// Counters are the derived per-cabinet punch counts. They are always
// recomputed from the ledger and never treated as authoritative on their own.
type Counters struct {
	Total       int
	Open        int
	Implemented int
	Closed      int
}

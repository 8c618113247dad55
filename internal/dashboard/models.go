package dashboard

import "time"

// Cabinet is the aggregate record the supervisory view reads. Counters are
// derived from the punch ledger on every refresh and are never authoritative
// on their own.
type Cabinet struct {
	CabinetID          string
	ProjectName        string
	SalesOrderNo       string
	StorageLocation    string
	Status             string
	TotalPages         int
	AnnotatedPages     int
	TotalPunches       int
	OpenPunches        int
	ImplementedPunches int
	ClosedPunches      int
	LedgerPath         string
	SessionPath        string
	DrawingPath        string
	CreatedDate        time.Time
	LastUpdated        time.Time
}

// Handover statuses. A handover is active until completed.
const (
	HandoverPending    = "pending"
	HandoverInProgress = "in_progress"
	HandoverCompleted  = "completed"
)

// Handback statuses. A handback is active until closed.
const (
	HandbackPending  = "pending"
	HandbackVerified = "verified"
	HandbackClosed   = "closed"
)

// Handover records a transfer of a cabinet from quality to production.
type Handover struct {
	ID          string
	CabinetID   string
	Status      string
	RequestedBy string
	RequestedAt time.Time
	AcceptedBy  string
	AcceptedAt  *time.Time
	CompletedBy string
	CompletedAt *time.Time
}

// Handback records the return transfer from production to quality.
type Handback struct {
	ID          string
	CabinetID   string
	Status      string
	RequestedBy string
	RequestedAt time.Time
	VerifiedBy  string
	VerifiedAt  *time.Time
	ClosedBy    string
	ClosedAt    *time.Time
}

// Seed carries the attributes used when a counters refresh has to create the
// aggregate record lazily.
type Seed struct {
	ProjectName     string
	SalesOrderNo    string
	StorageLocation string
	Status          string
	LedgerPath      string
	SessionPath     string
	DrawingPath     string
}

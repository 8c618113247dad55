package workflow

import "strings"

// Status represents the cabinet-level workflow state stored in the aggregate
// record. Phase names seeded from checklist inference are pre-handover
// sub-states that share the starting rank with quality_inspection.
type Status string

const (
	StatusQualityInspection    Status = "quality_inspection"
	StatusHandedToProduction   Status = "handed_to_production"
	StatusInProgress           Status = "in_progress"
	StatusBeingClosedByQuality Status = "being_closed_by_quality"
	StatusClosed               Status = "closed"

	PhaseProjectInfo        Status = "project_info"
	PhaseMechanicalAssembly Status = "mechanical_assembly"
	PhaseComponentAssembly  Status = "component_assembly"
	PhaseWiring             Status = "wiring"
	PhaseTesting            Status = "testing"
)

// statusRanks orders statuses so no transition may move a cabinet backward.
var statusRanks = map[Status]int{
	StatusQualityInspection:    0,
	PhaseProjectInfo:           0,
	PhaseMechanicalAssembly:    0,
	PhaseComponentAssembly:     0,
	PhaseWiring:                0,
	PhaseTesting:               0,
	StatusHandedToProduction:   1,
	StatusInProgress:           2,
	StatusBeingClosedByQuality: 3,
	StatusClosed:               4,
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusRanks[normalized]
	return normalized, ok
}

// CanTransition reports whether a cabinet may move from one status to
// another. Closed is terminal and nothing moves backward or sideways.
func CanTransition(from, to Status) bool {
	fromRank, ok := statusRanks[from]
	if !ok {
		// Unknown current status: permit the move rather than stranding the
		// cabinet; the rank rule re-applies from the new status onward.
		return true
	}
	toRank, ok := statusRanks[to]
	if !ok {
		return false
	}
	if from == StatusClosed {
		return false
	}
	return toRank > fromRank
}

// IsTerminal reports whether the status ends the workflow.
func IsTerminal(status Status) bool {
	return status == StatusClosed
}

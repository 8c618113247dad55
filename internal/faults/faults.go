package faults

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrResourceLocked indicates a backing file is exclusively held by another
	// program. Recoverable; the caller retries and no state was mutated.
	ErrResourceLocked = errors.New("resource locked")
	// ErrMissingResource indicates a ledger, session, or drawing path does not
	// exist or was moved.
	ErrMissingResource = errors.New("missing resource")
	// ErrValidation indicates input was rejected before any write.
	ErrValidation = errors.New("validation error")
	// ErrGateViolation indicates a workflow guard rejected a transition.
	ErrGateViolation = errors.New("gate violation")
	// ErrSequenceCorruption indicates the serial scan exceeded the safety cap
	// without finding an empty slot. Fatal to the operation.
	ErrSequenceCorruption = errors.New("sequence corruption")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrValidation
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// GateError reports a failed workflow guard together with every offending item
// so the calling tool can present the full list, not just a boolean.
type GateError struct {
	Operation string
	Reason    string
	Items     []string
}

func (e *GateError) Error() string {
	if len(e.Items) == 0 {
		return fmt.Sprintf("%s: %s", e.Operation, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", e.Operation, e.Reason, strings.Join(e.Items, ", "))
}

func (e *GateError) Unwrap() error { return ErrGateViolation }

// NewGateError constructs a GateError with a defensive copy of the items.
func NewGateError(operation, reason string, items []string) *GateError {
	cp := make([]string, len(items))
	copy(cp, items)
	return &GateError{Operation: operation, Reason: reason, Items: cp}
}

// GateItems extracts the offending items when err is a gate violation.
func GateItems(err error) ([]string, bool) {
	var gate *GateError
	if errors.As(err, &gate) {
		return gate.Items, true
	}
	return nil, false
}

// IsRecoverable reports whether the caller may simply retry the operation.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrResourceLocked)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "failure"
	}
	return strings.Join(parts, ": ")
}

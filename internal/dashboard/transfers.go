package dashboard

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"punchlist/internal/faults"
)

// CreateHandover appends a pending handover record. At most one non-completed
// handover may exist per cabinet.
func (s *Store) CreateHandover(ctx context.Context, cabinetID, actor string) (*Handover, error) {
	active, err := s.ActiveHandover(ctx, cabinetID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, faults.Wrap(faults.ErrValidation, "dashboard", "create handover",
			fmt.Sprintf("cabinet %s already has an active handover", cabinetID), nil)
	}

	record := &Handover{
		ID:          uuid.NewString(),
		CabinetID:   cabinetID,
		Status:      HandoverPending,
		RequestedBy: actor,
		RequestedAt: time.Now().UTC(),
	}
	if err := s.execWithRetry(ctx,
		`INSERT INTO handovers (id, cabinet_id, status, requested_by, requested_at) VALUES (?, ?, ?, ?, ?)`,
		record.ID,
		record.CabinetID,
		record.Status,
		record.RequestedBy,
		record.RequestedAt.Format(time.RFC3339Nano),
	); err != nil {
		return nil, fmt.Errorf("insert handover: %w", err)
	}
	return record, nil
}

// AcceptHandover moves the active handover to in_progress.
func (s *Store) AcceptHandover(ctx context.Context, cabinetID, actor string) (*Handover, error) {
	active, err := s.ActiveHandover(ctx, cabinetID)
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, faults.Wrap(faults.ErrValidation, "dashboard", "accept handover",
			fmt.Sprintf("cabinet %s has no active handover", cabinetID), nil)
	}

	now := time.Now().UTC()
	if err := s.execWithRetry(ctx,
		`UPDATE handovers SET status = ?, accepted_by = ?, accepted_at = ? WHERE id = ?`,
		HandoverInProgress,
		actor,
		now.Format(time.RFC3339Nano),
		active.ID,
	); err != nil {
		return nil, fmt.Errorf("accept handover: %w", err)
	}
	active.Status = HandoverInProgress
	active.AcceptedBy = actor
	active.AcceptedAt = &now
	return active, nil
}

// CompleteHandover closes out the active handover record.
func (s *Store) CompleteHandover(ctx context.Context, cabinetID, actor string) error {
	active, err := s.ActiveHandover(ctx, cabinetID)
	if err != nil {
		return err
	}
	if active == nil {
		return nil
	}
	now := time.Now().UTC()
	if err := s.execWithRetry(ctx,
		`UPDATE handovers SET status = ?, completed_by = ?, completed_at = ? WHERE id = ?`,
		HandoverCompleted,
		actor,
		now.Format(time.RFC3339Nano),
		active.ID,
	); err != nil {
		return fmt.Errorf("complete handover: %w", err)
	}
	return nil
}

// ActiveHandover returns the latest non-completed handover, or nil.
func (s *Store) ActiveHandover(ctx context.Context, cabinetID string) (*Handover, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, cabinet_id, status, requested_by, requested_at, accepted_by, accepted_at, completed_by, completed_at
         FROM handovers WHERE cabinet_id = ? AND status != ? ORDER BY requested_at DESC LIMIT 1`,
		cabinetID, HandoverCompleted)
	record, err := scanHandover(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("active handover: %w", err)
	}
	return record, nil
}

// CreateHandback appends a pending handback record. At most one non-closed
// handback may exist per cabinet.
func (s *Store) CreateHandback(ctx context.Context, cabinetID, actor string) (*Handback, error) {
	active, err := s.ActiveHandback(ctx, cabinetID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, faults.Wrap(faults.ErrValidation, "dashboard", "create handback",
			fmt.Sprintf("cabinet %s already has an active handback", cabinetID), nil)
	}

	record := &Handback{
		ID:          uuid.NewString(),
		CabinetID:   cabinetID,
		Status:      HandbackPending,
		RequestedBy: actor,
		RequestedAt: time.Now().UTC(),
	}
	if err := s.execWithRetry(ctx,
		`INSERT INTO handbacks (id, cabinet_id, status, requested_by, requested_at) VALUES (?, ?, ?, ?, ?)`,
		record.ID,
		record.CabinetID,
		record.Status,
		record.RequestedBy,
		record.RequestedAt.Format(time.RFC3339Nano),
	); err != nil {
		return nil, fmt.Errorf("insert handback: %w", err)
	}
	return record, nil
}

// VerifyHandback marks the active handback verified.
func (s *Store) VerifyHandback(ctx context.Context, cabinetID, actor string) error {
	active, err := s.ActiveHandback(ctx, cabinetID)
	if err != nil {
		return err
	}
	if active == nil {
		return faults.Wrap(faults.ErrValidation, "dashboard", "verify handback",
			fmt.Sprintf("cabinet %s has no active handback", cabinetID), nil)
	}
	now := time.Now().UTC()
	if err := s.execWithRetry(ctx,
		`UPDATE handbacks SET status = ?, verified_by = ?, verified_at = ? WHERE id = ?`,
		HandbackVerified,
		actor,
		now.Format(time.RFC3339Nano),
		active.ID,
	); err != nil {
		return fmt.Errorf("verify handback: %w", err)
	}
	return nil
}

// CloseHandback closes out the active handback record.
func (s *Store) CloseHandback(ctx context.Context, cabinetID, actor string) error {
	active, err := s.ActiveHandback(ctx, cabinetID)
	if err != nil {
		return err
	}
	if active == nil {
		return nil
	}
	now := time.Now().UTC()
	if err := s.execWithRetry(ctx,
		`UPDATE handbacks SET status = ?, closed_by = ?, closed_at = ? WHERE id = ?`,
		HandbackClosed,
		actor,
		now.Format(time.RFC3339Nano),
		active.ID,
	); err != nil {
		return fmt.Errorf("close handback: %w", err)
	}
	return nil
}

// ActiveHandback returns the latest non-closed handback, or nil.
func (s *Store) ActiveHandback(ctx context.Context, cabinetID string) (*Handback, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, cabinet_id, status, requested_by, requested_at, verified_by, verified_at, closed_by, closed_at
         FROM handbacks WHERE cabinet_id = ? AND status != ? ORDER BY requested_at DESC LIMIT 1`,
		cabinetID, HandbackClosed)
	record, err := scanHandback(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("active handback: %w", err)
	}
	return record, nil
}

func scanHandover(scanner interface{ Scan(dest ...any) error }) (*Handover, error) {
	var (
		record       Handover
		requestedRaw string
		acceptedBy   sql.NullString
		acceptedRaw  sql.NullString
		completedBy  sql.NullString
		completedRaw sql.NullString
	)
	if err := scanner.Scan(
		&record.ID,
		&record.CabinetID,
		&record.Status,
		&record.RequestedBy,
		&requestedRaw,
		&acceptedBy,
		&acceptedRaw,
		&completedBy,
		&completedRaw,
	); err != nil {
		return nil, err
	}
	if requested, err := parseTimeString(requestedRaw); err == nil {
		record.RequestedAt = requested
	}
	record.AcceptedBy = acceptedBy.String
	if acceptedRaw.Valid {
		if accepted, err := parseTimeString(acceptedRaw.String); err == nil {
			record.AcceptedAt = &accepted
		}
	}
	record.CompletedBy = completedBy.String
	if completedRaw.Valid {
		if completed, err := parseTimeString(completedRaw.String); err == nil {
			record.CompletedAt = &completed
		}
	}
	return &record, nil
}

func scanHandback(scanner interface{ Scan(dest ...any) error }) (*Handback, error) {
	var (
		record       Handback
		requestedRaw string
		verifiedBy   sql.NullString
		verifiedRaw  sql.NullString
		closedBy     sql.NullString
		closedRaw    sql.NullString
	)
	if err := scanner.Scan(
		&record.ID,
		&record.CabinetID,
		&record.Status,
		&record.RequestedBy,
		&requestedRaw,
		&verifiedBy,
		&verifiedRaw,
		&closedBy,
		&closedRaw,
	); err != nil {
		return nil, err
	}
	if requested, err := parseTimeString(requestedRaw); err == nil {
		record.RequestedAt = requested
	}
	record.VerifiedBy = verifiedBy.String
	if verifiedRaw.Valid {
		if verified, err := parseTimeString(verifiedRaw.String); err == nil {
			record.VerifiedAt = &verified
		}
	}
	record.ClosedBy = closedBy.String
	if closedRaw.Valid {
		if closed, err := parseTimeString(closedRaw.String); err == nil {
			record.ClosedAt = &closed
		}
	}
	return &record, nil
}

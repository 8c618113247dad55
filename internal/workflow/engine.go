package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"punchlist/internal/checklist"
	"punchlist/internal/config"
	"punchlist/internal/dashboard"
	"punchlist/internal/faults"
	"punchlist/internal/ledger"
	"punchlist/internal/logging"
	"punchlist/internal/session"
	"punchlist/internal/sheet"
)

// Engine drives the cabinet workflow. All coordination between the quality
// tool, the production tool, and the dashboard happens through the on-disk
// stores; the engine holds no cross-process state of its own.
type Engine struct {
	cfg      *config.Config
	store    *dashboard.Store
	sessions *session.Store
	logger   *slog.Logger
}

// New constructs an engine over the shared stores.
func New(cfg *config.Config, store *dashboard.Store, sessions *session.Store, logger *slog.Logger) *Engine {
	return &Engine{
		cfg:      cfg,
		store:    store,
		sessions: sessions,
		logger:   logging.WithComponent(logger, "workflow"),
	}
}

// CreatePunch appends a punch to the cabinet's ledger, flags the linked
// checklist item NOK, records the reference in the session, and refreshes the
// dashboard counters.
func (e *Engine) CreatePunch(ctx context.Context, cabinetID string, fields ledger.Fields, actor string) (*ledger.Punch, error) {
	wb, err := sheet.Open(e.cfg.LedgerPath(cabinetID))
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	led, err := ledger.New(wb, e.cfg.Ledger)
	if err != nil {
		return nil, err
	}
	punch, err := led.CreatePunch(fields, actor)
	if err != nil {
		return nil, err
	}

	if wb.HasSheet(e.cfg.Checklist.SheetName) {
		gate, err := checklist.New(wb, e.cfg.Checklist)
		if err == nil {
			if err := gate.MarkNOK(punch.Reference, actor); err != nil {
				e.logger.WarnContext(ctx, "checklist NOK propagation failed",
					"cabinet", cabinetID, "reference", punch.Reference, "error", err)
			}
		}
	}

	if sess, err := e.sessions.LoadOrNew(cabinetID); err == nil {
		sess.AddUsedReference(punch.Reference)
		if punch.Serial > sess.SerialCounter {
			sess.SerialCounter = punch.Serial
		}
		if err := e.sessions.Save(sess); err != nil {
			e.logger.WarnContext(ctx, "session update failed", "cabinet", cabinetID, "error", err)
		}
	}

	if err := e.refreshFromLedger(ctx, cabinetID, led, wb); err != nil {
		return nil, err
	}
	e.logger.InfoContext(ctx, "punch created",
		"cabinet", cabinetID, "serial", punch.Serial, "reference", punch.Reference, "actor", actor)
	return punch, nil
}

// MarkImplemented stamps a punch implemented on behalf of production.
func (e *Engine) MarkImplemented(ctx context.Context, cabinetID string, serial int, actor, remark string) error {
	wb, err := sheet.Open(e.cfg.LedgerPath(cabinetID))
	if err != nil {
		return err
	}
	defer wb.Close()

	led, err := ledger.New(wb, e.cfg.Ledger)
	if err != nil {
		return err
	}
	punch, err := led.FindBySerial(serial)
	if err != nil {
		return err
	}
	if punch == nil {
		return faults.Wrap(faults.ErrValidation, "workflow", "mark implemented",
			fmt.Sprintf("cabinet %s has no punch %d", cabinetID, serial), nil)
	}
	if err := led.MarkImplemented(punch.Row, actor, remark); err != nil {
		return err
	}
	if err := e.refreshFromLedger(ctx, cabinetID, led, wb); err != nil {
		return err
	}
	e.logger.InfoContext(ctx, "punch implemented", "cabinet", cabinetID, "serial", serial, "actor", actor)
	return nil
}

// ClosePunch closes a punch and flips its linked annotation to the resolved
// state. Under the verification variant a punch must be implemented first.
func (e *Engine) ClosePunch(ctx context.Context, cabinetID string, serial int, actor string) error {
	wb, err := sheet.Open(e.cfg.LedgerPath(cabinetID))
	if err != nil {
		return err
	}
	defer wb.Close()

	led, err := ledger.New(wb, e.cfg.Ledger)
	if err != nil {
		return err
	}
	punch, err := led.FindBySerial(serial)
	if err != nil {
		return err
	}
	if punch == nil {
		return faults.Wrap(faults.ErrValidation, "workflow", "close punch",
			fmt.Sprintf("cabinet %s has no punch %d", cabinetID, serial), nil)
	}
	if e.cfg.Workflow.RequireImplementedBeforeClose && !punch.Implemented() {
		return faults.NewGateError("close punch", "punch not implemented",
			[]string{punchLabel(*punch)})
	}
	if err := led.MarkClosed(punch.Row, actor); err != nil {
		return err
	}

	if sess, err := e.sessions.Load(cabinetID); err == nil {
		if sess.ApplyClosure(serial, e.cfg.Annotations.ResolvedColor) {
			if err := e.sessions.Save(sess); err != nil {
				e.logger.WarnContext(ctx, "session closure update failed", "cabinet", cabinetID, "error", err)
			}
		}
	} else if !errors.Is(err, faults.ErrMissingResource) {
		e.logger.WarnContext(ctx, "session load failed", "cabinet", cabinetID, "error", err)
	}

	if err := e.refreshFromLedger(ctx, cabinetID, led, wb); err != nil {
		return err
	}
	e.logger.InfoContext(ctx, "punch closed", "cabinet", cabinetID, "serial", serial, "actor", actor)
	return nil
}

// HandoverToProduction transfers the cabinet to production. Open punches
// raise a warning gate the operator may override.
func (e *Engine) HandoverToProduction(ctx context.Context, cabinetID, actor string, overrideOpenPunches bool) error {
	wb, err := sheet.Open(e.cfg.LedgerPath(cabinetID))
	if err != nil {
		return err
	}
	defer wb.Close()

	led, err := ledger.New(wb, e.cfg.Ledger)
	if err != nil {
		return err
	}
	open, err := led.ListOpen()
	if err != nil {
		return err
	}
	if len(open) > 0 && !overrideOpenPunches {
		return faults.NewGateError("handover", "open punches remain", punchLabels(open))
	}

	counters, err := led.Count()
	if err != nil {
		return err
	}
	if err := e.guardTransition(ctx, cabinetID, StatusHandedToProduction); err != nil {
		return err
	}
	if _, err := e.store.CreateHandover(ctx, cabinetID, actor); err != nil {
		return err
	}
	if err := e.applyTransition(ctx, cabinetID, StatusHandedToProduction, counters, wb); err != nil {
		return err
	}
	e.logger.InfoContext(ctx, "cabinet handed to production",
		"cabinet", cabinetID, "actor", actor, "open_punches", len(open))
	return nil
}

// AcceptIntoProduction acknowledges the transfer on the production side.
func (e *Engine) AcceptIntoProduction(ctx context.Context, cabinetID, actor string) error {
	if err := e.guardTransition(ctx, cabinetID, StatusInProgress); err != nil {
		return err
	}
	if _, err := e.store.AcceptHandover(ctx, cabinetID, actor); err != nil {
		return err
	}
	counters, err := e.currentCounters(cabinetID)
	if err != nil {
		return err
	}
	if err := e.applyTransition(ctx, cabinetID, StatusInProgress, counters, nil); err != nil {
		return err
	}
	e.logger.InfoContext(ctx, "cabinet accepted into production", "cabinet", cabinetID, "actor", actor)
	return nil
}

// HandbackToQuality returns the cabinet for final closure. Every open punch
// must be implemented; violators are enumerated, never silently skipped.
func (e *Engine) HandbackToQuality(ctx context.Context, cabinetID, actor string) error {
	wb, err := sheet.Open(e.cfg.LedgerPath(cabinetID))
	if err != nil {
		return err
	}
	defer wb.Close()

	led, err := ledger.New(wb, e.cfg.Ledger)
	if err != nil {
		return err
	}
	open, err := led.ListOpen()
	if err != nil {
		return err
	}
	var unimplemented []ledger.Punch
	for _, punch := range open {
		if !punch.Implemented() {
			unimplemented = append(unimplemented, punch)
		}
	}
	if len(unimplemented) > 0 {
		return faults.NewGateError("handback", "unimplemented punches remain", punchLabels(unimplemented))
	}

	counters, err := led.Count()
	if err != nil {
		return err
	}
	if err := e.guardTransition(ctx, cabinetID, StatusBeingClosedByQuality); err != nil {
		return err
	}
	if _, err := e.store.CreateHandback(ctx, cabinetID, actor); err != nil {
		return err
	}
	if err := e.store.CompleteHandover(ctx, cabinetID, actor); err != nil {
		return err
	}
	if err := e.applyTransition(ctx, cabinetID, StatusBeingClosedByQuality, counters, wb); err != nil {
		return err
	}
	e.logger.InfoContext(ctx, "cabinet handed back to quality", "cabinet", cabinetID, "actor", actor)
	return nil
}

// VerifyAndClose performs the terminal closure. Open punches block it hard;
// checklist incompleteness may be overridden with explicit confirmation.
func (e *Engine) VerifyAndClose(ctx context.Context, cabinetID, actor string, overrideChecklist bool) error {
	wb, err := sheet.Open(e.cfg.LedgerPath(cabinetID))
	if err != nil {
		return err
	}
	defer wb.Close()

	led, err := ledger.New(wb, e.cfg.Ledger)
	if err != nil {
		return err
	}
	open, err := led.ListOpen()
	if err != nil {
		return err
	}
	if len(open) > 0 {
		return faults.NewGateError("verify and close", "open punches remain", punchLabels(open))
	}

	if wb.HasSheet(e.cfg.Checklist.SheetName) {
		gate, err := checklist.New(wb, e.cfg.Checklist)
		if err != nil {
			return err
		}
		complete, offenders, err := gate.IsComplete()
		if err != nil {
			return err
		}
		if !complete && !overrideChecklist {
			return faults.NewGateError("verify and close", "checklist incomplete", offenders)
		}
	}

	counters, err := led.Count()
	if err != nil {
		return err
	}
	if err := e.guardTransition(ctx, cabinetID, StatusClosed); err != nil {
		return err
	}
	if err := e.store.VerifyHandback(ctx, cabinetID, actor); err != nil && !errors.Is(err, faults.ErrValidation) {
		return err
	}
	if err := e.store.CloseHandback(ctx, cabinetID, actor); err != nil {
		return err
	}
	if err := e.applyTransition(ctx, cabinetID, StatusClosed, counters, wb); err != nil {
		return err
	}
	e.logger.InfoContext(ctx, "cabinet closed", "cabinet", cabinetID, "actor", actor)
	return nil
}

// RefreshDashboard recomputes the cabinet's counters from its ledger and
// upserts the aggregate record without touching its status.
func (e *Engine) RefreshDashboard(ctx context.Context, cabinetID string) error {
	wb, err := sheet.Open(e.cfg.LedgerPath(cabinetID))
	if err != nil {
		return err
	}
	defer wb.Close()

	led, err := ledger.New(wb, e.cfg.Ledger)
	if err != nil {
		return err
	}
	return e.refreshFromLedger(ctx, cabinetID, led, wb)
}

func (e *Engine) refreshFromLedger(ctx context.Context, cabinetID string, led *ledger.Ledger, wb *sheet.Workbook) error {
	counters, err := led.Count()
	if err != nil {
		return err
	}
	return e.store.RefreshCounters(ctx, cabinetID, counters, e.seed(ctx, cabinetID, wb))
}

// seed builds the attributes used when the counters refresh creates the
// aggregate record lazily. The initial status comes from checklist phase
// inference when available.
func (e *Engine) seed(ctx context.Context, cabinetID string, wb *sheet.Workbook) dashboard.Seed {
	seed := dashboard.Seed{
		Status:      string(StatusQualityInspection),
		LedgerPath:  e.cfg.LedgerPath(cabinetID),
		SessionPath: e.cfg.SessionPath(cabinetID),
		DrawingPath: e.cfg.DrawingPath(cabinetID),
	}
	if sess, err := e.sessions.Load(cabinetID); err == nil {
		seed.ProjectName = sess.ProjectName
		seed.SalesOrderNo = sess.SalesOrderNo
	}
	if wb != nil && wb.HasSheet(e.cfg.Checklist.SheetName) {
		if gate, err := checklist.New(wb, e.cfg.Checklist); err == nil {
			if phase, ok, err := gate.InferPhase(); err == nil && ok {
				seed.Status = phase
			}
		}
	}
	return seed
}

func (e *Engine) guardTransition(ctx context.Context, cabinetID string, next Status) error {
	cab, err := e.store.GetCabinet(ctx, cabinetID)
	if err != nil {
		return err
	}
	if cab == nil {
		return nil
	}
	current, _ := ParseStatus(cab.Status)
	if current == "" {
		current = Status(strings.TrimSpace(cab.Status))
	}
	if !CanTransition(current, next) {
		return faults.NewGateError("transition", "not allowed",
			[]string{fmt.Sprintf("%s -> %s", cab.Status, next)})
	}
	return nil
}

// applyTransition makes sure the aggregate record exists, then replaces its
// status and counters in a single write.
func (e *Engine) applyTransition(ctx context.Context, cabinetID string, next Status, counters ledger.Counters, wb *sheet.Workbook) error {
	cab, err := e.store.GetCabinet(ctx, cabinetID)
	if err != nil {
		return err
	}
	if cab == nil {
		if err := e.store.RefreshCounters(ctx, cabinetID, counters, e.seed(ctx, cabinetID, wb)); err != nil {
			return err
		}
	}
	return e.store.ApplyTransition(ctx, cabinetID, string(next), counters)
}

// currentCounters recounts the ledger for transitions that do not otherwise
// open the workbook.
func (e *Engine) currentCounters(cabinetID string) (ledger.Counters, error) {
	led, err := ledger.Open(e.cfg.LedgerPath(cabinetID), e.cfg.Ledger)
	if err != nil {
		return ledger.Counters{}, err
	}
	defer led.Close()
	return led.Count()
}

func punchLabel(p ledger.Punch) string {
	description := p.Description
	if len(description) > 40 {
		description = description[:37] + "..."
	}
	return fmt.Sprintf("punch %d (%s)", p.Serial, description)
}

func punchLabels(punches []ledger.Punch) []string {
	labels := make([]string, len(punches))
	for i, p := range punches {
		labels[i] = punchLabel(p)
	}
	return labels
}

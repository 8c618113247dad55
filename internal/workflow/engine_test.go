package workflow_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"punchlist/internal/checklist"
	"punchlist/internal/config"
	"punchlist/internal/dashboard"
	"punchlist/internal/faults"
	"punchlist/internal/ledger"
	"punchlist/internal/session"
	"punchlist/internal/testsupport"
	"punchlist/internal/workflow"
)

type harness struct {
	cfg      *config.Config
	store    *dashboard.Store
	sessions *session.Store
	engine   *workflow.Engine
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenDashboard(t, cfg)
	sessions := session.NewStore(cfg.Paths.SessionDir)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &harness{
		cfg:      cfg,
		store:    store,
		sessions: sessions,
		engine:   workflow.New(cfg, store, sessions, logger),
	}
}

func (h *harness) mustCreatePunch(t *testing.T, cabinetID, reference, description string) *ledger.Punch {
	t.Helper()
	punch, err := h.engine.CreatePunch(context.Background(), cabinetID,
		ledger.Fields{Reference: reference, Description: description}, "inspector")
	if err != nil {
		t.Fatalf("create punch: %v", err)
	}
	return punch
}

func (h *harness) status(t *testing.T, cabinetID string) string {
	t.Helper()
	cab, err := h.store.GetCabinet(context.Background(), cabinetID)
	if err != nil {
		t.Fatalf("get cabinet: %v", err)
	}
	if cab == nil {
		t.Fatalf("cabinet %s not tracked", cabinetID)
	}
	return cab.Status
}

func TestCreatePunchPropagates(t *testing.T) {
	h := newHarness(t)
	testsupport.NewLedgerWorkbook(t, h.cfg, "CAB-400",
		testsupport.ChecklistRow{Reference: "12", Description: "busbar torque"},
		testsupport.ChecklistRow{Reference: "13", Description: "shroud fit"},
	)

	punch := h.mustCreatePunch(t, "CAB-400", "12", "busbar loose at feeder")
	if punch.Serial != 1 {
		t.Fatalf("serial = %d, want 1", punch.Serial)
	}

	// Creating the punch flips checklist item 12 to NOK.
	gate, err := checklist.Open(h.cfg.LedgerPath("CAB-400"), h.cfg.Checklist)
	if err != nil {
		t.Fatalf("open checklist: %v", err)
	}
	items, err := gate.Items()
	if closeErr := gate.Close(); closeErr != nil {
		t.Fatalf("close checklist: %v", closeErr)
	}
	if err != nil {
		t.Fatalf("checklist items: %v", err)
	}
	if items[0].Status != checklist.StatusNOK {
		t.Fatalf("reference 12 status = %q, want NOK", items[0].Status)
	}
	if items[1].Status != "" {
		t.Fatalf("reference 13 disturbed: %+v", items[1])
	}

	sess, err := h.sessions.Load("CAB-400")
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if len(sess.UsedReferences) != 1 || sess.UsedReferences[0] != "12" {
		t.Fatalf("used references = %v", sess.UsedReferences)
	}
	if sess.SerialCounter != 1 {
		t.Fatalf("serial counter = %d", sess.SerialCounter)
	}

	cab, err := h.store.GetCabinet(context.Background(), "CAB-400")
	if err != nil {
		t.Fatalf("get cabinet: %v", err)
	}
	if cab == nil || cab.TotalPunches != 1 || cab.OpenPunches != 1 {
		t.Fatalf("dashboard record = %+v", cab)
	}
}

func TestClosePunchRequiresImplementation(t *testing.T) {
	h := newHarness(t)
	testsupport.NewLedgerWorkbook(t, h.cfg, "CAB-401")
	ctx := context.Background()

	punch := h.mustCreatePunch(t, "CAB-401", "5", "cable tag missing")

	err := h.engine.ClosePunch(ctx, "CAB-401", punch.Serial, "inspector")
	if !errors.Is(err, faults.ErrGateViolation) {
		t.Fatalf("expected gate violation, got %v", err)
	}

	if err := h.engine.MarkImplemented(ctx, "CAB-401", punch.Serial, "fitter", ""); err != nil {
		t.Fatalf("mark implemented: %v", err)
	}
	if err := h.engine.ClosePunch(ctx, "CAB-401", punch.Serial, "inspector"); err != nil {
		t.Fatalf("close punch: %v", err)
	}
}

func TestClosePunchDirectVariant(t *testing.T) {
	h := newHarness(t, testsupport.WithDirectClosure())
	testsupport.NewLedgerWorkbook(t, h.cfg, "CAB-402")
	ctx := context.Background()

	punch := h.mustCreatePunch(t, "CAB-402", "5", "label misprint")
	if err := h.engine.ClosePunch(ctx, "CAB-402", punch.Serial, "inspector"); err != nil {
		t.Fatalf("direct close: %v", err)
	}
}

func TestClosePunchResolvesAnnotation(t *testing.T) {
	h := newHarness(t)
	testsupport.NewLedgerWorkbook(t, h.cfg, "CAB-403")
	ctx := context.Background()

	punch := h.mustCreatePunch(t, "CAB-403", "5", "scratched door")

	sess, err := h.sessions.Load("CAB-403")
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	sess.AddAnnotation(session.Mark{PageIndex: 0, Color: h.cfg.Annotations.MarkColor, LinkedSerial: punch.Serial})
	if err := h.sessions.Save(sess); err != nil {
		t.Fatalf("save session: %v", err)
	}

	if err := h.engine.MarkImplemented(ctx, "CAB-403", punch.Serial, "fitter", ""); err != nil {
		t.Fatalf("mark implemented: %v", err)
	}
	if err := h.engine.ClosePunch(ctx, "CAB-403", punch.Serial, "inspector"); err != nil {
		t.Fatalf("close punch: %v", err)
	}

	sess, err = h.sessions.Load("CAB-403")
	if err != nil {
		t.Fatalf("reload session: %v", err)
	}
	mark, ok := sess.Annotations[0].(session.Mark)
	if !ok || mark.Color != h.cfg.Annotations.ResolvedColor {
		t.Fatalf("annotation not resolved: %+v", sess.Annotations[0])
	}
}

func TestHandoverGateOnOpenPunches(t *testing.T) {
	h := newHarness(t)
	testsupport.NewLedgerWorkbook(t, h.cfg, "CAB-404")
	ctx := context.Background()

	h.mustCreatePunch(t, "CAB-404", "5", "open defect")

	err := h.engine.HandoverToProduction(ctx, "CAB-404", "qa-lead", false)
	if !errors.Is(err, faults.ErrGateViolation) {
		t.Fatalf("expected gate violation, got %v", err)
	}
	items, ok := faults.GateItems(err)
	if !ok || len(items) != 1 {
		t.Fatalf("gate items = %v", items)
	}

	// The override carries it through with the punch still open.
	if err := h.engine.HandoverToProduction(ctx, "CAB-404", "qa-lead", true); err != nil {
		t.Fatalf("handover with override: %v", err)
	}
	if got := h.status(t, "CAB-404"); got != string(workflow.StatusHandedToProduction) {
		t.Fatalf("status = %q", got)
	}
}

func TestHandbackGateNamesUnimplementedPunches(t *testing.T) {
	h := newHarness(t)
	testsupport.NewLedgerWorkbook(t, h.cfg, "CAB-405")
	ctx := context.Background()

	var serials []int
	for i := 1; i <= 3; i++ {
		punch := h.mustCreatePunch(t, "CAB-405", "7", fmt.Sprintf("defect number %d", i))
		serials = append(serials, punch.Serial)
	}
	if err := h.engine.HandoverToProduction(ctx, "CAB-405", "qa-lead", true); err != nil {
		t.Fatalf("handover: %v", err)
	}
	if err := h.engine.AcceptIntoProduction(ctx, "CAB-405", "foreman"); err != nil {
		t.Fatalf("accept: %v", err)
	}

	// Implement two of three; the handback must name exactly the third.
	if err := h.engine.MarkImplemented(ctx, "CAB-405", serials[0], "fitter", ""); err != nil {
		t.Fatalf("implement first: %v", err)
	}
	if err := h.engine.MarkImplemented(ctx, "CAB-405", serials[1], "fitter", ""); err != nil {
		t.Fatalf("implement second: %v", err)
	}

	err := h.engine.HandbackToQuality(ctx, "CAB-405", "foreman")
	if !errors.Is(err, faults.ErrGateViolation) {
		t.Fatalf("expected gate violation, got %v", err)
	}
	items, ok := faults.GateItems(err)
	if !ok || len(items) != 1 {
		t.Fatalf("gate items = %v", items)
	}
	if !strings.Contains(items[0], fmt.Sprintf("punch %d", serials[2])) {
		t.Fatalf("gate names %q, want punch %d", items[0], serials[2])
	}

	if err := h.engine.MarkImplemented(ctx, "CAB-405", serials[2], "fitter", ""); err != nil {
		t.Fatalf("implement third: %v", err)
	}
	if err := h.engine.HandbackToQuality(ctx, "CAB-405", "foreman"); err != nil {
		t.Fatalf("handback: %v", err)
	}
	if got := h.status(t, "CAB-405"); got != string(workflow.StatusBeingClosedByQuality) {
		t.Fatalf("status = %q", got)
	}

	// The handover record is completed by the handback.
	active, err := h.store.ActiveHandover(ctx, "CAB-405")
	if err != nil {
		t.Fatalf("active handover: %v", err)
	}
	if active != nil {
		t.Fatalf("handover still active: %+v", active)
	}
}

func TestVerifyAndCloseGates(t *testing.T) {
	h := newHarness(t)
	testsupport.NewLedgerWorkbook(t, h.cfg, "CAB-406",
		testsupport.ChecklistRow{Reference: "1", Status: "OK", DisposedBy: "qa"},
		testsupport.ChecklistRow{Reference: "2"},
	)
	ctx := context.Background()

	punch := h.mustCreatePunch(t, "CAB-406", "5", "door gap")
	if err := h.engine.HandoverToProduction(ctx, "CAB-406", "qa-lead", true); err != nil {
		t.Fatalf("handover: %v", err)
	}
	if err := h.engine.AcceptIntoProduction(ctx, "CAB-406", "foreman"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if err := h.engine.MarkImplemented(ctx, "CAB-406", punch.Serial, "fitter", ""); err != nil {
		t.Fatalf("implement: %v", err)
	}
	if err := h.engine.HandbackToQuality(ctx, "CAB-406", "foreman"); err != nil {
		t.Fatalf("handback: %v", err)
	}

	// Open punch blocks closure outright, override or not.
	err := h.engine.VerifyAndClose(ctx, "CAB-406", "qa-lead", true)
	if !errors.Is(err, faults.ErrGateViolation) {
		t.Fatalf("expected open-punch gate, got %v", err)
	}
	if err := h.engine.ClosePunch(ctx, "CAB-406", punch.Serial, "qa-lead"); err != nil {
		t.Fatalf("close punch: %v", err)
	}

	// The pending checklist row gates without override. Creating the punch
	// flagged reference 5 is irrelevant here; reference 2 was never disposed.
	err = h.engine.VerifyAndClose(ctx, "CAB-406", "qa-lead", false)
	if !errors.Is(err, faults.ErrGateViolation) {
		t.Fatalf("expected checklist gate, got %v", err)
	}
	items, ok := faults.GateItems(err)
	if !ok || len(items) == 0 {
		t.Fatalf("gate items = %v", items)
	}
	found := false
	for _, item := range items {
		if item == "2" {
			found = true
		}
	}
	if !found {
		t.Fatalf("checklist gate items %v do not name reference 2", items)
	}

	if err := h.engine.VerifyAndClose(ctx, "CAB-406", "qa-lead", true); err != nil {
		t.Fatalf("verify and close with override: %v", err)
	}
	if got := h.status(t, "CAB-406"); got != string(workflow.StatusClosed) {
		t.Fatalf("status = %q", got)
	}

	// Closed is terminal.
	err = h.engine.HandoverToProduction(ctx, "CAB-406", "qa-lead", true)
	if !errors.Is(err, faults.ErrGateViolation) {
		t.Fatalf("expected terminal gate, got %v", err)
	}
}

func TestNoBackwardTransitions(t *testing.T) {
	h := newHarness(t)
	testsupport.NewLedgerWorkbook(t, h.cfg, "CAB-407")
	ctx := context.Background()

	if err := h.engine.HandoverToProduction(ctx, "CAB-407", "qa-lead", false); err != nil {
		t.Fatalf("handover: %v", err)
	}
	if err := h.engine.AcceptIntoProduction(ctx, "CAB-407", "foreman"); err != nil {
		t.Fatalf("accept: %v", err)
	}

	// Handing over again would move in_progress back to handed_to_production.
	err := h.engine.HandoverToProduction(ctx, "CAB-407", "qa-lead", true)
	if !errors.Is(err, faults.ErrGateViolation) {
		t.Fatalf("expected transition gate, got %v", err)
	}
}

func TestSeedStatusFromChecklistPhase(t *testing.T) {
	h := newHarness(t)
	testsupport.NewLedgerWorkbook(t, h.cfg, "CAB-408",
		testsupport.ChecklistRow{Reference: "15", Status: "OK", DisposedBy: "qa"},
	)
	ctx := context.Background()

	if err := h.engine.RefreshDashboard(ctx, "CAB-408"); err != nil {
		t.Fatalf("refresh dashboard: %v", err)
	}
	if got := h.status(t, "CAB-408"); got != "component_assembly" {
		t.Fatalf("seeded status = %q, want component_assembly", got)
	}
}

func TestRefreshDashboardMissingLedger(t *testing.T) {
	h := newHarness(t)
	err := h.engine.RefreshDashboard(context.Background(), "ABSENT")
	if !errors.Is(err, faults.ErrMissingResource) {
		t.Fatalf("expected missing resource error, got %v", err)
	}
}

func TestMarkImplementedUnknownSerial(t *testing.T) {
	h := newHarness(t)
	testsupport.NewLedgerWorkbook(t, h.cfg, "CAB-409")

	err := h.engine.MarkImplemented(context.Background(), "CAB-409", 99, "fitter", "")
	if !errors.Is(err, faults.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

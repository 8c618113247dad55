package session

import (
	"errors"
	"math"
	"testing"

	"punchlist/internal/faults"
	"punchlist/internal/geometry"
)

const epsilon = 1e-6

func near(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func sampleSession() *Session {
	s := New("CAB-042")
	s.ProjectName = "Substation Alpha"
	s.SalesOrderNo = "SO-9917"
	s.CurrentPage = 3
	s.Zoom = 1.5
	s.SerialCounter = 7
	s.AddUsedReference("12")
	s.AddUsedReference("15")
	s.AddAnnotation(Mark{
		PageIndex:       2,
		Start:           geometry.Point{X: 10.5, Y: 20.25},
		End:             geometry.Point{X: 90, Y: 21},
		Color:           "red",
		LinkedSerial:    5,
		LinkedReference: "12",
	})
	s.AddAnnotation(Rect{
		PageIndex:       4,
		Box:             geometry.BBox{MinX: 1, MinY: 2, MaxX: 30, MaxY: 40},
		Color:           "red",
		LinkedSerial:    6,
		LinkedReference: "15",
	})
	s.AddAnnotation(Freehand{
		PageIndex: 0,
		Points:    []geometry.Point{{X: 0, Y: 0}, {X: 3.3, Y: 4.4}, {X: 7, Y: 2}},
		Color:     "blue",
	})
	s.AddAnnotation(Text{
		PageIndex: 1,
		Anchor:    geometry.Point{X: 55, Y: 66},
		Body:      "check torque values",
	})
	return s
}

func TestStoreRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())
	original := sampleSession()

	if err := store.Save(original); err != nil {
		t.Fatalf("save session: %v", err)
	}
	loaded, err := store.Load("CAB-042")
	if err != nil {
		t.Fatalf("load session: %v", err)
	}

	if loaded.CabinetID != original.CabinetID {
		t.Fatalf("cabinet id = %q, want %q", loaded.CabinetID, original.CabinetID)
	}
	if loaded.ProjectName != original.ProjectName || loaded.SalesOrderNo != original.SalesOrderNo {
		t.Fatalf("project identity changed: %+v", loaded)
	}
	if loaded.CurrentPage != 3 || !near(loaded.Zoom, 1.5) || loaded.SerialCounter != 7 {
		t.Fatalf("view state changed: page=%d zoom=%v counter=%d", loaded.CurrentPage, loaded.Zoom, loaded.SerialCounter)
	}
	if len(loaded.UsedReferences) != 2 || loaded.UsedReferences[0] != "12" || loaded.UsedReferences[1] != "15" {
		t.Fatalf("used references changed: %v", loaded.UsedReferences)
	}
	if len(loaded.Annotations) != len(original.Annotations) {
		t.Fatalf("annotation count = %d, want %d", len(loaded.Annotations), len(original.Annotations))
	}

	mark, ok := loaded.Annotations[0].(Mark)
	if !ok {
		t.Fatalf("annotation 0 decoded as %T", loaded.Annotations[0])
	}
	if mark.LinkedSerial != 5 || mark.LinkedReference != "12" || mark.Color != "red" {
		t.Fatalf("mark fields changed: %+v", mark)
	}
	if !near(mark.Start.X, 10.5) || !near(mark.End.X, 90) {
		t.Fatalf("mark coordinates changed: %+v", mark)
	}

	rect, ok := loaded.Annotations[1].(Rect)
	if !ok {
		t.Fatalf("annotation 1 decoded as %T", loaded.Annotations[1])
	}
	if rect.Resolved || rect.LinkedSerial != 6 || !near(rect.Box.MaxY, 40) {
		t.Fatalf("rect fields changed: %+v", rect)
	}

	freehand, ok := loaded.Annotations[2].(Freehand)
	if !ok {
		t.Fatalf("annotation 2 decoded as %T", loaded.Annotations[2])
	}
	if len(freehand.Points) != 3 || !near(freehand.Points[1].Y, 4.4) {
		t.Fatalf("freehand points changed: %+v", freehand.Points)
	}

	text, ok := loaded.Annotations[3].(Text)
	if !ok {
		t.Fatalf("annotation 3 decoded as %T", loaded.Annotations[3])
	}
	if text.Body != "check torque values" || !near(text.Anchor.X, 55) {
		t.Fatalf("text fields changed: %+v", text)
	}
}

func TestRectResolvedSurvivesRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())
	s := New("CAB-001")
	s.AddAnnotation(Rect{PageIndex: 0, LinkedSerial: 1, Resolved: true})

	if err := store.Save(s); err != nil {
		t.Fatalf("save session: %v", err)
	}
	loaded, err := store.Load("CAB-001")
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	rect, ok := loaded.Annotations[0].(Rect)
	if !ok || !rect.Resolved {
		t.Fatalf("resolved rect did not survive: %+v", loaded.Annotations[0])
	}
	if got := rect.Kind(); got != KindRectResolved {
		t.Fatalf("kind = %q, want %q", got, KindRectResolved)
	}
}

func TestLoadMissingSession(t *testing.T) {
	store := NewStore(t.TempDir())
	if _, err := store.Load("NOPE"); !errors.Is(err, faults.ErrMissingResource) {
		t.Fatalf("expected missing resource error, got %v", err)
	}
	s, err := store.LoadOrNew("NOPE")
	if err != nil {
		t.Fatalf("LoadOrNew: %v", err)
	}
	if s.CabinetID != "NOPE" || !near(s.Zoom, 1.0) {
		t.Fatalf("fresh session malformed: %+v", s)
	}
}

func TestSaveRequiresCabinetID(t *testing.T) {
	store := NewStore(t.TempDir())
	if err := store.Save(&Session{}); !errors.Is(err, faults.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestApplyClosureRecolorsMark(t *testing.T) {
	s := New("CAB-002")
	s.AddAnnotation(Mark{PageIndex: 0, Color: "red", LinkedSerial: 3})

	if !s.ApplyClosure(3, "green") {
		t.Fatal("ApplyClosure found no linked annotation")
	}
	mark := s.Annotations[0].(Mark)
	if mark.Color != "green" {
		t.Fatalf("mark color = %q, want green", mark.Color)
	}
}

func TestApplyClosureResolvesRect(t *testing.T) {
	s := New("CAB-003")
	s.AddAnnotation(Rect{PageIndex: 0, Color: "red", LinkedSerial: 9})

	if !s.ApplyClosure(9, "green") {
		t.Fatal("ApplyClosure found no linked annotation")
	}
	rect := s.Annotations[0].(Rect)
	if !rect.Resolved {
		t.Fatal("rect not resolved")
	}
	if s.ApplyClosure(9, "green") {
		t.Fatal("second closure matched an already-resolved rect")
	}
}

func TestApplyClosureUnknownSerial(t *testing.T) {
	s := New("CAB-004")
	s.AddAnnotation(Mark{LinkedSerial: 1})
	if s.ApplyClosure(99, "green") {
		t.Fatal("ApplyClosure matched an unlinked serial")
	}
}

func TestAddUsedReferenceDeduplicates(t *testing.T) {
	s := New("CAB-005")
	s.AddUsedReference("7")
	s.AddUsedReference(" 7 ")
	s.AddUsedReference("")
	if len(s.UsedReferences) != 1 {
		t.Fatalf("used references = %v, want one entry", s.UsedReferences)
	}
}

func TestUndoAddAndRemove(t *testing.T) {
	s := New("CAB-006")
	undo := NewUndoStack(10)

	idx := s.AddAnnotation(Text{Body: "first"})
	undo.RecordAdd(idx)
	idx = s.AddAnnotation(Text{Body: "second"})
	undo.RecordAdd(idx)

	removed, err := s.RemoveAnnotation(0)
	if err != nil {
		t.Fatalf("remove annotation: %v", err)
	}
	undo.RecordRemove(0, removed)

	// Undo the removal: "first" comes back at index 0.
	if !undo.Undo(s) {
		t.Fatal("undo removal failed")
	}
	if len(s.Annotations) != 2 || s.Annotations[0].(Text).Body != "first" {
		t.Fatalf("removal undo produced %+v", s.Annotations)
	}

	// Undo the second add.
	if !undo.Undo(s) {
		t.Fatal("undo add failed")
	}
	if len(s.Annotations) != 1 || s.Annotations[0].(Text).Body != "first" {
		t.Fatalf("add undo produced %+v", s.Annotations)
	}

	// Undo the first add, then the stack is empty.
	if !undo.Undo(s) {
		t.Fatal("undo first add failed")
	}
	if len(s.Annotations) != 0 {
		t.Fatalf("annotations remain: %+v", s.Annotations)
	}
	if undo.Undo(s) {
		t.Fatal("undo succeeded on empty stack")
	}
}

func TestUndoStackBounded(t *testing.T) {
	s := New("CAB-007")
	undo := NewUndoStack(3)

	for i := 0; i < 5; i++ {
		idx := s.AddAnnotation(Text{Body: "note"})
		undo.RecordAdd(idx)
	}
	if undo.Len() != 3 {
		t.Fatalf("stack length = %d, want 3", undo.Len())
	}
	for undo.Undo(s) {
	}
	// Only the three most recent adds are undoable.
	if len(s.Annotations) != 2 {
		t.Fatalf("annotations remaining = %d, want 2", len(s.Annotations))
	}
}

func TestRemoveAnnotationOutOfRange(t *testing.T) {
	s := New("CAB-008")
	if _, err := s.RemoveAnnotation(0); !errors.Is(err, faults.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

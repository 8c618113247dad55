package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"punchlist/internal/faults"
)

// Session is the per-cabinet persisted annotation document: project identity,
// current view state, the serial counter mirror, the used reference set, and
// the ordered annotation list.
type Session struct {
	CabinetID      string
	ProjectName    string
	SalesOrderNo   string
	CurrentPage    int
	Zoom           float64
	SerialCounter  int
	UsedReferences []string
	Annotations    []Annotation
}

// New returns an empty session for a cabinet at default zoom.
func New(cabinetID string) *Session {
	return &Session{CabinetID: cabinetID, Zoom: 1.0}
}

// AddAnnotation appends an annotation and returns its position.
func (s *Session) AddAnnotation(a Annotation) int {
	s.Annotations = append(s.Annotations, a)
	return len(s.Annotations) - 1
}

// RemoveAnnotation deletes the annotation at index, returning it.
func (s *Session) RemoveAnnotation(index int) (Annotation, error) {
	if index < 0 || index >= len(s.Annotations) {
		return nil, faults.Wrap(faults.ErrValidation, "session", "remove annotation",
			fmt.Sprintf("index %d out of range", index), nil)
	}
	removed := s.Annotations[index]
	s.Annotations = append(s.Annotations[:index], s.Annotations[index+1:]...)
	return removed, nil
}

// InsertAnnotation restores an annotation at index (undo of a removal).
func (s *Session) InsertAnnotation(index int, a Annotation) {
	if index < 0 {
		index = 0
	}
	if index > len(s.Annotations) {
		index = len(s.Annotations)
	}
	s.Annotations = append(s.Annotations, nil)
	copy(s.Annotations[index+1:], s.Annotations[index:])
	s.Annotations[index] = a
}

// AddUsedReference records a reference number handed to a punch so the editor
// does not offer it again.
func (s *Session) AddUsedReference(reference string) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return
	}
	for _, existing := range s.UsedReferences {
		if existing == reference {
			return
		}
	}
	s.UsedReferences = append(s.UsedReferences, reference)
}

// ApplyClosure flips the visual state of the annotation linked to a closed
// punch: marks change color to the resolved color, legacy rects swap kind.
// This is the only path from ledger state back into annotation state.
// Returns false when no annotation links the serial.
func (s *Session) ApplyClosure(linkedSerial int, resolvedColor string) bool {
	for i, a := range s.Annotations {
		switch v := a.(type) {
		case Mark:
			if v.LinkedSerial == linkedSerial {
				v.Color = resolvedColor
				s.Annotations[i] = v
				return true
			}
		case Rect:
			if v.LinkedSerial == linkedSerial && !v.Resolved {
				v.Resolved = true
				s.Annotations[i] = v
				return true
			}
		}
	}
	return false
}

// document is the wire form of a session.
type document struct {
	CabinetID      string     `json:"cabinet_id"`
	ProjectName    string     `json:"project_name,omitempty"`
	SalesOrderNo   string     `json:"sales_order_no,omitempty"`
	CurrentPage    int        `json:"current_page"`
	Zoom           float64    `json:"zoom"`
	SerialCounter  int        `json:"serial_counter"`
	UsedReferences []string   `json:"used_references,omitempty"`
	Annotations    []envelope `json:"annotations"`
}

type documentRaw struct {
	CabinetID      string            `json:"cabinet_id"`
	ProjectName    string            `json:"project_name"`
	SalesOrderNo   string            `json:"sales_order_no"`
	CurrentPage    int               `json:"current_page"`
	Zoom           float64           `json:"zoom"`
	SerialCounter  int               `json:"serial_counter"`
	UsedReferences []string          `json:"used_references"`
	Annotations    []json.RawMessage `json:"annotations"`
}

// Store persists session documents, one JSON file per cabinet.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns the document location for a cabinet.
func (st *Store) Path(cabinetID string) string {
	return filepath.Join(st.dir, cabinetID+".json")
}

// Save writes the session document atomically.
func (st *Store) Save(s *Session) error {
	if strings.TrimSpace(s.CabinetID) == "" {
		return faults.Wrap(faults.ErrValidation, "session", "save", "cabinet id is required", nil)
	}
	envelopes, err := marshalAnnotations(s.Annotations)
	if err != nil {
		return err
	}
	doc := document{
		CabinetID:      s.CabinetID,
		ProjectName:    s.ProjectName,
		SalesOrderNo:   s.SalesOrderNo,
		CurrentPage:    s.CurrentPage,
		Zoom:           s.Zoom,
		SerialCounter:  s.SerialCounter,
		UsedReferences: s.UsedReferences,
		Annotations:    envelopes,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	if err := os.MkdirAll(st.dir, 0o755); err != nil {
		return fmt.Errorf("ensure session directory: %w", err)
	}
	target := st.Path(s.CabinetID)
	tmp, err := os.CreateTemp(st.dir, "."+s.CabinetID+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp session: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("flush session: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace session: %w", err)
	}
	return nil
}

// Load reads the session document for a cabinet.
func (st *Store) Load(cabinetID string) (*Session, error) {
	data, err := os.ReadFile(st.Path(cabinetID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, faults.Wrap(faults.ErrMissingResource, "session", "load", st.Path(cabinetID), nil)
		}
		return nil, fmt.Errorf("read session: %w", err)
	}

	var raw documentRaw
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	annotations, err := unmarshalAnnotations(raw.Annotations)
	if err != nil {
		return nil, err
	}
	return &Session{
		CabinetID:      raw.CabinetID,
		ProjectName:    raw.ProjectName,
		SalesOrderNo:   raw.SalesOrderNo,
		CurrentPage:    raw.CurrentPage,
		Zoom:           raw.Zoom,
		SerialCounter:  raw.SerialCounter,
		UsedReferences: raw.UsedReferences,
		Annotations:    annotations,
	}, nil
}

// LoadOrNew loads a cabinet's session, creating a fresh one when the document
// does not exist yet.
func (st *Store) LoadOrNew(cabinetID string) (*Session, error) {
	s, err := st.Load(cabinetID)
	if err != nil {
		if errors.Is(err, faults.ErrMissingResource) {
			return New(cabinetID), nil
		}
		return nil, err
	}
	return s, nil
}

package session

import (
	"encoding/json"
	"fmt"

	"punchlist/internal/faults"
	"punchlist/internal/geometry"
)

// Annotation kind tags as persisted in the session document.
const (
	KindMark         = "mark"
	KindRect         = "rect"
	KindRectResolved = "rect_resolved"
	KindFreehand     = "freehand"
	KindText         = "text"
)

// Annotation is the closed union of user marks on a drawing page. Every
// variant carries page-space coordinates; scaling to display space happens in
// the geometry package at render time.
type Annotation interface {
	Kind() string
	Page() int
	annotation()
}

// Mark is a straight span linking a drawing location to a punch. Marks are
// always stored straightened (two points).
type Mark struct {
	PageIndex       int
	Start           geometry.Point
	End             geometry.Point
	Color           string
	LinkedSerial    int
	LinkedReference string
}

func (Mark) Kind() string { return KindMark }
func (m Mark) Page() int  { return m.PageIndex }
func (Mark) annotation()  {}

// Rect is the legacy bounding-box mark variant. Closure swaps its kind to
// rect_resolved rather than recoloring.
type Rect struct {
	PageIndex       int
	Box             geometry.BBox
	Color           string
	LinkedSerial    int
	LinkedReference string
	Resolved        bool
}

func (r Rect) Kind() string {
	if r.Resolved {
		return KindRectResolved
	}
	return KindRect
}
func (r Rect) Page() int  { return r.PageIndex }
func (Rect) annotation()  {}

// Freehand is an ordered point list drawn without straightening.
type Freehand struct {
	PageIndex int
	Points    []geometry.Point
	Color     string
}

func (Freehand) Kind() string { return KindFreehand }
func (f Freehand) Page() int  { return f.PageIndex }
func (Freehand) annotation()  {}

// Text is a string anchored to a point.
type Text struct {
	PageIndex int
	Anchor    geometry.Point
	Body      string
}

func (Text) Kind() string { return KindText }
func (t Text) Page() int  { return t.PageIndex }
func (Text) annotation()  {}

// envelope is the wire form of an annotation: a kind tag plus the union of
// kind-specific fields.
type envelope struct {
	Kind            string           `json:"kind"`
	PageIndex       int              `json:"page_index"`
	Start           *geometry.Point  `json:"start,omitempty"`
	End             *geometry.Point  `json:"end,omitempty"`
	Box             *geometry.BBox   `json:"box,omitempty"`
	Points          []geometry.Point `json:"points,omitempty"`
	Anchor          *geometry.Point  `json:"anchor,omitempty"`
	Color           string           `json:"color,omitempty"`
	Body            string           `json:"text,omitempty"`
	LinkedSerial    int              `json:"linked_serial,omitempty"`
	LinkedReference string           `json:"linked_reference,omitempty"`
}

func encodeAnnotation(a Annotation) envelope {
	switch v := a.(type) {
	case Mark:
		start, end := v.Start, v.End
		return envelope{
			Kind: KindMark, PageIndex: v.PageIndex,
			Start: &start, End: &end,
			Color:        v.Color,
			LinkedSerial: v.LinkedSerial, LinkedReference: v.LinkedReference,
		}
	case Rect:
		box := v.Box
		return envelope{
			Kind: v.Kind(), PageIndex: v.PageIndex,
			Box:          &box,
			Color:        v.Color,
			LinkedSerial: v.LinkedSerial, LinkedReference: v.LinkedReference,
		}
	case Freehand:
		return envelope{Kind: KindFreehand, PageIndex: v.PageIndex, Points: v.Points, Color: v.Color}
	case Text:
		anchor := v.Anchor
		return envelope{Kind: KindText, PageIndex: v.PageIndex, Anchor: &anchor, Body: v.Body}
	default:
		// The union is closed; new variants must be added here.
		panic(fmt.Sprintf("session: unknown annotation type %T", a))
	}
}

func decodeAnnotation(env envelope) (Annotation, error) {
	switch env.Kind {
	case KindMark:
		mark := Mark{
			PageIndex:       env.PageIndex,
			Color:           env.Color,
			LinkedSerial:    env.LinkedSerial,
			LinkedReference: env.LinkedReference,
		}
		if env.Start != nil {
			mark.Start = *env.Start
		}
		if env.End != nil {
			mark.End = *env.End
		}
		return mark, nil
	case KindRect, KindRectResolved:
		rect := Rect{
			PageIndex:       env.PageIndex,
			Color:           env.Color,
			LinkedSerial:    env.LinkedSerial,
			LinkedReference: env.LinkedReference,
			Resolved:        env.Kind == KindRectResolved,
		}
		if env.Box != nil {
			rect.Box = *env.Box
		}
		return rect, nil
	case KindFreehand:
		return Freehand{PageIndex: env.PageIndex, Points: env.Points, Color: env.Color}, nil
	case KindText:
		text := Text{PageIndex: env.PageIndex, Body: env.Body}
		if env.Anchor != nil {
			text.Anchor = *env.Anchor
		}
		return text, nil
	default:
		return nil, faults.Wrap(faults.ErrValidation, "session", "decode annotation",
			fmt.Sprintf("unknown kind %q", env.Kind), nil)
	}
}

func marshalAnnotations(annotations []Annotation) ([]envelope, error) {
	envelopes := make([]envelope, len(annotations))
	for i, a := range annotations {
		envelopes[i] = encodeAnnotation(a)
	}
	return envelopes, nil
}

func unmarshalAnnotations(data []json.RawMessage) ([]Annotation, error) {
	annotations := make([]Annotation, 0, len(data))
	for _, raw := range data {
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("decode annotation: %w", err)
		}
		a, err := decodeAnnotation(env)
		if err != nil {
			return nil, err
		}
		annotations = append(annotations, a)
	}
	return annotations, nil
}

// Package geometry provides the coordinate math shared by the annotation
// session and the export path: scaling between the interactive view space and
// page space, freehand straightening, and page rotation remapping.
package geometry

// BaseScale is the fixed ratio between page units and unscaled display units.
const BaseScale = 2.0

// Point is a location in either page or display space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BBox is an axis-aligned rectangle. A normalized box has Min <= Max on both
// axes.
type BBox struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

// Normalize returns the box with its corners reordered so Min <= Max.
func (b BBox) Normalize() BBox {
	if b.MinX > b.MaxX {
		b.MinX, b.MaxX = b.MaxX, b.MinX
	}
	if b.MinY > b.MaxY {
		b.MinY, b.MaxY = b.MaxY, b.MinY
	}
	return b
}

// ToDisplay scales a page-space point into display space at the given zoom.
func ToDisplay(p Point, zoom float64) Point {
	s := BaseScale * zoom
	return Point{X: p.X * s, Y: p.Y * s}
}

// ToPage scales a display-space point back into page space at the given zoom.
func ToPage(p Point, zoom float64) Point {
	s := BaseScale * zoom
	return Point{X: p.X / s, Y: p.Y / s}
}

// PointsToDisplay scales a point list into display space.
func PointsToDisplay(points []Point, zoom float64) []Point {
	out := make([]Point, len(points))
	for i, p := range points {
		out[i] = ToDisplay(p, zoom)
	}
	return out
}

// PointsToPage scales a point list back into page space.
func PointsToPage(points []Point, zoom float64) []Point {
	out := make([]Point, len(points))
	for i, p := range points {
		out[i] = ToPage(p, zoom)
	}
	return out
}

// BBoxToDisplay scales a page-space box into display space.
func BBoxToDisplay(b BBox, zoom float64) BBox {
	s := BaseScale * zoom
	return BBox{MinX: b.MinX * s, MinY: b.MinY * s, MaxX: b.MaxX * s, MaxY: b.MaxY * s}
}

// BBoxToPage scales a display-space box back into page space.
func BBoxToPage(b BBox, zoom float64) BBox {
	s := BaseScale * zoom
	return BBox{MinX: b.MinX / s, MinY: b.MinY / s, MaxX: b.MaxX / s, MaxY: b.MaxY / s}
}

// Straighten collapses a freehand path to its endpoints so mark strokes always
// render as a straight span regardless of hand tremor. Paths with fewer than
// two points are returned unchanged.
func Straighten(points []Point) []Point {
	if len(points) < 2 {
		return points
	}
	return []Point{points[0], points[len(points)-1]}
}

// TransformForRotation maps a page-space point into export space for a page
// rotated by a 90-degree multiple. Unknown rotation values are a caller error
// and map through the identity.
func TransformForRotation(p Point, rotation int, pageWidth, pageHeight float64) Point {
	switch normalizeRotation(rotation) {
	case 90:
		return Point{X: p.Y, Y: pageWidth - p.X}
	case 180:
		return Point{X: pageWidth - p.X, Y: pageHeight - p.Y}
	case 270:
		return Point{X: pageHeight - p.Y, Y: p.X}
	default:
		return p
	}
}

// TransformBBoxForRotation remaps a box's corners for the rotation and returns
// the normalized result.
func TransformBBoxForRotation(b BBox, rotation int, pageWidth, pageHeight float64) BBox {
	a := TransformForRotation(Point{X: b.MinX, Y: b.MinY}, rotation, pageWidth, pageHeight)
	c := TransformForRotation(Point{X: b.MaxX, Y: b.MaxY}, rotation, pageWidth, pageHeight)
	return BBox{MinX: a.X, MinY: a.Y, MaxX: c.X, MaxY: c.Y}.Normalize()
}

// InverseRotation returns the rotation that undoes rot. Note the page
// dimensions swap for 90 and 270: undoing a 90-degree transform requires the
// rotated page's width and height.
func InverseRotation(rot int) int {
	switch normalizeRotation(rot) {
	case 90:
		return 270
	case 270:
		return 90
	default:
		return normalizeRotation(rot)
	}
}

func normalizeRotation(rot int) int {
	switch rot {
	case 0, 90, 180, 270:
		return rot
	default:
		return 0
	}
}

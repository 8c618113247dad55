package geometry

import (
	"math"
	"testing"
)

const epsilon = 1e-6

func pointsClose(a, b Point) bool {
	return math.Abs(a.X-b.X) < epsilon && math.Abs(a.Y-b.Y) < epsilon
}

func TestScaleRoundTrip(t *testing.T) {
	zooms := []float64{0.5, 1.0, 1.25, 3.0}
	points := []Point{{X: 0, Y: 0}, {X: 12.5, Y: 88.25}, {X: 297.3, Y: 420.9}}

	for _, zoom := range zooms {
		for _, p := range points {
			back := ToPage(ToDisplay(p, zoom), zoom)
			if !pointsClose(p, back) {
				t.Fatalf("round trip at zoom %.2f: got %+v, want %+v", zoom, back, p)
			}
		}
	}
}

func TestToDisplayAppliesBaseScale(t *testing.T) {
	got := ToDisplay(Point{X: 10, Y: 20}, 1.5)
	want := Point{X: 30, Y: 60}
	if !pointsClose(got, want) {
		t.Fatalf("ToDisplay = %+v, want %+v", got, want)
	}
}

func TestPointsToPageRoundTrip(t *testing.T) {
	points := []Point{{X: 1, Y: 2}, {X: 3.5, Y: 4.25}, {X: 100, Y: 200}}
	back := PointsToPage(PointsToDisplay(points, 2.0), 2.0)
	if len(back) != len(points) {
		t.Fatalf("length changed: got %d, want %d", len(back), len(points))
	}
	for i := range points {
		if !pointsClose(points[i], back[i]) {
			t.Fatalf("point %d: got %+v, want %+v", i, back[i], points[i])
		}
	}
}

func TestStraightenCollapsesToEndpoints(t *testing.T) {
	path := []Point{{X: 0, Y: 0}, {X: 1, Y: 2}, {X: 3, Y: 1}, {X: 4, Y: 5}, {X: 5, Y: 5}}
	got := Straighten(path)
	if len(got) != 2 {
		t.Fatalf("expected 2 points, got %d", len(got))
	}
	if !pointsClose(got[0], path[0]) || !pointsClose(got[1], path[len(path)-1]) {
		t.Fatalf("Straighten = %+v, want endpoints of %+v", got, path)
	}
}

func TestStraightenShortPathsUnchanged(t *testing.T) {
	single := []Point{{X: 7, Y: 9}}
	if got := Straighten(single); len(got) != 1 || !pointsClose(got[0], single[0]) {
		t.Fatalf("single-point path altered: %+v", got)
	}
	if got := Straighten(nil); got != nil {
		t.Fatalf("nil path altered: %+v", got)
	}
}

func TestBBoxNormalize(t *testing.T) {
	b := BBox{MinX: 10, MinY: 2, MaxX: 4, MaxY: 8}
	n := b.Normalize()
	if n.MinX != 4 || n.MaxX != 10 || n.MinY != 2 || n.MaxY != 8 {
		t.Fatalf("Normalize = %+v", n)
	}
}

func TestBBoxScaleRoundTrip(t *testing.T) {
	b := BBox{MinX: 1, MinY: 2, MaxX: 30, MaxY: 44.5}
	back := BBoxToPage(BBoxToDisplay(b, 1.75), 1.75)
	if math.Abs(back.MinX-b.MinX) > epsilon || math.Abs(back.MinY-b.MinY) > epsilon ||
		math.Abs(back.MaxX-b.MaxX) > epsilon || math.Abs(back.MaxY-b.MaxY) > epsilon {
		t.Fatalf("bbox round trip: got %+v, want %+v", back, b)
	}
}

func TestRotationMapping(t *testing.T) {
	const w, h = 612.0, 792.0
	p := Point{X: 100, Y: 250}

	cases := []struct {
		rotation int
		want     Point
	}{
		{0, p},
		{90, Point{X: 250, Y: 512}},
		{180, Point{X: 512, Y: 542}},
		{270, Point{X: 542, Y: 100}},
	}
	for _, tc := range cases {
		got := TransformForRotation(p, tc.rotation, w, h)
		if !pointsClose(got, tc.want) {
			t.Fatalf("rotation %d: got %+v, want %+v", tc.rotation, got, tc.want)
		}
	}
}

func TestRotationInvertible(t *testing.T) {
	const w, h = 612.0, 792.0
	points := []Point{{X: 0, Y: 0}, {X: 100, Y: 250}, {X: 612, Y: 792}, {X: 33.3, Y: 700.7}}

	for _, rot := range []int{0, 90, 180, 270} {
		// The rotated page swaps dimensions for 90 and 270.
		invW, invH := w, h
		if rot == 90 || rot == 270 {
			invW, invH = h, w
		}
		for _, p := range points {
			forward := TransformForRotation(p, rot, w, h)
			back := TransformForRotation(forward, InverseRotation(rot), invW, invH)
			if !pointsClose(p, back) {
				t.Fatalf("rotation %d not invertible: %+v -> %+v -> %+v", rot, p, forward, back)
			}
		}
	}
}

func TestTransformBBoxForRotationNormalizes(t *testing.T) {
	const w, h = 612.0, 792.0
	b := BBox{MinX: 50, MinY: 60, MaxX: 200, MaxY: 300}
	got := TransformBBoxForRotation(b, 90, w, h)
	if got.MinX > got.MaxX || got.MinY > got.MaxY {
		t.Fatalf("rotated box not normalized: %+v", got)
	}
	// Width and height swap under a quarter turn.
	if math.Abs((got.MaxX-got.MinX)-(b.MaxY-b.MinY)) > epsilon {
		t.Fatalf("rotated width mismatch: %+v", got)
	}
	if math.Abs((got.MaxY-got.MinY)-(b.MaxX-b.MinX)) > epsilon {
		t.Fatalf("rotated height mismatch: %+v", got)
	}
}

func TestUnknownRotationIsIdentity(t *testing.T) {
	p := Point{X: 12, Y: 34}
	if got := TransformForRotation(p, 45, 100, 200); !pointsClose(got, p) {
		t.Fatalf("unknown rotation altered point: %+v", got)
	}
}

// Package geometry provides the small set of pixel-space helpers used to
// compare limbs against hold bounding boxes.
package geometry

import (
	"errors"
	"image"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrNoPoints is returned by Centroid when given an empty point set.
var ErrNoPoints = errors.New("geometry: no points")

// Point is a pixel-space position. Z is carried through from the pose
// estimator but never used for distances.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Finite reports whether X and Y are usable numbers.
func (p Point) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) &&
		!math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// BoundingBox is an axis-aligned rectangle given by its top-left (X1, Y1)
// and bottom-right (X2, Y2) corners in pixel coordinates.
type BoundingBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Box is shorthand for constructing a BoundingBox.
func Box(x1, y1, x2, y2 float64) BoundingBox {
	return BoundingBox{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// Equal compares two boxes coordinate by coordinate with no tolerance.
func (b BoundingBox) Equal(o BoundingBox) bool {
	return b.X1 == o.X1 && b.Y1 == o.Y1 && b.X2 == o.X2 && b.Y2 == o.Y2
}

// Midpoint returns the mean of the two corner points.
func (b BoundingBox) Midpoint() Point {
	return Point{X: (b.X1 + b.X2) / 2, Y: (b.Y1 + b.Y2) / 2}
}

// Valid reports whether all coordinates are finite and the corners are
// strictly ordered.
func (b BoundingBox) Valid() bool {
	for _, v := range [...]float64{b.X1, b.Y1, b.X2, b.Y2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return b.X1 < b.X2 && b.Y1 < b.Y2
}

// Rect truncates the box to an integer rectangle suitable for drawing.
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(int(b.X1), int(b.Y1), int(b.X2), int(b.Y2))
}

// Area returns |x2-x1| * |y2-y1|.
func Area(b BoundingBox) float64 {
	return math.Abs(b.X2-b.X1) * math.Abs(b.Y2-b.Y1)
}

// Centroid returns the arithmetic mean of the given points.
func Centroid(points []Point) (Point, error) {
	if len(points) == 0 {
		return Point{}, ErrNoPoints
	}

	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	zs := make([]float64, len(points))
	for i, p := range points {
		xs[i], ys[i], zs[i] = p.X, p.Y, p.Z
	}

	return Point{
		X: stat.Mean(xs, nil),
		Y: stat.Mean(ys, nil),
		Z: stat.Mean(zs, nil),
	}, nil
}

// Distance is the Euclidean distance in the x,y plane between p and the
// midpoint of b.
func Distance(p Point, b BoundingBox) float64 {
	m := b.Midpoint()
	return floats.Distance([]float64{p.X, p.Y}, []float64{m.X, m.Y}, 2)
}

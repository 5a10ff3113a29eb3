// Package geometry provides the planar primitives used by floor-plan
// extraction: points and polygons with in-place affine transforms and a
// boundary-inclusive point-in-polygon test.
package geometry

import "math"

// Precision is the number of decimals every coordinate is rounded to.
// Two points are equal iff their rounded coordinates match.
const Precision = 3

const roundFactor = 1000 // 10^Precision

// Round clamps a coordinate to the kernel precision.
func Round(v float64) float64 {
	return math.Round(v*roundFactor) / roundFactor
}

// Point is a 2D coordinate. Coordinates are rounded to Precision
// decimals on construction and after every mutation.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NewPoint creates a Point with rounded coordinates.
func NewPoint(x, y float64) Point {
	return Point{X: Round(x), Y: Round(y)}
}

// Translate moves the point by (dx, dy) in place.
func (p *Point) Translate(dx, dy float64) {
	p.X = Round(p.X + dx)
	p.Y = Round(p.Y + dy)
}

// Scale multiplies the coordinates about the origin in place.
func (p *Point) Scale(sx, sy float64) {
	p.X = Round(p.X * sx)
	p.Y = Round(p.Y * sy)
}

// Rotate rotates the point by the given angle in degrees around center,
// counterclockwise, in place.
func (p *Point) Rotate(degrees float64, center Point) {
	rad := degrees * math.Pi / 180
	sin, cos := math.Sincos(rad)
	dx := p.X - center.X
	dy := p.Y - center.Y
	p.X = Round(center.X + dx*cos - dy*sin)
	p.Y = Round(center.Y + dx*sin + dy*cos)
}

// ReflectY negates the y coordinate in place. Drawing files use a
// y-down axis relative to the target coordinate system; every extracted
// floor is reflected exactly once.
func (p *Point) ReflectY() {
	p.Y = Round(-p.Y)
}

// Equal reports whether two points share the same rounded coordinates.
func (p Point) Equal(q Point) bool {
	return Round(p.X) == Round(q.X) && Round(p.Y) == Round(q.Y)
}

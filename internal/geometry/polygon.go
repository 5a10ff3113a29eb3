package geometry

import (
	"encoding/json"
	"math"

	"github.com/rotisserie/eris"
)

// onLineEps absorbs float error left over after coordinate rounding
// when classifying a point against an edge.
const onLineEps = 1e-9

// BBox is an axis-aligned bounding box.
type BBox struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

// Polygon is a closed ring of at least three points. The last point
// implicitly links back to the first. The bounding box is cached and
// recomputed by every point-mutating operation.
type Polygon struct {
	points []Point
	bbox   BBox
}

// NewPolygon creates a Polygon from the given ring. The ring must have
// at least three points.
func NewPolygon(points []Point) (*Polygon, error) {
	if len(points) < 3 {
		return nil, eris.Errorf("geometry: polygon needs at least 3 points, got %d", len(points))
	}
	ring := make([]Point, len(points))
	for i, p := range points {
		ring[i] = NewPoint(p.X, p.Y)
	}
	pg := &Polygon{points: ring}
	pg.recomputeBBox()
	return pg, nil
}

// NewPolygonFromOffsets reassembles a Polygon from an anchor point and
// offsets relative to it, the decomposed form Anchor/Offsets produce.
func NewPolygonFromOffsets(anchor Point, offsets []Point) (*Polygon, error) {
	ring := make([]Point, len(offsets))
	for i, o := range offsets {
		ring[i] = NewPoint(anchor.X+o.X, anchor.Y+o.Y)
	}
	return NewPolygon(ring)
}

// Points returns a copy of the ring.
func (pg *Polygon) Points() []Point {
	out := make([]Point, len(pg.points))
	copy(out, pg.points)
	return out
}

// NumPoints returns the ring length.
func (pg *Polygon) NumPoints() int { return len(pg.points) }

// Anchor returns the first ring point, the reference coordinate the
// relative form is expressed against.
func (pg *Polygon) Anchor() Point { return pg.points[0] }

// Offsets returns every ring point relative to the anchor.
func (pg *Polygon) Offsets() []Point {
	anchor := pg.Anchor()
	out := make([]Point, len(pg.points))
	for i, p := range pg.points {
		out[i] = NewPoint(p.X-anchor.X, p.Y-anchor.Y)
	}
	return out
}

// BBox returns the cached bounding box.
func (pg *Polygon) BBox() BBox { return pg.bbox }

func (pg *Polygon) recomputeBBox() {
	b := BBox{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
	for _, p := range pg.points {
		b.MinX = math.Min(b.MinX, p.X)
		b.MinY = math.Min(b.MinY, p.Y)
		b.MaxX = math.Max(b.MaxX, p.X)
		b.MaxY = math.Max(b.MaxY, p.Y)
	}
	pg.bbox = b
}

// Translate moves every ring point by (dx, dy) in place.
func (pg *Polygon) Translate(dx, dy float64) {
	for i := range pg.points {
		pg.points[i].Translate(dx, dy)
	}
	pg.recomputeBBox()
}

// Scale multiplies every ring point about the coordinate origin in
// place. Callers wanting centroid-relative scaling must translate to
// the origin first.
func (pg *Polygon) Scale(sx, sy float64) {
	for i := range pg.points {
		pg.points[i].Scale(sx, sy)
	}
	pg.recomputeBBox()
}

// ScaleUniform scales both axes by the same factor in place.
func (pg *Polygon) ScaleUniform(s float64) { pg.Scale(s, s) }

// Rotate rotates every ring point around center in place.
func (pg *Polygon) Rotate(degrees float64, center Point) {
	for i := range pg.points {
		pg.points[i].Rotate(degrees, center)
	}
	pg.recomputeBBox()
}

// ReflectY negates every ring point's y coordinate in place.
func (pg *Polygon) ReflectY() {
	for i := range pg.points {
		pg.points[i].ReflectY()
	}
	pg.recomputeBBox()
}

// Contains reports whether the point lies inside or exactly on the
// boundary of the polygon. A ray-casting test: every edge whose y-span
// brackets the point is classified left/right/on-line after translating
// edge and point to the origin and normalizing the edge into the first
// quadrant, so a single cross-product sign test decides. A crossing
// through a shared vertex of two edges is counted once.
func (pg *Polygon) Contains(p Point) bool {
	// Cheap bbox rejection before the edge scan. Boundary points pass.
	if p.X < pg.bbox.MinX || p.X > pg.bbox.MaxX || p.Y < pg.bbox.MinY || p.Y > pg.bbox.MaxY {
		return false
	}

	n := len(pg.points)
	crossings := 0
	counted := make(map[Point]bool)

	for i := 0; i < n; i++ {
		a := pg.points[i]
		b := pg.points[(i+1)%n]

		if p.Y < math.Min(a.Y, b.Y) || p.Y > math.Max(a.Y, b.Y) {
			continue
		}

		// Translate so a is at the origin.
		bx, by := b.X-a.X, b.Y-a.Y
		px, py := p.X-a.X, p.Y-a.Y

		// Normalize the edge into the first quadrant: reflect about the
		// x axis, then rotate 90 degrees clockwise if still pointing left.
		if by < 0 {
			by, py = -by, -py
		}
		if bx < 0 {
			bx, by, px, py = by, -bx, py, -px
		}

		cross := bx*py - by*px
		if math.Abs(cross) <= onLineEps {
			// On the supporting line; inside the edge's x-bounds means
			// the point sits on the boundary.
			if p.X >= math.Min(a.X, b.X)-onLineEps && p.X <= math.Max(a.X, b.X)+onLineEps {
				return true
			}
			continue
		}

		if cross < 0 {
			// Right of the edge: a crossing, unless this ray already
			// passed through one of the edge's vertices.
			dup := false
			for _, v := range [2]Point{a, b} {
				if v.Y == p.Y {
					if counted[v] {
						dup = true
					}
					counted[v] = true
				}
			}
			if !dup {
				crossings++
			}
		}
	}

	return crossings%2 == 1
}

type polygonJSON struct {
	Points []Point `json:"points"`
}

// MarshalJSON encodes the polygon as its ring.
func (pg *Polygon) MarshalJSON() ([]byte, error) {
	return json.Marshal(polygonJSON{Points: pg.points})
}

// UnmarshalJSON decodes a ring and restores the bbox cache.
func (pg *Polygon) UnmarshalJSON(data []byte) error {
	var raw polygonJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return eris.Wrap(err, "geometry: decode polygon")
	}
	restored, err := NewPolygon(raw.Points)
	if err != nil {
		return err
	}
	*pg = *restored
	return nil
}

package geometry

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rect(t *testing.T, minX, minY, maxX, maxY float64) *Polygon {
	t.Helper()
	pg, err := NewPolygon([]Point{
		NewPoint(minX, minY),
		NewPoint(maxX, minY),
		NewPoint(maxX, maxY),
		NewPoint(minX, maxY),
	})
	require.NoError(t, err)
	return pg
}

func TestNewPolygonRejectsDegenerateRing(t *testing.T) {
	_, err := NewPolygon([]Point{NewPoint(0, 0), NewPoint(1, 1)})
	assert.Error(t, err)
}

func TestContains(t *testing.T) {
	pg := rect(t, 0, 0, 10, 10)

	tests := []struct {
		name     string
		point    Point
		expected bool
	}{
		{"interior", NewPoint(5, 5), true},
		{"bottom edge is inclusive", NewPoint(5, 0), true},
		{"top edge is inclusive", NewPoint(5, 10), true},
		{"left edge is inclusive", NewPoint(0, 5), true},
		{"corner is inclusive", NewPoint(0, 0), true},
		{"just below", NewPoint(5, -0.001), false},
		{"right of bbox", NewPoint(11, 5), false},
		{"left of bbox", NewPoint(-0.001, 5), false},
		{"far outside", NewPoint(100, 100), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, pg.Contains(tt.point))
		})
	}
}

func TestContainsNonConvex(t *testing.T) {
	// A U shape: the notch between the prongs is outside.
	pg, err := NewPolygon([]Point{
		NewPoint(0, 0), NewPoint(10, 0), NewPoint(10, 10),
		NewPoint(7, 10), NewPoint(7, 3), NewPoint(3, 3),
		NewPoint(3, 10), NewPoint(0, 10),
	})
	require.NoError(t, err)

	assert.True(t, pg.Contains(NewPoint(1.5, 8)))
	assert.True(t, pg.Contains(NewPoint(8.5, 8)))
	assert.True(t, pg.Contains(NewPoint(5, 1.5)))
	assert.False(t, pg.Contains(NewPoint(5, 8)))
	assert.True(t, pg.Contains(NewPoint(5, 3)), "notch floor is boundary")
}

func TestContainsRayThroughSharedVertex(t *testing.T) {
	// Diamond: a horizontal ray through the left/right vertices passes
	// exactly through shared vertices of adjacent edges.
	pg, err := NewPolygon([]Point{
		NewPoint(5, 0), NewPoint(10, 5), NewPoint(5, 10), NewPoint(0, 5),
	})
	require.NoError(t, err)

	assert.True(t, pg.Contains(NewPoint(5, 5)))
	assert.True(t, pg.Contains(NewPoint(2.5, 5)))
	assert.False(t, pg.Contains(NewPoint(-1, 5)))
	assert.False(t, pg.Contains(NewPoint(11, 5)))
}

func TestContainsPointOnSlantedEdge(t *testing.T) {
	pg, err := NewPolygon([]Point{
		NewPoint(0, 0), NewPoint(10, 0), NewPoint(10, 10),
	})
	require.NoError(t, err)

	// (4, 4) lies exactly on the hypotenuse from (0,0) to (10,10).
	assert.True(t, pg.Contains(NewPoint(4, 4)))
	assert.False(t, pg.Contains(NewPoint(4, 4.001)))
	assert.True(t, pg.Contains(NewPoint(6, 4)))
}

func TestTranslateRoundTrip(t *testing.T) {
	pg := rect(t, 1.234, 5.678, 9.999, 12.345)
	original := pg.Points()

	pg.Translate(3.1417, -8.657)
	pg.Translate(-3.1417, 8.657)

	for i, p := range pg.Points() {
		assert.True(t, p.Equal(original[i]), "point %d drifted: %v vs %v", i, p, original[i])
	}
}

func TestScaleAboutOrigin(t *testing.T) {
	pg := rect(t, 10, 10, 20, 20)
	pg.ScaleUniform(0.3)

	assert.Equal(t, NewPoint(3, 3), pg.Points()[0])
	assert.Equal(t, BBox{MinX: 3, MinY: 3, MaxX: 6, MaxY: 6}, pg.BBox())
}

func TestRotateRoundsCoordinates(t *testing.T) {
	p := NewPoint(1, 0)
	p.Rotate(90, NewPoint(0, 0))
	assert.Equal(t, NewPoint(0, 1), p)

	p.Rotate(45, NewPoint(0, 0))
	assert.Equal(t, NewPoint(-0.707, 0.707), p)
}

func TestReflectYRecomputesBBox(t *testing.T) {
	pg := rect(t, 0, 2, 4, 6)
	pg.ReflectY()

	assert.Equal(t, BBox{MinX: 0, MinY: -6, MaxX: 4, MaxY: -2}, pg.BBox())
	assert.True(t, pg.Contains(NewPoint(2, -4)))
	assert.False(t, pg.Contains(NewPoint(2, 4)))
}

func TestAnchorOffsetsRoundTrip(t *testing.T) {
	pg := rect(t, 3, 4, 8, 9)

	rebuilt, err := NewPolygonFromOffsets(pg.Anchor(), pg.Offsets())
	require.NoError(t, err)
	assert.Equal(t, pg.Points(), rebuilt.Points())
}

func TestPolygonJSONRoundTrip(t *testing.T) {
	pg := rect(t, 0, 0, 2.5, 2.5)

	data, err := json.Marshal(pg)
	require.NoError(t, err)

	var decoded Polygon
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, pg.Points(), decoded.Points())
	assert.Equal(t, pg.BBox(), decoded.BBox())
}

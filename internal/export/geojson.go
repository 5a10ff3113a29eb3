package export

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/campus-atlas/plan-cli/internal/model"
)

// WriteGeoJSON writes one FeatureCollection holding every room polygon
// across the given buildings.
func WriteGeoJSON(w io.Writer, buildings []*model.Building) error {
	rooms := collectRooms(buildings)

	fc := &geojson.FeatureCollection{
		Features: make([]*geojson.Feature, 0, len(rooms)),
	}
	for _, room := range rooms {
		g, err := roomGeometry(room)
		if err != nil {
			return err
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry: g,
			Properties: map[string]any{
				"b_id":      room.BuildingID,
				"f_id":      room.FloorID,
				"r_id":      room.RoomID,
				"cat_id":    room.Category,
				"room_name": room.Name,
			},
		})
	}

	enc := json.NewEncoder(w)
	if err := enc.Encode(fc); err != nil {
		return eris.Wrap(err, "export: encode geojson")
	}
	return nil
}

func roomGeometry(room roomFeature) (geom.T, error) {
	ring := closedRing(room.Polygon)
	flat := make([]float64, 0, len(ring)*2)
	for _, p := range ring {
		flat = append(flat, p.X, p.Y)
	}

	poly := geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)})
	if poly.NumCoords() < 4 {
		return nil, eris.Errorf("export: degenerate polygon for room %s/%s/%s",
			room.BuildingID, room.FloorID, room.RoomID)
	}
	return poly, nil
}

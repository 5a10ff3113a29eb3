package export

import (
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/campus-atlas/plan-cli/internal/model"
)

// WriteShapefile writes every room polygon to a POLYGON shapefile with
// identifying attributes in the DBF.
func WriteShapefile(path string, buildings []*model.Building) error {
	writer, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		return eris.Wrapf(err, "export: create shapefile %s", path)
	}
	defer writer.Close()

	fields := []shp.Field{
		shp.StringField("B_ID", 16),
		shp.StringField("F_ID", 8),
		shp.StringField("R_ID", 16),
		shp.StringField("CAT_ID", 16),
		shp.StringField("ROOM_NAME", 64),
	}
	if err := writer.SetFields(fields); err != nil {
		return eris.Wrap(err, "export: set shapefile fields")
	}

	rooms := collectRooms(buildings)
	for _, room := range rooms {
		ring := closedRing(room.Polygon)
		pts := make([]shp.Point, 0, len(ring))
		for _, p := range ring {
			pts = append(pts, shp.Point{X: p.X, Y: p.Y})
		}

		shape := (*shp.Polygon)(shp.NewPolyLine([][]shp.Point{pts}))
		row := writer.Write(shape)

		attrs := []string{room.BuildingID, room.FloorID, room.RoomID, room.Category, room.Name}
		for col, val := range attrs {
			if err := writer.WriteAttribute(int(row), col, val); err != nil {
				return eris.Wrapf(err, "export: write attribute %d for room %s/%s/%s",
					col, room.BuildingID, room.FloorID, room.RoomID)
			}
		}
	}

	zap.L().Info("shapefile written", zap.String("path", path), zap.Int("rooms", len(rooms)))
	return nil
}

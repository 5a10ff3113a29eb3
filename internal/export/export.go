// Package export renders reconciled buildings to GIS formats. Room
// polygons are in normalized plan coordinates, one feature per room.
package export

import (
	"github.com/campus-atlas/plan-cli/internal/geometry"
	"github.com/campus-atlas/plan-cli/internal/model"
)

// roomFeature is one exportable room with its identifying attributes.
type roomFeature struct {
	BuildingID string
	FloorID    string
	RoomID     string // empty for unidentified rooms
	Category   string
	Name       string
	Polygon    *geometry.Polygon
}

// collectRooms flattens every room carrying a polygon out of the
// buildings' canonical views, in a deterministic order.
func collectRooms(buildings []*model.Building) []roomFeature {
	var out []roomFeature
	for _, b := range buildings {
		if b.Merged == nil {
			continue
		}
		for _, floor := range b.Merged.Floors {
			for _, room := range floor.AllRooms() {
				if room.Polygon == nil {
					continue
				}
				out = append(out, roomFeature{
					BuildingID: b.ID,
					FloorID:    floor.ID,
					RoomID:     roomID(floor, room),
					Category:   room.Category,
					Name:       room.Name,
					Polygon:    room.Polygon,
				})
			}
		}
	}
	return out
}

func roomID(floor *model.Floor, room *model.Room) string {
	for id, r := range floor.Rooms {
		if r == room {
			return id
		}
	}
	return ""
}

// closedRing returns the polygon's points with the first point
// repeated at the end, as both GeoJSON and shapefiles require.
func closedRing(p *geometry.Polygon) []geometry.Point {
	pts := p.Points()
	if len(pts) > 0 && !pts[0].Equal(pts[len(pts)-1]) {
		pts = append(pts, pts[0])
	}
	return pts
}

// Package merge derives the canonical per-building view from whichever
// source namespaces exist, field by field.
package merge

import (
	"context"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/campus-atlas/plan-cli/internal/model"
	"github.com/campus-atlas/plan-cli/pkg/geocode"
)

// Merger combines the geometry, administrative and scheduling
// namespaces of a building into its canonical view.
type Merger struct {
	policy   RoomPolicy
	keywords []string
	geocoder geocode.Client
}

// NewMerger creates a Merger. The policy is validated up front: a
// missing field is a fatal configuration error, not something to find
// out mid-batch.
func NewMerger(policy RoomPolicy, keywords []string, gc geocode.Client) (*Merger, error) {
	if policy == nil {
		policy = DefaultRoomPolicy()
	}
	if err := policy.validate(); err != nil {
		return nil, err
	}
	return &Merger{policy: policy, keywords: keywords, geocoder: gc}, nil
}

// BuildView recomputes the building's canonical view in place.
func (m *Merger) BuildView(ctx context.Context, b *model.Building) error {
	merged := &model.MergedView{UpdatedAt: b.UpdatedAt}

	if b.Administrative != nil {
		merged.LegacyID = b.Administrative.LegacyID
	} else if b.Merged != nil {
		// Keep the reconciliation key alive while the administrative
		// namespace is absent.
		merged.LegacyID = b.Merged.LegacyID
	}

	m.mergeBuildingFields(ctx, b, merged)

	floors, err := m.mergeFloors(b)
	if err != nil {
		return err
	}
	merged.Floors = floors

	b.Merged = merged
	return nil
}

// mergeBuildingFields fills name, coordinates and address. With both
// administrative and scheduling data present the configured policies
// apply; with one source the fields pass through from it.
func (m *Merger) mergeBuildingFields(ctx context.Context, b *model.Building, merged *model.MergedView) {
	admin, sched := b.Administrative, b.Scheduling
	log := zap.L().With(zap.String("b_id", b.ID))

	switch {
	case admin != nil && sched != nil:
		merged.Name = m.mergeName(admin, sched, log)
		merged.Coordinates = m.mergeCoordinates(ctx, admin, sched, log)
		if sched.Address != "" {
			merged.Address = sched.Address
		} else {
			merged.Address = m.formattedAddress(ctx, admin.Address, log)
		}

	case admin != nil:
		merged.Name = admin.Name
		merged.Address = admin.Address
		merged.Coordinates = m.mergeCoordinates(ctx, admin, nil, log)

	case sched != nil:
		merged.Name = sched.Name
		merged.Address = sched.Address
		merged.Coordinates = m.mergeCoordinates(ctx, nil, sched, log)
	}
}

// mergeName prefers the administrative name when it carries an
// institutional keyword, otherwise the scheduling venue name. A venue
// name that is literally a substring of the scheduling address is
// uninformative but still wins while non-empty; the administrative
// name is the final fallback.
func (m *Merger) mergeName(admin, sched *model.Namespace, log *zap.Logger) string {
	if m.hasKeyword(admin.Name) {
		return admin.Name
	}
	if sched.Name != "" {
		if sched.Address != "" && strings.Contains(strings.ToLower(sched.Address), strings.ToLower(sched.Name)) {
			log.Debug("venue name is part of its address, using it anyway",
				zap.String("venue", sched.Name))
		}
		return sched.Name
	}
	return admin.Name
}

func (m *Merger) hasKeyword(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range m.keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// mergeCoordinates takes the administrative lat/lon when both parse,
// falls back to geocoding the scheduling (then administrative)
// address, and degrades to a null pair.
func (m *Merger) mergeCoordinates(ctx context.Context, admin, sched *model.Namespace, log *zap.Logger) *model.LatLon {
	if admin != nil {
		lat, latErr := strconv.ParseFloat(strings.TrimSpace(admin.Latitude), 64)
		lon, lonErr := strconv.ParseFloat(strings.TrimSpace(admin.Longitude), 64)
		if latErr == nil && lonErr == nil {
			return &model.LatLon{Lat: round5(lat), Lon: round5(lon)}
		}
	}

	address := ""
	if sched != nil && sched.Address != "" {
		address = sched.Address
	} else if admin != nil && admin.Address != "" {
		address = admin.Address
	}
	if address != "" && m.geocoder != nil {
		res, err := m.geocoder.Geocode(ctx, address)
		if err == nil {
			return &model.LatLon{Lat: round5(res.Latitude), Lon: round5(res.Longitude)}
		}
		log.Warn("geocoding failed, coordinates left null",
			zap.String("address", address), zap.Error(err))
		return nil
	}

	log.Warn("no usable coordinate source, coordinates left null")
	return nil
}

// formattedAddress geocodes the administrative address to get its
// formatted form; on failure the raw address passes through.
func (m *Merger) formattedAddress(ctx context.Context, address string, log *zap.Logger) string {
	if address == "" || m.geocoder == nil {
		return address
	}
	res, err := m.geocoder.Geocode(ctx, address)
	if err != nil {
		log.Warn("address formatting failed, keeping raw address",
			zap.String("address", address), zap.Error(err))
		return address
	}
	return res.FormattedAddress
}

// mergeFloors deep-copies every geometry-source floor, replacing each
// identified room with its merged record. Unidentified rooms are kept
// verbatim with their resolved category. Internal-only fields (labels)
// are stripped.
func (m *Merger) mergeFloors(b *model.Building) ([]*model.Floor, error) {
	if b.Geometry == nil {
		return nil, nil
	}

	floors := make([]*model.Floor, 0, len(b.Geometry.Floors))
	for _, gf := range b.Geometry.Floors {
		out := &model.Floor{
			BuildingID: gf.BuildingID,
			ID:         gf.ID,
			Rooms:      make(map[string]*model.Room, len(gf.Rooms)),
		}

		for id, room := range gf.Rooms {
			adminRoom := sourceRoom(b.Administrative, gf.ID, id)
			schedRoom := sourceRoom(b.Scheduling, gf.ID, id)
			mergedRoom, err := m.mergeRoom(room, adminRoom, schedRoom)
			if err != nil {
				return nil, err
			}
			out.Rooms[id] = mergedRoom
		}

		for _, room := range gf.Unidentified {
			out.Unidentified = append(out.Unidentified, &model.Room{
				Polygon:  room.Polygon,
				Category: room.Category,
			})
		}

		floors = append(floors, out)
	}
	model.SortFloors(floors)
	return floors, nil
}

// mergeRoom resolves each descriptive field through the policy chain.
// The geometry-derived category is always kept, and the polygon only
// ever comes from the geometry source.
func (m *Merger) mergeRoom(geom, admin, sched *model.Room) (*model.Room, error) {
	bySource := map[model.SourceKind]*model.Room{
		model.SourceGeometry:       geom,
		model.SourceAdministrative: admin,
		model.SourceScheduling:     sched,
	}

	out := &model.Room{
		Polygon:  geom.Polygon,
		Category: geom.Category,
	}

	for _, field := range roomFields {
		chain, ok := m.policy[field]
		if !ok {
			return nil, &ConfigurationError{Field: field}
		}
		for _, src := range chain {
			room := bySource[src]
			if room == nil {
				continue
			}
			if applyRoomField(out, field, room) {
				break
			}
		}
	}
	return out, nil
}

// applyRoomField copies one field when the source holds a non-empty
// value. Equipments are split on "/" as they leave the scheduling
// source's joined form.
func applyRoomField(out *model.Room, field Field, src *model.Room) bool {
	switch field {
	case FieldRoomName:
		if src.Name != "" {
			out.Name = src.Name
			return true
		}
	case FieldCapacity:
		if src.Capacity != nil {
			c := *src.Capacity
			out.Capacity = &c
			return true
		}
	case FieldAccessibility:
		if src.Accessibility != "" {
			out.Accessibility = src.Accessibility
			return true
		}
	case FieldEquipments:
		if src.EquipmentsRaw != "" {
			out.Equipments = splitEquipments(src.EquipmentsRaw)
			return true
		}
	}
	return false
}

// sourceRoom finds a namespace's record for a room id, trying the
// matching floor first. Room ids resolved from an adjacent floor are
// still found by the namespace-wide scan.
func sourceRoom(ns *model.Namespace, floorID, roomID string) *model.Room {
	if ns == nil {
		return nil
	}
	if f := ns.FindFloor(floorID); f != nil {
		if room, ok := f.Rooms[roomID]; ok {
			return room
		}
	}
	for _, f := range ns.Floors {
		if room, ok := f.Rooms[roomID]; ok {
			return room
		}
	}
	return nil
}

func splitEquipments(raw string) []string {
	parts := strings.Split(raw, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func round5(v float64) float64 {
	return math.Round(v*1e5) / 1e5
}

// Package model defines the reconciled campus data model: buildings
// with per-source namespaces, floors, rooms and labels.
package model

import (
	"sort"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/campus-atlas/plan-cli/internal/geometry"
)

// SourceKind names one of the three per-source namespaces a Building
// can hold.
type SourceKind string

const (
	SourceGeometry       SourceKind = "geometry"
	SourceAdministrative SourceKind = "administrative"
	SourceScheduling     SourceKind = "scheduling"
)

// Sources lists every namespace kind in a stable order.
var Sources = []SourceKind{SourceGeometry, SourceAdministrative, SourceScheduling}

// Label is one text entity from a drawing, anchored at its insertion
// point.
type Label struct {
	Text   string         `json:"text"`
	Anchor geometry.Point `json:"anchor"`
}

// Room holds whatever a namespace knows about a single room. The
// geometry namespace fills Polygon and Labels; the administrative and
// scheduling namespaces fill the descriptive attributes; the canonical
// view holds the merged union.
type Room struct {
	Polygon       *geometry.Polygon `json:"polygon,omitempty"`
	Labels        []Label           `json:"labels,omitempty"`
	Category      string            `json:"cat_id,omitempty"`
	Name          string            `json:"room_name,omitempty"`
	Capacity      *int              `json:"capacity,omitempty"`
	Accessibility string            `json:"accessibility,omitempty"`
	EquipmentsRaw string            `json:"equipments_raw,omitempty"` // slash-joined, as the scheduling source ships it
	Equipments    []string          `json:"equipments,omitempty"`     // split form, canonical view only
}

// Floor partitions its rooms into identified rooms, keyed by canonical
// room id, and an unkeyed unidentified list. The two sets are disjoint
// and exhaustive.
type Floor struct {
	BuildingID   string           `json:"b_id"`
	ID           string           `json:"f_id"`
	Rooms        map[string]*Room `json:"rooms,omitempty"`
	Unidentified []*Room          `json:"unidentified_rooms,omitempty"`
}

// Number returns the floor id as a real number. Floor ids are strings
// but numerically comparable ("-0.5" is a valid basement mezzanine).
func (f *Floor) Number() (float64, error) {
	n, err := strconv.ParseFloat(f.ID, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "model: floor id %q is not numeric", f.ID)
	}
	return n, nil
}

// AllRooms returns identified rooms (sorted by id for determinism)
// followed by unidentified rooms.
func (f *Floor) AllRooms() []*Room {
	ids := make([]string, 0, len(f.Rooms))
	for id := range f.Rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]*Room, 0, len(f.Rooms)+len(f.Unidentified))
	for _, id := range ids {
		out = append(out, f.Rooms[id])
	}
	return append(out, f.Unidentified...)
}

// SortFloors orders a floor list ascending by floor id interpreted as
// a real number. Unparseable ids sort last, between themselves by
// string order, so the ordering is still total.
func SortFloors(floors []*Floor) {
	sort.SliceStable(floors, func(i, j int) bool {
		ni, erri := floors[i].Number()
		nj, errj := floors[j].Number()
		switch {
		case erri == nil && errj == nil:
			return ni < nj
		case erri == nil:
			return true
		case errj == nil:
			return false
		default:
			return floors[i].ID < floors[j].ID
		}
	})
}

// Namespace is the view one source holds of a building.
type Namespace struct {
	Name      string    `json:"name,omitempty"`
	LegacyID  string    `json:"l_b_id,omitempty"`
	Address   string    `json:"address,omitempty"`
	Latitude  string    `json:"lat,omitempty"`
	Longitude string    `json:"lon,omitempty"`
	Floors    []*Floor  `json:"floors,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FindFloor returns the namespace floor numerically equal to the given
// floor id, or nil.
func (ns *Namespace) FindFloor(floorID string) *Floor {
	want, wantErr := strconv.ParseFloat(floorID, 64)
	for _, f := range ns.Floors {
		if f.ID == floorID {
			return f
		}
		if wantErr == nil {
			if n, err := f.Number(); err == nil && n == want {
				return f
			}
		}
	}
	return nil
}

// LatLon is a coordinate pair in the merged view, rounded to 5
// decimals.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// MergedView is the canonical per-building record derived from the
// source namespaces.
type MergedView struct {
	Name        string    `json:"name,omitempty"`
	LegacyID    string    `json:"l_b_id,omitempty"`
	Address     string    `json:"address,omitempty"`
	Coordinates *LatLon   `json:"coordinates,omitempty"`
	Floors      []*Floor  `json:"floors,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Building is the reconciled record for one campus building. Each of
// the three source namespaces is explicitly optional; Merged is the
// derived canonical view. Deleted* stamps mark soft-deleted
// namespaces.
type Building struct {
	ID string `json:"b_id"`

	Geometry       *Namespace  `json:"geometry,omitempty"`
	Administrative *Namespace  `json:"administrative,omitempty"`
	Scheduling     *Namespace  `json:"scheduling,omitempty"`
	Merged         *MergedView `json:"merged,omitempty"`

	DeletedGeometry       *time.Time `json:"deleted_geometry,omitempty"`
	DeletedAdministrative *time.Time `json:"deleted_administrative,omitempty"`
	DeletedScheduling     *time.Time `json:"deleted_scheduling,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Source returns the namespace for the given kind, nil when the source
// has never reported the building or has been swept.
func (b *Building) Source(kind SourceKind) *Namespace {
	switch kind {
	case SourceGeometry:
		return b.Geometry
	case SourceAdministrative:
		return b.Administrative
	case SourceScheduling:
		return b.Scheduling
	}
	return nil
}

// SetSource replaces the namespace for the given kind and clears its
// soft-delete marker.
func (b *Building) SetSource(kind SourceKind, ns *Namespace) {
	switch kind {
	case SourceGeometry:
		b.Geometry = ns
		b.DeletedGeometry = nil
	case SourceAdministrative:
		b.Administrative = ns
		b.DeletedAdministrative = nil
	case SourceScheduling:
		b.Scheduling = ns
		b.DeletedScheduling = nil
	}
}

// DeletedAt returns the soft-delete stamp for the given kind, nil when
// the namespace is live or never existed.
func (b *Building) DeletedAt(kind SourceKind) *time.Time {
	switch kind {
	case SourceGeometry:
		return b.DeletedGeometry
	case SourceAdministrative:
		return b.DeletedAdministrative
	case SourceScheduling:
		return b.DeletedScheduling
	}
	return nil
}

// Unset soft-deletes the namespace for the given kind, stamping the
// sweep time.
func (b *Building) Unset(kind SourceKind, stamp time.Time) {
	t := stamp
	switch kind {
	case SourceGeometry:
		b.Geometry = nil
		b.DeletedGeometry = &t
	case SourceAdministrative:
		b.Administrative = nil
		b.DeletedAdministrative = &t
	case SourceScheduling:
		b.Scheduling = nil
		b.DeletedScheduling = &t
	}
}

// Orphaned reports whether every namespace the building ever had has
// been soft-deleted; such a record is no longer affirmed by any source
// and may be destroyed.
func (b *Building) Orphaned() bool {
	deleted := 0
	for _, kind := range Sources {
		if b.Source(kind) != nil {
			return false
		}
		if b.DeletedAt(kind) != nil {
			deleted++
		}
	}
	return deleted > 0
}

// LegacyID returns the legacy building identifier carried by the
// canonical view, used only for identity reconciliation.
func (b *Building) LegacyID() string {
	if b.Merged != nil && b.Merged.LegacyID != "" {
		return b.Merged.LegacyID
	}
	if b.Administrative != nil {
		return b.Administrative.LegacyID
	}
	return ""
}

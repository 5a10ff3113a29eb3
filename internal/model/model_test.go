package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortFloors(t *testing.T) {
	floors := []*Floor{
		{ID: "2"},
		{ID: "-1"},
		{ID: "mezzanine"},
		{ID: "0"},
		{ID: "-0.5"},
		{ID: "attic"},
	}
	SortFloors(floors)

	got := make([]string, 0, len(floors))
	for _, f := range floors {
		got = append(got, f.ID)
	}
	assert.Equal(t, []string{"-1", "-0.5", "0", "2", "attic", "mezzanine"}, got)
}

func TestNamespaceFindFloor(t *testing.T) {
	ns := &Namespace{Floors: []*Floor{
		{ID: "0"},
		{ID: "1.0"},
		{ID: "basement"},
	}}

	assert.Equal(t, "0", ns.FindFloor("0").ID)
	// Numeric equality, not string equality.
	assert.Equal(t, "1.0", ns.FindFloor("1").ID)
	assert.Equal(t, "basement", ns.FindFloor("basement").ID)
	assert.Nil(t, ns.FindFloor("2"))
}

func TestBuildingSourceLifecycle(t *testing.T) {
	b := &Building{ID: "21030"}
	stamp := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	b.SetSource(SourceGeometry, &Namespace{UpdatedAt: stamp})
	require.NotNil(t, b.Source(SourceGeometry))
	assert.Nil(t, b.DeletedAt(SourceGeometry))
	assert.False(t, b.Orphaned())

	b.Unset(SourceGeometry, stamp)
	assert.Nil(t, b.Source(SourceGeometry))
	require.NotNil(t, b.DeletedAt(SourceGeometry))
	assert.Equal(t, stamp, *b.DeletedAt(SourceGeometry))
	assert.True(t, b.Orphaned())

	// Re-applying the source clears the deletion marker.
	b.SetSource(SourceGeometry, &Namespace{})
	assert.Nil(t, b.DeletedAt(SourceGeometry))
	assert.False(t, b.Orphaned())
}

func TestOrphanedNeedsAtLeastOneDeletion(t *testing.T) {
	// A building with no namespaces and no deletion markers was never
	// reported by anyone; it is not orphaned.
	b := &Building{ID: "100"}
	assert.False(t, b.Orphaned())
}

func TestOrphanedOneLiveNamespaceBlocks(t *testing.T) {
	stamp := time.Now().UTC()
	b := &Building{ID: "100"}
	b.SetSource(SourceScheduling, &Namespace{})
	b.Unset(SourceGeometry, stamp)
	assert.False(t, b.Orphaned())
}

func TestBuildingLegacyID(t *testing.T) {
	b := &Building{ID: "21030"}
	assert.Empty(t, b.LegacyID())

	b.Administrative = &Namespace{LegacyID: "5703"}
	assert.Equal(t, "5703", b.LegacyID())

	// The merged view carries the key once built, and keeps it when the
	// administrative namespace goes away.
	b.Merged = &MergedView{LegacyID: "5703"}
	b.Administrative = nil
	assert.Equal(t, "5703", b.LegacyID())
}

func TestFloorNumber(t *testing.T) {
	tests := []struct {
		id      string
		want    float64
		wantErr bool
	}{
		{"0", 0, false},
		{"-1", -1, false},
		{"-0.5", -0.5, false},
		{"3", 3, false},
		{"T", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			n, err := (&Floor{ID: tt.id}).Number()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestAllRoomsDeterministicOrder(t *testing.T) {
	f := &Floor{
		Rooms: map[string]*Room{
			"B2": {Name: "b"},
			"A1": {Name: "a"},
		},
		Unidentified: []*Room{{Name: "u"}},
	}
	rooms := f.AllRooms()
	require.Len(t, rooms, 3)
	assert.Equal(t, "a", rooms[0].Name)
	assert.Equal(t, "b", rooms[1].Name)
	assert.Equal(t, "u", rooms[2].Name)
}

package reconcile

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-atlas/plan-cli/internal/extract"
	"github.com/campus-atlas/plan-cli/internal/merge"
	"github.com/campus-atlas/plan-cli/internal/model"
)

// memRepo is an in-memory Repository for reconciler tests.
type memRepo struct {
	buildings map[string]*model.Building
}

func newMemRepo() *memRepo {
	return &memRepo{buildings: map[string]*model.Building{}}
}

func (m *memRepo) FindByID(ctx context.Context, id string) (*model.Building, error) {
	return m.buildings[id], nil
}

func (m *memRepo) FindByLegacyID(ctx context.Context, id string) (*model.Building, error) {
	ids := make([]string, 0, len(m.buildings))
	for bid := range m.buildings {
		ids = append(ids, bid)
	}
	sort.Strings(ids)
	for _, bid := range ids {
		if m.buildings[bid].LegacyID() == id {
			return m.buildings[bid], nil
		}
	}
	return nil, nil
}

func (m *memRepo) Save(ctx context.Context, b *model.Building) error {
	m.buildings[b.ID] = b
	return nil
}

func (m *memRepo) Remove(ctx context.Context, id string) error {
	delete(m.buildings, id)
	return nil
}

func (m *memRepo) FindStale(ctx context.Context, source model.SourceKind, before time.Time) ([]*model.Building, error) {
	var out []*model.Building
	for _, b := range m.buildings {
		if ns := b.Source(source); ns != nil && ns.UpdatedAt.Before(before) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memRepo) UnsetNamespace(ctx context.Context, id string, source model.SourceKind, stamp time.Time) error {
	b := m.buildings[id]
	if b != nil {
		b.Unset(source, stamp)
	}
	return nil
}

func (m *memRepo) RemoveIfAllNamespacesDeleted(ctx context.Context) ([]string, error) {
	var ids []string
	for id, b := range m.buildings {
		if b.Orphaned() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	for _, id := range ids {
		delete(m.buildings, id)
	}
	return ids, nil
}

func (m *memRepo) List(ctx context.Context) ([]*model.Building, error) {
	var out []*model.Building
	for _, b := range m.buildings {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memRepo) Migrate(ctx context.Context) error { return nil }
func (m *memRepo) Close() error                      { return nil }

func newTestReconciler(t *testing.T, r *memRepo) *Reconciler {
	t.Helper()
	merger, err := merge.NewMerger(nil, nil, nil)
	require.NoError(t, err)
	return New(r, merger, nil)
}

func batchAt(source model.SourceKind, stamp time.Time) Batch {
	return Batch{ID: "test-batch", Source: source, Stamp: stamp}
}

func geomFloor(buildingID, floorID string) *model.Floor {
	return &model.Floor{
		BuildingID: buildingID,
		ID:         floorID,
		Rooms:      map[string]*model.Room{},
	}
}

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func TestApplyFloorCreatesBuilding(t *testing.T) {
	r := newMemRepo()
	rec := newTestReconciler(t, r)
	ctx := context.Background()

	err := rec.ApplyFloor(ctx, batchAt(model.SourceGeometry, t0), geomFloor("5703", "0"))
	require.NoError(t, err)

	b := r.buildings["5703"]
	require.NotNil(t, b)
	require.NotNil(t, b.Geometry)
	assert.Equal(t, t0, b.Geometry.UpdatedAt)
	assert.Equal(t, t0, b.UpdatedAt)
	require.NotNil(t, b.Merged)
	require.Len(t, b.Merged.Floors, 1)
}

func TestApplyFloorReplacesSameFloor(t *testing.T) {
	r := newMemRepo()
	rec := newTestReconciler(t, r)
	ctx := context.Background()

	require.NoError(t, rec.ApplyFloor(ctx, batchAt(model.SourceGeometry, t0), geomFloor("5703", "0")))
	// Re-ingesting the same drawing replaces, never duplicates. "0.0"
	// counts as the same floor as "0".
	require.NoError(t, rec.ApplyFloor(ctx, batchAt(model.SourceGeometry, t0.Add(time.Hour)), geomFloor("5703", "0.0")))
	require.NoError(t, rec.ApplyFloor(ctx, batchAt(model.SourceGeometry, t0.Add(time.Hour)), geomFloor("5703", "1")))

	b := r.buildings["5703"]
	require.Len(t, b.Geometry.Floors, 2)
	assert.Equal(t, "0.0", b.Geometry.Floors[0].ID)
	assert.Equal(t, "1", b.Geometry.Floors[1].ID)
}

func TestApplyFloorInvalidBuildingID(t *testing.T) {
	r := newMemRepo()
	rec := newTestReconciler(t, r)

	err := rec.ApplyFloor(context.Background(), batchAt(model.SourceGeometry, t0), geomFloor("12", "0"))
	skip, ok := extract.AsSkip(err)
	require.True(t, ok)
	assert.Equal(t, extract.SkipInvalidIdentifier, skip.Kind)
	assert.Empty(t, r.buildings)
}

func TestApplyFloorRejectsNonGeometryBatch(t *testing.T) {
	r := newMemRepo()
	rec := newTestReconciler(t, r)

	err := rec.ApplyFloor(context.Background(), batchAt(model.SourceAdministrative, t0), geomFloor("5703", "0"))
	assert.Error(t, err)
	_, ok := extract.AsSkip(err)
	assert.False(t, ok)
}

func TestIngestionOrderCommutes(t *testing.T) {
	ctx := context.Background()
	adminNS := func() *model.Namespace {
		return &model.Namespace{Name: "Edificio", LegacyID: "5703", Latitude: "45.1", Longitude: "9.2"}
	}

	// Geometry first under the legacy number, then the administrative
	// record carrying the canonical id.
	r1 := newMemRepo()
	rec1 := newTestReconciler(t, r1)
	require.NoError(t, rec1.ApplyFloor(ctx, batchAt(model.SourceGeometry, t0), geomFloor("5703", "0")))
	require.NoError(t, rec1.ApplyNamespace(ctx, batchAt(model.SourceAdministrative, t0.Add(time.Minute)), "21030", adminNS()))

	// Administrative first, geometry second.
	r2 := newMemRepo()
	rec2 := newTestReconciler(t, r2)
	require.NoError(t, rec2.ApplyNamespace(ctx, batchAt(model.SourceAdministrative, t0), "21030", adminNS()))
	require.NoError(t, rec2.ApplyFloor(ctx, batchAt(model.SourceGeometry, t0.Add(time.Minute)), geomFloor("5703", "0")))

	for name, r := range map[string]*memRepo{"geometry-first": r1, "admin-first": r2} {
		t.Run(name, func(t *testing.T) {
			require.Len(t, r.buildings, 1, "one reconciled record")
			b := r.buildings["21030"]
			require.NotNil(t, b, "keyed by the canonical id")
			assert.NotNil(t, b.Geometry)
			assert.NotNil(t, b.Administrative)
			assert.Equal(t, "5703", b.Merged.LegacyID)
		})
	}
}

func TestApplyNamespaceUpdatesExisting(t *testing.T) {
	r := newMemRepo()
	rec := newTestReconciler(t, r)
	ctx := context.Background()

	require.NoError(t, rec.ApplyNamespace(ctx, batchAt(model.SourceScheduling, t0), "21030",
		&model.Namespace{Name: "Polo A"}))
	require.NoError(t, rec.ApplyNamespace(ctx, batchAt(model.SourceScheduling, t0.Add(time.Hour)), "21030",
		&model.Namespace{Name: "Polo B"}))

	require.Len(t, r.buildings, 1)
	b := r.buildings["21030"]
	assert.Equal(t, "Polo B", b.Scheduling.Name)
	assert.Equal(t, t0.Add(time.Hour), b.Scheduling.UpdatedAt)
}

func TestSweepStale(t *testing.T) {
	r := newMemRepo()
	rec := newTestReconciler(t, r)
	ctx := context.Background()

	require.NoError(t, rec.ApplyNamespace(ctx, batchAt(model.SourceScheduling, t0), "21030", &model.Namespace{Name: "A"}))
	require.NoError(t, rec.ApplyNamespace(ctx, batchAt(model.SourceScheduling, t0), "21031", &model.Namespace{Name: "B"}))

	// A later batch re-reports only 21030.
	batch := batchAt(model.SourceScheduling, t0.Add(time.Hour))
	require.NoError(t, rec.ApplyNamespace(ctx, batch, "21030", &model.Namespace{Name: "A"}))

	swept, err := rec.SweepStale(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, []string{"21031"}, swept)

	b := r.buildings["21031"]
	assert.Nil(t, b.Scheduling)
	require.NotNil(t, b.DeletedScheduling)
	assert.Equal(t, batch.Stamp, *b.DeletedScheduling)

	// The building reported in the batch is untouched.
	assert.NotNil(t, r.buildings["21030"].Scheduling)
}

func TestHardDeleteOnlyOrphans(t *testing.T) {
	r := newMemRepo()
	rec := newTestReconciler(t, r)
	ctx := context.Background()

	require.NoError(t, rec.ApplyNamespace(ctx, batchAt(model.SourceScheduling, t0), "21030", &model.Namespace{}))
	require.NoError(t, rec.ApplyNamespace(ctx, batchAt(model.SourceScheduling, t0), "21031", &model.Namespace{}))
	require.NoError(t, rec.ApplyNamespace(ctx, batchAt(model.SourceAdministrative, t0), "21031",
		&model.Namespace{Latitude: "1", Longitude: "1"}))

	// Sweep scheduling everywhere.
	sweepBatch := batchAt(model.SourceScheduling, t0.Add(time.Hour))
	_, err := rec.SweepStale(ctx, sweepBatch)
	require.NoError(t, err)

	removed, err := rec.HardDelete(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"21030"}, removed)

	// 21031 still has a live administrative namespace.
	assert.NotNil(t, r.buildings["21031"])
	assert.Nil(t, r.buildings["21030"])
}

func TestReapplyAfterSweepClearsDeletion(t *testing.T) {
	r := newMemRepo()
	rec := newTestReconciler(t, r)
	ctx := context.Background()

	require.NoError(t, rec.ApplyNamespace(ctx, batchAt(model.SourceScheduling, t0), "21030", &model.Namespace{}))
	_, err := rec.SweepStale(ctx, batchAt(model.SourceScheduling, t0.Add(time.Hour)))
	require.NoError(t, err)
	require.NotNil(t, r.buildings["21030"].DeletedScheduling)

	require.NoError(t, rec.ApplyNamespace(ctx, batchAt(model.SourceScheduling, t0.Add(2*time.Hour)), "21030", &model.Namespace{}))
	b := r.buildings["21030"]
	assert.NotNil(t, b.Scheduling)
	assert.Nil(t, b.DeletedScheduling)
}

func TestFloorsSortedOnCommit(t *testing.T) {
	r := newMemRepo()
	rec := newTestReconciler(t, r)
	ctx := context.Background()

	for _, id := range []string{"2", "-1", "0"} {
		require.NoError(t, rec.ApplyFloor(ctx, batchAt(model.SourceGeometry, t0), geomFloor("5703", id)))
	}

	b := r.buildings["5703"]
	got := make([]string, 0, 3)
	for _, f := range b.Geometry.Floors {
		got = append(got, f.ID)
	}
	assert.Equal(t, []string{"-1", "0", "2"}, got)
}

package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-atlas/plan-cli/internal/extract"
	"github.com/campus-atlas/plan-cli/internal/merge"
	"github.com/campus-atlas/plan-cli/internal/model"
	"github.com/campus-atlas/plan-cli/internal/reconcile"
	"github.com/campus-atlas/plan-cli/internal/repo"
	"github.com/campus-atlas/plan-cli/internal/source"
)

func newTestPipeline(t *testing.T) (*Pipeline, *repo.SQLiteRepo) {
	t.Helper()

	r, err := repo.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	require.NoError(t, r.Migrate(context.Background()))

	merger, err := merge.NewMerger(nil, nil, nil)
	require.NoError(t, err)

	floors := extract.NewFloorTable([]extract.FloorPattern{
		{Pattern: regexp.MustCompile(`(?i)^(?:T|PT|terra)$`), FloorID: "0"},
		{Pattern: regexp.MustCompile(`^1$`), FloorID: "1"},
	})
	ex := extract.New(extract.Config{
		OutlineLayers: []string{"MURI"},
		LabelLayers:   []string{"TESTI"},
		TitleLayers:   []string{"CARTIGLIO"},
	}, floors)

	rec := reconcile.New(r, merger, &LabelResolver{})
	return New(ex, rec, 2), r
}

// writeDrawing writes a minimal tagged drawing with one square room
// outline and one label inside it.
func writeDrawing(t *testing.T, dir, name string) string {
	t.Helper()
	data := strings.Join([]string{
		"0", "SECTION",
		"2", "ENTITIES",
		"0", "LWPOLYLINE",
		"8", "MURI",
		"10", "0", "20", "0",
		"10", "100", "20", "0",
		"10", "100", "20", "100",
		"10", "0", "20", "100",
		"0", "TEXT",
		"8", "TESTI",
		"1", "T065",
		"10", "50", "20", "50",
		"0", "ENDSEC",
		"0", "EOF",
	}, "\n") + "\n"

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestIngestDrawings(t *testing.T) {
	p, r := newTestPipeline(t)
	ctx := context.Background()
	dir := t.TempDir()

	paths := []string{
		writeDrawing(t, dir, "21030_T.dxf"),
		writeDrawing(t, dir, "21030_1.dxf"),
	}

	batch := reconcile.NewBatch(model.SourceGeometry)
	summary, err := p.IngestDrawings(ctx, batch, paths)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 0, summary.SkippedTotal())

	b, err := r.FindByID(ctx, "21030")
	require.NoError(t, err)
	require.NotNil(t, b)
	require.NotNil(t, b.Geometry)
	require.Len(t, b.Geometry.Floors, 2)
	assert.Equal(t, "0", b.Geometry.Floors[0].ID)
	assert.Equal(t, "1", b.Geometry.Floors[1].ID)
	require.Len(t, b.Geometry.Floors[0].Unidentified, 1)

	require.NotNil(t, b.Merged)
	require.Len(t, b.Merged.Floors, 2)
}

func TestIngestDrawingsCountsSkips(t *testing.T) {
	p, _ := newTestPipeline(t)
	dir := t.TempDir()

	bad := filepath.Join(dir, "21030_T.txt")
	require.NoError(t, os.WriteFile(bad, []byte("not a drawing"), 0o644))

	unnamed := writeDrawing(t, dir, "floorplan.dxf")

	batch := reconcile.NewBatch(model.SourceGeometry)
	summary, err := p.IngestDrawings(context.Background(), batch, []string{bad, unnamed})
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Processed)
	assert.Equal(t, 1, summary.Skipped[extract.SkipFileFormat])
	assert.Equal(t, 1, summary.Skipped[extract.SkipIdentification])
	assert.Equal(t, 2, summary.SkippedTotal())
}

func TestSyncRecordsResolvesRoomIDs(t *testing.T) {
	p, r := newTestPipeline(t)
	ctx := context.Background()
	dir := t.TempDir()

	batch := reconcile.NewBatch(model.SourceGeometry)
	_, err := p.IngestDrawings(ctx, batch, []string{writeDrawing(t, dir, "21030_T.dxf")})
	require.NoError(t, err)

	admin := reconcile.NewBatch(model.SourceAdministrative)
	records := []source.Record{{
		BuildingID: "21030",
		Namespace: &model.Namespace{
			Name: "Edificio 12",
			Floors: []*model.Floor{
				{BuildingID: "21030", ID: "0", Rooms: map[string]*model.Room{
					"T065": {Name: "Aula T065"},
				}},
			},
		},
	}}
	summary, err := p.SyncRecords(ctx, admin, records)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)

	b, err := r.FindByID(ctx, "21030")
	require.NoError(t, err)
	require.NotNil(t, b.Administrative)

	// The drawing room label matched the administrative room id.
	floor := b.Geometry.Floors[0]
	require.Contains(t, floor.Rooms, "T065")
	assert.Empty(t, floor.Unidentified)
}

func TestSyncRecordsInvalidID(t *testing.T) {
	p, _ := newTestPipeline(t)

	batch := reconcile.NewBatch(model.SourceAdministrative)
	summary, err := p.SyncRecords(context.Background(), batch, []source.Record{
		{BuildingID: "12", Namespace: &model.Namespace{Name: "too short"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Processed)
	assert.Equal(t, 1, summary.Skipped[extract.SkipInvalidIdentifier])
}

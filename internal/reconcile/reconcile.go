// Package reconcile resolves building identity across the source
// numbering schemes and drives the namespace lifecycle: attach or
// create on update, soft-delete on staleness, destroy once no source
// affirms a building.
package reconcile

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/campus-atlas/plan-cli/internal/extract"
	"github.com/campus-atlas/plan-cli/internal/merge"
	"github.com/campus-atlas/plan-cli/internal/model"
	"github.com/campus-atlas/plan-cli/internal/repo"
)

// Batch identifies one source update run. Every building touched by
// the batch gets its namespace and record stamps set to the batch
// time; the staleness sweep then catches whatever the batch did not
// touch.
type Batch struct {
	ID     string
	Source model.SourceKind
	Stamp  time.Time
}

// NewBatch starts a batch for the given source, stamped now.
func NewBatch(source model.SourceKind) Batch {
	return Batch{
		ID:     uuid.New().String(),
		Source: source,
		Stamp:  time.Now().UTC(),
	}
}

// Resolver re-runs label resolution over a building's geometry floors
// whenever any namespace changes, so ids arriving late from the
// administrative or scheduling side still get claimed.
type Resolver interface {
	Resolve(b *model.Building)
}

// Reconciler applies source updates to the building store.
type Reconciler struct {
	repo     repo.Repository
	merger   *merge.Merger
	resolver Resolver
}

// New creates a Reconciler. The resolver may be nil.
func New(r repo.Repository, m *merge.Merger, res Resolver) *Reconciler {
	return &Reconciler{repo: r, merger: m, resolver: res}
}

// findOrLink looks a building up by canonical id, then by the legacy
// id its canonical view carries, and creates it when both miss. This
// makes ingestion order commute: whichever source arrives second
// attaches to the record the first one created.
func (r *Reconciler) findOrLink(ctx context.Context, incomingID string) (*model.Building, bool, error) {
	b, err := r.repo.FindByID(ctx, incomingID)
	if err != nil {
		return nil, false, err
	}
	if b != nil {
		return b, false, nil
	}

	b, err = r.repo.FindByLegacyID(ctx, incomingID)
	if err != nil {
		return nil, false, err
	}
	if b != nil {
		zap.L().Debug("linked building by legacy id",
			zap.String("incoming_id", incomingID),
			zap.String("b_id", b.ID),
		)
		return b, false, nil
	}

	return &model.Building{ID: incomingID}, true, nil
}

// ApplyFloor merges one extracted floor into the geometry namespace of
// its building. Re-processing the same drawing replaces exactly the
// floor with the same numeric id; other floors and namespaces are
// untouched.
func (r *Reconciler) ApplyFloor(ctx context.Context, batch Batch, floor *model.Floor) error {
	if !model.ValidBuildingID(floor.BuildingID) {
		return extract.Skipf(extract.SkipInvalidIdentifier,
			"building id %q fails validation", floor.BuildingID)
	}

	b, created, err := r.findOrLink(ctx, floor.BuildingID)
	if err != nil {
		return err
	}

	ns := b.Geometry
	if ns == nil {
		ns = &model.Namespace{}
	}
	replaceFloor(ns, floor)

	return r.commit(ctx, batch, b, ns, created)
}

// ApplyNamespace replaces a building's whole namespace for the batch
// source. When the incoming record carries a legacy id pointing at a
// building stored under the old key, that record is re-keyed to the
// incoming canonical id.
func (r *Reconciler) ApplyNamespace(ctx context.Context, batch Batch, buildingID string, ns *model.Namespace) error {
	if !model.ValidBuildingID(buildingID) {
		return extract.Skipf(extract.SkipInvalidIdentifier,
			"building id %q fails validation", buildingID)
	}

	b, created, err := r.findOrLink(ctx, buildingID)
	if err != nil {
		return err
	}

	oldID := ""
	if created && ns.LegacyID != "" {
		legacy, err := r.repo.FindByID(ctx, ns.LegacyID)
		if err != nil {
			return err
		}
		if legacy != nil {
			zap.L().Info("re-keying building from legacy id",
				zap.String("legacy_id", ns.LegacyID),
				zap.String("b_id", buildingID),
			)
			oldID = legacy.ID
			legacy.ID = buildingID
			b, created = legacy, false
		}
	}

	b.SetSource(batch.Source, nil) // replaced wholesale below
	if err := r.commitNamespace(ctx, batch, b, ns, created); err != nil {
		return err
	}
	if oldID != "" && oldID != b.ID {
		if err := r.repo.Remove(ctx, oldID); err != nil {
			return eris.Wrapf(err, "reconcile: drop re-keyed record %s", oldID)
		}
	}
	return nil
}

func (r *Reconciler) commit(ctx context.Context, batch Batch, b *model.Building, ns *model.Namespace, created bool) error {
	if batch.Source != model.SourceGeometry {
		return eris.Errorf("reconcile: per-floor updates only apply to the geometry namespace, got %q", batch.Source)
	}
	return r.commitNamespace(ctx, batch, b, ns, created)
}

func (r *Reconciler) commitNamespace(ctx context.Context, batch Batch, b *model.Building, ns *model.Namespace, created bool) error {
	ns.UpdatedAt = batch.Stamp
	b.SetSource(batch.Source, ns)
	b.UpdatedAt = batch.Stamp

	if r.resolver != nil {
		r.resolver.Resolve(b)
	}
	sortAllFloors(b)

	if err := r.merger.BuildView(ctx, b); err != nil {
		return err
	}
	if err := r.repo.Save(ctx, b); err != nil {
		return err
	}

	zap.L().Info("building updated",
		zap.String("b_id", b.ID),
		zap.String("source", string(batch.Source)),
		zap.String("batch", batch.ID),
		zap.Bool("created", created),
	)
	return nil
}

// SweepStale soft-deletes the batch source's namespace on every
// building the batch did not touch. Returns the affected ids.
func (r *Reconciler) SweepStale(ctx context.Context, batch Batch) ([]string, error) {
	stale, err := r.repo.FindStale(ctx, batch.Source, batch.Stamp)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(stale))
	for _, b := range stale {
		if err := r.repo.UnsetNamespace(ctx, b.ID, batch.Source, batch.Stamp); err != nil {
			return ids, err
		}
		ids = append(ids, b.ID)
	}

	if len(ids) > 0 {
		zap.L().Info("swept stale namespaces",
			zap.String("source", string(batch.Source)),
			zap.String("batch", batch.ID),
			zap.Int("count", len(ids)),
			zap.Strings("b_ids", ids),
		)
	}
	return ids, nil
}

// HardDelete destroys every building whose namespaces have all been
// soft-deleted. A building retaining one live namespace is never
// removed.
func (r *Reconciler) HardDelete(ctx context.Context) ([]string, error) {
	ids, err := r.repo.RemoveIfAllNamespacesDeleted(ctx)
	if err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		zap.L().Info("removed buildings no source affirms", zap.Strings("b_ids", ids))
	}
	return ids, nil
}

// replaceFloor swaps out the namespace floor with the same numeric
// floor id, or appends.
func replaceFloor(ns *model.Namespace, floor *model.Floor) {
	if existing := ns.FindFloor(floor.ID); existing != nil {
		for i, f := range ns.Floors {
			if f == existing {
				ns.Floors[i] = floor
				return
			}
		}
	}
	ns.Floors = append(ns.Floors, floor)
}

// sortAllFloors restores the floor ordering invariant on every
// namespace immediately before persisting.
func sortAllFloors(b *model.Building) {
	for _, kind := range model.Sources {
		if ns := b.Source(kind); ns != nil {
			model.SortFloors(ns.Floors)
		}
	}
	if b.Merged != nil {
		model.SortFloors(b.Merged.Floors)
	}
}

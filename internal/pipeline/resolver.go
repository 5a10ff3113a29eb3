package pipeline

import (
	"github.com/campus-atlas/plan-cli/internal/model"
	"github.com/campus-atlas/plan-cli/internal/resolve"
)

// LabelResolver resolves room ids and categories over a building's
// geometry floors using the administrative and scheduling floors as
// candidates. Safe to run repeatedly; already-identified rooms keep
// their ids.
type LabelResolver struct {
	Categories *model.CategoryTable
}

// Resolve implements reconcile.Resolver.
func (lr *LabelResolver) Resolve(b *model.Building) {
	if b.Geometry == nil {
		return
	}

	var candidates []*model.Floor
	for _, ns := range []*model.Namespace{b.Administrative, b.Scheduling} {
		if ns != nil {
			candidates = append(candidates, ns.Floors...)
		}
	}

	for _, floor := range b.Geometry.Floors {
		resolve.RoomIDs(floor, candidates)
		if lr.Categories != nil {
			resolve.Categories(lr.Categories, floor.AllRooms())
		}
	}
}

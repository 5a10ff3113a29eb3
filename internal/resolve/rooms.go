// Package resolve maps the free text carried by room labels onto
// canonical room identifiers and category codes.
package resolve

import (
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/campus-atlas/plan-cli/internal/model"
)

// fold normalizes label text for matching: trimmed, Unicode
// case-folded.
func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// RoomIDs moves target rooms from unidentified to identified by
// matching their label text against the canonical room ids of the
// candidate source floors. Candidates are scanned nearest floor first
// (numeric distance on floor id); within a floor, ids are scanned in
// sorted order. A claimed id cannot be reused by a later room in the
// same pass. Rooms with no match stay unidentified; that is not an
// error. The pass is idempotent.
func RoomIDs(target *model.Floor, candidates []*model.Floor) int {
	ordered := orderByFloorDistance(target, candidates)

	claimed := make(map[string]bool, len(target.Rooms))
	for id := range target.Rooms {
		claimed[fold(id)] = true
	}
	if target.Rooms == nil {
		target.Rooms = map[string]*model.Room{}
	}

	var remaining []*model.Room
	resolved := 0
	for _, room := range target.Unidentified {
		texts := make([]string, 0, len(room.Labels))
		for _, l := range room.Labels {
			texts = append(texts, fold(l.Text))
		}

		id, ok := matchRoom(texts, ordered, claimed)
		if !ok {
			remaining = append(remaining, room)
			continue
		}
		target.Rooms[id] = room
		claimed[fold(id)] = true
		resolved++
	}
	target.Unidentified = remaining

	if resolved > 0 {
		zap.L().Debug("resolved room ids",
			zap.String("b_id", target.BuildingID),
			zap.String("f_id", target.ID),
			zap.Int("resolved", resolved),
			zap.Int("unidentified", len(remaining)),
		)
	}
	return resolved
}

// matchRoom returns the first unclaimed candidate id equal to one of
// the room's label texts.
func matchRoom(texts []string, candidates []*model.Floor, claimed map[string]bool) (string, bool) {
	for _, cand := range candidates {
		for _, id := range sortedRoomIDs(cand) {
			folded := fold(id)
			if claimed[folded] {
				continue
			}
			for _, t := range texts {
				if t == folded {
					return id, true
				}
			}
		}
	}
	return "", false
}

// orderByFloorDistance sorts candidate floors by the absolute numeric
// distance between their floor id and the target's, so same and
// adjacent floors are tried first. Floors with unparseable ids sort
// last.
func orderByFloorDistance(target *model.Floor, candidates []*model.Floor) []*model.Floor {
	targetNum, err := target.Number()
	if err != nil {
		targetNum = 0
	}

	distance := func(f *model.Floor) float64 {
		n, err := f.Number()
		if err != nil {
			return math.Inf(1)
		}
		return math.Abs(targetNum - n)
	}

	out := make([]*model.Floor, len(candidates))
	copy(out, candidates)
	sort.SliceStable(out, func(i, j int) bool {
		return distance(out[i]) < distance(out[j])
	})
	return out
}

func sortedRoomIDs(f *model.Floor) []string {
	ids := make([]string, 0, len(f.Rooms))
	for id := range f.Rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

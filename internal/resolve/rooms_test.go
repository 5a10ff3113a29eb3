package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-atlas/plan-cli/internal/model"
)

func labeled(texts ...string) *model.Room {
	r := &model.Room{}
	for _, t := range texts {
		r.Labels = append(r.Labels, model.Label{Text: t})
	}
	return r
}

func candidateFloor(id string, roomIDs ...string) *model.Floor {
	f := &model.Floor{ID: id, Rooms: map[string]*model.Room{}}
	for _, rid := range roomIDs {
		f.Rooms[rid] = &model.Room{}
	}
	return f
}

func TestRoomIDsBasicMatch(t *testing.T) {
	target := &model.Floor{
		ID:           "0",
		Unidentified: []*model.Room{labeled("T065"), labeled("storage")},
	}
	candidates := []*model.Floor{candidateFloor("0", "T065")}

	n := RoomIDs(target, candidates)

	assert.Equal(t, 1, n)
	require.Contains(t, target.Rooms, "T065")
	require.Len(t, target.Unidentified, 1)
	assert.Equal(t, "storage", target.Unidentified[0].Labels[0].Text)
}

func TestRoomIDsCaseFolded(t *testing.T) {
	target := &model.Floor{
		ID:           "0",
		Unidentified: []*model.Room{labeled("t065")},
	}
	candidates := []*model.Floor{candidateFloor("0", "T065")}

	n := RoomIDs(target, candidates)

	assert.Equal(t, 1, n)
	// The canonical id is stored, not the label spelling.
	assert.Contains(t, target.Rooms, "T065")
}

func TestRoomIDsClaimedOnce(t *testing.T) {
	target := &model.Floor{
		ID:           "0",
		Unidentified: []*model.Room{labeled("T065"), labeled("T065")},
	}
	candidates := []*model.Floor{candidateFloor("0", "T065")}

	n := RoomIDs(target, candidates)

	assert.Equal(t, 1, n)
	assert.Len(t, target.Rooms, 1)
	assert.Len(t, target.Unidentified, 1)
}

func TestRoomIDsNearestFloorWins(t *testing.T) {
	// The id exists on two candidate floors; the numerically closer
	// floor must provide the match, so the far floor's claim survives
	// for its own pass.
	target := &model.Floor{
		ID:           "1",
		Unidentified: []*model.Room{labeled("A101")},
	}
	near := candidateFloor("1", "A101")
	far := candidateFloor("3", "A101")

	n := RoomIDs(target, []*model.Floor{far, near})

	assert.Equal(t, 1, n)
	assert.Contains(t, target.Rooms, "A101")
}

func TestRoomIDsIdempotent(t *testing.T) {
	target := &model.Floor{
		ID:           "0",
		Unidentified: []*model.Room{labeled("T065"), labeled("no-match")},
	}
	candidates := []*model.Floor{candidateFloor("0", "T065", "T066")}

	first := RoomIDs(target, candidates)
	second := RoomIDs(target, candidates)

	assert.Equal(t, 1, first)
	assert.Equal(t, 0, second)
	assert.Len(t, target.Rooms, 1)
	assert.Len(t, target.Unidentified, 1)
}

func TestRoomIDsExistingRoomsKeepTheirIDs(t *testing.T) {
	already := &model.Room{}
	target := &model.Floor{
		ID:           "0",
		Rooms:        map[string]*model.Room{"T065": already},
		Unidentified: []*model.Room{labeled("T065")},
	}
	candidates := []*model.Floor{candidateFloor("0", "T065")}

	n := RoomIDs(target, candidates)

	assert.Equal(t, 0, n)
	assert.Same(t, already, target.Rooms["T065"])
	assert.Len(t, target.Unidentified, 1)
}

func TestRoomIDsNoCandidates(t *testing.T) {
	target := &model.Floor{
		ID:           "0",
		Unidentified: []*model.Room{labeled("T065")},
	}

	assert.Equal(t, 0, RoomIDs(target, nil))
	assert.Len(t, target.Unidentified, 1)
}

func TestOrderByFloorDistance(t *testing.T) {
	target := &model.Floor{ID: "2"}
	floors := []*model.Floor{
		{ID: "5"},
		{ID: "mezz"},
		{ID: "2"},
		{ID: "1"},
	}

	ordered := orderByFloorDistance(target, floors)

	ids := make([]string, 0, len(ordered))
	for _, f := range ordered {
		ids = append(ids, f.ID)
	}
	assert.Equal(t, []string{"2", "1", "5", "mezz"}, ids)
}

package resolve

import (
	"go.uber.org/zap"

	"github.com/campus-atlas/plan-cli/internal/model"
)

// Categories assigns a category code to every room whose labels match
// the category table. A label equal to a category code beats a label
// equal to a category display name; within each priority the first
// satisfying label in label order wins. Rooms with no match stay
// uncategorized.
func Categories(table *model.CategoryTable, rooms []*model.Room) int {
	assigned := 0
	for _, room := range rooms {
		if room.Category != "" {
			continue
		}
		code, ok := matchCategory(table, room.Labels)
		if !ok {
			continue
		}
		room.Category = code
		assigned++
	}
	if assigned > 0 {
		zap.L().Debug("resolved room categories", zap.Int("assigned", assigned))
	}
	return assigned
}

func matchCategory(table *model.CategoryTable, labels []model.Label) (string, bool) {
	// Priority 1: label text equals a category code.
	for _, label := range labels {
		text := fold(label.Text)
		for _, code := range table.Codes() {
			if fold(code) == text {
				return code, true
			}
		}
	}

	// Priority 2: label text equals a category display name.
	for _, label := range labels {
		text := fold(label.Text)
		for _, code := range table.Codes() {
			if name, ok := table.Name(code); ok && fold(name) == text {
				return code, true
			}
		}
	}
	return "", false
}

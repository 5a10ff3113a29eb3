package merge

import (
	"fmt"

	"github.com/campus-atlas/plan-cli/internal/model"
)

// Field names a mergeable room attribute.
type Field string

const (
	FieldRoomName      Field = "room_name"
	FieldCapacity      Field = "capacity"
	FieldAccessibility Field = "accessibility"
	FieldEquipments    Field = "equipments"
)

// roomFields is every field the room merger resolves; the policy must
// configure all of them.
var roomFields = []Field{FieldRoomName, FieldCapacity, FieldAccessibility, FieldEquipments}

// RoomPolicy maps each room field to the source precedence used to
// fill it. The first source in the chain holding a non-empty value
// wins.
type RoomPolicy map[Field][]model.SourceKind

// DefaultRoomPolicy is the observed source precedence: scheduling
// overrides administrative; accessibility and equipments only ever
// come from scheduling.
func DefaultRoomPolicy() RoomPolicy {
	return RoomPolicy{
		FieldRoomName:      {model.SourceScheduling, model.SourceAdministrative},
		FieldCapacity:      {model.SourceScheduling, model.SourceAdministrative},
		FieldAccessibility: {model.SourceScheduling},
		FieldEquipments:    {model.SourceScheduling},
	}
}

// ConfigurationError reports a merge requested for an unconfigured
// field. This is a programming error and aborts the run.
type ConfigurationError struct {
	Field Field
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("merge: no policy configured for field %q", e.Field)
}

// validate checks the policy covers every room field and names only
// known sources.
func (p RoomPolicy) validate() error {
	for _, f := range roomFields {
		chain, ok := p[f]
		if !ok {
			return &ConfigurationError{Field: f}
		}
		for _, src := range chain {
			switch src {
			case model.SourceGeometry, model.SourceAdministrative, model.SourceScheduling:
			default:
				return fmt.Errorf("merge: field %q names unknown source %q", f, src)
			}
		}
	}
	return nil
}

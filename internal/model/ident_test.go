package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidBuildingID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"21030", true},
		{"5703", true},
		{"100", true},
		{"12", false},
		{"123456", false},
		{"21030a", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidBuildingID(tt.id))
		})
	}
}

func TestValidRoomID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"T065", true},
		{"t065", true},
		{"AULA3", true},
		{"120", true},
		{"1I204", true},
		{"T", false},
		{"12", false},
		{"", false},
		{"T 65", false},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidRoomID(tt.id))
		})
	}
}

func TestValidFloorID(t *testing.T) {
	assert.True(t, ValidFloorID("0"))
	assert.True(t, ValidFloorID("-0.5"))
	assert.False(t, ValidFloorID("T"))
	assert.False(t, ValidFloorID(""))
}

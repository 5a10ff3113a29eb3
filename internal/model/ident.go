package model

import (
	"regexp"
	"strconv"

	"github.com/rotisserie/eris"
)

var (
	buildingIDPattern = regexp.MustCompile(`^\d{3,5}$`)
	roomIDPattern     = regexp.MustCompile(`(?i)^([a-z]+\d+|\d{3,}|1i\d{3,})$`)
)

// ValidBuildingID reports whether id is a canonical building id, a
// 3 to 5 digit string.
func ValidBuildingID(id string) bool {
	return buildingIDPattern.MatchString(id)
}

// ValidRoomID reports whether id is a canonical room id.
func ValidRoomID(id string) bool {
	return roomIDPattern.MatchString(id)
}

// ValidFloorID reports whether id parses as a real number. Floor ids
// may be negative or fractional ("-0.5").
func ValidFloorID(id string) bool {
	_, err := strconv.ParseFloat(id, 64)
	return err == nil
}

// CheckBuildingID returns an error for an invalid building id.
func CheckBuildingID(id string) error {
	if !ValidBuildingID(id) {
		return eris.Errorf("model: invalid building id %q (want 3-5 digits)", id)
	}
	return nil
}

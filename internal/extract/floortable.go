package extract

import (
	"os"
	"regexp"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// FloorPattern maps a recognizer regex to a canonical floor id.
type FloorPattern struct {
	Pattern *regexp.Regexp
	FloorID string
}

// FloorTable resolves the free-form floor designators found in
// filenames and title blocks ("T", "PT", "1", "S1", "piano terra") to
// canonical numeric floor ids. It is loaded once per run and passed by
// reference.
type FloorTable struct {
	patterns []FloorPattern
}

// NewFloorTable builds a table from ordered patterns.
func NewFloorTable(patterns []FloorPattern) *FloorTable {
	return &FloorTable{patterns: patterns}
}

type floorTableEntry struct {
	Pattern string `yaml:"pattern"`
	Floor   string `yaml:"floor"`
}

// LoadFloorTable reads an ordered YAML list of {pattern, floor}
// entries. Patterns are compiled case-insensitive and anchored.
func LoadFloorTable(path string) (*FloorTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "extract: read floor table %s", path)
	}
	var entries []floorTableEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, eris.Wrapf(err, "extract: parse floor table %s", path)
	}

	patterns := make([]FloorPattern, 0, len(entries))
	for _, e := range entries {
		re, err := compileFloorPattern(e.Pattern)
		if err != nil {
			return nil, eris.Wrapf(err, "extract: floor pattern %q", e.Pattern)
		}
		patterns = append(patterns, FloorPattern{Pattern: re, FloorID: e.Floor})
	}
	return NewFloorTable(patterns), nil
}

// compileFloorPattern anchors a designator pattern and makes it
// case-insensitive.
func compileFloorPattern(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile(`(?i)^(?:` + pattern + `)$`)
}

// Resolve returns the canonical floor id for a designator. The first
// matching pattern wins.
func (t *FloorTable) Resolve(value string) (string, bool) {
	for _, p := range t.patterns {
		if p.Pattern.MatchString(value) {
			return p.FloorID, true
		}
	}
	return "", false
}

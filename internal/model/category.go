package model

import (
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// CategoryTable maps room category codes to display names. It is
// loaded once per run by the process entry point and passed by
// reference into every resolver call.
type CategoryTable struct {
	names map[string]string
	codes []string // sorted, for deterministic scans
}

// NewCategoryTable builds a table from a code to display-name map.
func NewCategoryTable(entries map[string]string) *CategoryTable {
	codes := make([]string, 0, len(entries))
	names := make(map[string]string, len(entries))
	for code, name := range entries {
		codes = append(codes, code)
		names[code] = name
	}
	sort.Strings(codes)
	return &CategoryTable{names: names, codes: codes}
}

// LoadCategoryTable reads a YAML file of code: name pairs.
func LoadCategoryTable(path string) (*CategoryTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "model: read category table %s", path)
	}
	var entries map[string]string
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, eris.Wrapf(err, "model: parse category table %s", path)
	}
	return NewCategoryTable(entries), nil
}

// Codes returns every category code in sorted order.
func (t *CategoryTable) Codes() []string { return t.codes }

// Name returns the display name for a code.
func (t *CategoryTable) Name(code string) (string, bool) {
	name, ok := t.names[code]
	return name, ok
}

// Len returns the number of categories.
func (t *CategoryTable) Len() int { return len(t.codes) }

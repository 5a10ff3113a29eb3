// Package dxf reads the subset of the ASCII DXF format the extractor
// needs: closed polylines and text entities, each tagged with its
// layer.
package dxf

import "github.com/campus-atlas/plan-cli/internal/geometry"

// Kind distinguishes the two entity shapes a drawing yields.
type Kind string

const (
	KindOutline Kind = "outline"
	KindLabel   Kind = "label"
)

// Entity is one typed drawing entity. Outline entities carry a point
// sequence; label entities carry text and an insertion point.
type Entity struct {
	Kind   Kind
	Layer  string
	Points []geometry.Point // outline ring, absolute coordinates
	Text   string           // label text
	Insert geometry.Point   // label insertion point
}

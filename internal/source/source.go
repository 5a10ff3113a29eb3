// Package source loads the three upstream datasets: the administrative
// XLSX workbook, the scheduling HTTP feed, and DXF drawings dropped on
// an FTP share.
package source

import "github.com/campus-atlas/plan-cli/internal/model"

// Record is one building as reported by a single source, ready to be
// applied to its namespace.
type Record struct {
	BuildingID string
	Namespace  *model.Namespace
}

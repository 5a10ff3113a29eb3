package source

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/campus-atlas/plan-cli/internal/model"
)

// Workbook layout of the administrative export. The buildings sheet
// carries one row per building, the rooms sheet one row per room.
const (
	buildingsSheet = "buildings"
	roomsSheet     = "rooms"

	buildingHeaderRows = 1
	roomHeaderRows     = 1
)

// Building sheet columns.
const (
	colBuildingID = iota
	colLegacyID
	colBuildingName
	colAddress
	colLatitude
	colLongitude
)

// Rooms sheet columns.
const (
	colRoomBuildingID = iota
	colFloorID
	colRoomID
	colRoomName
	colCapacity
)

// LoadAdministrative reads the administrative XLSX export and returns
// one Record per building row. Room rows referencing an unknown
// building are dropped with a warning; blank rows are skipped.
func LoadAdministrative(path string) ([]Record, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "source: open administrative workbook")
	}

	buildings, order, err := readBuildingRows(f)
	if err != nil {
		return nil, err
	}
	if err := readRoomRows(f, buildings); err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(order))
	for _, id := range order {
		records = append(records, Record{BuildingID: id, Namespace: buildings[id]})
	}
	return records, nil
}

func readBuildingRows(f *xlsx.File) (map[string]*model.Namespace, []string, error) {
	sheet, err := sheetByName(f, buildingsSheet, 0)
	if err != nil {
		return nil, nil, err
	}

	buildings := make(map[string]*model.Namespace)
	var order []string
	for i, row := range sheet.Rows {
		if i < buildingHeaderRows {
			continue
		}
		cells := rowStrings(row)
		id := cellAt(cells, colBuildingID)
		if id == "" {
			continue
		}
		if _, dup := buildings[id]; dup {
			zap.L().Warn("duplicate building row in workbook, keeping the first",
				zap.String("b_id", id), zap.Int("row", i+1))
			continue
		}
		buildings[id] = &model.Namespace{
			Name:      cellAt(cells, colBuildingName),
			LegacyID:  cellAt(cells, colLegacyID),
			Address:   cellAt(cells, colAddress),
			Latitude:  cellAt(cells, colLatitude),
			Longitude: cellAt(cells, colLongitude),
		}
		order = append(order, id)
	}
	return buildings, order, nil
}

func readRoomRows(f *xlsx.File, buildings map[string]*model.Namespace) error {
	sheet, err := sheetByName(f, roomsSheet, 1)
	if err != nil {
		return err
	}

	for i, row := range sheet.Rows {
		if i < roomHeaderRows {
			continue
		}
		cells := rowStrings(row)
		buildingID := cellAt(cells, colRoomBuildingID)
		roomID := cellAt(cells, colRoomID)
		if buildingID == "" && roomID == "" {
			continue
		}

		ns, ok := buildings[buildingID]
		if !ok {
			zap.L().Warn("room row references unknown building, dropped",
				zap.String("b_id", buildingID), zap.String("r_id", roomID), zap.Int("row", i+1))
			continue
		}

		room := &model.Room{Name: cellAt(cells, colRoomName)}
		if raw := cellAt(cells, colCapacity); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				zap.L().Warn("unparseable capacity, left unset",
					zap.String("b_id", buildingID), zap.String("r_id", roomID), zap.String("capacity", raw))
			} else {
				room.Capacity = &n
			}
		}

		floor := ensureFloor(ns, buildingID, cellAt(cells, colFloorID))
		floor.Rooms[roomID] = room
	}
	return nil
}

// ensureFloor returns the namespace floor with the given id, creating
// it on first use.
func ensureFloor(ns *model.Namespace, buildingID, floorID string) *model.Floor {
	if f := ns.FindFloor(floorID); f != nil {
		return f
	}
	f := &model.Floor{
		BuildingID: buildingID,
		ID:         floorID,
		Rooms:      make(map[string]*model.Room),
	}
	ns.Floors = append(ns.Floors, f)
	return f
}

func sheetByName(f *xlsx.File, name string, fallbackIndex int) (*xlsx.Sheet, error) {
	if sheet, ok := f.Sheet[name]; ok {
		return sheet, nil
	}
	if fallbackIndex < len(f.Sheets) {
		return f.Sheets[fallbackIndex], nil
	}
	return nil, eris.Errorf("source: workbook has no %q sheet and only %d sheets", name, len(f.Sheets))
}

func rowStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = strings.TrimSpace(cell.String())
	}
	return cells
}

func cellAt(cells []string, idx int) string {
	if idx < len(cells) {
		return cells[idx]
	}
	return ""
}

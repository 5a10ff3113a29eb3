// Package extract turns raw drawing entities into a Floor with
// positioned rooms and associated labels, inferring the building and
// floor identifiers from the filename and the title block.
package extract

import (
	"math"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/campus-atlas/plan-cli/internal/dxf"
	"github.com/campus-atlas/plan-cli/internal/geometry"
	"github.com/campus-atlas/plan-cli/internal/model"
)

// Filename shapes carrying the building id: "21030_T.dxf" or
// "21030.dxf".
var (
	fileWithSuffix = regexp.MustCompile(`^(\d+)_([^.]+)\.[^.]+$`)
	filePlain      = regexp.MustCompile(`^(\d+)\.[^.]+$`)
	pianoDirect    = regexp.MustCompile(`(?i)^piano\s+(\S.*)$`)
)

// Config holds the extraction tunables.
type Config struct {
	OutlineLayers []string // layers carrying room outlines
	LabelLayers   []string // layers carrying room labels
	TitleLayers   []string // title-block layers carrying metadata text
	LabelPattern  *regexp.Regexp
	Scale         float64 // uniform scale applied after origin shift

	// Tolerance rectangle for pairing a lone PIANO label with its
	// value text: x within [label.x-TitleXBefore, label.x+TitleXAfter],
	// y within [label.y-TitleYBelow, label.y).
	TitleXBefore float64
	TitleXAfter  float64
	TitleYBelow  float64
}

// DefaultLabelPattern admits identifier and name shaped label text.
var DefaultLabelPattern = regexp.MustCompile(`(?i)^[a-z0-9][a-z0-9 .,'/-]*$`)

// Extractor builds Floors from drawing entities.
type Extractor struct {
	cfg    Config
	floors *FloorTable
}

// New creates an Extractor. Zero tolerance and scale values fall back
// to the drawing-office defaults.
func New(cfg Config, floors *FloorTable) *Extractor {
	if cfg.Scale == 0 {
		cfg.Scale = 0.3
	}
	if cfg.TitleXBefore == 0 {
		cfg.TitleXBefore = 100
	}
	if cfg.TitleXAfter == 0 {
		cfg.TitleXAfter = 300
	}
	if cfg.TitleYBelow == 0 {
		cfg.TitleYBelow = 100
	}
	if cfg.LabelPattern == nil {
		cfg.LabelPattern = DefaultLabelPattern
	}
	return &Extractor{cfg: cfg, floors: floors}
}

// Extract assembles a normalized Floor from one file's entities. All
// rooms start unidentified. Failures are SkipErrors: the file is
// skipped, the batch continues.
func (e *Extractor) Extract(entities []dxf.Entity, filename string) (*model.Floor, error) {
	base := filepath.Base(filename)
	log := zap.L().With(zap.String("file", base))

	buildingID, err := e.buildingID(base)
	if err != nil {
		return nil, err
	}

	floorID, err := e.floorID(entities, base, log)
	if err != nil {
		return nil, err
	}

	rooms := e.collectRooms(entities)
	e.associateLabels(rooms, e.collectLabels(entities), log)

	if len(rooms) == 0 {
		return nil, Skipf(SkipEmptyFloor, "%s: no rooms extracted", base)
	}

	floor := &model.Floor{
		BuildingID:   buildingID,
		ID:           floorID,
		Rooms:        map[string]*model.Room{},
		Unidentified: rooms,
	}
	e.normalize(floor)

	log.Info("extracted floor",
		zap.String("b_id", buildingID),
		zap.String("f_id", floorID),
		zap.Int("rooms", len(rooms)),
	)
	return floor, nil
}

// buildingID pulls the building id out of the filename.
func (e *Extractor) buildingID(base string) (string, error) {
	var id string
	if m := fileWithSuffix.FindStringSubmatch(base); m != nil {
		id = m[1]
	} else if m := filePlain.FindStringSubmatch(base); m != nil {
		id = m[1]
	} else {
		return "", Skipf(SkipIdentification, "%s: no building id in filename", base)
	}
	if !model.ValidBuildingID(id) {
		return "", Skipf(SkipInvalidIdentifier, "%s: building id %q fails validation", base, id)
	}
	return id, nil
}

// floorID combines the filename signal and the title-block signal
// into one canonical floor id.
func (e *Extractor) floorID(entities []dxf.Entity, base string, log *zap.Logger) (string, error) {
	var fromFile string
	if m := fileWithSuffix.FindStringSubmatch(base); m != nil {
		if id, ok := e.floors.Resolve(m[2]); ok {
			fromFile = id
		}
	}

	fromTitle := e.titleBlockCandidates(entities)

	switch {
	case len(fromTitle) > 1:
		for _, id := range fromTitle {
			if fromFile != "" && id == fromFile {
				log.Debug("ambiguous title block resolved by filename",
					zap.Strings("candidates", fromTitle),
					zap.String("f_id", fromFile),
				)
				return fromFile, nil
			}
		}
		return "", Skipf(SkipIdentification,
			"%s: title block names %d floors and filename decides none", base, len(fromTitle))

	case len(fromTitle) == 1:
		if fromFile != "" && fromFile != fromTitle[0] {
			log.Warn("floor id conflict, title block wins",
				zap.String("filename_f_id", fromFile),
				zap.String("title_f_id", fromTitle[0]),
			)
		}
		return fromTitle[0], nil

	case fromFile != "":
		return fromFile, nil
	}

	return "", Skipf(SkipIdentification, "%s: floor id undeterminable", base)
}

// titleBlockCandidates scans title-layer text for floor designators:
// "piano <value>" directly, or a lone "PIANO" label paired with the
// nearest qualifying text inside the tolerance rectangle. Candidates
// are resolved through the floor table; the returned ids are distinct,
// in discovery order.
func (e *Extractor) titleBlockCandidates(entities []dxf.Entity) []string {
	var titles []dxf.Entity
	for _, ent := range entities {
		if ent.Kind == dxf.KindLabel && onLayer(ent.Layer, e.cfg.TitleLayers) {
			titles = append(titles, ent)
		}
	}

	var values []string
	for _, ent := range titles {
		text := strings.TrimSpace(ent.Text)
		if m := pianoDirect.FindStringSubmatch(text); m != nil {
			values = append(values, strings.TrimSpace(m[1]))
			continue
		}
		if strings.EqualFold(text, "piano") {
			if v, ok := e.nearestValue(ent, titles); ok {
				values = append(values, v)
			}
		}
	}

	var ids []string
	seen := map[string]bool{}
	for _, v := range values {
		id, ok := e.floors.Resolve(v)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// nearestValue finds the closest text below-right of a lone PIANO
// label, within the tolerance rectangle.
func (e *Extractor) nearestValue(piano dxf.Entity, titles []dxf.Entity) (string, bool) {
	px, py := piano.Insert.X, piano.Insert.Y
	best := ""
	bestDist := math.Inf(1)

	for _, cand := range titles {
		text := strings.TrimSpace(cand.Text)
		if text == "" || strings.EqualFold(text, "piano") {
			continue
		}
		cx, cy := cand.Insert.X, cand.Insert.Y
		if cx < px-e.cfg.TitleXBefore || cx > px+e.cfg.TitleXAfter {
			continue
		}
		if cy < py-e.cfg.TitleYBelow || cy >= py {
			continue
		}
		d := math.Hypot(cx-px, cy-py)
		if d < bestDist {
			bestDist = d
			best = text
		}
	}
	return best, best != ""
}

// collectRooms turns outline entities on the configured layers into
// unidentified rooms.
func (e *Extractor) collectRooms(entities []dxf.Entity) []*model.Room {
	var rooms []*model.Room
	for _, ent := range entities {
		if ent.Kind != dxf.KindOutline || !onLayer(ent.Layer, e.cfg.OutlineLayers) {
			continue
		}
		pg, err := geometry.NewPolygon(ent.Points)
		if err != nil {
			zap.L().Debug("extract: dropping degenerate outline",
				zap.String("layer", ent.Layer), zap.Error(err))
			continue
		}
		rooms = append(rooms, &model.Room{Polygon: pg})
	}
	return rooms
}

// collectLabels keeps label entities on the configured layers whose
// text looks like a room identifier or name.
func (e *Extractor) collectLabels(entities []dxf.Entity) []model.Label {
	var labels []model.Label
	for _, ent := range entities {
		if ent.Kind != dxf.KindLabel || !onLayer(ent.Layer, e.cfg.LabelLayers) {
			continue
		}
		text := strings.TrimSpace(ent.Text)
		if text == "" || !e.cfg.LabelPattern.MatchString(text) {
			continue
		}
		labels = append(labels, model.Label{Text: text, Anchor: ent.Insert})
	}
	return labels
}

// associateLabels attaches each label to the first room whose polygon
// contains its anchor point. Unmatched labels are dropped.
func (e *Extractor) associateLabels(rooms []*model.Room, labels []model.Label, log *zap.Logger) {
	dropped := 0
	for _, label := range labels {
		matched := false
		for _, room := range rooms {
			if room.Polygon.Contains(label.Anchor) {
				room.Labels = append(room.Labels, label)
				matched = true
				break
			}
		}
		if !matched {
			dropped++
		}
	}
	if dropped > 0 {
		log.Debug("dropped labels outside every room", zap.Int("dropped", dropped))
	}
}

// normalize maps the floor from drawing coordinates to the target
// system: reflect the vertical axis, shift the floor's minimum corner
// to the origin, then scale uniformly. Translate must run before
// scale.
func (e *Extractor) normalize(floor *model.Floor) {
	minX, minY := math.Inf(1), math.Inf(1)
	for _, room := range floor.Unidentified {
		room.Polygon.ReflectY()
		bb := room.Polygon.BBox()
		minX = math.Min(minX, bb.MinX)
		minY = math.Min(minY, bb.MinY)
	}
	for _, room := range floor.Unidentified {
		room.Polygon.Translate(-minX, -minY)
		room.Polygon.ScaleUniform(e.cfg.Scale)
	}
}

func onLayer(layer string, allowed []string) bool {
	for _, a := range allowed {
		if strings.EqualFold(layer, a) {
			return true
		}
	}
	return false
}

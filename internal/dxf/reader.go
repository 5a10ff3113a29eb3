package dxf

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/campus-atlas/plan-cli/internal/geometry"
)

func pointAt(x, y float64) geometry.Point { return geometry.NewPoint(x, y) }

// tag is one DXF group code / value pair.
type tag struct {
	code  int
	value string
}

// ReadFile parses a .dxf file and returns its outline and label
// entities. Only the ENTITIES section is scanned; unsupported entity
// types are skipped.
func ReadFile(path string) ([]Entity, error) {
	if !strings.EqualFold(filepath.Ext(path), ".dxf") {
		return nil, eris.Errorf("dxf: %s: not a .dxf file", filepath.Base(path))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dxf: open %s", path)
	}
	defer f.Close()
	return Read(f)
}

// Read parses DXF tagged data from r.
func Read(r io.Reader) ([]Entity, error) {
	tags, err := scanTags(r)
	if err != nil {
		return nil, err
	}
	return parseEntities(tags), nil
}

// scanTags reads alternating group-code and value lines.
func scanTags(r io.Reader) ([]tag, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var tags []tag
	for sc.Scan() {
		codeLine := strings.TrimSpace(sc.Text())
		if !sc.Scan() {
			break
		}
		code, err := strconv.Atoi(codeLine)
		if err != nil {
			return nil, eris.Errorf("dxf: malformed group code %q", codeLine)
		}
		tags = append(tags, tag{code: code, value: strings.TrimSpace(sc.Text())})
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "dxf: scan")
	}
	return tags, nil
}

// parseEntities walks the tag stream and assembles supported entities
// from the ENTITIES section. LWPOLYLINE carries its vertices inline;
// the legacy POLYLINE type is followed by VERTEX entities up to
// SEQEND.
func parseEntities(tags []tag) []Entity {
	var (
		entities  []Entity
		inSection bool
		current   *Entity  // entity being assembled, nil between entities
		polyline  *Entity  // open legacy POLYLINE collecting VERTEX points
		curX      *float64 // pending x waiting for its y pair
		skipped   int
	)

	flush := func() {
		if current == nil {
			return
		}
		switch current.Kind {
		case KindOutline:
			if len(current.Points) >= 3 {
				entities = append(entities, *current)
			}
		case KindLabel:
			if current.Text != "" {
				entities = append(entities, *current)
			}
		}
		current = nil
		curX = nil
	}

	for i := 0; i < len(tags); i++ {
		t := tags[i]

		if t.code == 0 && t.value == "SECTION" {
			if i+1 < len(tags) && tags[i+1].code == 2 {
				inSection = tags[i+1].value == "ENTITIES"
			}
			continue
		}
		if t.code == 0 && t.value == "ENDSEC" {
			flush()
			polyline = nil
			inSection = false
			continue
		}
		if !inSection {
			continue
		}

		if t.code == 0 {
			switch t.value {
			case "LWPOLYLINE":
				flush()
				current = &Entity{Kind: KindOutline}
			case "POLYLINE":
				flush()
				polyline = &Entity{Kind: KindOutline}
				current = polyline
			case "VERTEX":
				// Vertices accumulate on the open POLYLINE.
				if polyline != nil {
					current = polyline
				}
			case "SEQEND":
				if polyline != nil {
					current = polyline
					polyline = nil
					flush()
				}
			case "TEXT", "MTEXT":
				flush()
				polyline = nil
				current = &Entity{Kind: KindLabel}
			default:
				flush()
				polyline = nil
				skipped++
			}
			curX = nil
			continue
		}

		if current == nil {
			continue
		}

		switch t.code {
		case 8:
			if current.Layer == "" {
				current.Layer = t.value
			}
		case 1:
			if current.Kind == KindLabel {
				current.Text = normalizeText(t.value)
			}
		case 10:
			if x, err := strconv.ParseFloat(t.value, 64); err == nil {
				curX = &x
			}
		case 20:
			y, err := strconv.ParseFloat(t.value, 64)
			if err != nil || curX == nil {
				break
			}
			switch current.Kind {
			case KindOutline:
				current.Points = append(current.Points, pointAt(*curX, y))
			case KindLabel:
				current.Insert = pointAt(*curX, y)
			}
			curX = nil
		}
	}
	flush()

	if skipped > 0 {
		zap.L().Debug("dxf: skipped unsupported entities", zap.Int("skipped", skipped))
	}
	return entities
}

// normalizeText strips the MTEXT formatting codes that show up in
// title blocks, keeping the visible text.
func normalizeText(s string) string {
	s = strings.ReplaceAll(s, `\P`, " ")
	for {
		start := strings.Index(s, `\`)
		if start < 0 {
			break
		}
		end := strings.Index(s[start:], ";")
		if end < 0 {
			s = s[:start] + s[start+1:]
			continue
		}
		s = s[:start] + s[start+end+1:]
	}
	s = strings.NewReplacer("{", "", "}", "").Replace(s)
	return strings.TrimSpace(s)
}

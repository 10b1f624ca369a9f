package interview

import (
	"regexp"
	"strings"
)

var (
	tileSplitRe = regexp.MustCompile(`\*\*\[|###\s*`)
	tileNameRe  = regexp.MustCompile(`^([^\]]*)\]`)
	snapshotRe  = regexp.MustCompile(`תמונת מצב:\s*(.+)`)
	actionRe    = regexp.MustCompile(`פעולה\s*\d*\s*[.:]\s*(.+)`)
	routineRe   = regexp.MustCompile(`שגרה[^:\n]*:\s*(.+)`)
)

// Extract parses the model's final message into the narrative section and the
// tiles section, following the literal layout the system prompt demands. It
// never fails: missing markers leave the narrative empty, unparseable tile
// blocks are dropped, and missing tile fields default to zero values. The
// worst case on malformed input is an empty Output, which callers must treat
// as a valid (degraded) completed interview.
func Extract(text string) Output {
	var out Output
	out.Narrative = strings.TrimSpace(sectionBetween(text, markerPart1, markerPart2))

	tilesText := sectionBetween(text, markerPart2, markerPart3)
	if tilesText == "" {
		return out
	}

	for _, block := range tileSplitRe.Split(tilesText, -1) {
		block = strings.TrimLeft(block, " \t\r\n")
		if block == "" {
			continue
		}
		m := tileNameRe.FindStringSubmatch(block)
		if m == nil {
			continue
		}
		tile := Tile{Name: strings.TrimSpace(m[1]), Actions: []string{}}
		if tile.Name == "" {
			continue
		}

		if sm := snapshotRe.FindStringSubmatch(block); sm != nil {
			tile.Snapshot = strings.TrimSpace(sm[1])
		}
		for _, am := range actionRe.FindAllStringSubmatch(block, -1) {
			tile.Actions = append(tile.Actions, strings.TrimSpace(am[1]))
		}
		if rm := routineRe.FindStringSubmatch(block); rm != nil {
			tile.Routine = strings.TrimSpace(rm[1])
		}

		out.Tiles = append(out.Tiles, tile)
	}

	return out
}

// sectionBetween returns the text span from just after the header line that
// starts at the first occurrence of startMarker, up to the first occurrence
// of endMarker after it (or end of text). The header line runs through the
// closing bracket of the marker. Absent startMarker yields "".
func sectionBetween(text, startMarker, endMarker string) string {
	start := strings.Index(text, startMarker)
	if start < 0 {
		return ""
	}
	rest := text[start:]
	if close := strings.Index(rest, "]"); close >= 0 {
		rest = rest[close+1:]
	} else {
		rest = rest[len(startMarker):]
	}
	// Headers are usually bold: skip trailing "**" before the body.
	rest = strings.TrimPrefix(strings.TrimLeft(rest, " \t"), "**")

	if end := strings.Index(rest, endMarker); end >= 0 {
		// The end marker may be preceded by "**"; keep the cut clean.
		cut := rest[:end]
		cut = strings.TrimSuffix(strings.TrimRight(cut, " \t\r\n"), "**")
		return cut
	}
	return rest
}

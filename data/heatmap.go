package data

import (
	"regexp"
	"strconv"
)

// HeatmapRect is the raw attribute set read off one calendar-heatmap
// cell in the page SVG.
type HeatmapRect struct {
	Tooltip    string `json:"tooltip"`
	ColorClass string `json:"colorClass"`
	StyleColor string `json:"styleColor"`
}

var heatmapTooltipRe = regexp.MustCompile(`(?i)(\d+)\s+submissions\s+on\s+(\d{2}/\d{2}/\d{4})`)

// ParseHeatmap converts raw heatmap rects into day cells. Rects whose
// tooltip does not name a submission count are decoration and are
// dropped.
func ParseHeatmap(rects []HeatmapRect) []HeatmapCell {
	cells := make([]HeatmapCell, 0, len(rects))
	for _, r := range rects {
		m := heatmapTooltipRe.FindStringSubmatch(r.Tooltip)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		cells = append(cells, HeatmapCell{
			Date:        m[2],
			Submissions: n,
			ColorClass:  r.ColorClass,
			StyleColor:  r.StyleColor,
		})
	}
	return cells
}

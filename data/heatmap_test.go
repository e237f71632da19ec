package data

import (
	"reflect"
	"testing"
)

func TestParseHeatmap(t *testing.T) {
	rects := []HeatmapRect{
		{
			Tooltip:    "3 submissions on 04/08/2024",
			ColorClass: "color-scale-2",
			StyleColor: "rgb(64, 196, 99)",
		},
		// decoration cell, no tooltip
		{ColorClass: "color-empty"},
		// tooltip match is case insensitive
		{Tooltip: "12 Submissions on 15/01/2024"},
		{Tooltip: "no activity"},
	}

	exp := []HeatmapCell{
		{
			Date:        "04/08/2024",
			Submissions: 3,
			ColorClass:  "color-scale-2",
			StyleColor:  "rgb(64, 196, 99)",
		},
		{Date: "15/01/2024", Submissions: 12},
	}

	got := ParseHeatmap(rects)

	if !reflect.DeepEqual(got, exp) {
		t.Errorf("heatmap parse failed, exp: %+v, got: %+v", exp, got)
	}
}

func TestParseHeatmapEmpty(t *testing.T) {
	got := ParseHeatmap(nil)
	if len(got) != 0 {
		t.Errorf("exp no cells, got: %+v", got)
	}
}

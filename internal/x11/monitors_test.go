package x11

import (
	"testing"

	"github.com/BurntSushi/xgbutil/ewmh"

	"github.com/1broseidon/visiwatch/internal/geom"
)

func TestApplyStruts(t *testing.T) {
	left := geom.Rect{Left: 0, Top: 0, Right: 1920, Bottom: 1080}
	right := geom.Rect{Left: 1920, Top: 0, Right: 3840, Bottom: 1080}
	const rootW, rootH = 3840, 1080

	// A 40px bottom panel spanning only the left monitor.
	panel := &ewmh.WmStrutPartial{Bottom: 40, BottomStartX: 0, BottomEndX: 1919}

	tests := []struct {
		name   string
		bounds geom.Rect
		struts []*ewmh.WmStrutPartial
		want   geom.Rect
	}{
		{"no struts", left, nil, left},
		{"panel on this monitor", left, []*ewmh.WmStrutPartial{panel}, geom.Rect{Left: 0, Top: 0, Right: 1920, Bottom: 1040}},
		{"panel on other monitor", right, []*ewmh.WmStrutPartial{panel}, right},
		{
			"top bar across both plus left dock",
			left,
			[]*ewmh.WmStrutPartial{
				{Top: 28, TopStartX: 0, TopEndX: 3839},
				{Left: 64, LeftStartY: 28, LeftEndY: 1079},
			},
			geom.Rect{Left: 64, Top: 28, Right: 1920, Bottom: 1080},
		},
		{"largest strut wins", left, []*ewmh.WmStrutPartial{panel, {Bottom: 60, BottomStartX: 100, BottomEndX: 500}}, geom.Rect{Left: 0, Top: 0, Right: 1920, Bottom: 1020}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := applyStruts(tt.bounds, rootW, rootH, tt.struts); got != tt.want {
				t.Fatalf("applyStruts = %v, want %v", got, tt.want)
			}
		})
	}
}

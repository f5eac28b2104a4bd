package render

import (
	"image/color"
	"testing"

	"gocv.io/x/gocv"

	"github.com/ayusman/holdfast/internal/detector"
	"github.com/ayusman/holdfast/internal/geometry"
	"github.com/ayusman/holdfast/internal/hold"
	"github.com/ayusman/holdfast/internal/route"
	"github.com/ayusman/holdfast/internal/testutil"
	"github.com/ayusman/holdfast/internal/tracker"
)

func pixel(m gocv.Mat, x, y int) color.RGBA {
	v := m.GetVecbAt(y, x)
	return color.RGBA{R: v[2], G: v[1], B: v[0], A: 255}
}

func TestRoutes(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	frame := testutil.WallFrame()
	defer frame.Close()

	routes := route.NewRoutes()
	routes.Add(route.Red, testutil.Detection(100, 100, 160, 160))
	routes.Add(route.Blue, testutil.Detection(300, 200, 360, 260))

	Routes(&frame, routes, DefaultFont(), 2)

	tests := []struct {
		name string
		x, y int
		want color.RGBA
	}{
		{name: "red outline", x: 160, y: 160, want: route.Red.Color()},
		{name: "red interior untouched", x: 130, y: 130, want: testutil.WallGrey},
		{name: "blue outline", x: 360, y: 260, want: route.Blue.Color()},
		{name: "background", x: 600, y: 450, want: testutil.WallGrey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pixel(frame, tt.x, tt.y); got != tt.want {
				t.Errorf("pixel(%d, %d) = %v, want %v", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestRoutes_Nil(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	frame := testutil.WallFrame()
	defer frame.Close()

	Routes(&frame, nil, DefaultFont(), 2)

	if got := pixel(frame, 320, 240); got != testutil.WallGrey {
		t.Errorf("frame changed: %v", got)
	}
}

func TestTracking(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	frame := testutil.WallFrame()
	defer frame.Close()

	grabbed := testutil.Detection(100, 100, 160, 160)
	target := testutil.Detection(300, 100, 360, 160)
	sel := route.Selection{
		Label: route.Blue,
		Holds: []hold.Detection{grabbed, target},
		Color: route.Blue.Color(),
	}
	hand := geometry.Point{X: 330, Y: 300}
	snap := &tracker.Snapshot{
		Route:      route.Blue,
		RouteHolds: 2,
		Grabbed:    []hold.Detection{grabbed},
		Results: []tracker.Result{
			{Limb: detector.RightHand, Status: tracker.StatusTargeting, Point: &hand, Target: &target, Distance: 170},
			{Limb: detector.LeftFoot, Status: tracker.StatusSkipped},
		},
	}

	Tracking(&frame, sel, snap, DefaultFont())

	if got := pixel(frame, 130, 130); got != route.Blue.Color() {
		t.Errorf("grabbed hold not filled: %v", got)
	}
	if got := pixel(frame, 360, 160); got != Highlight {
		t.Errorf("target not highlighted: %v", got)
	}
	if got := pixel(frame, 330, 300); got != LimbColor(detector.RightHand) {
		t.Errorf("limb marker = %v, want %v", got, LimbColor(detector.RightHand))
	}
	if got := pixel(frame, 600, 450); got != testutil.WallGrey {
		t.Errorf("background changed: %v", got)
	}
}

func TestTracking_BeforeFirstTick(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	frame := testutil.WallFrame()
	defer frame.Close()

	h := testutil.Detection(100, 100, 160, 160)
	sel := route.Selection{Label: route.Red, Holds: []hold.Detection{h}, Color: route.Red.Color()}

	Tracking(&frame, sel, nil, DefaultFont())

	if got := pixel(frame, 160, 160); got != route.Red.Color() {
		t.Errorf("route hold outline = %v", got)
	}
	if got := pixel(frame, 130, 130); got != testutil.WallGrey {
		t.Errorf("ungrabbed hold filled: %v", got)
	}
}

func TestCountGrabbed(t *testing.T) {
	a := testutil.Detection(0, 0, 10, 10)
	b := testutil.Detection(20, 0, 30, 10)
	c := testutil.Detection(40, 0, 50, 10)

	// Grabs off the route do not count toward progress.
	if got := countGrabbed([]hold.Detection{a, b}, []hold.Detection{b, c}); got != 1 {
		t.Errorf("countGrabbed() = %d, want 1", got)
	}
}

func TestTextColor(t *testing.T) {
	tests := []struct {
		bg   color.RGBA
		want color.RGBA
	}{
		{bg: route.Yellow.Color(), want: Black},
		{bg: route.White.Color(), want: Black},
		{bg: route.Blue.Color(), want: White},
		{bg: route.Black.Color(), want: White},
	}
	for _, tt := range tests {
		if got := textColor(tt.bg); got != tt.want {
			t.Errorf("textColor(%v) = %v, want %v", tt.bg, got, tt.want)
		}
	}
}

func TestLimbColor(t *testing.T) {
	seen := map[color.RGBA]bool{}
	for _, l := range detector.AllLimbs() {
		seen[LimbColor(l)] = true
	}
	if len(seen) != len(detector.AllLimbs()) {
		t.Errorf("limb colours are not distinct: %v", seen)
	}
	if LimbColor("tail") != White {
		t.Error("unknown limb should fall back to white")
	}
}

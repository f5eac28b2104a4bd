package render

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/ayusman/holdfast/internal/hold"
	"github.com/ayusman/holdfast/internal/route"
	"github.com/ayusman/holdfast/internal/tracker"
)

// Marker sizes for the tracking overlay.
const (
	LimbRadius      = 8
	TargetThickness = 3
)

// Tracking draws the selected route, filling grabbed holds, highlighting
// each limb's target and marking the limb positions. snap may be nil
// before the first tick.
func Tracking(img *gocv.Mat, sel route.Selection, snap *tracker.Snapshot, font Font) {
	var grabbed []hold.Detection
	if snap != nil {
		grabbed = snap.Grabbed
	}

	for _, d := range sel.Holds {
		thickness := 2
		if hold.Contains(grabbed, d) {
			thickness = -1
		}
		gocv.Rectangle(img, d.Box.Rect(), sel.Color, thickness)
	}

	header := fmt.Sprintf("%s %d/%d", sel.Label, countGrabbed(sel.Holds, grabbed), len(sel.Holds))
	headerBox := image.Rect(0, 30, 0, 30)
	drawLabels(img, []boxLabel{newBoxLabel(headerBox, header, sel.Color, font, 0)}, font)

	if snap == nil {
		return
	}

	for _, r := range snap.Results {
		clr := LimbColor(r.Limb)
		if r.Target != nil && r.Status == tracker.StatusTargeting {
			gocv.Rectangle(img, r.Target.Box.Rect(), Highlight, TargetThickness)
			if r.Point != nil {
				mid := r.Target.Box.Midpoint()
				gocv.Line(img, image.Pt(int(r.Point.X), int(r.Point.Y)),
					image.Pt(int(mid.X), int(mid.Y)), clr, 1)
			}
		}
		if r.Point != nil {
			gocv.Circle(img, image.Pt(int(r.Point.X), int(r.Point.Y)), LimbRadius, clr, -1)
		}
	}
}

func countGrabbed(holds, grabbed []hold.Detection) int {
	n := 0
	for _, d := range holds {
		if hold.Contains(grabbed, d) {
			n++
		}
	}
	return n
}

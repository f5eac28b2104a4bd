// Package testutil provides synthetic wall frames and hold fixtures for
// tests that exercise the vision pipeline without a camera.
package testutil

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/holdfast/internal/geometry"
	"github.com/ayusman/holdfast/internal/hold"
)

// Frame size used by the fixtures.
const (
	FrameWidth  = 640
	FrameHeight = 480
)

// Paint colours. gocv takes RGBA and writes BGR, so these are true colours.
var (
	// WallGrey sits between the black and white HSV ranges, so it never
	// classifies as a hold colour.
	WallGrey = color.RGBA{R: 80, G: 80, B: 80, A: 255}

	RedPaint    = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	YellowPaint = color.RGBA{R: 255, G: 255, B: 0, A: 255}
	GreenPaint  = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	BluePaint   = color.RGBA{R: 0, G: 0, B: 255, A: 255}
)

// Patch is a solid block of colour painted onto a wall frame.
type Patch struct {
	Rect  image.Rectangle
	Color color.RGBA
}

// WallFrame returns a BGR frame of a plain grey wall with the given patches
// painted on it. The caller must Close the returned Mat.
func WallFrame(patches ...Patch) gocv.Mat {
	frame := gocv.NewMatWithSize(FrameHeight, FrameWidth, gocv.MatTypeCV8UC3)
	frame.SetTo(gocv.NewScalar(float64(WallGrey.B), float64(WallGrey.G), float64(WallGrey.R), 0))

	for _, p := range patches {
		gocv.Rectangle(&frame, p.Rect, p.Color, -1)
	}
	return frame
}

// Detection builds a hold detection for the given corners.
func Detection(x1, y1, x2, y2 float64) hold.Detection {
	return hold.Detection{
		Box:        geometry.Box(x1, y1, x2, y2),
		Confidence: 0.9,
	}
}

// PaintedHold returns a detection box together with a patch of colour that
// fills its centre, the way a real hold sits inside its detector box.
func PaintedHold(x, y, size int, c color.RGBA) (hold.Detection, Patch) {
	inset := size / 6
	d := Detection(float64(x), float64(y), float64(x+size), float64(y+size))
	p := Patch{
		Rect:  image.Rect(x+inset, y+inset, x+size-inset, y+size-inset),
		Color: c,
	}
	return d, p
}

// Wall is a ready-made calibration scene: two red holds, one blue hold and
// one small uncoloured hold, in detector order.
func Wall() (gocv.Mat, []hold.Detection) {
	red1, redPatch1 := PaintedHold(100, 100, 60, RedPaint)
	blue, bluePatch := PaintedHold(300, 120, 60, BluePaint)
	red2, redPatch2 := PaintedHold(180, 300, 60, RedPaint)
	tiny := Detection(500, 400, 515, 415)

	frame := WallFrame(redPatch1, bluePatch, redPatch2)
	return frame, []hold.Detection{red1, blue, red2, tiny}
}

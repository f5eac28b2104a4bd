package render

import (
	"image/color"

	"github.com/ayusman/holdfast/internal/detector"
)

var (
	White     = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Black     = color.RGBA{A: 255}
	Highlight = color.RGBA{R: 0, G: 255, B: 255, A: 255}
)

// limbColors gives each limb its own marker colour.
var limbColors = map[detector.Limb]color.RGBA{
	detector.RightHand: {R: 255, G: 56, B: 56, A: 255},  // #FF3838
	detector.LeftHand:  {R: 72, G: 249, B: 10, A: 255},  // #48F90A
	detector.RightFoot: {R: 255, G: 178, B: 29, A: 255}, // #FFB21D
	detector.LeftFoot:  {R: 132, G: 56, B: 255, A: 255}, // #8438FF
}

// LimbColor returns the marker colour for limb.
func LimbColor(limb detector.Limb) color.RGBA {
	if c, ok := limbColors[limb]; ok {
		return c
	}
	return White
}

// textColor picks black or white text for legibility on bg.
func textColor(bg color.RGBA) color.RGBA {
	luma := 0.299*float64(bg.R) + 0.587*float64(bg.G) + 0.114*float64(bg.B)
	if luma > 150 {
		return Black
	}
	return White
}

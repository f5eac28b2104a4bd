package render

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// boxLabel is a text label drawn above a box after all boxes so that labels
// stay on top.
type boxLabel struct {
	rect    image.Rectangle
	clr     color.RGBA
	text    string
	textPos image.Point
}

func newBoxLabel(box image.Rectangle, text string, clr color.RGBA, font Font, lineThickness int) boxLabel {
	textSize := gocv.GetTextSize(text, font.Face, font.Scale, font.Thickness)

	var centerX int
	switch font.Alignment {
	case Center:
		centerX = (box.Min.X + box.Max.X) / 2
	case Right:
		centerX = box.Max.X - (textSize.X / 2) - font.RightPad + (lineThickness / 2)
	default:
		centerX = box.Min.X + (textSize.X / 2) + font.LeftPad - (lineThickness / 2)
	}

	return boxLabel{
		rect: image.Rect(centerX-textSize.X/2-font.LeftPad,
			box.Min.Y-textSize.Y-font.TopPad-font.BottomPad,
			centerX+textSize.X/2+font.RightPad, box.Min.Y),
		clr:     clr,
		text:    text,
		textPos: image.Pt(centerX-textSize.X/2, box.Min.Y-font.BottomPad),
	}
}

func drawLabels(img *gocv.Mat, labels []boxLabel, font Font) {
	for _, l := range labels {
		gocv.Rectangle(img, l.rect, l.clr, -1)

		fg := font.Color
		if fg == White {
			fg = textColor(l.clr)
		}
		gocv.PutTextWithParams(img, l.text, l.textPos,
			font.Face, font.Scale, fg, font.Thickness,
			font.LineType, false)
	}
}

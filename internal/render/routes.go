package render

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/ayusman/holdfast/internal/route"
)

// Routes outlines every classified hold in its route colour with a
// "<Label> <confidence>" caption.
func Routes(img *gocv.Mat, routes *route.Routes, font Font, lineThickness int) {
	if routes == nil {
		return
	}

	labels := make([]boxLabel, 0, routes.Total())
	for _, l := range routes.Labels() {
		clr := l.Color()
		for _, d := range routes.Holds(l) {
			rect := d.Box.Rect()
			gocv.Rectangle(img, rect, clr, lineThickness)

			text := fmt.Sprintf("%s %.2f", l, d.Confidence)
			labels = append(labels, newBoxLabel(rect, text, clr, font, lineThickness))
		}
	}

	drawLabels(img, labels, font)
}

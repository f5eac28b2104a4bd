// Package route classifies detected holds into colour-coded routes and lets
// the climber pick the route they want to climb.
package route

import (
	"fmt"
	"image/color"
	"strings"
)

// Label is the colour assigned to a hold.
type Label int

// Labels in default priority order. Uncoloured is the fallback and never
// takes part in priority matching.
const (
	Red Label = iota
	Orange
	Yellow
	Green
	Blue
	Pink
	Purple
	White
	Black
	Uncoloured
)

var labelNames = [...]string{
	Red:        "Red",
	Orange:     "Orange",
	Yellow:     "Yellow",
	Green:      "Green",
	Blue:       "Blue",
	Pink:       "Pink",
	Purple:     "Purple",
	White:      "White",
	Black:      "Black",
	Uncoloured: "Uncoloured",
}

// Display colours for overlays.
var labelColors = [...]color.RGBA{
	Red:        {R: 255, G: 0, B: 0, A: 255},
	Orange:     {R: 255, G: 165, B: 0, A: 255},
	Yellow:     {R: 255, G: 255, B: 0, A: 255},
	Green:      {R: 0, G: 255, B: 0, A: 255},
	Blue:       {R: 0, G: 0, B: 255, A: 255},
	Pink:       {R: 255, G: 105, B: 108, A: 255},
	Purple:     {R: 128, G: 0, B: 128, A: 255},
	White:      {R: 255, G: 255, B: 255, A: 255},
	Black:      {R: 0, G: 0, B: 0, A: 255},
	Uncoloured: {R: 64, G: 64, B: 64, A: 255},
}

// AllLabels returns every label in default priority order, Uncoloured last.
func AllLabels() []Label {
	return []Label{Red, Orange, Yellow, Green, Blue, Pink, Purple, White, Black, Uncoloured}
}

// Valid reports whether l is one of the defined labels.
func (l Label) Valid() bool {
	return l >= Red && l <= Uncoloured
}

func (l Label) String() string {
	if !l.Valid() {
		return fmt.Sprintf("Label(%d)", int(l))
	}
	return labelNames[l]
}

// Color returns the overlay colour for l.
func (l Label) Color() color.RGBA {
	if !l.Valid() {
		return labelColors[Uncoloured]
	}
	return labelColors[l]
}

// ParseLabel parses a colour name case-insensitively.
func ParseLabel(s string) (Label, error) {
	for _, l := range AllLabels() {
		if strings.EqualFold(s, l.String()) {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown route colour %q", s)
}

// MarshalText encodes the label by name.
func (l Label) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid label %d", int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText decodes a label name.
func (l *Label) UnmarshalText(text []byte) error {
	parsed, err := ParseLabel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

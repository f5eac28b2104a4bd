// Package hold defines the detection record shared by classification and
// grab tracking.
package hold

import (
	"fmt"

	"github.com/ayusman/holdfast/internal/geometry"
)

// Detection is one hold candidate produced by the object detector.
// Confidence and Class are carried for display only; identity is the box.
type Detection struct {
	Box        geometry.BoundingBox `json:"box"`
	Confidence float64              `json:"confidence"`
	Class      int                  `json:"class"`
}

// ValidationError reports a malformed detection.
type ValidationError struct {
	Index  int // position in the detector output, -1 if unknown
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid detection: %s", e.Reason)
	}
	return fmt.Sprintf("invalid detection %d: %s", e.Index, e.Reason)
}

// FromXYXY builds a Detection from a raw [x1, y1, x2, y2] row.
func FromXYXY(index int, coords []float64, confidence float64, class int) (Detection, error) {
	if len(coords) != 4 {
		return Detection{}, &ValidationError{
			Index:  index,
			Reason: fmt.Sprintf("expected 4 coordinates, got %d", len(coords)),
		}
	}

	d := Detection{
		Box:        geometry.Box(coords[0], coords[1], coords[2], coords[3]),
		Confidence: confidence,
		Class:      class,
	}
	if err := d.Validate(index); err != nil {
		return Detection{}, err
	}
	return d, nil
}

// Validate checks that the box has finite, ordered corners.
func (d Detection) Validate(index int) error {
	if !d.Box.Valid() {
		return &ValidationError{
			Index:  index,
			Reason: fmt.Sprintf("malformed box %v", d.Box),
		}
	}
	return nil
}

// SameHold reports whether d and o describe the same physical hold.
func (d Detection) SameHold(o Detection) bool {
	return d.Box.Equal(o.Box)
}

// Contains reports whether list holds a detection with exactly d's box.
func Contains(list []Detection, d Detection) bool {
	for _, item := range list {
		if item.SameHold(d) {
			return true
		}
	}
	return false
}

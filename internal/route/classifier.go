package route

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/ayusman/holdfast/internal/geometry"
	"github.com/ayusman/holdfast/internal/hold"
)

// Classification defaults.
const (
	// DefaultCoverArea is the fraction of a hold's box a single colour
	// region must cover for the hold to take that colour.
	DefaultCoverArea = 0.13
	// DefaultMinBoxArea is the box area (px²) at or below which a hold is
	// always Uncoloured.
	DefaultMinBoxArea = 300
)

// ErrEmptyFrame is returned when Classify is given an empty image.
var ErrEmptyFrame = errors.New("route: empty frame")

// HSVRange is an inclusive colour range in OpenCV HSV (H 0-180, S and V 0-255).
type HSVRange struct {
	Lower [3]uint8 `yaml:"lower" json:"lower"`
	Upper [3]uint8 `yaml:"upper" json:"upper"`
}

func (r HSVRange) scalars() (gocv.Scalar, gocv.Scalar) {
	return gocv.NewScalar(float64(r.Lower[0]), float64(r.Lower[1]), float64(r.Lower[2]), 0),
		gocv.NewScalar(float64(r.Upper[0]), float64(r.Upper[1]), float64(r.Upper[2]), 0)
}

// Config controls colour classification.
type Config struct {
	CoverArea  float64
	MinBoxArea float64
	// Priority is the order colours are tested in; the first match wins.
	Priority []Label
	Ranges   map[Label]HSVRange
}

// DefaultRanges returns the HSV ranges for each hold colour.
func DefaultRanges() map[Label]HSVRange {
	return map[Label]HSVRange{
		Red:    {Lower: [3]uint8{0, 100, 100}, Upper: [3]uint8{10, 255, 255}},
		Orange: {Lower: [3]uint8{11, 100, 100}, Upper: [3]uint8{20, 255, 255}},
		Yellow: {Lower: [3]uint8{22, 100, 100}, Upper: [3]uint8{35, 255, 255}},
		Green:  {Lower: [3]uint8{40, 50, 0}, Upper: [3]uint8{88, 255, 255}},
		Blue:   {Lower: [3]uint8{95, 50, 50}, Upper: [3]uint8{120, 255, 255}},
		Pink:   {Lower: [3]uint8{165, 50, 70}, Upper: [3]uint8{180, 160, 250}},
		Purple: {Lower: [3]uint8{121, 50, 30}, Upper: [3]uint8{160, 250, 250}},
		White:  {Lower: [3]uint8{0, 0, 100}, Upper: [3]uint8{180, 40, 155}},
		Black:  {Lower: [3]uint8{0, 0, 0}, Upper: [3]uint8{180, 40, 50}},
	}
}

// DefaultConfig returns the reference classification settings.
func DefaultConfig() Config {
	return Config{
		CoverArea:  DefaultCoverArea,
		MinBoxArea: DefaultMinBoxArea,
		Priority:   []Label{Red, Orange, Yellow, Green, Blue, Pink, Purple, White, Black},
		Ranges:     DefaultRanges(),
	}
}

// Validate checks the priority list and ranges.
func (c Config) Validate() error {
	if c.CoverArea <= 0 || c.CoverArea > 1 {
		return fmt.Errorf("cover area must be in (0, 1], got %v", c.CoverArea)
	}
	if c.MinBoxArea < 0 {
		return fmt.Errorf("min box area must not be negative, got %v", c.MinBoxArea)
	}
	if len(c.Priority) == 0 {
		return errors.New("colour priority list is empty")
	}

	seen := make(map[Label]bool, len(c.Priority))
	for _, l := range c.Priority {
		if !l.Valid() || l == Uncoloured {
			return fmt.Errorf("colour %s cannot be prioritised", l)
		}
		if seen[l] {
			return fmt.Errorf("colour %s listed twice in priority", l)
		}
		seen[l] = true

		if _, ok := c.Ranges[l]; !ok {
			return fmt.Errorf("no HSV range for colour %s", l)
		}
	}
	return nil
}

// region is one connected colour area found in a mask.
type region struct {
	area   float64
	bounds image.Rectangle
}

// Classifier assigns colour labels to hold detections.
type Classifier struct {
	config Config
}

// NewClassifier creates a Classifier. The config should already be validated.
func NewClassifier(config Config) *Classifier {
	return &Classifier{config: config}
}

// Config returns the classifier settings.
func (c *Classifier) Config() Config {
	return c.config
}

// Classify groups detections into routes by their dominant colour in frame.
// frame must be a BGR image. The frame is not modified.
//
// Each detection takes the first colour in priority order that has a
// region covering at least CoverArea of the box and whose bounding
// rectangle starts inside the box. Boxes at or below MinBoxArea and boxes
// with no such region are Uncoloured.
func (c *Classifier) Classify(frame gocv.Mat, detections []hold.Detection) (*Routes, error) {
	if frame.Empty() {
		return nil, ErrEmptyFrame
	}

	regions := c.extractRegions(frame)
	return c.assign(detections, regions)
}

// extractRegions converts frame to HSV and collects contour regions for
// every prioritised colour.
func (c *Classifier) extractRegions(frame gocv.Mat) map[Label][]region {
	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(frame, &hsv, gocv.ColorBGRToHSV)

	regions := make(map[Label][]region, len(c.config.Priority))
	for _, l := range c.config.Priority {
		lower, upper := c.config.Ranges[l].scalars()

		mask := gocv.NewMat()
		gocv.InRangeWithScalar(hsv, lower, upper, &mask)

		contours := gocv.FindContours(mask, gocv.RetrievalTree, gocv.ChainApproxSimple)
		found := make([]region, 0, contours.Size())
		for i := 0; i < contours.Size(); i++ {
			contour := contours.At(i)
			found = append(found, region{
				area:   gocv.ContourArea(contour),
				bounds: gocv.BoundingRect(contour),
			})
		}
		contours.Close()
		mask.Close()

		regions[l] = found
	}
	return regions
}

// assign runs the first-match colour policy over pre-extracted regions.
func (c *Classifier) assign(detections []hold.Detection, regions map[Label][]region) (*Routes, error) {
	routes := NewRoutes()
	for _, d := range detections {
		routes.Add(c.labelFor(d, regions), d)
	}

	for _, l := range routes.order {
		for i, d := range routes.holds[l] {
			if err := d.Validate(i); err != nil {
				return nil, fmt.Errorf("%s route: %w", l, err)
			}
		}
	}
	return routes, nil
}

func (c *Classifier) labelFor(d hold.Detection, regions map[Label][]region) Label {
	area := geometry.Area(d.Box)
	if area <= c.config.MinBoxArea {
		return Uncoloured
	}

	x1, y1 := int(d.Box.X1), int(d.Box.Y1)
	x2, y2 := int(d.Box.X2), int(d.Box.Y2)
	minCover := c.config.CoverArea * area

	for _, l := range c.config.Priority {
		for _, r := range regions[l] {
			if r.area < minCover {
				continue
			}
			rx, ry := r.bounds.Min.X, r.bounds.Min.Y
			if x1 <= rx && rx <= x2 && y1 <= ry && ry <= y2 {
				return l
			}
		}
	}
	return Uncoloured
}

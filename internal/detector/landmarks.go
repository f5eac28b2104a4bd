// Package detector provides pose and hold detection for climbing frames.
package detector

import (
	"errors"
	"fmt"

	"github.com/ayusman/holdfast/internal/geometry"
)

// Pose landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
const (
	Nose           = 0
	LeftEyeInner   = 1
	LeftEye        = 2
	LeftEyeOuter   = 3
	RightEyeInner  = 4
	RightEye       = 5
	RightEyeOuter  = 6
	LeftEar        = 7
	RightEar       = 8
	MouthLeft      = 9
	MouthRight     = 10
	LeftShoulder   = 11
	RightShoulder  = 12
	LeftElbow      = 13
	RightElbow     = 14
	LeftWrist      = 15
	RightWrist     = 16
	LeftPinky      = 17
	RightPinky     = 18
	LeftIndex      = 19
	RightIndex     = 20
	LeftThumb      = 21
	RightThumb     = 22
	LeftHip        = 23
	RightHip       = 24
	LeftKnee       = 25
	RightKnee      = 26
	LeftAnkle      = 27
	RightAnkle     = 28
	LeftHeel       = 29
	RightHeel      = 30
	LeftFootIndex  = 31
	RightFootIndex = 32
	NumLandmarks   = 33
)

// ErrLandmarksMissing is returned when a pose lacks the landmarks a limb needs.
var ErrLandmarksMissing = errors.New("detector: limb landmarks missing")

// Pose is one body pose. Landmark X and Y are normalised to [0, 1] of the
// frame width and height.
type Pose struct {
	Landmarks []geometry.Point `json:"landmarks"`
	Score     float64          `json:"score"`
}

// Limb is a tracked extremity.
type Limb string

const (
	RightHand Limb = "right_hand"
	LeftHand  Limb = "left_hand"
	RightFoot Limb = "right_foot"
	LeftFoot  Limb = "left_foot"
)

var limbLandmarks = map[Limb][]int{
	RightHand: {RightPinky, RightIndex, RightThumb, RightWrist},
	LeftHand:  {LeftPinky, LeftIndex, LeftThumb, LeftWrist},
	RightFoot: {RightAnkle, RightHeel, RightFootIndex},
	LeftFoot:  {LeftAnkle, LeftHeel, LeftFootIndex},
}

// AllLimbs returns every limb in a stable order.
func AllLimbs() []Limb {
	return []Limb{RightHand, LeftHand, RightFoot, LeftFoot}
}

// ParseLimb parses a limb name such as "right_hand".
func ParseLimb(s string) (Limb, error) {
	l := Limb(s)
	if _, ok := limbLandmarks[l]; !ok {
		return "", fmt.Errorf("unknown limb %q", s)
	}
	return l, nil
}

// Landmarks returns the landmark indices that make up l.
func (l Limb) Landmarks() []int {
	src := limbLandmarks[l]
	out := make([]int, len(src))
	copy(out, src)
	return out
}

// LimbPoint returns the pixel-space centroid of the limb's landmarks in a
// frame of the given size. Each landmark is scaled and truncated to whole
// pixels before averaging.
func (p *Pose) LimbPoint(limb Limb, width, height int) (geometry.Point, error) {
	if p == nil {
		return geometry.Point{}, ErrLandmarksMissing
	}
	indices, ok := limbLandmarks[limb]
	if !ok {
		return geometry.Point{}, fmt.Errorf("unknown limb %q", limb)
	}

	points := make([]geometry.Point, 0, len(indices))
	for _, i := range indices {
		if i >= len(p.Landmarks) {
			return geometry.Point{}, fmt.Errorf("%s: %w", limb, ErrLandmarksMissing)
		}
		lm := p.Landmarks[i]
		if !lm.Finite() {
			return geometry.Point{}, fmt.Errorf("%s landmark %d: %w", limb, i, ErrLandmarksMissing)
		}
		points = append(points, geometry.Point{
			X: float64(int(lm.X * float64(width))),
			Y: float64(int(lm.Y * float64(height))),
			Z: lm.Z,
		})
	}

	return geometry.Centroid(points)
}

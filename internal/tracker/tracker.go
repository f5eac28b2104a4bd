package tracker

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/ayusman/holdfast/internal/detector"
	"github.com/ayusman/holdfast/internal/geometry"
	"github.com/ayusman/holdfast/internal/hold"
)

// DefaultGrabThreshold is the limb-to-hold distance in pixels below which a
// hold counts as grabbed.
const DefaultGrabThreshold = 100

// ErrNonFinitePoint is wrapped in a FrameError when the limb position is NaN or infinite.
var ErrNonFinitePoint = errors.New("limb point is not finite")

// Config controls grab detection.
type Config struct {
	GrabThreshold float64
	// SwitchMargin keeps the current target unless another hold is closer
	// by more than this many pixels. Zero always picks the nearest hold.
	SwitchMargin float64
	// SharedGrabs makes all limbs share one grabbed set.
	SharedGrabs bool
}

// DefaultConfig returns the reference grab settings.
func DefaultConfig() Config {
	return Config{
		GrabThreshold: DefaultGrabThreshold,
		SharedGrabs:   true,
	}
}

// Validate checks the thresholds.
func (c Config) Validate() error {
	if !(c.GrabThreshold > 0) || math.IsInf(c.GrabThreshold, 0) {
		return fmt.Errorf("grab threshold must be positive, got %v", c.GrabThreshold)
	}
	if c.SwitchMargin < 0 || math.IsNaN(c.SwitchMargin) {
		return fmt.Errorf("switch margin must not be negative, got %v", c.SwitchMargin)
	}
	return nil
}

// Status is the outcome of one tracking tick for a limb.
type Status int

const (
	// StatusTargeting means a target was chosen but is not yet in reach.
	StatusTargeting Status = iota
	// StatusGrabbed means the target was within the grab threshold.
	StatusGrabbed
	// StatusNoTarget means every candidate has already been grabbed.
	StatusNoTarget
	// StatusSkipped means the limb position was unusable this frame.
	StatusSkipped
)

var statusNames = [...]string{
	StatusTargeting: "targeting",
	StatusGrabbed:   "grabbed",
	StatusNoTarget:  "no_target",
	StatusSkipped:   "skipped",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("Status(%d)", int(s))
	}
	return statusNames[s]
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// FrameError reports a tick that could not be evaluated for a limb.
// The session is left untouched.
type FrameError struct {
	Limb detector.Limb
	Err  error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("track %s: %v", e.Limb, e.Err)
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// Result is one limb's tracking outcome for a frame.
type Result struct {
	Limb   detector.Limb
	Status Status
	// Point is the limb position in pixels, nil when skipped.
	Point *geometry.Point
	// Target is the hold being reached for, or the hold just grabbed.
	// For skipped ticks it is the previous target, if any.
	Target *hold.Detection
	// Distance from the limb to Target. Zero when there is no target or
	// the tick was skipped.
	Distance float64
	// NewGrab is set when this tick added Target to the grabbed set.
	NewGrab bool
	Err     error
}

type resultJSON struct {
	Limb     detector.Limb   `json:"limb"`
	Status   Status          `json:"status"`
	Point    *geometry.Point `json:"point,omitempty"`
	Target   *hold.Detection `json:"target,omitempty"`
	Distance float64         `json:"distance"`
	NewGrab  bool            `json:"new_grab,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// MarshalJSON encodes the result with its error as a string.
func (r Result) MarshalJSON() ([]byte, error) {
	out := resultJSON{
		Limb:     r.Limb,
		Status:   r.Status,
		Point:    r.Point,
		Target:   r.Target,
		Distance: r.Distance,
		NewGrab:  r.NewGrab,
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return json.Marshal(out)
}

// Tracker follows one limb.
type Tracker struct {
	limb   detector.Limb
	config Config
}

// New creates a Tracker for limb.
func New(limb detector.Limb, config Config) *Tracker {
	return &Tracker{limb: limb, config: config}
}

// Limb returns the tracked limb.
func (t *Tracker) Limb() detector.Limb {
	return t.limb
}

// Update picks the nearest ungrabbed candidate to p and grabs it if it is
// within the grab threshold. Ties go to the earliest candidate.
func (t *Tracker) Update(s *Session, p geometry.Point, candidates []hold.Detection) Result {
	if !p.Finite() {
		return t.Skip(s, ErrNonFinitePoint)
	}

	best, bestDist := -1, math.Inf(1)
	for i, c := range candidates {
		if s.IsGrabbed(c) {
			continue
		}
		if d := geometry.Distance(p, c.Box); d < bestDist {
			best, bestDist = i, d
		}
	}

	if best < 0 {
		s.clearTarget(t.limb)
		return Result{Limb: t.limb, Status: StatusNoTarget, Point: &p}
	}

	target := candidates[best]
	if t.config.SwitchMargin > 0 {
		target, bestDist = t.stick(s, p, candidates, target, bestDist)
	}

	if bestDist < t.config.GrabThreshold {
		added := s.grab(target)
		s.clearTarget(t.limb)
		return Result{
			Limb:     t.limb,
			Status:   StatusGrabbed,
			Point:    &p,
			Target:   &target,
			Distance: bestDist,
			NewGrab:  added,
		}
	}

	s.setTarget(t.limb, target)
	return Result{
		Limb:     t.limb,
		Status:   StatusTargeting,
		Point:    &p,
		Target:   &target,
		Distance: bestDist,
	}
}

// stick returns the previous target instead of nearest unless nearest is
// closer by more than the switch margin.
func (t *Tracker) stick(s *Session, p geometry.Point, candidates []hold.Detection, nearest hold.Detection, nearestDist float64) (hold.Detection, float64) {
	prev, ok := s.Target(t.limb)
	if !ok || prev.SameHold(nearest) || s.IsGrabbed(prev) || !hold.Contains(candidates, prev) {
		return nearest, nearestDist
	}

	prevDist := geometry.Distance(p, prev.Box)
	if prevDist-nearestDist > t.config.SwitchMargin {
		return nearest, nearestDist
	}
	return prev, prevDist
}

// Skip records that the limb could not be located this frame. The session
// is not modified and the previous target is carried in the result.
func (t *Tracker) Skip(s *Session, err error) Result {
	r := Result{
		Limb:   t.limb,
		Status: StatusSkipped,
		Err:    &FrameError{Limb: t.limb, Err: err},
	}
	if prev, ok := s.Target(t.limb); ok {
		r.Target = &prev
	}
	return r
}

package detector

import (
	"gocv.io/x/gocv"

	"github.com/ayusman/holdfast/internal/hold"
)

// PoseDetector finds the climber's body pose in a frame.
type PoseDetector interface {
	// Detect analyzes a video frame and returns the detected pose, or nil
	// if nobody is in view.
	Detect(frame *gocv.Mat) (*Pose, error)

	// Close releases any resources held by the detector.
	Close() error
}

// HoldDetector finds climbing holds in a frame.
type HoldDetector interface {
	// Detect returns hold candidates in detector order.
	Detect(frame *gocv.Mat) ([]hold.Detection, error)

	Close() error
}

// Config holds configuration options for the detection services.
type Config struct {
	// MinConfidence is the minimum pose detection confidence (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum pose tracking confidence (0.0-1.0).
	MinTrackingConf float64

	// HoldModel is the path to the hold detection weights.
	HoldModel string

	// HoldConfidence is the minimum confidence for a hold candidate.
	HoldConfidence float64

	// ScriptDir overrides where the Python services are looked up.
	ScriptDir string

	// Python overrides the interpreter used to run the services.
	Python string
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MinConfidence:   0.8,
		MinTrackingConf: 0.8,
		HoldModel:       "bestHuge.pt",
		HoldConfidence:  0.25,
	}
}

package detector

import (
	"os/exec"
	"strconv"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/ayusman/holdfast/internal/geometry"
)

// PoseScript is the MediaPipe pose service looked up on disk.
const PoseScript = "pose_service.py"

// MediaPipeDetector implements PoseDetector using a Python MediaPipe subprocess.
type MediaPipeDetector struct {
	svc *service
}

// NewMediaPipeDetector creates a new MediaPipe pose detector.
// The Python process is started lazily on first detection.
func NewMediaPipeDetector(cfg Config, logger *zap.Logger) (*MediaPipeDetector, error) {
	command, err := scriptCommand(cfg, PoseScript,
		"--min-detection-confidence", strconv.FormatFloat(cfg.MinConfidence, 'f', -1, 64),
		"--min-tracking-confidence", strconv.FormatFloat(cfg.MinTrackingConf, 'f', -1, 64),
	)
	if err != nil {
		return nil, err
	}

	return &MediaPipeDetector{svc: newService("pose", command, logger)}, nil
}

func newMediaPipeDetectorWithCommand(command func() *exec.Cmd) *MediaPipeDetector {
	return &MediaPipeDetector{svc: newService("pose", command, nil)}
}

// Detect returns the climber's pose, or nil if nobody is in view.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat) (*Pose, error) {
	var response poseResponse
	if err := d.svc.detect(frame, &response); err != nil {
		return nil, err
	}
	return response.toPose(), nil
}

// Close shuts down the Python process.
func (d *MediaPipeDetector) Close() error {
	return d.svc.close()
}

// poseResponse is the JSON line written by the pose service.
type poseResponse struct {
	Pose *jsonPose `json:"pose"`
}

type jsonPose struct {
	Landmarks []jsonPoint `json:"landmarks"`
	Score     float64     `json:"score"`
}

type jsonPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (r poseResponse) toPose() *Pose {
	if r.Pose == nil || len(r.Pose.Landmarks) == 0 {
		return nil
	}

	p := &Pose{
		Landmarks: make([]geometry.Point, len(r.Pose.Landmarks)),
		Score:     r.Pose.Score,
	}
	for i, lm := range r.Pose.Landmarks {
		p.Landmarks[i] = geometry.Point{X: lm.X, Y: lm.Y, Z: lm.Z}
	}
	return p
}

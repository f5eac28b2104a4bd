package detector

import (
	"fmt"
	"os/exec"
	"strconv"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/ayusman/holdfast/internal/hold"
)

// HoldScript is the YOLO hold detection service looked up on disk.
const HoldScript = "hold_service.py"

// YOLODetector implements HoldDetector using a Python YOLO subprocess.
type YOLODetector struct {
	svc *service
}

// NewYOLODetector creates a hold detector backed by the weights in
// cfg.HoldModel. The Python process is started lazily on first detection.
func NewYOLODetector(cfg Config, logger *zap.Logger) (*YOLODetector, error) {
	command, err := scriptCommand(cfg, HoldScript,
		"--model", cfg.HoldModel,
		"--confidence", strconv.FormatFloat(cfg.HoldConfidence, 'f', -1, 64),
	)
	if err != nil {
		return nil, err
	}

	return &YOLODetector{svc: newService("holds", command, logger)}, nil
}

func newYOLODetectorWithCommand(command func() *exec.Cmd) *YOLODetector {
	return &YOLODetector{svc: newService("holds", command, nil)}
}

// Detect returns the hold candidates in the order the model produced them.
// A malformed row fails the whole frame.
func (d *YOLODetector) Detect(frame *gocv.Mat) ([]hold.Detection, error) {
	var response holdResponse
	if err := d.svc.detect(frame, &response); err != nil {
		return nil, err
	}
	return response.toDetections()
}

// Close shuts down the Python process.
func (d *YOLODetector) Close() error {
	return d.svc.close()
}

// holdResponse is the JSON line written by the hold service.
type holdResponse struct {
	Holds []jsonHold `json:"holds"`
}

type jsonHold struct {
	XYXY       []float64 `json:"xyxy"`
	Confidence float64   `json:"confidence"`
	Class      int       `json:"class"`
}

func (r holdResponse) toDetections() ([]hold.Detection, error) {
	out := make([]hold.Detection, 0, len(r.Holds))
	for i, h := range r.Holds {
		d, err := hold.FromXYXY(i, h.XYXY, h.Confidence, h.Class)
		if err != nil {
			return nil, fmt.Errorf("hold service: %w", err)
		}
		out = append(out, d)
	}
	return out, nil
}

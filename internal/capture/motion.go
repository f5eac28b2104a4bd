package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

const (
	// blurSize is the Gaussian kernel applied before differencing.
	blurSize = 21
	// diffThreshold is the per-pixel grey-level change counted as movement.
	diffThreshold = 25
	// DefaultMotionThreshold is the percentage of changed pixels above
	// which a frame counts as moving.
	DefaultMotionThreshold = 1.0
)

// MotionDetector compares consecutive frames to tell whether the scene is
// moving. Calibration uses it to wait until the wall is still before the
// holds are classified.
type MotionDetector struct {
	mu        sync.Mutex
	threshold float64
	prev      gocv.Mat
	primed    bool
	still     int
}

// NewMotionDetector creates a MotionDetector. threshold is the percentage
// of pixels that must change between frames to count as motion.
func NewMotionDetector(threshold float64) *MotionDetector {
	if threshold <= 0 {
		threshold = DefaultMotionThreshold
	}
	return &MotionDetector{
		threshold: threshold,
		prev:      gocv.NewMat(),
	}
}

// Detect reports whether frame moved relative to the previous frame and
// the percentage of pixels that changed. The first frame only primes the
// detector and never counts as still or moving.
func (m *MotionDetector) Detect(frame *gocv.Mat) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: blurSize, Y: blurSize}, 0, 0, gocv.BorderDefault)

	if !m.primed {
		blurred.CopyTo(&m.prev)
		m.primed = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, m.prev, &diff)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(diff, &mask, diffThreshold, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(mask)) / float64(mask.Rows()*mask.Cols()) * 100.0
	blurred.CopyTo(&m.prev)

	moving := changed > m.threshold
	if moving {
		m.still = 0
	} else {
		m.still++
	}
	return moving, changed
}

// StillFrames is the number of consecutive still frames seen so far.
func (m *MotionDetector) StillFrames() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.still
}

// Reset forgets the previous frame so the next Detect primes again.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prev.Close()
	m.prev = gocv.NewMat()
	m.primed = false
	m.still = 0
}

// Close releases the stored frame. A closed detector can be reused and
// primes again on the next frame.
func (m *MotionDetector) Close() {
	m.Reset()
}

package detector

import (
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/holdfast/internal/geometry"
	"github.com/ayusman/holdfast/internal/hold"
)

// MockPoseDetector is a test implementation of PoseDetector.
// Queued poses are returned one per call; once the queue is drained the
// last set pose repeats.
type MockPoseDetector struct {
	mu    sync.Mutex
	pose  *Pose
	queue []*Pose
	err   error
	calls int
}

// NewMockPoseDetector creates a new MockPoseDetector instance.
func NewMockPoseDetector() *MockPoseDetector {
	return &MockPoseDetector{}
}

// SetPose sets the pose that will be returned by Detect.
func (m *MockPoseDetector) SetPose(p *Pose) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pose = p
}

// Queue appends poses to be returned by successive Detect calls.
func (m *MockPoseDetector) Queue(poses ...*Pose) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, poses...)
}

// SetError sets the error that will be returned by Detect.
func (m *MockPoseDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls reports how many times Detect ran.
func (m *MockPoseDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the next queued pose, the pre-configured pose, or error.
func (m *MockPoseDetector) Detect(frame *gocv.Mat) (*Pose, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	if m.err != nil {
		return nil, m.err
	}
	if len(m.queue) > 0 {
		m.pose = m.queue[0]
		m.queue = m.queue[1:]
	}
	return m.pose, nil
}

// Close is a no-op for the mock detector.
func (m *MockPoseDetector) Close() error {
	return nil
}

// MockHoldDetector is a test implementation of HoldDetector.
type MockHoldDetector struct {
	mu    sync.Mutex
	holds []hold.Detection
	err   error
}

// NewMockHoldDetector creates a MockHoldDetector returning holds.
func NewMockHoldDetector(holds []hold.Detection) *MockHoldDetector {
	return &MockHoldDetector{holds: holds}
}

// SetHolds sets the holds that will be returned by Detect.
func (m *MockHoldDetector) SetHolds(holds []hold.Detection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holds = holds
}

// SetError sets the error that will be returned by Detect.
func (m *MockHoldDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Detect returns a copy of the pre-configured holds or error.
func (m *MockHoldDetector) Detect(frame *gocv.Mat) ([]hold.Detection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	out := make([]hold.Detection, len(m.holds))
	copy(out, m.holds)
	return out, nil
}

// Close is a no-op for the mock detector.
func (m *MockHoldDetector) Close() error {
	return nil
}

// PoseAt returns a pose whose limbs all sit at the given pixel positions
// in a frame of the given size. Positions are whole pixels; each landmark
// sits at the pixel centre so scaling back truncates to the same pixel.
// Limbs missing from at are placed at the frame origin.
func PoseAt(width, height int, at map[Limb]geometry.Point) *Pose {
	p := &Pose{
		Landmarks: make([]geometry.Point, NumLandmarks),
		Score:     0.95,
	}
	for limb, pt := range at {
		for _, i := range limbLandmarks[limb] {
			p.Landmarks[i] = geometry.Point{
				X: (pt.X + 0.5) / float64(width),
				Y: (pt.Y + 0.5) / float64(height),
			}
		}
	}
	return p
}

// Package app runs a climb: it calibrates the wall into routes, starts a
// session on the chosen route and tracks the climber's grabs frame by frame.
package app

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/ayusman/holdfast/internal/capture"
	"github.com/ayusman/holdfast/internal/detector"
	"github.com/ayusman/holdfast/internal/feedback"
	"github.com/ayusman/holdfast/internal/publish"
	"github.com/ayusman/holdfast/internal/render"
	"github.com/ayusman/holdfast/internal/route"
	"github.com/ayusman/holdfast/internal/store"
	"github.com/ayusman/holdfast/internal/tracker"
)

// Calibration defaults.
const (
	DefaultCalibrationDuration = 5 * time.Second
	DefaultStillFrames         = 3
)

// maxReadFailures is how many consecutive frame reads may fail before the
// camera is given up on.
const maxReadFailures = 30

var (
	// ErrNoHolds is returned when calibration ends without any hold detections.
	ErrNoHolds = errors.New("app: no holds detected during calibration")
	// ErrNoSession is returned when tracking is attempted before a route was chosen.
	ErrNoSession = errors.New("app: no climb session")
)

// Observer receives every tracking snapshot. Observe is called on the
// tracking goroutine and must not block.
type Observer interface {
	Observe(snap *tracker.Snapshot)
}

// FrameSink receives annotated frames. Put must not keep frame.
type FrameSink interface {
	Put(frame *gocv.Mat) error
}

// Selector picks the route to climb. *route.Selector satisfies it.
type Selector interface {
	Select(routes *route.Routes) (route.Selection, error)
}

// CalibrationConfig controls when the wall is considered ready.
type CalibrationConfig struct {
	// Duration is the minimum time spent calibrating.
	Duration time.Duration
	// StillFrames is how many consecutive motionless frames are required.
	StillFrames int
	// MotionThreshold is the percentage of changed pixels that counts as motion.
	MotionThreshold float64
}

// Config holds the collaborators and settings of an App.
type Config struct {
	Camera       capture.Camera
	PoseDetector detector.PoseDetector
	HoldDetector detector.HoldDetector

	Classifier  route.Config
	Tracker     tracker.Config
	Limbs       []detector.Limb
	Calibration CalibrationConfig

	// FrameInterval paces frame reads. Zero reads as fast as the camera
	// delivers, which is right for live devices.
	FrameInterval time.Duration

	// Optional outputs.
	Notifier  feedback.Notifier
	Store     *store.Store
	Publisher *publish.Publisher
	Frames    FrameSink
	Observers []Observer

	Logger *zap.Logger
}

// App orchestrates calibration and grab tracking for one camera.
type App struct {
	config     Config
	camera     capture.Camera
	poses      detector.PoseDetector
	holds      detector.HoldDetector
	classifier *route.Classifier
	motion     *capture.MotionDetector
	notifier   feedback.Notifier
	font       render.Font
	logger     *zap.Logger

	mu        sync.RWMutex
	phase     Phase
	paused    bool
	routes    *route.Routes
	selection *route.Selection
	group     *tracker.Group
	snapshot  *tracker.Snapshot
	frame     uint64
	completed bool
	ended     bool
}

// New validates config and creates an App. Unset calibration settings and
// limbs fall back to their defaults.
func New(config Config) (*App, error) {
	if config.Camera == nil {
		return nil, errors.New("app: camera is required")
	}
	if config.PoseDetector == nil || config.HoldDetector == nil {
		return nil, errors.New("app: pose and hold detectors are required")
	}
	if err := config.Classifier.Validate(); err != nil {
		return nil, fmt.Errorf("classifier config: %w", err)
	}
	if err := config.Tracker.Validate(); err != nil {
		return nil, fmt.Errorf("tracker config: %w", err)
	}

	if len(config.Limbs) == 0 {
		config.Limbs = detector.AllLimbs()
	}
	if config.Calibration.Duration < 0 {
		config.Calibration.Duration = DefaultCalibrationDuration
	}
	if config.Calibration.StillFrames < 0 {
		config.Calibration.StillFrames = DefaultStillFrames
	}
	if config.Calibration.MotionThreshold <= 0 {
		config.Calibration.MotionThreshold = capture.DefaultMotionThreshold
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	notifier := config.Notifier
	if notifier == nil {
		notifier = feedback.Nop{}
	}

	return &App{
		config:     config,
		camera:     config.Camera,
		poses:      config.PoseDetector,
		holds:      config.HoldDetector,
		classifier: route.NewClassifier(config.Classifier),
		motion:     capture.NewMotionDetector(config.Calibration.MotionThreshold),
		notifier:   notifier,
		font:       render.DefaultFont(),
		logger:     logger,
		phase:      PhaseIdle,
	}, nil
}

// SetPaused pauses or resumes tracking. Paused frames are still shown
// but not tracked.
func (a *App) SetPaused(paused bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.paused = paused
}

// Paused reports whether tracking is paused.
func (a *App) Paused() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.paused
}

// Phase returns the current phase of the climb.
func (a *App) Phase() Phase {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.phase
}

func (a *App) setPhase(p Phase) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.phase = p
}

// Routes returns the calibrated routes, or nil before calibration.
func (a *App) Routes() *route.Routes {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.routes
}

// Selection returns the route being climbed, or nil.
func (a *App) Selection() *route.Selection {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.selection
}

// SessionID returns the current session ID, or "" when none is active.
func (a *App) SessionID() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.group == nil {
		return ""
	}
	return a.group.ID
}

// Snapshot returns the latest tracking snapshot, or nil.
func (a *App) Snapshot() *tracker.Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshot
}

// State is the viewer-facing summary of the app.
type State struct {
	Phase     Phase             `json:"phase"`
	Paused    bool              `json:"paused"`
	Routes    *route.Routes     `json:"routes,omitempty"`
	Selection *route.Selection  `json:"selection,omitempty"`
	Snapshot  *tracker.Snapshot `json:"snapshot,omitempty"`
}

// State returns the current State. It satisfies api.StateProvider.
func (a *App) State() any {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return State{
		Phase:     a.phase,
		Paused:    a.paused,
		Routes:    a.routes,
		Selection: a.selection,
		Snapshot:  a.snapshot,
	}
}

// Open opens the camera if it is not open yet.
func (a *App) Open() error {
	if a.camera.IsOpen() {
		return nil
	}
	if err := a.camera.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	return nil
}

// Close ends any open session and releases the camera, detectors and
// notifier.
func (a *App) Close() error {
	a.endSession()

	var errs []error
	if err := a.camera.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close camera: %w", err))
	}
	a.motion.Close()
	if err := a.poses.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close pose detector: %w", err))
	}
	if err := a.holds.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close hold detector: %w", err))
	}
	if err := a.notifier.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close notifier: %w", err))
	}
	return errors.Join(errs...)
}

// put sends frame to the frame sink, if any.
func (a *App) put(frame *gocv.Mat) {
	if a.config.Frames == nil {
		return
	}
	if err := a.config.Frames.Put(frame); err != nil {
		a.logger.Debug("frame sink rejected frame", zap.Error(err))
	}
}

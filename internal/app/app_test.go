package app

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/ayusman/holdfast/internal/capture"
	"github.com/ayusman/holdfast/internal/detector"
	"github.com/ayusman/holdfast/internal/route"
	"github.com/ayusman/holdfast/internal/tracker"
)

func TestPhase_String(t *testing.T) {
	tests := []struct {
		phase Phase
		want  string
	}{
		{PhaseIdle, "idle"},
		{PhaseCalibrating, "calibrating"},
		{PhaseSelecting, "selecting"},
		{PhaseTracking, "tracking"},
		{PhaseDone, "done"},
		{Phase(42), "Phase(42)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.phase.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPhase_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(map[string]Phase{"phase": PhaseTracking})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"phase":"tracking"}` {
		t.Errorf("Marshal() = %s", data)
	}
}

func validConfig() Config {
	return Config{
		Camera:       capture.NewMockCamera(nil, false),
		PoseDetector: detector.NewMockPoseDetector(),
		HoldDetector: detector.NewMockHoldDetector(nil),
		Classifier:   route.DefaultConfig(),
		Tracker:      tracker.DefaultConfig(),
	}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{name: "no camera", modify: func(c *Config) { c.Camera = nil }},
		{name: "no pose detector", modify: func(c *Config) { c.PoseDetector = nil }},
		{name: "no hold detector", modify: func(c *Config) { c.HoldDetector = nil }},
		{name: "bad cover area", modify: func(c *Config) { c.Classifier.CoverArea = 0 }},
		{name: "bad grab threshold", modify: func(c *Config) { c.Tracker.GrabThreshold = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(&cfg)
			if _, err := New(cfg); err == nil {
				t.Error("New() expected error")
			}
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	cfg := validConfig()
	cfg.Calibration = CalibrationConfig{Duration: -1, StillFrames: -1}

	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	if got := len(a.config.Limbs); got != len(detector.AllLimbs()) {
		t.Errorf("limbs = %d, want all %d", got, len(detector.AllLimbs()))
	}
	if a.config.Calibration.Duration != DefaultCalibrationDuration {
		t.Errorf("duration = %v, want %v", a.config.Calibration.Duration, DefaultCalibrationDuration)
	}
	if a.config.Calibration.StillFrames != DefaultStillFrames {
		t.Errorf("still frames = %d, want %d", a.config.Calibration.StillFrames, DefaultStillFrames)
	}
	if a.Phase() != PhaseIdle {
		t.Errorf("Phase() = %v, want idle", a.Phase())
	}
	if a.SessionID() != "" || a.Snapshot() != nil || a.Routes() != nil {
		t.Error("new app should have no routes, session or snapshot")
	}
}

func TestApp_SetPaused(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	a, err := New(validConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	if a.Paused() {
		t.Error("app should start unpaused")
	}
	a.SetPaused(true)
	if !a.Paused() {
		t.Error("Paused() = false after SetPaused(true)")
	}
	state := a.State().(State)
	if !state.Paused {
		t.Error("State().Paused = false")
	}
}

func TestApp_TickWithoutSession(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	a, err := New(validConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	if _, err := a.Tick(nil); !errors.Is(err, ErrNoSession) {
		t.Errorf("Tick() error = %v, want ErrNoSession", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := a.Track(ctx); !errors.Is(err, ErrNoSession) {
		t.Errorf("Track() error = %v, want ErrNoSession", err)
	}
}

func TestApp_StartSessionRejectsEmptyRoute(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	a, err := New(validConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	if err := a.StartSession(route.Selection{Label: route.Red}); err == nil {
		t.Error("StartSession() expected error for a route without holds")
	}
	if a.SessionID() != "" {
		t.Error("no session should be started")
	}
}

package capture

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestNewSource(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		wantFile bool
	}{
		{name: "default device", source: "0", wantFile: false},
		{name: "second device", source: "1", wantFile: false},
		{name: "video file", source: "climb.mp4", wantFile: true},
		{name: "path with digits", source: "sessions/2024-05-01.mov", wantFile: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam := NewSource(tt.source)
			impl, ok := cam.(*cameraImpl)
			if !ok {
				t.Fatalf("NewSource returned %T", cam)
			}
			if impl.file != tt.wantFile {
				t.Errorf("file = %v, want %v", impl.file, tt.wantFile)
			}
			if impl.source != tt.source {
				t.Errorf("source = %q, want %q", impl.source, tt.source)
			}
			if cam.IsOpen() {
				t.Error("camera should not be running initially")
			}
		})
	}
}

func TestCamera_SetFPS(t *testing.T) {
	cam := NewCamera(0)

	if got := cam.FPS(); got != DefaultFPS {
		t.Fatalf("FPS() = %d, want %d (default)", got, DefaultFPS)
	}

	tests := []struct {
		name    string
		fps     int
		wantFPS int
	}{
		{name: "set to 10", fps: 10, wantFPS: 10},
		{name: "set to 30", fps: 30, wantFPS: 30},
		{name: "set to 0 should keep previous", fps: 0, wantFPS: 30},
		{name: "set to negative should keep previous", fps: -5, wantFPS: 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam.SetFPS(tt.fps)
			if got := cam.FPS(); got != tt.wantFPS {
				t.Errorf("FPS() = %d, want %d", got, tt.wantFPS)
			}
		})
	}
}

func TestCamera_ReadFrame_NotOpened(t *testing.T) {
	for _, cam := range []Camera{NewCamera(0), NewFileCamera("climb.mp4")} {
		if _, err := cam.ReadFrame(); !errors.Is(err, ErrCameraNotOpen) {
			t.Errorf("ReadFrame() error = %v, want ErrCameraNotOpen", err)
		}
	}
}

func TestCamera_Close_NotOpened(t *testing.T) {
	cam := NewCamera(0)

	if err := cam.Close(); err != nil {
		t.Errorf("Close() on not opened camera should return nil, got: %v", err)
	}
}

func TestFileCamera_MissingFile(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV capture")
	}

	cam := NewFileCamera(filepath.Join(t.TempDir(), "missing.mp4"))
	if err := cam.Open(); err == nil {
		cam.Close()
		t.Fatal("expected error opening a missing video file")
	}
	if cam.IsOpen() {
		t.Error("camera should not be open after a failed Open")
	}
}

func TestCamera_OpenClose_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cam := NewCamera(0)

	if err := cam.Open(); err != nil {
		t.Skipf("skipping test - camera not available: %v", err)
	}

	if !cam.IsOpen() {
		t.Error("IsOpen() should return true after Open()")
	}

	mat, err := cam.ReadFrame()
	if err != nil {
		t.Errorf("ReadFrame() failed: %v", err)
	} else {
		if mat.Cols() != DefaultWidth || mat.Rows() != DefaultHeight {
			t.Logf("Frame dimensions: %dx%d (camera may not support 640x480)", mat.Cols(), mat.Rows())
		}
		mat.Close()
	}

	if err := cam.Close(); err != nil {
		t.Errorf("Close() failed: %v", err)
	}
	if cam.IsOpen() {
		t.Error("IsOpen() should return false after Close()")
	}
}

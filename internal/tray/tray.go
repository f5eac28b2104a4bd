// Package tray provides a macOS system tray menu for a running climb.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/holdfast/internal/tracker"
)

// Tray represents the macOS system tray application.
type Tray struct {
	onPause  func(paused bool)
	onViewer func()
	onQuit   func()
	paused   bool
	status   string
	mu       sync.RWMutex

	// Menu items stored for later updates
	menuPause  *systray.MenuItem
	menuStatus *systray.MenuItem
}

// New creates a Tray in the running state.
func New() *Tray {
	return &Tray{
		status: "Calibrating",
	}
}

// OnPause sets the callback called when tracking is paused or resumed.
func (t *Tray) OnPause(fn func(paused bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onPause = fn
}

// OnViewer sets the callback called when the viewer menu item is clicked.
func (t *Tray) OnViewer(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onViewer = fn
}

// OnQuit sets the callback called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("Holdfast")
	systray.SetTooltip("Holdfast climb tracker")

	t.mu.Lock()
	t.menuStatus = systray.AddMenuItem(t.status, "Current route")
	t.menuStatus.Disable()
	systray.AddSeparator()

	t.menuPause = systray.AddMenuItem(pauseTitle(t.paused), "Pause or resume tracking")
	t.mu.Unlock()

	menuViewer := systray.AddMenuItem("Open Viewer...", "Open the live viewer in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Stop tracking and quit")

	go func() {
		for {
			select {
			case <-t.menuPause.ClickedCh:
				t.handlePause()
			case <-menuViewer.ClickedCh:
				t.handleViewer()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				systray.Quit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

func pauseTitle(paused bool) string {
	if paused {
		return "○ Paused"
	}
	return "● Tracking"
}

// handlePause flips the paused state and reports it.
func (t *Tray) handlePause() {
	t.mu.Lock()
	t.paused = !t.paused
	paused := t.paused
	if t.menuPause != nil {
		t.menuPause.SetTitle(pauseTitle(paused))
	}
	callback := t.onPause
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(paused)
	}
}

func (t *Tray) handleViewer() {
	t.mu.RLock()
	callback := t.onViewer
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// SetStatus updates the status line in the menu.
func (t *Tray) SetStatus(status string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status = status
	if t.menuStatus != nil {
		t.menuStatus.SetTitle(status)
	}
}

// Status returns the current status line.
func (t *Tray) Status() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// Observe shows the route progress from snap.
func (t *Tray) Observe(snap *tracker.Snapshot) {
	t.SetStatus(StatusLine(snap))
}

// StatusLine formats snap as "<Route> <grabbed>/<holds>".
func StatusLine(snap *tracker.Snapshot) string {
	if snap == nil {
		return "No climb"
	}
	line := fmt.Sprintf("%s %d/%d", snap.Route, len(snap.Grabbed), snap.RouteHolds)
	if snap.Complete() {
		line += " ✓"
	}
	return line
}

// IsPaused returns whether tracking is paused.
func (t *Tray) IsPaused() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.paused
}

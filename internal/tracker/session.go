// Package tracker follows each limb toward the nearest hold it has not yet
// grabbed and records grabs for the duration of a climb.
package tracker

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/holdfast/internal/detector"
	"github.com/ayusman/holdfast/internal/hold"
)

// Session is the grab state of one climb. The grabbed set only grows;
// starting over means creating a new Session.
type Session struct {
	ID        string
	StartedAt time.Time

	mu      sync.RWMutex
	grabbed []hold.Detection
	targets map[detector.Limb]hold.Detection
}

// NewSession starts an empty session.
func NewSession() *Session {
	return &Session{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		targets:   make(map[detector.Limb]hold.Detection),
	}
}

// Grabbed returns the grabbed holds in the order they were grabbed.
func (s *Session) Grabbed() []hold.Detection {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]hold.Detection, len(s.grabbed))
	copy(out, s.grabbed)
	return out
}

// IsGrabbed reports whether a hold with exactly d's box was grabbed.
func (s *Session) IsGrabbed(d hold.Detection) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return hold.Contains(s.grabbed, d)
}

// Target returns the hold limb is currently reaching for.
func (s *Session) Target(limb detector.Limb) (hold.Detection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.targets[limb]
	return d, ok
}

// grab adds d to the grabbed set. It reports false if d was already there.
func (s *Session) grab(d hold.Detection) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if hold.Contains(s.grabbed, d) {
		return false
	}
	s.grabbed = append(s.grabbed, d)
	return true
}

func (s *Session) setTarget(limb detector.Limb, d hold.Detection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targets[limb] = d
}

func (s *Session) clearTarget(limb detector.Limb) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.targets, limb)
}

package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/ayusman/holdfast/internal/capture"
	"github.com/ayusman/holdfast/internal/render"
	"github.com/ayusman/holdfast/internal/route"
	"github.com/ayusman/holdfast/internal/store"
	"github.com/ayusman/holdfast/internal/tracker"
)

// sessionTagger is implemented by notifiers that label their output with
// the climb session.
type sessionTagger interface {
	SetSession(id string)
}

// StartSession begins a climb on sel with fresh trackers. Any session
// still open is ended as incomplete. StartSession must not be called while
// Track is running.
func (a *App) StartSession(sel route.Selection) error {
	if len(sel.Holds) == 0 {
		return fmt.Errorf("start session: route %s has no holds", sel.Label)
	}
	a.endSession()

	group := tracker.NewGroup(a.config.Tracker, a.config.Limbs)

	a.mu.Lock()
	a.group = group
	a.selection = &sel
	a.snapshot = nil
	a.frame = 0
	a.completed = false
	a.ended = false
	a.phase = PhaseTracking
	a.mu.Unlock()

	if a.config.Store != nil {
		limbs := make([]string, len(a.config.Limbs))
		for i, l := range a.config.Limbs {
			limbs[i] = string(l)
		}
		err := a.config.Store.Sessions().Create(&store.Session{
			ID:          group.ID,
			Route:       sel.Label.String(),
			Limbs:       limbs,
			SharedGrabs: a.config.Tracker.SharedGrabs,
			StartedAt:   group.StartedAt,
		}, sel.Holds)
		if err != nil {
			a.logger.Warn("log session", zap.Error(err))
		}
	}
	if t, ok := a.notifier.(sessionTagger); ok {
		t.SetSession(group.ID)
	}

	a.logger.Info("session started",
		zap.String("session", group.ID),
		zap.Stringer("route", sel.Label),
		zap.Int("holds", len(sel.Holds)),
	)
	return nil
}

// Tick tracks one frame against the selected route and fans the resulting
// snapshot out to the log, the notifier, the frame sink and the observers.
func (a *App) Tick(frame *gocv.Mat) (*tracker.Snapshot, error) {
	a.mu.RLock()
	group, sel := a.group, a.selection
	a.mu.RUnlock()
	if group == nil || sel == nil {
		return nil, ErrNoSession
	}

	pose, err := a.poses.Detect(frame)
	if err != nil {
		a.logger.Debug("pose detection failed", zap.Error(err))
		pose = nil
	}
	results := group.Step(pose, frame.Cols(), frame.Rows(), sel.Holds)

	a.mu.Lock()
	a.frame++
	snap := &tracker.Snapshot{
		SessionID:  group.ID,
		Frame:      a.frame,
		Time:       time.Now(),
		Route:      sel.Label,
		RouteHolds: len(sel.Holds),
		Results:    results,
		Grabbed:    group.Grabbed(),
	}
	a.snapshot = snap
	finished := snap.Complete() && !a.completed
	if finished {
		a.completed = true
		a.phase = PhaseDone
	}
	a.mu.Unlock()

	a.record(snap)
	a.cue(snap)

	annotated := frame.Clone()
	render.Tracking(&annotated, *sel, snap, a.font)
	a.put(&annotated)
	annotated.Close()

	if a.config.Publisher != nil {
		a.config.Publisher.Observe(snap)
	}
	for _, o := range a.config.Observers {
		o.Observe(snap)
	}

	if finished {
		a.logger.Info("route complete",
			zap.String("session", snap.SessionID),
			zap.Stringer("route", snap.Route),
			zap.Uint64("frames", snap.Frame),
		)
		a.endSession()
	}
	return snap, nil
}

// record logs grabs and writes them to the climb log.
func (a *App) record(snap *tracker.Snapshot) {
	for _, r := range snap.Results {
		if r.Err != nil {
			a.logger.Debug("limb skipped", zap.String("limb", string(r.Limb)), zap.Error(r.Err))
		}
		if !r.NewGrab || r.Target == nil {
			continue
		}

		a.logger.Info("hold grabbed",
			zap.String("limb", string(r.Limb)),
			zap.Float64("distance", r.Distance),
			zap.Int("grabbed", len(snap.Grabbed)),
			zap.Int("route_holds", snap.RouteHolds),
		)
		if a.config.Store == nil {
			continue
		}
		err := a.config.Store.Grabs().Create(&store.Grab{
			SessionID: snap.SessionID,
			Limb:      string(r.Limb),
			Hold:      *r.Target,
			Distance:  r.Distance,
			Frame:     snap.Frame,
			GrabbedAt: snap.Time,
		})
		if err != nil {
			a.logger.Warn("log grab", zap.Error(err))
		}
	}
}

// cue plays a proximity tone for the limb closest to its target.
func (a *App) cue(snap *tracker.Snapshot) {
	closest := -1.0
	for _, r := range snap.Results {
		if r.Status != tracker.StatusTargeting {
			continue
		}
		if closest < 0 || r.Distance < closest {
			closest = r.Distance
		}
	}
	if closest >= 0 {
		a.notifier.Proximity(closest)
	}
}

// endSession marks the current session as ended in the climb log. It is a
// no-op when there is no session or it has already ended.
func (a *App) endSession() {
	a.mu.Lock()
	if a.group == nil || a.ended {
		a.mu.Unlock()
		return
	}
	a.ended = true
	id, completed := a.group.ID, a.completed
	a.mu.Unlock()

	if a.config.Store == nil {
		return
	}
	if err := a.config.Store.Sessions().End(id, time.Now(), completed); err != nil {
		a.logger.Warn("end session", zap.String("session", id), zap.Error(err))
	}
}

// Track reads frames and ticks the current session until the route is
// complete, the stream ends or ctx is cancelled. All three end the session
// and return nil.
func (a *App) Track(ctx context.Context) error {
	if a.SessionID() == "" {
		return ErrNoSession
	}
	if err := a.Open(); err != nil {
		return err
	}

	err := a.runPipeline(ctx, func(frame *gocv.Mat) (bool, error) {
		if a.Paused() {
			a.put(frame)
			return false, nil
		}
		snap, err := a.Tick(frame)
		if err != nil {
			return true, err
		}
		return snap.Complete(), nil
	})
	a.endSession()
	a.setPhase(PhaseDone)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, capture.ErrEndOfStream):
		a.logger.Info("stream ended")
		return nil
	case ctx.Err() != nil:
		return nil
	default:
		return fmt.Errorf("track: %w", err)
	}
}

// Run calibrates, asks selector for a route and tracks it.
func (a *App) Run(ctx context.Context, selector Selector) error {
	routes, err := a.Calibrate(ctx)
	if err != nil {
		return err
	}

	sel, err := selector.Select(routes)
	if err != nil {
		return fmt.Errorf("select route: %w", err)
	}
	if err := a.StartSession(sel); err != nil {
		return err
	}
	return a.Track(ctx)
}

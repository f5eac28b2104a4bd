package tracker

import (
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/holdfast/internal/detector"
	"github.com/ayusman/holdfast/internal/hold"
	"github.com/ayusman/holdfast/internal/route"
)

// Group tracks a set of limbs over one climb. With SharedGrabs every limb
// reads and writes the same Session; otherwise each limb has its own.
type Group struct {
	ID        string
	StartedAt time.Time

	config   Config
	trackers []*Tracker
	sessions map[detector.Limb]*Session
	shared   *Session
}

// NewGroup creates trackers for limbs with fresh sessions.
func NewGroup(config Config, limbs []detector.Limb) *Group {
	g := &Group{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		config:    config,
		sessions:  make(map[detector.Limb]*Session, len(limbs)),
	}

	if config.SharedGrabs {
		g.shared = NewSession()
	}
	for _, l := range limbs {
		g.trackers = append(g.trackers, New(l, config))
		if g.shared != nil {
			g.sessions[l] = g.shared
		} else {
			g.sessions[l] = NewSession()
		}
	}
	return g
}

// Limbs returns the tracked limbs in tracking order.
func (g *Group) Limbs() []detector.Limb {
	out := make([]detector.Limb, len(g.trackers))
	for i, t := range g.trackers {
		out[i] = t.limb
	}
	return out
}

// Session returns the session that holds limb's grabs.
func (g *Group) Session(limb detector.Limb) *Session {
	return g.sessions[limb]
}

// Grabbed returns every grabbed hold once, in limb order then grab order.
func (g *Group) Grabbed() []hold.Detection {
	if g.shared != nil {
		return g.shared.Grabbed()
	}

	var out []hold.Detection
	for _, t := range g.trackers {
		for _, d := range g.sessions[t.limb].Grabbed() {
			if !hold.Contains(out, d) {
				out = append(out, d)
			}
		}
	}
	return out
}

// Step runs every limb tracker against one frame. A nil pose or a limb
// with missing landmarks is skipped for that limb.
func (g *Group) Step(pose *detector.Pose, width, height int, candidates []hold.Detection) []Result {
	results := make([]Result, 0, len(g.trackers))
	for _, t := range g.trackers {
		s := g.sessions[t.limb]

		pt, err := pose.LimbPoint(t.limb, width, height)
		if err != nil {
			results = append(results, t.Skip(s, err))
			continue
		}
		results = append(results, t.Update(s, pt, candidates))
	}
	return results
}

// Snapshot is the published state after one tracking tick.
type Snapshot struct {
	SessionID  string           `json:"session_id"`
	Frame      uint64           `json:"frame"`
	Time       time.Time        `json:"time"`
	Route      route.Label      `json:"route"`
	RouteHolds int              `json:"route_holds"`
	Results    []Result         `json:"results"`
	Grabbed    []hold.Detection `json:"grabbed"`
}

// NewGrabs returns the results that added a hold this tick.
func (s *Snapshot) NewGrabs() []Result {
	var out []Result
	for _, r := range s.Results {
		if r.NewGrab {
			out = append(out, r)
		}
	}
	return out
}

// Complete reports whether every hold on the route has been grabbed.
func (s *Snapshot) Complete() bool {
	return s.RouteHolds > 0 && len(s.Grabbed) >= s.RouteHolds
}

package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/holdfast/internal/detector"
	"github.com/ayusman/holdfast/internal/geometry"
	"github.com/ayusman/holdfast/internal/hold"
)

const (
	frameW = 640
	frameH = 480
)

func TestGroup_SharedGrabs(t *testing.T) {
	holds := []hold.Detection{around(100, 100), around(500, 100)}
	g := NewGroup(DefaultConfig(), []detector.Limb{detector.RightHand, detector.LeftHand})

	assert.Same(t, g.Session(detector.RightHand), g.Session(detector.LeftHand))

	// Right hand grabs the first hold; the left hand, also near it, must
	// then target the other one.
	pose := detector.PoseAt(frameW, frameH, map[detector.Limb]geometry.Point{
		detector.RightHand: {X: 100, Y: 100},
		detector.LeftHand:  {X: 110, Y: 100},
	})

	results := g.Step(pose, frameW, frameH, holds)
	require.Len(t, results, 2)
	assert.Equal(t, StatusGrabbed, results[0].Status)
	assert.Equal(t, StatusTargeting, results[1].Status)
	assert.True(t, results[1].Target.SameHold(holds[1]))
	assert.Len(t, g.Grabbed(), 1)
}

func TestGroup_PerLimbGrabs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SharedGrabs = false
	holds := []hold.Detection{around(100, 100), around(500, 100)}
	g := NewGroup(cfg, []detector.Limb{detector.RightHand, detector.LeftHand})

	assert.NotSame(t, g.Session(detector.RightHand), g.Session(detector.LeftHand))

	pose := detector.PoseAt(frameW, frameH, map[detector.Limb]geometry.Point{
		detector.RightHand: {X: 100, Y: 100},
		detector.LeftHand:  {X: 110, Y: 100},
	})

	results := g.Step(pose, frameW, frameH, holds)
	require.Len(t, results, 2)
	assert.Equal(t, StatusGrabbed, results[0].Status)
	assert.Equal(t, StatusGrabbed, results[1].Status)
	assert.True(t, results[1].Target.SameHold(holds[0]))

	// Both limbs grabbed the same hold; the union lists it once.
	assert.Len(t, g.Grabbed(), 1)
}

func TestGroup_NilPoseSkipsEveryLimb(t *testing.T) {
	g := NewGroup(DefaultConfig(), detector.AllLimbs())

	results := g.Step(nil, frameW, frameH, []hold.Detection{around(0, 0)})
	require.Len(t, results, 4)
	for _, r := range results {
		assert.Equal(t, StatusSkipped, r.Status)
		assert.ErrorIs(t, r.Err, detector.ErrLandmarksMissing)
	}
	assert.Empty(t, g.Grabbed())
}

func TestGroup_Limbs(t *testing.T) {
	limbs := []detector.Limb{detector.LeftFoot, detector.RightHand}
	g := NewGroup(DefaultConfig(), limbs)
	assert.Equal(t, limbs, g.Limbs())
	assert.NotEmpty(t, g.ID)
}

func TestSnapshot(t *testing.T) {
	h := around(0, 0)
	snap := Snapshot{
		RouteHolds: 2,
		Results: []Result{
			{Limb: detector.RightHand, Status: StatusGrabbed, Target: &h, NewGrab: true},
			{Limb: detector.LeftHand, Status: StatusGrabbed, Target: &h},
			{Limb: detector.RightFoot, Status: StatusNoTarget},
		},
		Grabbed: []hold.Detection{h},
	}

	grabs := snap.NewGrabs()
	require.Len(t, grabs, 1)
	assert.Equal(t, detector.RightHand, grabs[0].Limb)
	assert.False(t, snap.Complete())

	snap.Grabbed = append(snap.Grabbed, around(50, 50))
	assert.True(t, snap.Complete())
}

package tracker

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/holdfast/internal/detector"
	"github.com/ayusman/holdfast/internal/geometry"
	"github.com/ayusman/holdfast/internal/hold"
)

// around returns a 20x20 hold centred on (x, y).
func around(x, y float64) hold.Detection {
	return hold.Detection{Box: geometry.Box(x-10, y-10, x+10, y+10), Confidence: 0.9}
}

func pt(x, y float64) geometry.Point {
	return geometry.Point{X: x, Y: y}
}

func TestUpdate_ThreeHoldClimb(t *testing.T) {
	holds := []hold.Detection{around(0, 0), around(50, 0), around(200, 0)}
	s := NewSession()
	tr := New(detector.RightHand, DefaultConfig())

	steps := []struct {
		limb     geometry.Point
		want     hold.Detection
		distance float64
	}{
		{limb: pt(0, 0), want: holds[0], distance: 0},
		{limb: pt(50, 0), want: holds[1], distance: 0},
		{limb: pt(150, 0), want: holds[2], distance: 50},
	}

	for i, step := range steps {
		r := tr.Update(s, step.limb, holds)
		require.Equal(t, StatusGrabbed, r.Status, "tick %d", i)
		require.NotNil(t, r.Target)
		assert.True(t, r.Target.SameHold(step.want), "tick %d grabbed %v", i, r.Target.Box)
		assert.InDelta(t, step.distance, r.Distance, 1e-9)
		assert.True(t, r.NewGrab)
	}

	grabbed := s.Grabbed()
	require.Len(t, grabbed, 3)
	for i := range holds {
		assert.True(t, grabbed[i].SameHold(holds[i]))
	}

	r := tr.Update(s, pt(0, 0), holds)
	assert.Equal(t, StatusNoTarget, r.Status)
	assert.Nil(t, r.Target)
}

func TestUpdate_TargetingOutsideThreshold(t *testing.T) {
	holds := []hold.Detection{around(300, 0), around(0, 400)}
	s := NewSession()
	tr := New(detector.LeftFoot, DefaultConfig())

	r := tr.Update(s, pt(0, 0), holds)
	require.Equal(t, StatusTargeting, r.Status)
	assert.True(t, r.Target.SameHold(holds[0]))
	assert.InDelta(t, 300, r.Distance, 1e-9)
	assert.Empty(t, s.Grabbed())

	target, ok := s.Target(detector.LeftFoot)
	require.True(t, ok)
	assert.True(t, target.SameHold(holds[0]))
}

func TestUpdate_ThresholdIsStrict(t *testing.T) {
	holds := []hold.Detection{around(100, 0)}
	s := NewSession()
	tr := New(detector.RightHand, DefaultConfig())

	r := tr.Update(s, pt(0, 0), holds)
	assert.Equal(t, StatusTargeting, r.Status, "distance exactly 100 is not a grab")

	r = tr.Update(s, pt(0.001, 0), holds)
	assert.Equal(t, StatusGrabbed, r.Status)
}

func TestUpdate_TiesGoToFirstCandidate(t *testing.T) {
	holds := []hold.Detection{around(-200, 0), around(200, 0), around(0, 200)}
	s := NewSession()
	tr := New(detector.RightHand, DefaultConfig())

	r := tr.Update(s, pt(0, 0), holds)
	require.NotNil(t, r.Target)
	assert.True(t, r.Target.SameHold(holds[0]))

	reversed := []hold.Detection{holds[2], holds[1], holds[0]}
	r = tr.Update(s, pt(0, 0), reversed)
	assert.True(t, r.Target.SameHold(holds[2]))
}

func TestUpdate_IgnoresZ(t *testing.T) {
	holds := []hold.Detection{around(0, 0)}
	s := NewSession()
	tr := New(detector.RightHand, DefaultConfig())

	r := tr.Update(s, geometry.Point{X: 0, Y: 0, Z: 1e6}, holds)
	assert.Equal(t, StatusGrabbed, r.Status)
	assert.Zero(t, r.Distance)
}

func TestUpdate_EmptyCandidates(t *testing.T) {
	s := NewSession()
	tr := New(detector.RightHand, DefaultConfig())

	r := tr.Update(s, pt(10, 10), nil)
	assert.Equal(t, StatusNoTarget, r.Status)
	assert.NoError(t, r.Err)
	assert.Nil(t, r.Target)
}

func TestUpdate_NonFinitePoint(t *testing.T) {
	holds := []hold.Detection{around(0, 0)}
	s := NewSession()
	tr := New(detector.RightHand, DefaultConfig())

	for _, p := range []geometry.Point{pt(math.NaN(), 0), pt(0, math.Inf(1))} {
		r := tr.Update(s, p, holds)
		assert.Equal(t, StatusSkipped, r.Status)

		var ferr *FrameError
		require.True(t, errors.As(r.Err, &ferr))
		assert.Equal(t, detector.RightHand, ferr.Limb)
		assert.ErrorIs(t, r.Err, ErrNonFinitePoint)
	}
	assert.Empty(t, s.Grabbed())
}

func TestSkip_KeepsPreviousTarget(t *testing.T) {
	holds := []hold.Detection{around(500, 0)}
	s := NewSession()
	tr := New(detector.RightHand, DefaultConfig())

	tr.Update(s, pt(0, 0), holds)
	r := tr.Skip(s, detector.ErrLandmarksMissing)

	assert.Equal(t, StatusSkipped, r.Status)
	require.NotNil(t, r.Target)
	assert.True(t, r.Target.SameHold(holds[0]))
	assert.ErrorIs(t, r.Err, detector.ErrLandmarksMissing)
	assert.Empty(t, s.Grabbed())
}

func TestGrab_Idempotent(t *testing.T) {
	s := NewSession()
	h := around(0, 0)

	assert.True(t, s.grab(h))
	assert.False(t, s.grab(h))
	assert.False(t, s.grab(hold.Detection{Box: h.Box, Confidence: 0.1}))
	assert.Len(t, s.Grabbed(), 1)
	assert.True(t, s.IsGrabbed(h))

	// A box one pixel off is a different hold.
	nearby := hold.Detection{Box: geometry.Box(h.Box.X1+1, h.Box.Y1, h.Box.X2+1, h.Box.Y2)}
	assert.False(t, s.IsGrabbed(nearby))
}

func TestSession_GrabbedNeverShrinks(t *testing.T) {
	holds := []hold.Detection{around(0, 0), around(150, 0), around(300, 0), around(450, 0)}
	s := NewSession()
	tr := New(detector.RightHand, DefaultConfig())

	path := []geometry.Point{pt(0, 0), pt(0, 0), pt(75, 0), pt(150, 0), pt(math.NaN(), 0), pt(290, 5), pt(0, 0), pt(450, 0)}
	prev := 0
	var order []hold.Detection
	for _, p := range path {
		tr.Update(s, p, holds)
		got := s.Grabbed()
		require.GreaterOrEqual(t, len(got), prev)
		for i := range order {
			assert.True(t, got[i].SameHold(order[i]), "grab order changed")
		}
		order = got
		prev = len(got)
	}
	assert.Len(t, s.Grabbed(), 4)
}

func TestUpdate_SwitchMargin(t *testing.T) {
	a := around(300, 0)
	b := around(0, 310)
	holds := []hold.Detection{a, b}

	t.Run("zero margin always switches", func(t *testing.T) {
		s := NewSession()
		tr := New(detector.RightHand, DefaultConfig())

		r := tr.Update(s, pt(0, 0), holds)
		require.True(t, r.Target.SameHold(a))

		// b is now 2px closer than a.
		r = tr.Update(s, pt(-6, 6), holds)
		assert.True(t, r.Target.SameHold(b))
	})

	t.Run("margin keeps current target", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.SwitchMargin = 20
		s := NewSession()
		tr := New(detector.RightHand, cfg)

		r := tr.Update(s, pt(0, 0), holds)
		require.True(t, r.Target.SameHold(a))

		r = tr.Update(s, pt(-6, 6), holds)
		assert.True(t, r.Target.SameHold(a))
		assert.InDelta(t, geometry.Distance(pt(-6, 6), a.Box), r.Distance, 1e-9)

		// Far closer to b: switch.
		r = tr.Update(s, pt(0, 200), holds)
		assert.True(t, r.Target.SameHold(b))
	})

	t.Run("margin still grabs sticky target", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.SwitchMargin = 50
		s := NewSession()
		tr := New(detector.RightHand, cfg)

		tr.Update(s, pt(160, 0), []hold.Detection{a, around(0, 0)})
		r := tr.Update(s, pt(210, 0), []hold.Detection{a, around(0, 0)})
		assert.Equal(t, StatusGrabbed, r.Status)
		assert.True(t, r.Target.SameHold(a))
	})
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	bad := []Config{
		{GrabThreshold: 0},
		{GrabThreshold: -5},
		{GrabThreshold: math.NaN()},
		{GrabThreshold: 100, SwitchMargin: -1},
	}
	for _, c := range bad {
		assert.Error(t, c.Validate(), "%+v", c)
	}
}

func TestResult_MarshalJSON(t *testing.T) {
	h := around(0, 0)
	r := Result{
		Limb:   detector.LeftHand,
		Status: StatusSkipped,
		Target: &h,
		Err:    &FrameError{Limb: detector.LeftHand, Err: detector.ErrLandmarksMissing},
	}

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "left_hand", got["limb"])
	assert.Equal(t, "skipped", got["status"])
	assert.Contains(t, got["error"], "landmarks missing")
	assert.NotNil(t, got["target"])
}

func TestUpdate_ReportsLimbPoint(t *testing.T) {
	s := NewSession()
	tr := New(detector.RightHand, DefaultConfig())
	p := geometry.Point{X: 12, Y: 34}

	r := tr.Update(s, p, []hold.Detection{around(500, 500)})
	require.NotNil(t, r.Point)
	assert.Equal(t, p, *r.Point)

	r = tr.Skip(s, detector.ErrLandmarksMissing)
	assert.Nil(t, r.Point)
}

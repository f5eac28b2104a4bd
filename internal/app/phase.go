package app

import "fmt"

// Phase is where the app is in a climb.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseCalibrating
	PhaseSelecting
	PhaseTracking
	PhaseDone
)

var phaseNames = map[Phase]string{
	PhaseIdle:        "idle",
	PhaseCalibrating: "calibrating",
	PhaseSelecting:   "selecting",
	PhaseTracking:    "tracking",
	PhaseDone:        "done",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

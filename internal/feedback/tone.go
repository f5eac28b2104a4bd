// Package feedback turns tracking distances into audio cues.
package feedback

import "math"

// C4 is middle C in Hz.
const C4 = 261.63

// Proximity tone shape.
const (
	ProximityDuration = 0.2
	ProximityVolume   = 0.1
)

// Tone is one beep sent to the tone plugin. A zero frequency is a rest.
type Tone struct {
	Frequency float64 `json:"frequency"`
	Duration  float64 `json:"duration"`
	Volume    float64 `json:"volume"`
}

// Frequency maps a limb-to-hold distance in pixels to a pitch. It is 4×C4
// at distance 0 and falls toward C4 as the distance grows.
func Frequency(distance float64) float64 {
	return (3*math.Exp(-math.Pow(0.007*distance, 2)) + 1) * C4
}

// ProximityTone is the beep played while reaching for a hold.
func ProximityTone(distance float64) Tone {
	return Tone{Frequency: Frequency(distance), Duration: ProximityDuration, Volume: ProximityVolume}
}

// CalibratedChime is played once the routes are ready: two short high
// beeps followed by a second of silence.
func CalibratedChime() []Tone {
	beep := Tone{Frequency: 4 * C4, Duration: 0.1, Volume: 0.1}
	return []Tone{beep, beep, {Duration: 1}}
}

// Package main provides a tone plugin that plays sine-wave beeps.
// Tones are rendered to a temporary WAV file and handed to afplay on macOS
// or aplay elsewhere.
package main

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/exec"
	"runtime"
)

const sampleRate = 44100

// Request represents the input from the plugin executor.
type Request struct {
	Action  string          `json:"action"`
	Session string          `json:"session,omitempty"`
	Params  json.RawMessage `json:"params"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Tone is one beep. A zero frequency or volume is a rest.
type Tone struct {
	Frequency float64 `json:"frequency"`
	Duration  float64 `json:"duration"`
	Volume    float64 `json:"volume"`
}

// PlayParams is a sequence of tones played back to back.
type PlayParams struct {
	Tones []Tone `json:"tones"`
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	switch req.Action {
	case "play":
		if err := handlePlay(req.Params); err != nil {
			writeErrorResponse(fmt.Sprintf("action %s failed: %v", req.Action, err))
			return
		}
	default:
		writeErrorResponse(fmt.Sprintf("unknown action: %s", req.Action))
		return
	}

	writeSuccessResponse()
}

func handlePlay(params json.RawMessage) error {
	var p PlayParams
	if err := json.Unmarshal(params, &p); err != nil {
		return fmt.Errorf("failed to parse params: %w", err)
	}
	if len(p.Tones) == 0 {
		return fmt.Errorf("no tones to play")
	}
	for i, t := range p.Tones {
		if err := t.validate(); err != nil {
			return fmt.Errorf("tone %d: %w", i, err)
		}
	}

	f, err := os.CreateTemp("", "holdfast-tone-*.wav")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(renderWAV(p.Tones)); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	return playFile(f.Name())
}

func (t Tone) validate() error {
	switch {
	case t.Frequency < 0 || math.IsNaN(t.Frequency) || t.Frequency > sampleRate/2:
		return fmt.Errorf("frequency %v out of range", t.Frequency)
	case !(t.Duration > 0) || t.Duration > 10:
		return fmt.Errorf("duration %v out of range", t.Duration)
	case t.Volume < 0 || t.Volume > 1 || math.IsNaN(t.Volume):
		return fmt.Errorf("volume %v out of range", t.Volume)
	}
	return nil
}

// renderWAV encodes the tones as 16-bit mono PCM.
func renderWAV(tones []Tone) []byte {
	var samples []int16
	for _, t := range tones {
		n := int(t.Duration * sampleRate)
		for i := 0; i < n; i++ {
			v := t.Volume * math.Sin(2*math.Pi*t.Frequency*float64(i)/sampleRate)
			samples = append(samples, int16(v*math.MaxInt16))
		}
	}

	dataSize := uint32(len(samples) * 2)
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, 36+dataSize)
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*2))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, dataSize)
	binary.Write(&buf, binary.LittleEndian, samples)
	return buf.Bytes()
}

func playFile(path string) error {
	player, args := "aplay", []string{"-q", path}
	if runtime.GOOS == "darwin" {
		player, args = "afplay", []string{path}
	}

	cmd := exec.Command(player, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", player, err, string(output))
	}
	return nil
}

func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}

func writeSuccessResponse() {
	json.NewEncoder(os.Stdout).Encode(Response{Success: true})
}

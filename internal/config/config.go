// Package config loads holdfast settings from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/holdfast/internal/capture"
	"github.com/ayusman/holdfast/internal/detector"
	"github.com/ayusman/holdfast/internal/route"
	"github.com/ayusman/holdfast/internal/tracker"
)

// Config is the whole application configuration.
type Config struct {
	Camera      CameraConfig      `yaml:"camera" json:"camera"`
	Calibration CalibrationConfig `yaml:"calibration" json:"calibration"`
	Classifier  ClassifierConfig  `yaml:"classifier" json:"classifier"`
	Tracker     TrackerConfig     `yaml:"tracker" json:"tracker"`
	Detector    DetectorConfig    `yaml:"detector" json:"detector"`
	Audio       AudioConfig       `yaml:"audio" json:"audio"`
	Store       StoreConfig       `yaml:"store" json:"store"`
	Server      ServerConfig      `yaml:"server" json:"server"`
	MQTT        MQTTConfig        `yaml:"mqtt" json:"mqtt"`
	Log         LogConfig         `yaml:"log" json:"log"`
	Tray        TrayConfig        `yaml:"tray" json:"tray"`
}

// CameraConfig selects the frame source.
type CameraConfig struct {
	// Source is a device index ("0") or a video file path.
	Source string `yaml:"source" json:"source"`
	FPS    int    `yaml:"fps" json:"fps"`
}

// CalibrationConfig controls how long the wall is watched before routes
// are classified.
type CalibrationConfig struct {
	Duration        time.Duration `yaml:"duration" json:"duration"`
	StillFrames     int           `yaml:"still_frames" json:"still_frames"`
	MotionThreshold float64       `yaml:"motion_threshold" json:"motion_threshold"`
}

// HSV is an inclusive OpenCV HSV range.
type HSV struct {
	Lower [3]uint8 `yaml:"lower" json:"lower"`
	Upper [3]uint8 `yaml:"upper" json:"upper"`
}

// ClassifierConfig mirrors route.Config with colour names as strings.
type ClassifierConfig struct {
	CoverArea  float64        `yaml:"cover_area" json:"cover_area"`
	MinBoxArea float64        `yaml:"min_box_area" json:"min_box_area"`
	Priority   []string       `yaml:"priority" json:"priority"`
	Ranges     map[string]HSV `yaml:"ranges" json:"ranges"`
}

// TrackerConfig mirrors tracker.Config plus the limbs to follow.
type TrackerConfig struct {
	GrabThreshold float64  `yaml:"grab_threshold" json:"grab_threshold"`
	SwitchMargin  float64  `yaml:"switch_margin" json:"switch_margin"`
	SharedGrabs   bool     `yaml:"shared_grabs" json:"shared_grabs"`
	Limbs         []string `yaml:"limbs" json:"limbs"`
}

// DetectorConfig mirrors detector.Config.
type DetectorConfig struct {
	MinConfidence         float64 `yaml:"min_confidence" json:"min_confidence"`
	MinTrackingConfidence float64 `yaml:"min_tracking_confidence" json:"min_tracking_confidence"`
	HoldModel             string  `yaml:"hold_model" json:"hold_model"`
	HoldConfidence        float64 `yaml:"hold_confidence" json:"hold_confidence"`
	ScriptDir             string  `yaml:"script_dir,omitempty" json:"script_dir,omitempty"`
	Python                string  `yaml:"python,omitempty" json:"python,omitempty"`
}

// AudioConfig controls proximity tones.
type AudioConfig struct {
	Enabled   bool          `yaml:"enabled" json:"enabled"`
	PluginDir string        `yaml:"plugin_dir" json:"plugin_dir"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
}

// StoreConfig locates the climb log. An empty path disables logging.
type StoreConfig struct {
	Path string `yaml:"path" json:"path"`
}

// ServerConfig controls the viewer.
type ServerConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Addr    string `yaml:"addr" json:"addr"`
}

// MQTTConfig holds MQTT connection settings. An empty broker disables
// publishing.
type MQTTConfig struct {
	Broker   string `yaml:"broker" json:"broker"`
	ClientID string `yaml:"client_id" json:"client_id"`
	Prefix   string `yaml:"prefix" json:"prefix"`
	Username string `yaml:"username,omitempty" json:"username,omitempty"`
	Password string `yaml:"password,omitempty" json:"-"`
}

// LogConfig selects the log encoder.
type LogConfig struct {
	// Mode is "development" or "release".
	Mode string `yaml:"mode" json:"mode"`
}

// TrayConfig toggles the menu bar icon.
type TrayConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// Default returns the built-in configuration.
func Default() *Config {
	rc := route.DefaultConfig()
	priority := make([]string, len(rc.Priority))
	for i, l := range rc.Priority {
		priority[i] = l.String()
	}
	ranges := make(map[string]HSV, len(rc.Ranges))
	for l, r := range rc.Ranges {
		ranges[l.String()] = HSV{Lower: r.Lower, Upper: r.Upper}
	}

	limbs := make([]string, 0, 4)
	for _, l := range detector.AllLimbs() {
		limbs = append(limbs, string(l))
	}

	tc := tracker.DefaultConfig()
	dc := detector.DefaultConfig()

	return &Config{
		Camera: CameraConfig{
			Source: "0",
			FPS:    capture.DefaultFPS,
		},
		Calibration: CalibrationConfig{
			Duration:        5 * time.Second,
			StillFrames:     3,
			MotionThreshold: capture.DefaultMotionThreshold,
		},
		Classifier: ClassifierConfig{
			CoverArea:  rc.CoverArea,
			MinBoxArea: rc.MinBoxArea,
			Priority:   priority,
			Ranges:     ranges,
		},
		Tracker: TrackerConfig{
			GrabThreshold: tc.GrabThreshold,
			SwitchMargin:  tc.SwitchMargin,
			SharedGrabs:   tc.SharedGrabs,
			Limbs:         limbs,
		},
		Detector: DetectorConfig{
			MinConfidence:         dc.MinConfidence,
			MinTrackingConfidence: dc.MinTrackingConf,
			HoldModel:             dc.HoldModel,
			HoldConfidence:        dc.HoldConfidence,
		},
		Audio: AudioConfig{
			Enabled:   true,
			PluginDir: "~/.holdfast/plugins",
			Timeout:   5 * time.Second,
		},
		Store: StoreConfig{
			Path: "~/.holdfast/holdfast.db",
		},
		Server: ServerConfig{
			Enabled: true,
			Addr:    "127.0.0.1:8080",
		},
		MQTT: MQTTConfig{
			ClientID: "holdfast",
			Prefix:   "holdfast",
		},
		Log: LogConfig{
			Mode: "development",
		},
	}
}

// Load reads path and merges it over Default. Keys missing from the file
// keep their defaults; HSV ranges merge per colour.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s: %w", path, os.ErrNotExist)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields Default.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg = Default()
		cfg.ApplyEnv()
		return cfg, cfg.Validate()
	}
	return cfg, err
}

// Save writes c to path as YAML.
func Save(path string, c *Config) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides MQTT settings from MQTT_BROKER, MQTT_CLIENT_ID,
// MQTT_USERNAME, MQTT_PASSWORD and MQTT_PUBLISH_PREFIX.
func (c *Config) ApplyEnv() {
	env := map[string]*string{
		"MQTT_BROKER":         &c.MQTT.Broker,
		"MQTT_CLIENT_ID":      &c.MQTT.ClientID,
		"MQTT_USERNAME":       &c.MQTT.Username,
		"MQTT_PASSWORD":       &c.MQTT.Password,
		"MQTT_PUBLISH_PREFIX": &c.MQTT.Prefix,
	}
	for key, field := range env {
		if v := os.Getenv(key); v != "" {
			*field = v
		}
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Camera.Source) == "" {
		return errors.New("camera.source is required")
	}
	if c.Camera.FPS <= 0 {
		return fmt.Errorf("camera.fps must be positive, got %d", c.Camera.FPS)
	}
	if c.Calibration.Duration < 0 {
		return fmt.Errorf("calibration.duration must not be negative, got %s", c.Calibration.Duration)
	}
	if c.Calibration.StillFrames < 0 {
		return fmt.Errorf("calibration.still_frames must not be negative, got %d", c.Calibration.StillFrames)
	}

	rc, err := c.RouteConfig()
	if err != nil {
		return err
	}
	if err := rc.Validate(); err != nil {
		return fmt.Errorf("classifier: %w", err)
	}

	if err := c.TrackerSettings().Validate(); err != nil {
		return fmt.Errorf("tracker: %w", err)
	}
	if _, err := c.Limbs(); err != nil {
		return err
	}

	if c.Audio.Enabled && c.Audio.Timeout <= 0 {
		return fmt.Errorf("audio.timeout must be positive, got %s", c.Audio.Timeout)
	}
	if c.Server.Enabled && c.Server.Addr == "" {
		return errors.New("server.addr is required when the server is enabled")
	}
	if c.MQTT.Broker != "" && c.MQTT.Prefix == "" {
		return errors.New("mqtt.prefix is required when mqtt.broker is set")
	}
	switch c.Log.Mode {
	case "development", "release":
	default:
		return fmt.Errorf("log.mode must be development or release, got %q", c.Log.Mode)
	}
	return nil
}

// RouteConfig converts the classifier section.
func (c *Config) RouteConfig() (route.Config, error) {
	rc := route.Config{
		CoverArea:  c.Classifier.CoverArea,
		MinBoxArea: c.Classifier.MinBoxArea,
		Ranges:     make(map[route.Label]route.HSVRange, len(c.Classifier.Ranges)),
	}

	for _, name := range c.Classifier.Priority {
		l, err := route.ParseLabel(name)
		if err != nil {
			return route.Config{}, fmt.Errorf("classifier.priority: %w", err)
		}
		rc.Priority = append(rc.Priority, l)
	}
	for name, r := range c.Classifier.Ranges {
		l, err := route.ParseLabel(name)
		if err != nil {
			return route.Config{}, fmt.Errorf("classifier.ranges: %w", err)
		}
		rc.Ranges[l] = route.HSVRange{Lower: r.Lower, Upper: r.Upper}
	}
	return rc, nil
}

// TrackerSettings converts the tracker section.
func (c *Config) TrackerSettings() tracker.Config {
	return tracker.Config{
		GrabThreshold: c.Tracker.GrabThreshold,
		SwitchMargin:  c.Tracker.SwitchMargin,
		SharedGrabs:   c.Tracker.SharedGrabs,
	}
}

// Limbs parses the tracked limbs.
func (c *Config) Limbs() ([]detector.Limb, error) {
	if len(c.Tracker.Limbs) == 0 {
		return nil, errors.New("tracker.limbs must name at least one limb")
	}

	limbs := make([]detector.Limb, 0, len(c.Tracker.Limbs))
	for _, name := range c.Tracker.Limbs {
		l, err := detector.ParseLimb(name)
		if err != nil {
			return nil, fmt.Errorf("tracker.limbs: %w", err)
		}
		for _, seen := range limbs {
			if seen == l {
				return nil, fmt.Errorf("tracker.limbs: %s listed twice", l)
			}
		}
		limbs = append(limbs, l)
	}
	return limbs, nil
}

// DetectorSettings converts the detector section.
func (c *Config) DetectorSettings() detector.Config {
	return detector.Config{
		MinConfidence:   c.Detector.MinConfidence,
		MinTrackingConf: c.Detector.MinTrackingConfidence,
		HoldModel:       ExpandHome(c.Detector.HoldModel),
		HoldConfidence:  c.Detector.HoldConfidence,
		ScriptDir:       ExpandHome(c.Detector.ScriptDir),
		Python:          c.Detector.Python,
	}
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// DefaultPath is where the config file lives unless -config says otherwise.
func DefaultPath() string {
	return ExpandHome("~/.holdfast/config.yaml")
}

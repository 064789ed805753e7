package config

import (
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang/geo/r3"
	"gopkg.in/yaml.v3"
)

// Capture backends.
const (
	BackendCamera = "camera"
	BackendScreen = "screen"
)

// resolutionChoices is indexed by Config.Resolution. The zero size means the
// device default is kept.
var resolutionChoices = []image.Point{
	{640, 480},
	{320, 240},
	{0, 0},
}

// frameRateChoices is indexed by Config.FrameRate. Zero leaves the rate
// unconstrained.
var frameRateChoices = []int{0, 30, 60, 75, 125, 200}

// Config holds runtime configuration for capture, detection, pose solving and
// calibration. Fields may be loaded from a JSON or YAML file.
type Config struct {
	Debug bool `json:"debug" yaml:"debug"`

	// Capture
	CameraName string `json:"camera_name" yaml:"camera_name"`
	Backend    string `json:"backend" yaml:"backend"`
	Resolution int    `json:"resolution" yaml:"resolution"`
	FrameRate  int    `json:"frame_rate" yaml:"frame_rate"`
	ShowWindow bool   `json:"show_window" yaml:"show_window"`

	// Screen backend region (used when Backend == "screen"); zero size grabs
	// the whole screen.
	ScreenX int `json:"screen_x" yaml:"screen_x"`
	ScreenY int `json:"screen_y" yaml:"screen_y"`
	ScreenW int `json:"screen_w" yaml:"screen_w"`
	ScreenH int `json:"screen_h" yaml:"screen_h"`

	// Optics / model
	FOV              int     `json:"fov" yaml:"fov"` // diagonal, degrees
	HeadOffsetX      float64 `json:"head_offset_x" yaml:"head_offset_x"`
	HeadOffsetY      float64 `json:"head_offset_y" yaml:"head_offset_y"`
	HeadOffsetZ      float64 `json:"head_offset_z" yaml:"head_offset_z"`
	MarkerHalfSize   float64 `json:"marker_half_size" yaml:"marker_half_size"`
	TranslationScale float64 `json:"translation_scale" yaml:"translation_scale"`

	// Detection
	MarkerSizeMin float64 `json:"marker_size_min" yaml:"marker_size_min"`
	MarkerSizeMax float64 `json:"marker_size_max" yaml:"marker_size_max"`
	Threshold     int     `json:"threshold" yaml:"threshold"`
	SearchWindow  float64 `json:"search_window" yaml:"search_window"`

	// Timing
	CalibrationIntervalMs int `json:"calibration_interval_ms" yaml:"calibration_interval_ms"`
	SettleDelayMs         int `json:"settle_delay_ms" yaml:"settle_delay_ms"`
}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	return &Config{
		Debug:                 false,
		CameraName:            "0",
		Backend:               BackendCamera,
		Resolution:            0,
		FrameRate:             0,
		FOV:                   56,
		MarkerHalfSize:        40,
		TranslationScale:      0.1,
		MarkerSizeMin:         0.05,
		MarkerSizeMax:         0.3,
		Threshold:             100,
		SearchWindow:          1.3,
		CalibrationIntervalMs: 250,
		SettleDelayMs:         1000,
	}
}

// Validate clamps/normalizes values to safe ranges. It only fails for values
// that cannot be repaired, such as an unknown backend.
func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Backend)) {
	case "", BackendCamera:
		c.Backend = BackendCamera
	case BackendScreen:
		c.Backend = BackendScreen
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.Resolution < 0 || c.Resolution >= len(resolutionChoices) {
		c.Resolution = 0
	}
	if c.FrameRate < 0 || c.FrameRate >= len(frameRateChoices) {
		c.FrameRate = 0
	}
	if c.FOV < 10 || c.FOV > 160 {
		c.FOV = 56
	}
	if c.MarkerHalfSize <= 0 {
		c.MarkerHalfSize = 40
	}
	if c.TranslationScale <= 0 {
		c.TranslationScale = 0.1
	}
	if c.MarkerSizeMin <= 0 || c.MarkerSizeMin > 1 {
		c.MarkerSizeMin = 0.05
	}
	if c.MarkerSizeMax <= 0 || c.MarkerSizeMax > 1 || c.MarkerSizeMax < c.MarkerSizeMin {
		c.MarkerSizeMax = 0.3
		if c.MarkerSizeMax < c.MarkerSizeMin {
			c.MarkerSizeMax = 1
		}
	}
	if c.Threshold <= 0 || c.Threshold >= 255 {
		c.Threshold = 100
	}
	if c.SearchWindow < 1 {
		c.SearchWindow = 1.3
	}
	if c.CalibrationIntervalMs <= 0 {
		c.CalibrationIntervalMs = 250
	}
	if c.SettleDelayMs < 0 {
		c.SettleDelayMs = 1000
	}
	if c.ScreenW < 0 || c.ScreenH < 0 {
		c.ScreenW, c.ScreenH = 0, 0
	}
	return nil
}

// ResolutionSize returns the requested capture size; a zero size keeps the
// device default.
func (c *Config) ResolutionSize() image.Point {
	if c.Resolution < 0 || c.Resolution >= len(resolutionChoices) {
		return resolutionChoices[0]
	}
	return resolutionChoices[c.Resolution]
}

// FrameRateHint returns the requested frame rate, 0 when unconstrained.
func (c *Config) FrameRateHint() int {
	if c.FrameRate < 0 || c.FrameRate >= len(frameRateChoices) {
		return 0
	}
	return frameRateChoices[c.FrameRate]
}

// HeadOffset returns the head-centre offset as a vector.
func (c *Config) HeadOffset() r3.Vector {
	return r3.Vector{X: c.HeadOffsetX, Y: c.HeadOffsetY, Z: c.HeadOffsetZ}
}

// SetHeadOffset stores v into the head-centre offset fields.
func (c *Config) SetHeadOffset(v r3.Vector) {
	c.HeadOffsetX, c.HeadOffsetY, c.HeadOffsetZ = v.X, v.Y, v.Z
}

// ScreenRect returns the screen capture region, empty for the full screen.
func (c *Config) ScreenRect() image.Rectangle {
	if c.ScreenW <= 0 || c.ScreenH <= 0 {
		return image.Rectangle{}
	}
	return image.Rect(c.ScreenX, c.ScreenY, c.ScreenX+c.ScreenW, c.ScreenY+c.ScreenH)
}

func (c *Config) CalibrationInterval() time.Duration {
	return time.Duration(c.CalibrationIntervalMs) * time.Millisecond
}

func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.SettleDelayMs) * time.Millisecond
}

// ResolutionLabels lists the resolution choices in index order.
func ResolutionLabels() []string {
	out := make([]string, 0, len(resolutionChoices))
	for _, r := range resolutionChoices {
		if r.X == 0 {
			out = append(out, "default")
			continue
		}
		out = append(out, fmt.Sprintf("%dx%d", r.X, r.Y))
	}
	return out
}

// FrameRateLabels lists the frame-rate choices in index order.
func FrameRateLabels() []string {
	out := make([]string, 0, len(frameRateChoices))
	for _, f := range frameRateChoices {
		if f == 0 {
			out = append(out, "default")
			continue
		}
		out = append(out, fmt.Sprintf("%d", f))
	}
	return out
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Load attempts to read configuration from the given JSON or YAML file path.
// If the file does not exist it returns DefaultConfig(). On decode error it
// returns defaults with the error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	loaded := DefaultConfig()
	if isYAML(path) {
		err = yaml.Unmarshal(data, loaded)
	} else {
		err = json.Unmarshal(data, loaded)
	}
	if err != nil {
		return cfg, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := loaded.Validate(); err != nil {
		return cfg, err
	}
	return loaded, nil
}

// Save writes the configuration to the given path, as YAML for .yaml/.yml
// paths and indented JSON otherwise.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

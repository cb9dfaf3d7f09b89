// Package config handles viewer configuration loading and management.
package config

import (
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/Faultbox/roomstudio/internal/logger"
)

// Config holds all viewer settings.
type Config struct {
	Window     WindowConfig     `yaml:"window"`
	Viewer     ViewerConfig     `yaml:"viewer"`
	Audio      AudioConfig      `yaml:"audio"`
	Simulation SimulationConfig `yaml:"simulation"`
	Data       DataConfig       `yaml:"data"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// WindowConfig holds display settings.
type WindowConfig struct {
	Width      int  `yaml:"width"`
	Height     int  `yaml:"height"`
	Fullscreen bool `yaml:"fullscreen"`
	VSync      bool `yaml:"vsync"`
	FPSLimit   int  `yaml:"fps_limit"`
}

// ViewerConfig holds segmentation, picking and camera settings.
type ViewerConfig struct {
	FeatureAngleDeg    float32    `yaml:"feature_angle_deg"`
	PickRadiusFraction float32    `yaml:"pick_radius_fraction"` // of the model diagonal
	MoveFraction       float32    `yaml:"move_fraction"`        // of the model diagonal
	FOVDeg             float32    `yaml:"fov_deg"`
	MinDistance        float32    `yaml:"min_distance"` // of the model diagonal
	DragSensitivity    float32    `yaml:"drag_sensitivity"`
	ZoomStep           float32    `yaml:"zoom_step"`
	TransparentAlpha   float32    `yaml:"transparent_alpha"`
	Ambient            float32    `yaml:"ambient"` // headlight ambient term
	Diffuse            float32    `yaml:"diffuse"` // headlight diffuse term
	DefaultColor       [3]float32 `yaml:"default_color,flow"`
	MaxTextureSize     int        `yaml:"max_texture_size"`
	ScreenshotFormat   string     `yaml:"screenshot_format"` // webp or png
	ScreenshotDir      string     `yaml:"screenshot_dir"`
}

// AudioConfig holds playback settings for simulation output.
type AudioConfig struct {
	Volume float32 `yaml:"volume"`
	Muted  bool    `yaml:"muted"`
}

// SimulationConfig holds the parameters handed to the acoustic engine.
type SimulationConfig struct {
	ScaleFactor      float32       `yaml:"scale_factor"`
	MaxOrder         int           `yaml:"max_order"`
	Rays             int           `yaml:"rays"`
	EnergyAbsorption float32       `yaml:"energy_absorption"`
	Scattering       float32       `yaml:"scattering"`
	SampleRate       int           `yaml:"sample_rate"`
	OutputDir        string        `yaml:"output_dir"`
	Timeout          time.Duration `yaml:"timeout"`
	Command          []string      `yaml:"command,flow"` // external simulator; the manifest path and output dir are appended
}

// DataConfig holds input file paths.
type DataConfig struct {
	Model string `yaml:"model"` // STL file opened at startup
	Sound string `yaml:"sound"` // audio asset for sources without their own
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Width:      1280,
			Height:     720,
			Fullscreen: false,
			VSync:      true,
			FPSLimit:   0,
		},
		Viewer: ViewerConfig{
			FeatureAngleDeg:    30,
			PickRadiusFraction: 0.02,
			MoveFraction:       0.05,
			FOVDeg:             45,
			MinDistance:        0.01,
			DragSensitivity:    0.3,
			ZoomStep:           0.1,
			TransparentAlpha:   0.35,
			Ambient:            0.35,
			Diffuse:            0.65,
			DefaultColor:       [3]float32{0.68, 0.85, 0.9},
			MaxTextureSize:     2048,
			ScreenshotFormat:   "webp",
			ScreenshotDir:      "screenshots",
		},
		Audio: AudioConfig{
			Volume: 0.8,
			Muted:  false,
		},
		Simulation: SimulationConfig{
			ScaleFactor:      700,
			MaxOrder:         3,
			Rays:             10000,
			EnergyAbsorption: 0.2,
			Scattering:       0.1,
			SampleRate:       44100,
			OutputDir:        "sounds/simulations",
			Timeout:          10 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate reports every out-of-range setting at once.
func (c *Config) Validate() error {
	var errs error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Window.Width > 0 && c.Window.Height > 0, "window: size %dx%d must be positive", c.Window.Width, c.Window.Height)

	v := c.Viewer
	check(v.FeatureAngleDeg >= 0 && v.FeatureAngleDeg <= 180, "viewer: feature_angle_deg %v outside [0, 180]", v.FeatureAngleDeg)
	check(v.PickRadiusFraction > 0, "viewer: pick_radius_fraction %v must be positive", v.PickRadiusFraction)
	check(v.MoveFraction > 0, "viewer: move_fraction %v must be positive", v.MoveFraction)
	check(v.FOVDeg > 0 && v.FOVDeg < 180, "viewer: fov_deg %v outside (0, 180)", v.FOVDeg)
	check(v.MinDistance > 0, "viewer: min_distance %v must be positive", v.MinDistance)
	check(v.TransparentAlpha >= 0 && v.TransparentAlpha <= 1, "viewer: transparent_alpha %v outside [0, 1]", v.TransparentAlpha)
	check(v.Ambient >= 0 && v.Ambient <= 1, "viewer: ambient %v outside [0, 1]", v.Ambient)
	check(v.Diffuse >= 0 && v.Diffuse <= 1, "viewer: diffuse %v outside [0, 1]", v.Diffuse)
	check(v.ScreenshotFormat == "webp" || v.ScreenshotFormat == "png", "viewer: screenshot_format %q must be webp or png", v.ScreenshotFormat)

	check(c.Audio.Volume >= 0 && c.Audio.Volume <= 1, "audio: volume %v outside [0, 1]", c.Audio.Volume)

	s := c.Simulation
	check(s.ScaleFactor > 0, "simulation: scale_factor %v must be positive", s.ScaleFactor)
	check(s.MaxOrder >= 0, "simulation: max_order %d must not be negative", s.MaxOrder)
	check(s.Rays > 0, "simulation: rays %d must be positive", s.Rays)
	check(s.EnergyAbsorption >= 0 && s.EnergyAbsorption <= 1, "simulation: energy_absorption %v outside [0, 1]", s.EnergyAbsorption)
	check(s.Scattering >= 0 && s.Scattering <= 1, "simulation: scattering %v outside [0, 1]", s.Scattering)
	check(s.SampleRate > 0, "simulation: sample_rate %d must be positive", s.SampleRate)

	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("logging: %w", err))
	}
	return errs
}

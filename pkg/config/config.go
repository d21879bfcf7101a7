// Package config handles loading and saving graphlens configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/graphlens/config.yaml
//   - Data:    ~/.local/share/graphlens/ (preferences database)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/graphlens/pkg/geometry"
	"github.com/vanderheijden86/graphlens/pkg/gesture"
	"github.com/vanderheijden86/graphlens/pkg/layout"
	"github.com/vanderheijden86/graphlens/pkg/view"
)

// FeaturesConfig toggles optional engine behavior.
type FeaturesConfig struct {
	Freehand       bool `yaml:"freehand"`
	Neighborhood   bool `yaml:"neighborhood"`
	MoveSelected   bool `yaml:"move_selected"`
	BoxPersistence bool `yaml:"box_persistence"`
	NodeInfo       bool `yaml:"node_info"`
}

// EngineConfig tunes camera, layout and gestures.
type EngineConfig struct {
	ZoomMin             float64            `yaml:"zoom_min"`
	ZoomMax             float64            `yaml:"zoom_max"`
	ZoomingRatio        float64            `yaml:"zooming_ratio"`         // Ratio applied per zoom step (> 1)
	MouseZoomDuration   time.Duration      `yaml:"mouse_zoom_duration"`   // Camera animation per zoom step
	LayoutAnimation     time.Duration      `yaml:"layout_animation"`      // Static layout and size transitions
	TickInterval        time.Duration      `yaml:"tick_interval"`         // Force simulation tick
	IterationsPerTick   int                `yaml:"iterations_per_tick"`   // Force steps per tick
	Force               layout.ForceParams `yaml:"force"`                 // Eades simulation parameters
	FreehandMinDistance float64            `yaml:"freehand_min_distance"` // Pixels before a drag draws a lasso
	GridCell            float64            `yaml:"grid_cell"`             // Static layout cell size
	AutoStop            *time.Duration     `yaml:"auto_stop,omitempty"`   // Overrides the size-based timeout
	Features            FeaturesConfig     `yaml:"features"`
}

// HostConfig tells the engine where preferences are persisted.
type HostConfig struct {
	BaseURL string            `yaml:"base_url,omitempty"` // HTTP host; empty uses the local database
	Timeout time.Duration     `yaml:"timeout"`
	DBPath  string            `yaml:"db_path,omitempty"` // Local preferences database
	Headers map[string]string `yaml:"headers,omitempty"` // Extra headers on every host request
}

// UIConfig holds terminal viewer preferences.
type UIConfig struct {
	SizeMode   string `yaml:"size_mode"`   // same, total-degree, in-degree, out-degree
	DrawHidden bool   `yaml:"draw_hidden"` // Lay out hidden nodes too
	ShowHelp   bool   `yaml:"show_help"`
	FrameRate  int    `yaml:"frame_rate"` // Redraws per second
}

// Config is the top-level configuration for graphlens.
type Config struct {
	Engine EngineConfig `yaml:"engine"`
	Host   HostConfig   `yaml:"host"`
	UI     UIConfig     `yaml:"ui"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	zoom := geometry.DefaultZoomLimits()
	lay := layout.DefaultConfig()
	return Config{
		Engine: EngineConfig{
			ZoomMin:             zoom.Min,
			ZoomMax:             zoom.Max,
			ZoomingRatio:        zoom.Step,
			MouseZoomDuration:   200 * time.Millisecond,
			LayoutAnimation:     lay.Animation,
			TickInterval:        lay.TickInterval,
			IterationsPerTick:   lay.IterationsPerTick,
			Force:               lay.Force,
			FreehandMinDistance: gesture.DefaultFreehandMinDistance,
			GridCell:            lay.Cell,
			Features: FeaturesConfig{
				Freehand:       true,
				Neighborhood:   true,
				MoveSelected:   true,
				BoxPersistence: true,
				NodeInfo:       true,
			},
		},
		Host: HostConfig{
			Timeout: 10 * time.Second,
		},
		UI: UIConfig{
			SizeMode:  view.SizeSame.String(),
			ShowHelp:  true,
			FrameRate: 30,
		},
	}
}

// ConfigDir returns the XDG config directory for graphlens.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "graphlens")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "graphlens")
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist. Keys missing from the
// file keep their defaults; out-of-range values are normalized.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	cfg.Host.DBPath = expandHome(cfg.Host.DBPath)
	cfg.Normalize()
	return cfg, nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// Normalize replaces invalid values with their defaults and orders the zoom
// limits.
func (c *Config) Normalize() {
	def := DefaultConfig()
	e := &c.Engine
	if e.ZoomMin <= 0 {
		e.ZoomMin = def.Engine.ZoomMin
	}
	if e.ZoomMax <= 0 {
		e.ZoomMax = def.Engine.ZoomMax
	}
	if e.ZoomMin > e.ZoomMax {
		e.ZoomMin, e.ZoomMax = e.ZoomMax, e.ZoomMin
	}
	if e.ZoomingRatio <= 1 {
		e.ZoomingRatio = def.Engine.ZoomingRatio
	}
	if e.MouseZoomDuration < 0 {
		e.MouseZoomDuration = def.Engine.MouseZoomDuration
	}
	if e.LayoutAnimation < 0 {
		e.LayoutAnimation = def.Engine.LayoutAnimation
	}
	if e.TickInterval <= 0 {
		e.TickInterval = def.Engine.TickInterval
	}
	if e.IterationsPerTick < 1 {
		e.IterationsPerTick = def.Engine.IterationsPerTick
	}
	if e.Force.Repulsion <= 0 {
		e.Force.Repulsion = def.Engine.Force.Repulsion
	}
	if e.Force.Rate <= 0 || e.Force.Rate > 1 {
		e.Force.Rate = def.Engine.Force.Rate
	}
	if e.Force.Theta < 0 {
		e.Force.Theta = def.Engine.Force.Theta
	}
	if e.Force.Scale <= 0 {
		e.Force.Scale = def.Engine.Force.Scale
	}
	if e.FreehandMinDistance < 0 {
		e.FreehandMinDistance = def.Engine.FreehandMinDistance
	}
	if e.GridCell <= 0 {
		e.GridCell = def.Engine.GridCell
	}
	if e.AutoStop != nil && *e.AutoStop <= 0 {
		e.AutoStop = nil
	}
	if c.Host.Timeout <= 0 {
		c.Host.Timeout = def.Host.Timeout
	}
	c.Host.BaseURL = strings.TrimRight(strings.TrimSpace(c.Host.BaseURL), "/")
	if _, err := view.ParseSizeMode(c.UI.SizeMode); err != nil {
		c.UI.SizeMode = def.UI.SizeMode
	}
	if c.UI.FrameRate <= 0 || c.UI.FrameRate > 120 {
		c.UI.FrameRate = def.UI.FrameRate
	}
}

// View converts the configuration into a view controller configuration.
func (c Config) View() view.Config {
	e := c.Engine
	vc := view.DefaultConfig()
	vc.Zoom = geometry.ZoomLimits{Min: e.ZoomMin, Max: e.ZoomMax, Step: e.ZoomingRatio}
	vc.ZoomDuration = e.MouseZoomDuration
	vc.Layout.Animation = e.LayoutAnimation
	vc.Layout.TickInterval = e.TickInterval
	vc.Layout.IterationsPerTick = e.IterationsPerTick
	vc.Layout.Force = e.Force
	vc.Layout.Cell = e.GridCell
	vc.Layout.DrawHidden = c.UI.DrawHidden
	vc.FreehandMinDistance = e.FreehandMinDistance
	vc.Features = view.Features{
		Features: gesture.Features{
			Freehand:     e.Features.Freehand,
			Neighborhood: e.Features.Neighborhood,
			MoveSelected: e.Features.MoveSelected,
			NodeInfo:     e.Features.NodeInfo,
		},
		BoxPersistence: e.Features.BoxPersistence,
	}
	if e.AutoStop != nil {
		vc.AutoStop = *e.AutoStop
	}
	vc.HostTimeout = c.Host.Timeout
	if m, err := view.ParseSizeMode(c.UI.SizeMode); err == nil {
		vc.SizeMode = m
	}
	return vc
}

// PrefsPath returns the local preferences database path.
func (c Config) PrefsPath(fallback string) string {
	if c.Host.DBPath != "" {
		return c.Host.DBPath
	}
	return fallback
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

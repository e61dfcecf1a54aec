package config

import (
	"math"
	"sort"
)

// Presets are named scenes. GetPreset hands out copies, so callers may
// override fields freely.
var Presets = map[string]*Config{
	"default": DefaultConfig(),
	"rain": withConfig(func(c *Config) {
		c.Fill = FillConfig{}
		c.Run.Duration = 30
		c.Emitter = EmitterConfig{
			Enabled:  true,
			Position: [2]float32{0, 0.8},
			Every:    1,
			Jitter:   0.3,
			Max:      4000,
		}
	}),
	"block": withConfig(func(c *Config) {
		c.Fill = FillConfig{Cols: 30, Rows: 30, Origin: [2]float32{-0.58, 0.58}}
	}),
	"pile": withConfig(func(c *Config) {
		c.Fill = FillConfig{Cols: 20, Rows: 20, Origin: [2]float32{-0.38, 0.2}, Angle: math.Pi / 12}
		c.Run.Substeps = 4
		c.World.Iterations = 4
	}),
	"shapes": withConfig(func(c *Config) {
		c.Fill = FillConfig{}
		c.Shapes = []ShapeConfig{
			{Kind: "rectangle", Width: 0.05, Height: 0.03, Color: [4]float32{0.2, 0.6, 1, 1}},
			{Kind: "circle", Radius: 0.03, Vertices: 12, Color: [4]float32{1, 0.8, 0.1, 1}},
		}
		c.Emitter = EmitterConfig{
			Enabled:  true,
			Position: [2]float32{0, 0.7},
			Every:    4,
			Jitter:   0.2,
			Max:      600,
			Shape:    1,
		}
	}),
	"stress": withConfig(func(c *Config) {
		c.Fill = FillConfig{Cols: 100, Rows: 100, Origin: [2]float32{-0.6, 0.6}}
		c.World.BodyRadius = 0.006
		c.Run.Duration = 5
	}),
}

func withConfig(fn func(*Config)) *Config {
	c := DefaultConfig()
	fn(c)
	return c
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

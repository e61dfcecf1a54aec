package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/jinzhu/copier"
	"github.com/san-kum/verlet/internal/geom"
	"github.com/san-kum/verlet/internal/physics"
	"github.com/san-kum/verlet/internal/render"
	"github.com/san-kum/verlet/internal/sim"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDt             = 1.0 / 60
	DefaultDuration       = 10.0
	DefaultMaxDt          = sim.DefaultMaxDt
	DefaultBoundaryRadius = 0.9
	DefaultGravity        = -0.5
	DefaultBodyRadius     = 0.02
	DefaultCapacity       = 32_000
	DefaultIterations     = 2
	DefaultViewportSize   = 1000
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("config: invalid configuration")

type Config struct {
	World    WorldConfig    `yaml:"world"`
	Run      RunConfig      `yaml:"run"`
	Fill     FillConfig     `yaml:"fill"`
	Emitter  EmitterConfig  `yaml:"emitter"`
	Shapes   []ShapeConfig  `yaml:"shapes,omitempty"`
	Viewport ViewportConfig `yaml:"viewport"`
}

type WorldConfig struct {
	Center         [2]float32 `yaml:"center"`
	Radius         float32    `yaml:"radius"`
	Gravity        [2]float32 `yaml:"gravity"`
	BodyRadius     float32    `yaml:"body_radius"`
	Color          [4]float32 `yaml:"color"`
	CircleVertices int        `yaml:"circle_vertices"`
	Capacity       int        `yaml:"capacity"`
	Iterations     int        `yaml:"iterations"`
}

type RunConfig struct {
	Dt       float64 `yaml:"dt"`
	Duration float64 `yaml:"duration"`
	MaxDt    float64 `yaml:"max_dt"`
	Substeps int     `yaml:"substeps"`
	Seed     int64   `yaml:"seed"`
}

// FillConfig describes the lattice spawned before the first frame.
type FillConfig struct {
	Cols   int        `yaml:"cols"`
	Rows   int        `yaml:"rows"`
	Origin [2]float32 `yaml:"origin"`
	Angle  float32    `yaml:"angle"`
}

// EmitterConfig spawns bodies during the run. Shape 0 is the default circle;
// shape k is the k-th entry of Shapes.
type EmitterConfig struct {
	Enabled  bool       `yaml:"enabled"`
	Position [2]float32 `yaml:"position"`
	Every    int        `yaml:"every"`
	Jitter   float32    `yaml:"jitter"`
	Max      int        `yaml:"max"`
	Shape    int        `yaml:"shape"`
}

// ShapeConfig is an extra body template. Kind is one of circle, rectangle
// or polygon.
type ShapeConfig struct {
	Kind     string       `yaml:"kind"`
	Radius   float32      `yaml:"radius,omitempty"`
	Vertices int          `yaml:"vertices,omitempty"`
	Width    float32      `yaml:"width,omitempty"`
	Height   float32      `yaml:"height,omitempty"`
	Points   [][2]float32 `yaml:"points,omitempty"`
	Color    [4]float32   `yaml:"color"`
}

type ViewportConfig struct {
	Width  float32 `yaml:"width"`
	Height float32 `yaml:"height"`
}

func DefaultConfig() *Config {
	return &Config{
		World: WorldConfig{
			Radius:         DefaultBoundaryRadius,
			Gravity:        [2]float32{0, DefaultGravity},
			BodyRadius:     DefaultBodyRadius,
			Color:          [4]float32{1, 0, 0, 1},
			CircleVertices: geom.DefaultCircleVertices,
			Capacity:       DefaultCapacity,
			Iterations:     DefaultIterations,
		},
		Run: RunConfig{
			Dt:       DefaultDt,
			Duration: DefaultDuration,
			MaxDt:    DefaultMaxDt,
			Substeps: 1,
		},
		Fill: FillConfig{
			Cols:   50,
			Rows:   50,
			Origin: [2]float32{0.3, 0.5},
			Angle:  2 * math.Pi / 45,
		},
		Emitter: EmitterConfig{
			Position: [2]float32{0, 0.7},
			Every:    2,
			Jitter:   0.05,
		},
		Viewport: ViewportConfig{
			Width:  DefaultViewportSize,
			Height: DefaultViewportSize,
		},
	}
}

func Load(path string) (*Config, error) {
	return LoadOver(DefaultConfig(), path)
}

// LoadOver reads path on top of a copy of base, so fields missing from the
// file keep the base values.
func LoadOver(base *Config, path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := base.Clone()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	w := c.World
	switch {
	case !positive32(w.Radius):
		return invalid("world.radius must be positive, got %v", w.Radius)
	case !positive32(w.BodyRadius):
		return invalid("world.body_radius must be positive, got %v", w.BodyRadius)
	case w.CircleVertices != 0 && w.CircleVertices < 3:
		return invalid("world.circle_vertices must be at least 3, got %d", w.CircleVertices)
	case w.Capacity < 0:
		return invalid("world.capacity must not be negative, got %d", w.Capacity)
	case w.Iterations < 0:
		return invalid("world.iterations must not be negative, got %d", w.Iterations)
	case !finite(w.Center[0], w.Center[1]) || !finite(w.Gravity[0], w.Gravity[1]):
		return invalid("world.center and world.gravity must be finite")
	}

	if err := c.SimConfig().Validate(); err != nil {
		return fmt.Errorf("%w: run: %v", ErrInvalidConfig, err)
	}

	if c.Fill.Cols < 0 || c.Fill.Rows < 0 {
		return invalid("fill must not be negative, got %dx%d", c.Fill.Cols, c.Fill.Rows)
	}
	if !finite(c.Fill.Origin[0], c.Fill.Origin[1], c.Fill.Angle) {
		return invalid("fill.origin and fill.angle must be finite, got %v %v", c.Fill.Origin, c.Fill.Angle)
	}

	e := c.Emitter
	if e.Enabled {
		switch {
		case e.Every < 1:
			return invalid("emitter.every must be at least 1, got %d", e.Every)
		case !finite(e.Position[0], e.Position[1]):
			return invalid("emitter.position must be finite, got %v", e.Position)
		case e.Jitter < 0 || !finite(e.Jitter):
			return invalid("emitter.jitter must not be negative, got %v", e.Jitter)
		case e.Max < 0:
			return invalid("emitter.max must not be negative, got %d", e.Max)
		case e.Shape < 0 || e.Shape > len(c.Shapes):
			return invalid("emitter.shape %d does not exist", e.Shape)
		}
	}

	for i, s := range c.Shapes {
		if _, err := s.Template(); err != nil {
			return fmt.Errorf("%w: shapes[%d]: %v", ErrInvalidConfig, i, err)
		}
	}

	if !positive32(c.Viewport.Width) || !positive32(c.Viewport.Height) {
		return invalid("viewport must be positive, got %vx%v", c.Viewport.Width, c.Viewport.Height)
	}
	return nil
}

// Params converts the world section into physics parameters.
func (c *Config) Params() physics.Params {
	w := c.World
	return physics.Params{
		BoundaryCenter: mgl32.Vec2(w.Center),
		BoundaryRadius: w.Radius,
		Gravity:        mgl32.Vec2(w.Gravity),
		BodyRadius:     w.BodyRadius,
		BodyColor:      geom.Color(w.Color),
		CircleVertices: w.CircleVertices,
		Capacity:       w.Capacity,
		Iterations:     w.Iterations,
	}
}

func (c *Config) SimConfig() sim.Config {
	return sim.Config{
		Dt:       c.Run.Dt,
		Duration: c.Run.Duration,
		MaxDt:    c.Run.MaxDt,
		Substeps: c.Run.Substeps,
		Seed:     c.Run.Seed,
	}
}

// EmitterSpec returns the runner emitter, or nil when disabled.
func (c *Config) EmitterSpec() *sim.Emitter {
	if !c.Emitter.Enabled {
		return nil
	}
	e := c.Emitter
	return &sim.Emitter{
		Position: mgl32.Vec2(e.Position),
		Every:    e.Every,
		Jitter:   e.Jitter,
		Max:      e.Max,
		Shape:    physics.ShapeID(e.Shape),
	}
}

func (c *Config) ViewportSpec() render.Viewport {
	return render.Viewport{Width: c.Viewport.Width, Height: c.Viewport.Height}
}

// BuildWorld creates the world, registers the extra shapes in order and
// spawns the fill lattice.
func (c *Config) BuildWorld() (*physics.World, error) {
	w, err := physics.New(c.Params())
	if err != nil {
		return nil, err
	}
	for i, s := range c.Shapes {
		t, err := s.Template()
		if err != nil {
			return nil, fmt.Errorf("shapes[%d]: %w", i, err)
		}
		if _, err := w.AddShape(t); err != nil {
			return nil, fmt.Errorf("shapes[%d]: %w", i, err)
		}
	}
	w.Fill(c.Fill.Cols, c.Fill.Rows, mgl32.Vec2(c.Fill.Origin), c.Fill.Angle)
	return w, nil
}

// Template builds the geometry described by s.
func (s ShapeConfig) Template() (*geom.Template, error) {
	color := geom.Color(s.Color)
	switch s.Kind {
	case "circle":
		n := s.Vertices
		if n == 0 {
			n = geom.DefaultCircleVertices
		}
		return geom.CircleN(n, s.Radius, color)
	case "rectangle":
		return geom.Rectangle(s.Width, s.Height, color)
	case "polygon":
		points := make([]mgl32.Vec2, len(s.Points))
		for i, p := range s.Points {
			points[i] = mgl32.Vec2(p)
		}
		return geom.Polygon(points, color)
	default:
		return nil, fmt.Errorf("%w: unknown shape kind %q", geom.ErrInvalidGeometry, s.Kind)
	}
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	cp := &Config{}
	if err := copier.CopyWithOption(cp, c, copier.Option{DeepCopy: true}); err != nil {
		panic(fmt.Sprintf("config: clone: %v", err))
	}
	return cp
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...)
}

func positive32(v float32) bool {
	return v > 0 && !math.IsInf(float64(v), 0)
}

func finite(vs ...float32) bool {
	for _, v := range vs {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return false
		}
	}
	return true
}

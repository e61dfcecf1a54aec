// Package sim drives a physics world frame by frame: it clamps frame times,
// splits frames into substeps, feeds an optional emitter and records
// metrics.
package sim

import (
	"errors"
	"fmt"
	"math"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/san-kum/verlet/internal/physics"
)

// DefaultMaxDt caps a single frame so a stalled renderer cannot make bodies
// tunnel through each other.
const DefaultMaxDt = 1.0 / 30

// ErrInvalidRun indicates a run configuration that cannot be executed.
var ErrInvalidRun = errors.New("sim: invalid run configuration")

// Config controls a run. Duration counts frames of Dt; frames longer than
// MaxDt are clamped.
type Config struct {
	Dt       float64
	Duration float64
	MaxDt    float64
	Substeps int
	Seed     int64
}

// Validate reports the first problem with c. A zero MaxDt or Substeps means
// the default.
func (c Config) Validate() error {
	if !(c.Dt > 0) || math.IsInf(c.Dt, 0) {
		return fmt.Errorf("%w: dt must be positive, got %f", ErrInvalidRun, c.Dt)
	}
	if c.Duration < 0 || math.IsNaN(c.Duration) || math.IsInf(c.Duration, 0) {
		return fmt.Errorf("%w: duration must not be negative, got %f", ErrInvalidRun, c.Duration)
	}
	if c.MaxDt < 0 || math.IsNaN(c.MaxDt) {
		return fmt.Errorf("%w: max dt must not be negative, got %f", ErrInvalidRun, c.MaxDt)
	}
	if c.Substeps < 0 {
		return fmt.Errorf("%w: substeps must not be negative, got %d", ErrInvalidRun, c.Substeps)
	}
	return nil
}

func (c Config) maxDt() float64 {
	if c.MaxDt == 0 {
		return DefaultMaxDt
	}
	return c.MaxDt
}

func (c Config) substeps() int {
	if c.Substeps == 0 {
		return 1
	}
	return c.Substeps
}

// StepDt is the world step of an unclamped frame of Dt. Metrics that turn
// displacements into velocities need it.
func (c Config) StepDt() float64 {
	return math.Min(c.Dt, c.maxDt()) / float64(c.substeps())
}

// Frames is the number of frames a headless run executes.
func (c Config) Frames() int {
	return int(math.Round(c.Duration / c.Dt))
}

// Emitter spawns bodies at a fixed point every few frames, the way a held
// mouse button feeds the world.
type Emitter struct {
	Position mgl32.Vec2
	Every    int
	Jitter   float32
	Max      int
	Shape    physics.ShapeID
}

func (e Emitter) validate() error {
	if e.Every < 1 {
		return fmt.Errorf("%w: emitter interval must be at least 1, got %d", ErrInvalidRun, e.Every)
	}
	if e.Jitter < 0 || math32.IsNaN(e.Jitter) || math32.IsInf(e.Jitter, 0) {
		return fmt.Errorf("%w: emitter jitter %v", ErrInvalidRun, e.Jitter)
	}
	if e.Max < 0 {
		return fmt.Errorf("%w: emitter max must not be negative, got %d", ErrInvalidRun, e.Max)
	}
	return nil
}

// Observer is notified after every frame.
type Observer interface {
	OnFrame(w *physics.World, frame int, t float64)
}

// Result collects per-frame series of a headless run.
type Result struct {
	Frames  int
	Times   []float64
	Bodies  []int
	Series  map[string][]float64
	Metrics map[string]float64
	Clamped int
}

// StepError carries the frame at which the world rejected a step.
type StepError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d at t=%.4f: %v", e.Step, e.Time, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}

package sim

import (
	"context"
	"fmt"
	"io"
	"math/rand"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/san-kum/verlet/internal/metrics"
	"github.com/san-kum/verlet/internal/physics"
)

// Runner owns a world and advances it one frame at a time.
type Runner struct {
	world     *physics.World
	cfg       Config
	metrics   []metrics.Metric
	observers []Observer
	emitter   *Emitter
	rng       *rand.Rand
	logger    *log.Logger

	frame   int
	time    float64
	clamped int
	emitted int
}

// New validates cfg and wraps w. A nil logger discards output.
func New(w *physics.World, cfg Config, logger *log.Logger) (*Runner, error) {
	if w == nil {
		return nil, fmt.Errorf("%w: nil world", ErrInvalidRun)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Runner{
		world:  w,
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		logger: logger,
	}, nil
}

func (r *Runner) AddMetric(m metrics.Metric) { r.metrics = append(r.metrics, m) }
func (r *Runner) AddObserver(o Observer)     { r.observers = append(r.observers, o) }

func (r *Runner) World() *physics.World     { return r.world }
func (r *Runner) Config() Config            { return r.cfg }
func (r *Runner) Metrics() []metrics.Metric { return r.metrics }
func (r *Runner) Time() float64             { return r.time }
func (r *Runner) FrameCount() int           { return r.frame }
func (r *Runner) Emitted() int              { return r.emitted }
func (r *Runner) ClampedFrames() int        { return r.clamped }

// SetEmitter installs a copy of e, or removes the emitter when e is nil.
func (r *Runner) SetEmitter(e *Emitter) error {
	if e == nil {
		r.emitter = nil
		return nil
	}
	if err := e.validate(); err != nil {
		return err
	}
	if _, err := r.world.Shape(e.Shape); err != nil {
		return fmt.Errorf("emitter: %w", err)
	}
	cp := *e
	r.emitter = &cp
	return nil
}

// Frame advances the world by one frame of dt seconds. dt is clamped to the
// configured maximum and split into equal substeps; the emitter runs first
// and metrics and observers see the world after the last substep.
func (r *Runner) Frame(dt float64) error {
	if limit := r.cfg.maxDt(); dt > limit {
		if r.clamped == 0 {
			r.logger.Warn("frame time clamped", "dt", dt, "max", limit)
		}
		r.clamped++
		dt = limit
	}

	r.emit()

	n := r.cfg.substeps()
	sub := float32(dt / float64(n))
	for i := 0; i < n; i++ {
		if err := r.world.Step(sub); err != nil {
			return &StepError{Step: r.frame, Time: r.time, Wrapped: err}
		}
	}

	r.frame++
	r.time += dt

	for _, m := range r.metrics {
		m.Observe(r.world, r.time)
	}
	for _, obs := range r.observers {
		obs.OnFrame(r.world, r.frame, r.time)
	}
	return nil
}

func (r *Runner) emit() {
	e := r.emitter
	if e == nil || r.frame%e.Every != 0 {
		return
	}
	if e.Max > 0 && r.world.Len() >= e.Max {
		return
	}
	offset := mgl32.Vec2{(r.rng.Float32()*2 - 1) * e.Jitter, 0}
	if _, err := r.world.SpawnShape(e.Position.Add(offset), e.Shape); err != nil {
		r.logger.Error("emitter spawn failed", "err", err)
		return
	}
	r.emitted++
}

// Run executes Config.Frames frames, recording every metric after each one.
// On cancellation the partial result is returned with the context error.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	if !(r.cfg.Duration > 0) {
		return nil, fmt.Errorf("%w: duration must be positive, got %f", ErrInvalidRun, r.cfg.Duration)
	}

	frames := r.cfg.Frames()
	result := &Result{
		Times:   make([]float64, 0, frames),
		Bodies:  make([]int, 0, frames),
		Series:  make(map[string][]float64, len(r.metrics)),
		Metrics: make(map[string]float64, len(r.metrics)),
	}
	for _, m := range r.metrics {
		m.Reset()
		result.Series[m.Name()] = make([]float64, 0, frames)
	}

	r.logger.Debug("run started", "frames", frames, "dt", r.cfg.Dt, "substeps", r.cfg.substeps())
	clampedBefore := r.clamped

	for i := 0; i < frames; i++ {
		select {
		case <-ctx.Done():
			r.finish(result, clampedBefore)
			return result, ctx.Err()
		default:
		}

		if err := r.Frame(r.cfg.Dt); err != nil {
			r.finish(result, clampedBefore)
			return result, err
		}

		result.Frames++
		result.Times = append(result.Times, r.time)
		result.Bodies = append(result.Bodies, r.world.Len())
		for _, m := range r.metrics {
			result.Series[m.Name()] = append(result.Series[m.Name()], m.Value())
		}
	}

	r.finish(result, clampedBefore)
	r.logger.Info("run finished", "frames", result.Frames, "bodies", r.world.Len(), "t", r.time)
	return result, nil
}

func (r *Runner) finish(result *Result, clampedBefore int) {
	for _, m := range r.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	result.Clamped = r.clamped - clampedBefore
}

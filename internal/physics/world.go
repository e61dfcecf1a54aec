package physics

import (
	"fmt"
	"time"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/san-kum/verlet/internal/broadphase"
	"github.com/san-kum/verlet/internal/geom"
)

// Params fixes a world at creation time.
type Params struct {
	BoundaryCenter mgl32.Vec2
	BoundaryRadius float32
	Gravity        mgl32.Vec2
	BodyRadius     float32
	BodyColor      geom.Color
	CircleVertices int
	Capacity       int
	Iterations     int
}

// DefaultParams mirrors the reference scene: a 0.9 boundary in normalized
// device coordinates with small red discs falling at 0.5 units/s².
func DefaultParams() Params {
	return Params{
		BoundaryRadius: 0.9,
		Gravity:        mgl32.Vec2{0, -0.5},
		BodyRadius:     0.02,
		BodyColor:      geom.Color{1, 0, 0, 1},
		CircleVertices: geom.DefaultCircleVertices,
		Capacity:       32_000,
		Iterations:     2,
	}
}

// Outline is the world-space silhouette of one body.
type Outline struct {
	Vertices []mgl32.Vec2
	Color    geom.Color
}

// Stats describes the most recent Step.
type Stats struct {
	Bodies      int
	Contacts    int
	Degenerate  int
	Projections int
	MaxOverlap  float32
}

// Timings holds per-phase durations of the most recent Step.
type Timings struct {
	Integrate time.Duration
	Boundary  time.Duration
	Collide   time.Duration
}

// Total is the sum of all phases.
func (t Timings) Total() time.Duration {
	return t.Integrate + t.Boundary + t.Collide
}

// World owns every body and advances them together. It is not safe for
// concurrent use; Step, Spawn and Snapshot must alternate on one goroutine.
type World struct {
	params    Params
	bodies    []Body
	shapes    []*geom.Template
	maxRadius float32

	grid      *broadphase.Grid
	probe     *broadphase.Grid
	positions []mgl32.Vec2

	generation uint64
	stats      Stats
	timed      bool
	timings    Timings
}

// New creates an empty world and registers the default circle as shape 0.
func New(p Params) (*World, error) {
	if !(p.BoundaryRadius > 0) || math32.IsInf(p.BoundaryRadius, 0) {
		return nil, fmt.Errorf("%w: boundary radius %v", ErrInvalidWorld, p.BoundaryRadius)
	}
	if !finite(p.BoundaryCenter) || !finite(p.Gravity) {
		return nil, fmt.Errorf("%w: non-finite center or gravity", ErrInvalidWorld)
	}
	if p.Iterations < 1 {
		p.Iterations = 1
	}
	if p.CircleVertices == 0 {
		p.CircleVertices = geom.DefaultCircleVertices
	}
	if p.Capacity < 0 {
		p.Capacity = 0
	}

	circle, err := geom.CircleN(p.CircleVertices, p.BodyRadius, p.BodyColor)
	if err != nil {
		return nil, fmt.Errorf("default shape: %w", err)
	}

	w := &World{
		params:    p,
		bodies:    make([]Body, 0, p.Capacity),
		positions: make([]mgl32.Vec2, 0, p.Capacity),
	}
	w.shapes = append(w.shapes, circle)
	w.maxRadius = circle.BoundingRadius()
	w.grid = w.newGrid()
	return w, nil
}

func (w *World) newGrid() *broadphase.Grid {
	r := w.params.BoundaryRadius
	min := w.params.BoundaryCenter.Sub(mgl32.Vec2{r, r})
	return broadphase.NewGrid(min, 2*r, 2*w.maxRadius)
}

func (w *World) resizeGrids() {
	r := w.params.BoundaryRadius
	min := w.params.BoundaryCenter.Sub(mgl32.Vec2{r, r})
	w.grid.Reset(min, 2*r, 2*w.maxRadius)
	if w.probe != nil {
		w.probe.Reset(min, 2*r, 2*w.maxRadius)
	}
}

// Params returns the creation parameters after defaults were applied.
func (w *World) Params() Params { return w.params }

// Len returns the number of bodies.
func (w *World) Len() int { return len(w.bodies) }

// Body returns a copy of body i.
func (w *World) Body(i int) Body { return w.bodies[i] }

// Gravity returns the constant acceleration applied every step.
func (w *World) Gravity() mgl32.Vec2 { return w.params.Gravity }

// Boundary returns the containment circle.
func (w *World) Boundary() (center mgl32.Vec2, radius float32) {
	return w.params.BoundaryCenter, w.params.BoundaryRadius
}

// Generation changes every time the body set grows. Render buffers built
// for an older generation must be rebuilt rather than refreshed.
func (w *World) Generation() uint64 { return w.generation }

// Stats returns counters collected during the most recent Step.
func (w *World) Stats() Stats { return w.stats }

// EnableTimings turns per-phase timing of Step on or off.
func (w *World) EnableTimings(on bool) {
	w.timed = on
	w.timings = Timings{}
}

// Timings returns phase durations of the most recent Step when enabled.
func (w *World) Timings() Timings { return w.timings }

// Shape returns a registered template.
func (w *World) Shape(id ShapeID) (*geom.Template, error) {
	if id < 0 || int(id) >= len(w.shapes) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownShape, id)
	}
	return w.shapes[id], nil
}

// AddShape registers a template; its bounding radius becomes the collision
// radius of bodies spawned with it.
func (w *World) AddShape(t *geom.Template) (ShapeID, error) {
	if t == nil || len(t.Vertices) == 0 {
		return 0, fmt.Errorf("%w: empty template", geom.ErrInvalidGeometry)
	}
	r := t.BoundingRadius()
	if !(r > 0) || math32.IsInf(r, 0) {
		return 0, fmt.Errorf("%w: bounding radius %v", geom.ErrInvalidGeometry, r)
	}
	w.shapes = append(w.shapes, t)
	if r > w.maxRadius {
		w.maxRadius = r
		w.resizeGrids()
	}
	return ShapeID(len(w.shapes) - 1), nil
}

// Spawn appends a default body at rest at pos and returns its index, or -1
// when pos is not finite.
func (w *World) Spawn(pos mgl32.Vec2) int {
	i, _ := w.SpawnShape(pos, DefaultShape)
	return i
}

// SpawnShape appends a body at rest at pos using a registered shape.
func (w *World) SpawnShape(pos mgl32.Vec2, id ShapeID) (int, error) {
	t, err := w.Shape(id)
	if err != nil {
		return -1, err
	}
	if !finite(pos) {
		return -1, fmt.Errorf("%w: %v", ErrInvalidPosition, pos)
	}
	w.bodies = append(w.bodies, Body{
		Position: pos,
		Previous: pos,
		Radius:   t.BoundingRadius(),
		Color:    t.Color,
		Shape:    id,
	})
	w.generation++
	return len(w.bodies) - 1, nil
}

// Fill spawns a cols x rows lattice of default bodies one diameter apart.
// Column offsets run along the rotated +x axis from origin and row offsets
// along the rotated -y axis.
func (w *World) Fill(cols, rows int, origin mgl32.Vec2, angle float32) int {
	d := 2 * w.shapes[DefaultShape].BoundingRadius()
	rot := mgl32.Rotate2D(angle)
	n := 0
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			offset := mgl32.Vec2{float32(c) * d, -float32(r) * d}
			if w.Spawn(origin.Add(rot.Mul2x1(offset))) >= 0 {
				n++
			}
		}
	}
	return n
}

// Step advances the simulation by dt: gravity and Verlet integration, the
// boundary projection, then Iterations passes of collision resolution.
func (w *World) Step(dt float32) error {
	if !(dt > 0) || math32.IsInf(dt, 0) {
		return fmt.Errorf("%w: dt=%v", ErrInvalidTimestep, dt)
	}

	w.stats = Stats{Bodies: len(w.bodies)}
	sw := stopwatch{on: w.timed}
	sw.start()

	w.integrate(dt)
	integrate := sw.lap()

	w.stats.Projections = w.constrain()
	boundary := sw.lap()

	w.solve()
	w.stats.Projections += w.constrain()
	collide := sw.lap()

	if w.timed {
		w.timings = Timings{Integrate: integrate, Boundary: boundary, Collide: collide}
	}
	return nil
}

func (w *World) integrate(dt float32) {
	g := w.params.Gravity
	for i := range w.bodies {
		b := &w.bodies[i]
		b.Accelerate(g)
		b.integrate(dt)
	}
}

// constrain projects escaped bodies back onto the boundary circle and
// returns how many were moved. A body exactly at the center is inside.
func (w *World) constrain() int {
	center, radius := w.params.BoundaryCenter, w.params.BoundaryRadius
	moved := 0
	for i := range w.bodies {
		b := &w.bodies[i]
		d := b.Position.Sub(center)
		dist := math32.Sqrt(d.Dot(d))
		if dist <= radius || dist == 0 {
			continue
		}
		b.Position = center.Add(d.Mul(radius / dist))
		moved++
	}
	return moved
}

func (w *World) rebuild(g *broadphase.Grid) {
	w.positions = w.positions[:0]
	for i := range w.bodies {
		w.positions = append(w.positions, w.bodies[i].Position)
	}
	g.Rebuild(w.positions)
}

func (w *World) solve() {
	if len(w.bodies) < 2 {
		return
	}
	w.rebuild(w.grid)
	resolve := func(i, j int) {
		overlap, degenerate := ResolvePair(&w.bodies[i], &w.bodies[j])
		if overlap == 0 {
			return
		}
		w.stats.Contacts++
		if degenerate {
			w.stats.Degenerate++
		}
		if overlap > w.stats.MaxOverlap {
			w.stats.MaxOverlap = overlap
		}
	}
	for it := 0; it < w.params.Iterations; it++ {
		w.grid.ForEachPair(resolve)
	}
}

// Contacts calls fn for every pair of bodies that currently overlap, with
// i < j. It uses its own grid, built on first use, and does not modify
// any body.
func (w *World) Contacts(fn func(i, j int, overlap float32)) {
	if len(w.bodies) < 2 {
		return
	}
	if w.probe == nil {
		w.probe = w.newGrid()
	}
	w.rebuild(w.probe)
	w.probe.ForEachPair(func(i, j int) {
		a, b := &w.bodies[i], &w.bodies[j]
		if !a.Overlaps(*b) {
			return
		}
		overlap := a.Radius + b.Radius - a.Position.Sub(b.Position).Len()
		if i > j {
			i, j = j, i
		}
		fn(i, j, overlap)
	})
}

// Snapshot returns every body's world-space outline in insertion order.
// It has no side effects on the simulation.
func (w *World) Snapshot() []Outline {
	total := 0
	for i := range w.bodies {
		total += len(w.shapes[w.bodies[i].Shape].Vertices)
	}
	verts := make([]mgl32.Vec2, 0, total)
	out := make([]Outline, len(w.bodies))
	for i := range w.bodies {
		b := &w.bodies[i]
		start := len(verts)
		verts = w.shapes[b.Shape].Translate(verts, b.Position)
		out[i] = Outline{Vertices: verts[start:len(verts):len(verts)], Color: b.Color}
	}
	return out
}

type stopwatch struct {
	on   bool
	last time.Time
}

func (s *stopwatch) start() {
	if s.on {
		s.last = time.Now()
	}
}

func (s *stopwatch) lap() time.Duration {
	if !s.on {
		return 0
	}
	now := time.Now()
	d := now.Sub(s.last)
	s.last = now
	return d
}

func finite(v mgl32.Vec2) bool {
	return !math32.IsNaN(v[0]) && !math32.IsNaN(v[1]) && !math32.IsInf(v[0], 0) && !math32.IsInf(v[1], 0)
}

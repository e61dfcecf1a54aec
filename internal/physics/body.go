package physics

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/san-kum/verlet/internal/geom"
)

// ShapeID indexes a template registered with a World.
type ShapeID int

// DefaultShape is the circle every World registers on creation.
const DefaultShape ShapeID = 0

// Body is one disc. Velocity is implicit: Position - Previous.
type Body struct {
	Position     mgl32.Vec2
	Previous     mgl32.Vec2
	Acceleration mgl32.Vec2
	Radius       float32
	Color        geom.Color
	Shape        ShapeID
}

// Velocity returns the displacement over the last step.
func (b Body) Velocity() mgl32.Vec2 {
	return b.Position.Sub(b.Previous)
}

// Accelerate accumulates a force/mass contribution for the next integration.
func (b *Body) Accelerate(a mgl32.Vec2) {
	b.Acceleration = b.Acceleration.Add(a)
}

// integrate advances the body by one Verlet step and clears the accumulator.
func (b *Body) integrate(dt float32) {
	delta := b.Position.Sub(b.Previous)
	b.Previous = b.Position
	b.Position = b.Position.Add(delta).Add(b.Acceleration.Mul(dt * dt))
	b.Acceleration = mgl32.Vec2{}
}

// Overlaps reports whether the two discs intersect.
func (b Body) Overlaps(other Body) bool {
	d := b.Position.Sub(other.Position)
	r := b.Radius + other.Radius
	return d.Dot(d) < r*r
}

// ResolvePair separates two overlapping discs symmetrically along the line
// between their centers, each by half the overlap. Only positions change.
// Coincident centers are split along +x for a and -x for b. It returns the
// overlap that was removed and whether the centers coincided.
func ResolvePair(a, b *Body) (overlap float32, degenerate bool) {
	d := a.Position.Sub(b.Position)
	minDist := a.Radius + b.Radius
	dist2 := d.Dot(d)
	if !(dist2 < minDist*minDist) {
		return 0, false
	}

	var n mgl32.Vec2
	dist := math32.Sqrt(dist2)
	if dist > 0 {
		n = d.Mul(1 / dist)
	} else {
		n = mgl32.Vec2{1, 0}
		degenerate = true
	}

	overlap = minDist - dist
	shift := n.Mul(0.5 * overlap)
	a.Position = a.Position.Add(shift)
	b.Position = b.Position.Sub(shift)
	return overlap, degenerate
}

package metrics

import (
	"math"

	"github.com/san-kum/verlet/internal/physics"
)

// Penetration is the deepest overlap left between any two bodies after a
// step, tracked as a peak since the last Reset.
type Penetration struct {
	name    string
	current float64
	peak    float64
}

func NewPenetration() *Penetration {
	return &Penetration{name: "penetration"}
}

func (p *Penetration) Name() string { return p.name }

func (p *Penetration) Observe(w *physics.World, t float64) {
	deepest := 0.0
	w.Contacts(func(i, j int, overlap float32) {
		deepest = math.Max(deepest, float64(overlap))
	})
	p.current = deepest
	p.peak = math.Max(p.peak, deepest)
}

func (p *Penetration) Value() float64 { return p.peak }

// Current is the deepest overlap of the latest frame only.
func (p *Penetration) Current() float64 { return p.current }

func (p *Penetration) Reset() {
	p.current = 0
	p.peak = 0
}

// Containment is the furthest any body center has been found outside the
// boundary circle. It stays zero while the boundary constraint holds.
type Containment struct {
	name       string
	violations int
	excess     float64
}

func NewContainment() *Containment {
	return &Containment{name: "containment"}
}

func (c *Containment) Name() string { return c.name }

func (c *Containment) Observe(w *physics.World, t float64) {
	center, radius := w.Boundary()
	for i := 0; i < w.Len(); i++ {
		d := w.Body(i).Position.Sub(center).Len() - radius
		if d > 0 {
			c.violations++
			c.excess = math.Max(c.excess, float64(d))
		}
	}
}

func (c *Containment) Value() float64 { return c.excess }

// Violations counts body observations found outside the boundary.
func (c *Containment) Violations() int { return c.violations }

func (c *Containment) Reset() {
	c.violations = 0
	c.excess = 0
}

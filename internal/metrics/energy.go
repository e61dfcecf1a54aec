package metrics

import (
	"github.com/san-kum/verlet/internal/physics"
)

// KineticEnergy is the total kinetic energy of the latest frame, taking every
// body as unit mass and its velocity as displacement over dt.
type KineticEnergy struct {
	name  string
	dt    float64
	value float64
}

func NewKineticEnergy(dt float64) *KineticEnergy {
	return &KineticEnergy{
		name: "kinetic",
		dt:   dt,
	}
}

func (k *KineticEnergy) Name() string { return k.name }

func (k *KineticEnergy) Observe(w *physics.World, t float64) {
	if k.dt <= 0 {
		return
	}
	sum := 0.0
	for i := 0; i < w.Len(); i++ {
		v := w.Body(i).Velocity()
		sum += float64(v.Dot(v))
	}
	k.value = 0.5 * sum / (k.dt * k.dt)
}

func (k *KineticEnergy) Value() float64 { return k.value }

func (k *KineticEnergy) Reset() { k.value = 0 }

// Contacts counts overlapping pairs resolved during the latest step.
type Contacts struct {
	name  string
	value float64
}

func NewContacts() *Contacts {
	return &Contacts{name: "contacts"}
}

func (c *Contacts) Name() string { return c.name }

func (c *Contacts) Observe(w *physics.World, t float64) {
	c.value = float64(w.Stats().Contacts)
}

func (c *Contacts) Value() float64 { return c.value }

func (c *Contacts) Reset() { c.value = 0 }

// Package metrics provides per-step observers of a physics world.
//
// Each Metric is fed the world after every frame and reports a single
// number. Instantaneous metrics report the latest frame; peak metrics report
// the worst value seen since the last Reset.
package metrics

import (
	"errors"
	"fmt"
	"sort"

	"github.com/san-kum/verlet/internal/physics"
)

// ErrUnknownMetric is returned by New for a name that is not registered.
var ErrUnknownMetric = errors.New("metrics: unknown metric")

// Metric observes the world once per frame.
type Metric interface {
	Name() string
	Observe(w *physics.World, t float64)
	Value() float64
	Reset()
}

var registry = map[string]func(dt float64) Metric{
	"kinetic":     func(dt float64) Metric { return NewKineticEnergy(dt) },
	"contacts":    func(float64) Metric { return NewContacts() },
	"penetration": func(float64) Metric { return NewPenetration() },
	"containment": func(float64) Metric { return NewContainment() },
	"step_time":   func(float64) Metric { return NewStepTime() },
}

// New builds a registered metric by name. dt is the world step the metric
// should assume when converting displacements to velocities.
func New(name string, dt float64) (Metric, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, name)
	}
	return ctor(dt), nil
}

// Names lists registered metrics in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Default returns the metrics the headless runner records unless told
// otherwise.
func Default(dt float64) []Metric {
	return []Metric{
		NewKineticEnergy(dt),
		NewContacts(),
		NewPenetration(),
		NewContainment(),
	}
}

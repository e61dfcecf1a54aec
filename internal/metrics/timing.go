package metrics

import (
	"github.com/san-kum/verlet/internal/physics"
)

// StepTime is the mean wall time of a world step in microseconds. It only
// sees non-zero samples when the world has timings enabled.
type StepTime struct {
	name    string
	sum     float64
	samples int
}

func NewStepTime() *StepTime {
	return &StepTime{name: "step_time"}
}

func (s *StepTime) Name() string { return s.name }

func (s *StepTime) Observe(w *physics.World, t float64) {
	total := w.Timings().Total()
	if total == 0 {
		return
	}
	s.sum += total.Seconds() * 1e6
	s.samples++
}

func (s *StepTime) Value() float64 {
	if s.samples == 0 {
		return 0
	}
	return s.sum / float64(s.samples)
}

func (s *StepTime) Reset() {
	s.sum = 0
	s.samples = 0
}

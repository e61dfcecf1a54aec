// Package physics simulates discs with position-based Verlet dynamics.
//
// A [World] owns a growing population of [Body] values and advances them in
// a fixed order every [World.Step]:
//
//   - gravity is accumulated and each body is integrated with Verlet
//   - bodies outside the circular boundary are projected back onto it
//   - overlapping pairs found through the uniform grid are pushed apart
//
// Velocity is never stored; it is the difference between the current and
// previous position, so positional corrections feed into the next step as
// momentum change.
//
// # Example
//
//	w, _ := physics.New(physics.DefaultParams())
//	w.Spawn(mgl32.Vec2{0, 0.5})
//	_ = w.Step(1.0 / 60)
//	outlines := w.Snapshot()
//
// # Thread Safety
//
// World is NOT thread-safe. Spawn, Step and Snapshot must be called from a
// single goroutine, and a snapshot must be consumed before the next Step.
package physics

// Package viz draws a running world in the terminal.
//
// The live view is a Bubble Tea program that owns the world. Each tick it
// advances one frame, syncs a [render.Buffers] from the world snapshot and
// rasterizes its triangle fans onto a braille [Canvas], two dots wide and
// four tall per cell.
//
// # Key Bindings
//
//	Space - Pause/Resume simulation
//	R     - Rebuild the world from the configuration
//	F     - Spawn the configured fill lattice
//	E     - Toggle the emitter
//	T     - Cycle color themes
//	?     - Show help overlay
//
// Holding the left mouse button over the canvas spawns a body under the
// pointer every frame.
//
// # Hot Reload
//
// When started with a [watch.Watcher], every valid save of the
// configuration file rebuilds the world in place.
package viz

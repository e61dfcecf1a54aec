package physics

import "errors"

// Domain errors for world operations.
var (
	// ErrInvalidTimestep indicates a non-positive or non-finite dt.
	ErrInvalidTimestep = errors.New("physics: invalid timestep")

	// ErrUnknownShape indicates a ShapeID that was never registered.
	ErrUnknownShape = errors.New("physics: unknown shape")

	// ErrInvalidPosition indicates a NaN or infinite spawn position.
	ErrInvalidPosition = errors.New("physics: invalid position")

	// ErrInvalidWorld indicates a world configuration that cannot be simulated.
	ErrInvalidWorld = errors.New("physics: invalid world parameters")
)

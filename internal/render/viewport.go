package render

import "github.com/go-gl/mathgl/mgl32"

// Viewport maps a Width x Height pixel surface, origin top-left and y down,
// onto the world square [-1, 1] x [-1, 1] with y up.
type Viewport struct {
	Width  float32
	Height float32
}

// ToWorld converts pixel coordinates to world coordinates.
func (v Viewport) ToWorld(px, py float32) mgl32.Vec2 {
	x := px/v.Width*2 - 1
	y := py/v.Height*2 - 1
	return mgl32.Vec2{x, -y}
}

// ToScreen is the inverse of ToWorld.
func (v Viewport) ToScreen(p mgl32.Vec2) (px, py float32) {
	return (p[0] + 1) / 2 * v.Width, (1 - p[1]) / 2 * v.Height
}

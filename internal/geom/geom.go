// Package geom generates the pivot-centered outlines shared by bodies.
//
// A [Template] is built once per shape kind and never mutated afterwards;
// every body using the shape translates the same vertex list by its own
// position. The largest vertex distance from the pivot is the collision
// radius of the bodies that use the template.
package geom

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// DefaultCircleVertices is the vertex count used by [Circle].
const DefaultCircleVertices = 6

// ErrInvalidGeometry is returned when a template would be degenerate.
var ErrInvalidGeometry = errors.New("geom: invalid geometry")

// Color is a linear RGBA color with components in [0, 1].
type Color [4]float32

// RGBA converts c to an 8-bit color, clamping out-of-range components.
func (c Color) RGBA() color.RGBA {
	return color.RGBA{R: channel(c[0]), G: channel(c[1]), B: channel(c[2]), A: channel(c[3])}
}

// FromRGBA converts an 8-bit color, ignoring premultiplication.
func FromRGBA(c color.RGBA) Color {
	return Color{float32(c.R) / 255, float32(c.G) / 255, float32(c.B) / 255, float32(c.A) / 255}
}

func channel(v float32) uint8 {
	if v <= 0 || math32.IsNaN(v) {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

// Template is a closed outline around the origin.
type Template struct {
	Vertices []mgl32.Vec2
	Color    Color
}

// Circle returns a regular DefaultCircleVertices-gon inscribed in a circle of the given radius.
func Circle(radius float32, c Color) (*Template, error) {
	return CircleN(DefaultCircleVertices, radius, c)
}

// CircleN returns n points evenly spaced on a circle, starting at (0, radius)
// and advancing counter-clockwise by repeated application of one rotation matrix.
func CircleN(n int, radius float32, c Color) (*Template, error) {
	if n < 3 {
		return nil, fmt.Errorf("%w: circle needs at least 3 vertices, got %d", ErrInvalidGeometry, n)
	}
	if !(radius > 0) || math32.IsInf(radius, 0) {
		return nil, fmt.Errorf("%w: circle radius must be positive and finite, got %v", ErrInvalidGeometry, radius)
	}

	rot := mgl32.Rotate2D(2 * math32.Pi / float32(n))
	vertices := make([]mgl32.Vec2, n)
	vertices[0] = mgl32.Vec2{0, radius}
	for i := 1; i < n; i++ {
		vertices[i] = rot.Mul2x1(vertices[i-1])
	}
	return &Template{Vertices: vertices, Color: c}, nil
}

// Polygon wraps an explicit point list. The points are copied unchanged.
func Polygon(points []mgl32.Vec2, c Color) (*Template, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: empty point list", ErrInvalidGeometry)
	}
	for _, p := range points {
		if !finite(p) {
			return nil, fmt.Errorf("%w: non-finite vertex %v", ErrInvalidGeometry, p)
		}
	}
	t := &Template{Vertices: make([]mgl32.Vec2, len(points)), Color: c}
	copy(t.Vertices, points)
	if !(t.BoundingRadius() > 0) {
		return nil, fmt.Errorf("%w: polygon collapses to its pivot", ErrInvalidGeometry)
	}
	return t, nil
}

// Rectangle returns the corners of a centered axis-aligned rectangle.
func Rectangle(width, height float32, c Color) (*Template, error) {
	if !(width > 0) || !(height > 0) || math32.IsInf(width, 0) || math32.IsInf(height, 0) {
		return nil, fmt.Errorf("%w: rectangle %vx%v", ErrInvalidGeometry, width, height)
	}
	hw, hh := width/2, height/2
	return &Template{
		Vertices: []mgl32.Vec2{
			{hw, -hh},
			{-hw, -hh},
			{-hw, hh},
			{hw, hh},
		},
		Color: c,
	}, nil
}

// BoundingRadius is the largest distance from the pivot to a vertex.
func (t *Template) BoundingRadius() float32 {
	var r float32
	for _, v := range t.Vertices {
		if l := v.Len(); l > r {
			r = l
		}
	}
	return r
}

// Translate appends the outline moved to pos onto dst.
func (t *Template) Translate(dst []mgl32.Vec2, pos mgl32.Vec2) []mgl32.Vec2 {
	for _, v := range t.Vertices {
		dst = append(dst, v.Add(pos))
	}
	return dst
}

// FanIndices triangulates an n-vertex outline as a fan around vertex 0.
func FanIndices(n int) []uint32 {
	if n < 3 {
		return nil
	}
	idx := make([]uint32, 0, 3*(n-2))
	for i := 1; i < n-1; i++ {
		idx = append(idx, 0, uint32(i), uint32(i+1))
	}
	return idx
}

func finite(v mgl32.Vec2) bool {
	return !math32.IsNaN(v[0]) && !math32.IsNaN(v[1]) && !math32.IsInf(v[0], 0) && !math32.IsInf(v[1], 0)
}

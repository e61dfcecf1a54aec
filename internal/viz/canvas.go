package viz

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/san-kum/verlet/internal/geom"
	"github.com/san-kum/verlet/internal/render"
)

// Braille Patterns: 2x4 dots
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const blank = 0x2800

// Canvas is a grid of braille cells. Each cell remembers the color of the
// last dot drawn into it.
type Canvas struct {
	Width, Height int
	Grid          [][]rune
	Colors        [][]geom.Color
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{}
	c.Resize(w, h)
	return c
}

// Resize reallocates the grid and clears it.
func (c *Canvas) Resize(w, h int) {
	c.Width, c.Height = w, h
	c.Grid = make([][]rune, h)
	c.Colors = make([][]geom.Color, h)
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
		c.Colors[i] = make([]geom.Color, w)
	}
	c.Clear()
}

// Viewport maps world coordinates onto the canvas dots.
func (c *Canvas) Viewport() render.Viewport {
	return render.Viewport{Width: float32(c.Width * 2), Height: float32(c.Height * 4)}
}

// Set lights the dot at (x, y). The canvas is Width*2 x Height*4 dots.
func (c *Canvas) Set(x, y int, col geom.Color) {
	if x < 0 || y < 0 {
		return
	}

	cell, row := x/2, y/4
	if cell >= c.Width || row >= c.Height {
		return
	}

	c.Grid[row][cell] |= rune(pixelMap[y%4][x%2])
	c.Colors[row][cell] = col
}

// Lit reports whether the dot at (x, y) is set.
func (c *Canvas) Lit(x, y int) bool {
	if x < 0 || y < 0 || x/2 >= c.Width || y/4 >= c.Height {
		return false
	}
	return c.Grid[y/4][x/2]&rune(pixelMap[y%4][x%2]) != 0
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = blank
			c.Colors[i][j] = geom.Color{}
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm
func (c *Canvas) DrawLine(x0, y0, x1, y1 int, col geom.Color) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0, col)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// FillTriangle lights every dot whose center lies inside the triangle, or
// the nearest dot when the triangle is smaller than one.
func (c *Canvas) FillTriangle(a, b, d mgl32.Vec2, col geom.Color) {
	minX := int(math32.Floor(min(a[0], b[0], d[0])))
	maxX := int(math32.Ceil(max(a[0], b[0], d[0])))
	minY := int(math32.Floor(min(a[1], b[1], d[1])))
	maxY := int(math32.Ceil(max(a[1], b[1], d[1])))

	area := edge(a, b, d)
	if area == 0 {
		c.Set(int(a[0]), int(a[1]), col)
		return
	}

	hit := false
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			p := mgl32.Vec2{float32(x) + 0.5, float32(y) + 0.5}
			w0 := edge(b, d, p) / area
			w1 := edge(d, a, p) / area
			w2 := edge(a, b, p) / area
			if w0 >= 0 && w1 >= 0 && w2 >= 0 {
				c.Set(x, y, col)
				hit = true
			}
		}
	}
	if !hit {
		center := a.Add(b).Add(d).Mul(1.0 / 3)
		c.Set(int(center[0]), int(center[1]), col)
	}
}

// DrawBuffers rasterizes every triangle of the index buffer.
func (c *Canvas) DrawBuffers(b *render.Buffers) {
	vp := c.Viewport()
	screen := func(v render.Vertex) mgl32.Vec2 {
		x, y := vp.ToScreen(v.Position)
		return mgl32.Vec2{x, y}
	}
	for i := 0; i+2 < len(b.Indices); i += 3 {
		v0 := b.Vertices[b.Indices[i]]
		v1 := b.Vertices[b.Indices[i+1]]
		v2 := b.Vertices[b.Indices[i+2]]
		c.FillTriangle(screen(v0), screen(v1), screen(v2), v0.Color)
	}
}

// DrawCircle outlines a world-space circle with n segments.
func (c *Canvas) DrawCircle(center mgl32.Vec2, radius float32, n int, col geom.Color) {
	vp := c.Viewport()
	step := mgl32.Rotate2D(2 * math32.Pi / float32(n))
	r := mgl32.Vec2{radius, 0}
	px, py := vp.ToScreen(center.Add(r))
	for i := 0; i < n; i++ {
		r = step.Mul2x1(r)
		qx, qy := vp.ToScreen(center.Add(r))
		c.DrawLine(int(px), int(py), int(qx), int(qy), col)
		px, py = qx, qy
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}

// Render is String with each run of equally colored cells styled.
func (c *Canvas) Render() string {
	var b strings.Builder
	for i, row := range c.Grid {
		start := 0
		for j := 1; j <= len(row); j++ {
			if j < len(row) && c.Colors[i][j] == c.Colors[i][start] {
				continue
			}
			b.WriteString(styleFor(c.Colors[i][start]).Render(string(row[start:j])))
			start = j
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func styleFor(col geom.Color) lipgloss.Style {
	if col == (geom.Color{}) {
		return lipgloss.NewStyle()
	}
	rgba := col.RGBA()
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", rgba.R, rgba.G, rgba.B)))
}

func edge(a, b, p mgl32.Vec2) float32 {
	return (b[0]-a[0])*(p[1]-a[1]) - (b[1]-a[1])*(p[0]-a[0])
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

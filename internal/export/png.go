package export

import (
	"image"
	"image/draw"
	"io"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/san-kum/verlet/internal/geom"
	"github.com/san-kum/verlet/internal/physics"
	"github.com/san-kum/verlet/internal/render"
	"github.com/san-kum/verlet/internal/viz"
	"golang.org/x/image/colornames"
	"golang.org/x/image/vector"
)

const (
	ringSegments = 128
	ringWidth    = 1.5
)

// WorldToImage rasterizes the boundary ring and every body outline with
// antialiasing. Bodies sharing a color are filled in one pass.
func WorldToImage(w *physics.World, vp render.Viewport) *image.RGBA {
	width, height := int(vp.Width), int(vp.Height)
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(colornames.Black), image.Point{}, draw.Src)

	z := vector.NewRasterizer(width, height)

	center, radius := w.Boundary()
	cx, cy := vp.ToScreen(center)
	edge, _ := vp.ToScreen(center.Add(mgl32.Vec2{radius, 0}))
	r := edge - cx
	ring(z, cx, cy, r+ringWidth/2, false)
	ring(z, cx, cy, r-ringWidth/2, true)
	z.Draw(img, img.Bounds(), image.NewUniform(viz.CurrentTheme.Boundary.RGBA()), image.Point{})

	groups := make(map[geom.Color][]physics.Outline)
	var order []geom.Color
	for _, o := range w.Snapshot() {
		if _, ok := groups[o.Color]; !ok {
			order = append(order, o.Color)
		}
		groups[o.Color] = append(groups[o.Color], o)
	}

	for _, col := range order {
		z.Reset(width, height)
		for _, o := range groups[col] {
			for i, v := range o.Vertices {
				px, py := vp.ToScreen(v)
				if i == 0 {
					z.MoveTo(px, py)
				} else {
					z.LineTo(px, py)
				}
			}
			z.ClosePath()
		}
		z.Draw(img, img.Bounds(), image.NewUniform(col.RGBA()), image.Point{})
	}
	return img
}

// ring adds a circle path; reverse winds it the other way so an inner ring
// cancels the outer one.
func ring(z *vector.Rasterizer, cx, cy, r float32, reverse bool) {
	rot := mgl32.Rotate2D(2 * math32.Pi / ringSegments)
	if reverse {
		rot = rot.Transpose()
	}
	p := mgl32.Vec2{r, 0}
	z.MoveTo(cx+p[0], cy+p[1])
	for i := 1; i < ringSegments; i++ {
		p = rot.Mul2x1(p)
		z.LineTo(cx+p[0], cy+p[1])
	}
	z.ClosePath()
}

// WorldToPNG writes WorldToImage as a PNG.
func WorldToPNG(out io.Writer, w *physics.World, vp render.Viewport) error {
	return imgio.PNGEncoder()(out, WorldToImage(w, vp))
}

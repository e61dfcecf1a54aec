// Package export writes frames of the simulation as SVG documents.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/san-kum/verlet/internal/geom"
	"github.com/san-kum/verlet/internal/physics"
	"github.com/san-kum/verlet/internal/render"
	"github.com/san-kum/verlet/internal/viz"
)

const background = "#0a0a0a"

// WorldToSVG draws the boundary and every body outline of w as polygons on
// a surface the size of vp.
func WorldToSVG(out io.Writer, w *physics.World, vp render.Viewport) error {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="%s"/>
`, vp.Width, vp.Height, vp.Width, vp.Height, background))

	center, radius := w.Boundary()
	cx, cy := vp.ToScreen(center)
	edge, _ := vp.ToScreen(center.Add(mgl32.Vec2{radius, 0}))
	sb.WriteString(fmt.Sprintf(`<circle cx="%.2f" cy="%.2f" r="%.2f" fill="none" stroke="%s" stroke-width="1"/>
`, cx, cy, edge-cx, hex(viz.CurrentTheme.Boundary)))

	for _, o := range w.Snapshot() {
		sb.WriteString(`<polygon fill="`)
		sb.WriteString(hex(o.Color))
		sb.WriteString(`" points="`)
		for i, v := range o.Vertices {
			if i > 0 {
				sb.WriteByte(' ')
			}
			px, py := vp.ToScreen(v)
			sb.WriteString(fmt.Sprintf("%.2f,%.2f", px, py))
		}
		sb.WriteString("\"/>\n")
	}

	sb.WriteString("</svg>\n")
	_, err := io.WriteString(out, sb.String())
	return err
}

// CanvasToSVG converts a Braille canvas to SVG, one circle per lit dot.
func CanvasToSVG(canvas *viz.Canvas, scale float64) string {
	if canvas == nil {
		return ""
	}

	width := float64(canvas.Width) * scale * 2
	height := float64(canvas.Height) * scale * 4

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, background))

	dotRadius := scale * 0.4
	for y := 0; y < canvas.Height*4; y++ {
		for x := 0; x < canvas.Width*2; x++ {
			if !canvas.Lit(x, y) {
				continue
			}
			sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="%.1f" fill="%s"/>
`, float64(x)*scale+scale/2, float64(y)*scale+scale/2, dotRadius, hex(canvas.Colors[y/4][x/2])))
		}
	}

	sb.WriteString("</svg>")
	return sb.String()
}

func hex(c geom.Color) string {
	rgba := c.RGBA()
	return fmt.Sprintf("#%02x%02x%02x", rgba.R, rgba.G, rgba.B)
}

// Package tui prints frames of a headless run straight to a terminal,
// without taking over input the way the live view does.
package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/san-kum/verlet/internal/physics"
	"github.com/san-kum/verlet/internal/render"
	"github.com/san-kum/verlet/internal/viz"
)

const (
	width       = 48
	height      = 24
	clearScreen = "\033[2J\033[H"
	hideCursor  = "\033[?25l"
	showCursor  = "\033[?25h"
)

// LiveRenderer is a sim.Observer that redraws the world at most frameRate
// times per second. A frameRate of zero draws every frame.
type LiveRenderer struct {
	out       io.Writer
	title     string
	frameRate int
	lastFrame time.Time
	canvas    *viz.Canvas
	buffers   render.Buffers
	drawn     int
}

func NewLiveRenderer(out io.Writer, title string, frameRate int) *LiveRenderer {
	return &LiveRenderer{
		out:       out,
		title:     title,
		frameRate: frameRate,
		canvas:    viz.NewCanvas(width, height),
	}
}

func (r *LiveRenderer) OnFrame(w *physics.World, frame int, t float64) {
	if r.frameRate > 0 {
		if time.Since(r.lastFrame) < time.Second/time.Duration(r.frameRate) {
			return
		}
		r.lastFrame = time.Now()
	}

	r.canvas.Clear()
	center, radius := w.Boundary()
	r.canvas.DrawCircle(center, radius, 64, viz.CurrentTheme.Boundary)
	r.buffers.Sync(w)
	r.canvas.DrawBuffers(&r.buffers)

	r.render(w, frame, t)
	r.drawn++
}

// Drawn counts frames actually written.
func (r *LiveRenderer) Drawn() int { return r.drawn }

func (r *LiveRenderer) render(w *physics.World, frame int, t float64) {
	var b strings.Builder
	b.WriteString(clearScreen)
	b.WriteString(fmt.Sprintf("  %s  frame=%d  t=%.2fs\n", r.title, frame, t))
	b.WriteString("  " + strings.Repeat("-", width) + "\n")

	for _, row := range r.canvas.Grid {
		b.WriteString("  ")
		b.WriteString(string(row))
		b.WriteString("\n")
	}

	b.WriteString("  " + strings.Repeat("-", width) + "\n")

	stats := w.Stats()
	b.WriteString(fmt.Sprintf("  bodies=%d contacts=%d overlap=%.4f\n", stats.Bodies, stats.Contacts, stats.MaxOverlap))

	fmt.Fprint(r.out, b.String())
}

func (r *LiveRenderer) Start() { fmt.Fprint(r.out, hideCursor) }
func (r *LiveRenderer) Stop()  { fmt.Fprint(r.out, showCursor) }

// Package render turns world snapshots into the flat buffers a renderer
// uploads, and converts between window pixels and world coordinates.
package render

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/san-kum/verlet/internal/geom"
	"github.com/san-kum/verlet/internal/physics"
)

// Source is anything that can be drawn: the physics world in practice.
type Source interface {
	Generation() uint64
	Snapshot() []physics.Outline
}

// Vertex is one outline point with its body's color.
type Vertex struct {
	Position mgl32.Vec2
	Color    geom.Color
}

// Span locates one body's vertices inside Buffers.Vertices.
type Span struct {
	First int
	Count int
}

// Buffers holds a vertex buffer and a triangle-fan index buffer covering
// every body. The index buffer only changes when bodies are added.
type Buffers struct {
	Vertices []Vertex
	Indices  []uint32
	Spans    []Span

	generation uint64
	built      bool
	rebuilds   int
	refreshes  int
}

// Sync brings the buffers up to date with src. It rebuilds both buffers when
// the body set changed since the last sync and otherwise only rewrites vertex
// positions in place. It reports whether a rebuild happened.
func (b *Buffers) Sync(src Source) bool {
	outlines := src.Snapshot()
	gen := src.Generation()
	if b.built && gen == b.generation && b.fits(outlines) {
		b.refresh(outlines)
		return false
	}
	b.rebuild(outlines)
	b.generation = gen
	b.built = true
	return true
}

// Rebuilds counts full rebuilds since creation.
func (b *Buffers) Rebuilds() int { return b.rebuilds }

// Refreshes counts in-place position refreshes since creation.
func (b *Buffers) Refreshes() int { return b.refreshes }

func (b *Buffers) fits(outlines []physics.Outline) bool {
	if len(outlines) != len(b.Spans) {
		return false
	}
	for i, o := range outlines {
		if len(o.Vertices) != b.Spans[i].Count {
			return false
		}
	}
	return true
}

func (b *Buffers) rebuild(outlines []physics.Outline) {
	b.Vertices = b.Vertices[:0]
	b.Indices = b.Indices[:0]
	b.Spans = b.Spans[:0]

	fans := map[int][]uint32{}
	for _, o := range outlines {
		first := len(b.Vertices)
		n := len(o.Vertices)
		for _, v := range o.Vertices {
			b.Vertices = append(b.Vertices, Vertex{Position: v, Color: o.Color})
		}
		fan, ok := fans[n]
		if !ok {
			fan = geom.FanIndices(n)
			fans[n] = fan
		}
		for _, idx := range fan {
			b.Indices = append(b.Indices, idx+uint32(first))
		}
		b.Spans = append(b.Spans, Span{First: first, Count: n})
	}
	b.rebuilds++
}

func (b *Buffers) refresh(outlines []physics.Outline) {
	for i, o := range outlines {
		dst := b.Vertices[b.Spans[i].First:]
		for j, v := range o.Vertices {
			dst[j].Position = v
		}
	}
	b.refreshes++
}

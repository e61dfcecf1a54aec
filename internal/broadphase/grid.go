// Package broadphase narrows body pairs down to spatially plausible
// collision candidates with a uniform grid.
//
// The grid is an arena of per-cell index buckets covering a fixed square.
// It is rebuilt from scratch every step; buckets keep their backing arrays
// between rebuilds so a warm grid does not allocate. Cell side must be at
// least the largest collision distance so every colliding pair lands in
// the same or adjacent cells.
package broadphase

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// forward holds the half of the 8-neighborhood visited from each cell, so
// that every unordered pair of adjacent cells is seen exactly once.
var forward = [4][2]int{
	{1, 0},
	{-1, 1},
	{0, 1},
	{1, 1},
}

// MaxSide bounds the number of columns and rows. When extent/cellSize
// exceeds it the cells grow instead, which keeps every colliding pair in
// the same or adjacent cells at the price of larger buckets.
const MaxSide = 512

// Grid maps cell coordinates to the indices of the points inside them.
type Grid struct {
	min        mgl32.Vec2
	cellSize   float32
	invCell    float32
	cols, rows int
	cells      [][]int32
}

// NewGrid returns a grid covering the square [min, min+extent] with cells of the given side.
func NewGrid(min mgl32.Vec2, extent, cellSize float32) *Grid {
	g := &Grid{}
	g.Reset(min, extent, cellSize)
	return g
}

// Reset changes the covered square or cell size. Buckets are kept when the
// cell count does not grow. cellSize is raised as needed to fit MaxSide.
func (g *Grid) Reset(min mgl32.Vec2, extent, cellSize float32) {
	if !(cellSize*MaxSide >= extent) {
		cellSize = extent / MaxSide
	}
	n := 1
	if cells := math32.Ceil(extent / cellSize); cells > 1 {
		n = int(cells)
	}
	if n > MaxSide {
		n = MaxSide
	}
	g.min = min
	g.cellSize = cellSize
	g.invCell = 1 / cellSize
	g.cols, g.rows = n, n
	if cap(g.cells) < n*n {
		g.cells = make([][]int32, n*n)
	} else {
		g.cells = g.cells[:n*n]
	}
	g.Clear()
}

// CellSize returns the side of one cell.
func (g *Grid) CellSize() float32 { return g.cellSize }

// Dims returns the number of columns and rows.
func (g *Grid) Dims() (cols, rows int) { return g.cols, g.rows }

// Clear empties every bucket without releasing memory.
func (g *Grid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

// Rebuild clears the grid and inserts every position under its slice index.
func (g *Grid) Rebuild(positions []mgl32.Vec2) {
	g.Clear()
	for i, p := range positions {
		g.Insert(p, i)
	}
}

// Insert adds index at position p. Points outside the covered square are
// clamped into the border cells; clamping is monotone, so neighbors stay neighbors.
func (g *Grid) Insert(p mgl32.Vec2, index int) {
	col, row := g.Cell(p)
	idx := row*g.cols + col
	g.cells[idx] = append(g.cells[idx], int32(index))
}

// Cell returns the clamped cell coordinates of p.
func (g *Grid) Cell(p mgl32.Vec2) (col, row int) {
	return g.clamp(g.axis(p[0]-g.min[0]), g.cols), g.clamp(g.axis(p[1]-g.min[1]), g.rows)
}

func (g *Grid) axis(d float32) int {
	f := math32.Floor(d * g.invCell)
	// NaN and huge coordinates end up in the border cells.
	if !(f > -1) {
		return -1
	}
	if f > float32(g.cols+g.rows) {
		return g.cols + g.rows
	}
	return int(f)
}

func (g *Grid) clamp(v, n int) int {
	if v < 0 {
		return 0
	}
	if v >= n {
		return n - 1
	}
	return v
}

// Bucket returns the indices stored in one cell. The slice is owned by the grid.
func (g *Grid) Bucket(col, row int) []int32 {
	if col < 0 || row < 0 || col >= g.cols || row >= g.rows {
		return nil
	}
	return g.cells[row*g.cols+col]
}

// ForEachPair calls fn once for every unordered pair of indices that share a
// cell or sit in adjacent cells. Within a cell, i precedes j in insertion order.
func (g *Grid) ForEachPair(fn func(i, j int)) {
	for row := 0; row < g.rows; row++ {
		for col := 0; col < g.cols; col++ {
			bucket := g.cells[row*g.cols+col]
			if len(bucket) == 0 {
				continue
			}
			for a := 0; a < len(bucket); a++ {
				for b := a + 1; b < len(bucket); b++ {
					fn(int(bucket[a]), int(bucket[b]))
				}
			}
			for _, off := range forward {
				nc, nr := col+off[0], row+off[1]
				if nc < 0 || nc >= g.cols || nr >= g.rows {
					continue
				}
				other := g.cells[nr*g.cols+nc]
				for _, i := range bucket {
					for _, j := range other {
						fn(int(i), int(j))
					}
				}
			}
		}
	}
}

// Query calls fn for every index in the cell containing p and its 8 neighbors.
func (g *Grid) Query(p mgl32.Vec2, fn func(index int)) {
	col, row := g.Cell(p)
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			for _, idx := range g.Bucket(col+dc, row+dr) {
				fn(int(idx))
			}
		}
	}
}

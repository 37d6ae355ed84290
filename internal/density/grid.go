// Package density turns per-frame gaze samples into smoothed 2D density
// grids.
package density

import "math"

// Grid is a row-major float grid
type Grid struct {
	Rows int
	Cols int
	Data []float64
}

// NewGrid allocates a zeroed grid
func NewGrid(rows, cols int) Grid {
	return Grid{Rows: rows, Cols: cols, Data: make([]float64, rows*cols)}
}

// At returns the value at row r, column c
func (g Grid) At(r, c int) float64 {
	return g.Data[r*g.Cols+c]
}

// Set stores v at row r, column c
func (g Grid) Set(r, c int, v float64) {
	g.Data[r*g.Cols+c] = v
}

// Sum returns the total mass of the grid
func (g Grid) Sum() float64 {
	var s float64
	for _, v := range g.Data {
		s += v
	}
	return s
}

// Max returns the largest cell value (0 for an empty grid)
func (g Grid) Max() float64 {
	if len(g.Data) == 0 {
		return 0
	}
	m := g.Data[0]
	for _, v := range g.Data[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// Argmax returns the row and column of the first maximal cell
func (g Grid) Argmax() (int, int) {
	best := 0
	for i, v := range g.Data {
		if v > g.Data[best] {
			best = i
		}
	}
	if g.Cols == 0 {
		return 0, 0
	}
	return best / g.Cols, best % g.Cols
}

// Finite reports whether every cell is neither NaN nor infinite
func (g Grid) Finite() bool {
	for _, v := range g.Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Normalize min-max maps the grid onto [lo, hi]. A constant grid, including
// the all-zero grid of a frame without in-range samples, maps to lo.
func Normalize(g Grid, lo, hi float64) Grid {
	out := NewGrid(g.Rows, g.Cols)
	if len(g.Data) == 0 {
		return out
	}

	minV, maxV := g.Data[0], g.Data[0]
	for _, v := range g.Data {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}

	span := maxV - minV
	if span == 0 || math.IsNaN(span) || math.IsInf(span, 0) {
		for i := range out.Data {
			out.Data[i] = lo
		}
		return out
	}

	scale := (hi - lo) / span
	for i, v := range g.Data {
		out.Data[i] = lo + (v-minV)*scale
	}
	return out
}

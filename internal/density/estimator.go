package density

import "math"

// Point is a normalised position in the unit square
type Point struct {
	X float64
	Y float64
}

// SigmaPolicy selects how the smoothing width is derived
type SigmaPolicy int

const (
	// FixedSigma uses Estimator.Sigma grid cells
	FixedSigma SigmaPolicy = iota
	// DetailSigma uses Estimator.Detail * min(rows, cols) grid cells
	DetailSigma
)

// truncate is the kernel half-width in standard deviations
const truncate = 4.0

// Estimator builds smoothed density grids sized relative to a frame
type Estimator struct {
	// Scale sizes the grid relative to the frame; 0.5 halves each axis
	Scale  float64
	Policy SigmaPolicy
	Sigma  float64
	Detail float64
	// FlipY converts bottom-left origin input to top-left grid rows
	FlipY bool
}

// DefaultEstimator matches the half-resolution, sigma 5 configuration
func DefaultEstimator() Estimator {
	return Estimator{Scale: 0.5, Policy: FixedSigma, Sigma: 5, FlipY: true}
}

// Shape returns the grid rows and columns used for a frame
func (e Estimator) Shape(width, height int) (int, int) {
	scale := e.Scale
	if scale <= 0 {
		scale = 1
	}
	rows := int(float64(height) * scale)
	cols := int(float64(width) * scale)
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}
	return rows, cols
}

// SigmaFor returns the smoothing width in cells for a grid shape
func (e Estimator) SigmaFor(rows, cols int) float64 {
	if e.Policy == DetailSigma {
		return e.Detail * float64(min(rows, cols))
	}
	return e.Sigma
}

// Estimate returns the smoothed, un-normalised density of points for a frame
// of the given pixel size. With no in-range points the grid is all zero.
func (e Estimator) Estimate(points []Point, width, height int) Grid {
	rows, cols := e.Shape(width, height)

	pts := points
	if e.FlipY {
		pts = make([]Point, len(points))
		for i, p := range points {
			pts[i] = Point{X: p.X, Y: 1 - p.Y}
		}
	}

	return Smooth(Histogram(pts, rows, cols), e.SigmaFor(rows, cols))
}

// Histogram bins points over the unit square and scales the counts to a
// probability density. The right and bottom edges are closed; points outside
// [0,1] are ignored.
func Histogram(points []Point, rows, cols int) Grid {
	g := NewGrid(rows, cols)

	var n int
	for _, p := range points {
		r, okR := bin(p.Y, rows)
		c, okC := bin(p.X, cols)
		if !okR || !okC {
			continue
		}
		g.Data[r*cols+c]++
		n++
	}
	if n == 0 {
		return g
	}

	// count / (n * cell area), cell area = 1/(rows*cols)
	scale := float64(rows*cols) / float64(n)
	for i := range g.Data {
		g.Data[i] *= scale
	}
	return g
}

func bin(v float64, n int) (int, bool) {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return 0, false
	}
	i := int(v * float64(n))
	if i >= n {
		i = n - 1
	}
	return i, true
}

// Smooth applies an isotropic gaussian of the given sigma (in cells) with
// reflected borders, so total mass is preserved. sigma <= 0 returns a copy.
func Smooth(g Grid, sigma float64) Grid {
	out := NewGrid(g.Rows, g.Cols)
	if sigma <= 0 || len(g.Data) == 0 {
		copy(out.Data, g.Data)
		return out
	}

	kernel := gaussianKernel(sigma)
	radius := len(kernel) / 2

	// rows pass into tmp, columns pass into out
	tmp := NewGrid(g.Rows, g.Cols)
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			var acc float64
			for k, w := range kernel {
				acc += w * g.Data[r*g.Cols+reflect(c+k-radius, g.Cols)]
			}
			tmp.Data[r*g.Cols+c] = acc
		}
	}
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			var acc float64
			for k, w := range kernel {
				acc += w * tmp.Data[reflect(r+k-radius, g.Rows)*g.Cols+c]
			}
			out.Data[r*g.Cols+c] = acc
		}
	}
	return out
}

// Radius returns the kernel half-width in cells for sigma
func Radius(sigma float64) int {
	return int(truncate*sigma + 0.5)
}

func gaussianKernel(sigma float64) []float64 {
	radius := Radius(sigma)
	kernel := make([]float64, 2*radius+1)

	var sum float64
	for i := range kernel {
		x := float64(i - radius)
		kernel[i] = math.Exp(-(x * x) / (2 * sigma * sigma))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

// reflect folds an out-of-range index back into [0, n) using the
// "d c b a | a b c d | d c b a" convention.
func reflect(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * n
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - i - 1
	}
	return i
}

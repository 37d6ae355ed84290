// Package kinematics derives gaze velocity and per-fixation pupil size from
// eye-tracker exports.
package kinematics

import (
	"math"
	"sort"

	"github.com/kikiluvv/gazemap/internal/gaze"
)

// Spherical is a gaze direction in spherical coordinates
type Spherical struct {
	R     float64
	Theta float64
	Phi   float64
}

// ToSpherical converts a 3D gaze point; theta is measured from the y axis
// and phi in the x-z plane.
func ToSpherical(p gaze.Gaze3D, degrees bool) Spherical {
	r := math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
	s := Spherical{
		R:     r,
		Theta: math.Acos(p.Y / r),
		Phi:   math.Atan2(p.Z, p.X),
	}
	if degrees {
		s.Theta = s.Theta * 180 / math.Pi
		s.Phi = s.Phi * 180 / math.Pi
	}
	return s
}

// VelocitySample is the angular speed between two consecutive samples
type VelocitySample struct {
	// Time is the earlier sample's timestamp relative to the first sample
	Time float64
	// DegPerSec is the angular velocity
	DegPerSec float64
}

// Velocity computes angular gaze velocity between consecutive points. Pairs
// that do not advance in time are skipped.
func Velocity(points []gaze.Gaze3D) []VelocitySample {
	if len(points) < 2 {
		return nil
	}

	t0 := points[0].Timestamp
	out := make([]VelocitySample, 0, len(points)-1)
	prev := ToSpherical(points[0], true)
	for i := 1; i < len(points); i++ {
		cur := ToSpherical(points[i], true)
		dt := points[i].Timestamp - points[i-1].Timestamp
		if dt > 0 {
			dTheta := cur.Theta - prev.Theta
			dPhi := cur.Phi - prev.Phi
			v := math.Sqrt(dTheta*dTheta+dPhi*dPhi) / dt
			if !math.IsNaN(v) {
				out = append(out, VelocitySample{Time: points[i-1].Timestamp - t0, DegPerSec: v})
			}
		}
		prev = cur
	}
	return out
}

// Velocity histogram layout in deg/s
const (
	HistogramMin   = 0.1
	HistogramMax   = 500.0
	HistogramEdges = 50
)

// LogEdges returns n logarithmically spaced bin edges from lo to hi
func LogEdges(lo, hi float64, n int) []float64 {
	if n < 2 {
		return []float64{lo, hi}
	}
	a, b := math.Log10(lo), math.Log10(hi)
	edges := make([]float64, n)
	for i := range edges {
		edges[i] = math.Pow(10, a+(b-a)*float64(i)/float64(n-1))
	}
	edges[n-1] = hi
	return edges
}

// Histogram counts values into the bins delimited by edges. Bins are half
// open except the last, which includes its upper edge; values outside the
// edges are ignored.
func Histogram(values, edges []float64) []int {
	if len(edges) < 2 {
		return nil
	}
	counts := make([]int, len(edges)-1)
	last := edges[len(edges)-1]
	for _, v := range values {
		if v < edges[0] || v > last || math.IsNaN(v) {
			continue
		}
		if v == last {
			counts[len(counts)-1]++
			continue
		}
		// first edge strictly greater than v
		i := sort.SearchFloat64s(edges, v)
		if i < len(edges) && edges[i] == v {
			i++
		}
		counts[i-1]++
	}
	return counts
}

// PupilOptions filters the pupil samples averaged per fixation
type PupilOptions struct {
	MinConfidence float64
	// ExcludeMethod drops samples produced by this detector
	ExcludeMethod string
}

// DefaultPupilOptions keeps 3D-model samples with confidence >= 0.8
func DefaultPupilOptions() PupilOptions {
	return PupilOptions{MinConfidence: 0.8, ExcludeMethod: "2d c++"}
}

// PupilMean is the mean 3D pupil diameter during one fixation; NaN when no
// sample qualified.
type PupilMean struct {
	FixationID int
	Diameter   float64
	Samples    int
}

// PupilByFixation averages diameter_3d over each fixation's time window
// [start, start + duration/1000]. Only the first row of each fixation id is
// used and results are ordered by id.
func PupilByFixation(samples []gaze.PupilSample, timings []gaze.FixationTiming, opts PupilOptions) []PupilMean {
	first := make(map[int]gaze.FixationTiming)
	ids := make([]int, 0)
	for _, ft := range timings {
		if _, seen := first[ft.ID]; seen {
			continue
		}
		first[ft.ID] = ft
		ids = append(ids, ft.ID)
	}
	sort.Ints(ids)

	out := make([]PupilMean, 0, len(ids))
	for _, id := range ids {
		ft := first[id]
		start, end := ft.Start, ft.Start+ft.Duration/1000

		var sum float64
		var n int
		for _, s := range samples {
			if opts.ExcludeMethod != "" && s.Method == opts.ExcludeMethod {
				continue
			}
			if s.Timestamp < start || s.Timestamp > end || s.Confidence < opts.MinConfidence {
				continue
			}
			sum += s.Diameter3D
			n++
		}

		mean := math.NaN()
		if n > 0 {
			mean = sum / float64(n)
		}
		out = append(out, PupilMean{FixationID: id, Diameter: mean, Samples: n})
	}
	return out
}

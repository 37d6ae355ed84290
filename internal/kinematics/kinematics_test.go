package kinematics

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kikiluvv/gazemap/internal/gaze"
)

func TestToSpherical(t *testing.T) {
	s := ToSpherical(gaze.Gaze3D{X: 0, Y: 0, Z: 10}, true)
	assert.InDelta(t, 10, s.R, 1e-12)
	assert.InDelta(t, 90, s.Theta, 1e-9)
	assert.InDelta(t, 90, s.Phi, 1e-9)

	s = ToSpherical(gaze.Gaze3D{X: 1, Y: 1, Z: 0}, false)
	assert.InDelta(t, math.Sqrt2, s.R, 1e-12)
	assert.InDelta(t, math.Pi/4, s.Theta, 1e-12)
	assert.InDelta(t, 0, s.Phi, 1e-12)
}

func TestVelocity(t *testing.T) {
	points := []gaze.Gaze3D{
		{Timestamp: 10.0, X: 0, Y: 0, Z: 1},
		{Timestamp: 10.5, X: 1, Y: 0, Z: 1},
		// duplicate timestamp is skipped
		{Timestamp: 10.5, X: 1, Y: 0, Z: 1},
		{Timestamp: 11.5, X: 1, Y: 0, Z: 1},
	}

	v := Velocity(points)
	require.Len(t, v, 2)

	// phi goes from 90 to 45 degrees in half a second
	assert.InDelta(t, 0, v[0].Time, 1e-12)
	assert.InDelta(t, 90, v[0].DegPerSec, 1e-9)

	assert.InDelta(t, 0.5, v[1].Time, 1e-12)
	assert.InDelta(t, 0, v[1].DegPerSec, 1e-9)

	assert.Nil(t, Velocity(points[:1]))
}

func TestLogEdges(t *testing.T) {
	edges := LogEdges(HistogramMin, HistogramMax, HistogramEdges)
	require.Len(t, edges, 50)
	assert.InDelta(t, 0.1, edges[0], 1e-12)
	assert.Equal(t, 500.0, edges[49])
	for i := 1; i < len(edges); i++ {
		assert.Greater(t, edges[i], edges[i-1])
	}
}

func TestHistogram(t *testing.T) {
	edges := []float64{1, 10, 100}
	counts := Histogram([]float64{0.5, 1, 5, 10, 99, 100, 101, math.NaN()}, edges)
	assert.Equal(t, []int{2, 3}, counts)
}

func TestPupilByFixation(t *testing.T) {
	samples := []gaze.PupilSample{
		{Timestamp: 1.00, Diameter3D: 3.0, Confidence: 0.9, Method: "pye3d"},
		{Timestamp: 1.10, Diameter3D: 5.0, Confidence: 0.95, Method: "pye3d"},
		{Timestamp: 1.15, Diameter3D: 9.0, Confidence: 0.5, Method: "pye3d"},
		{Timestamp: 1.12, Diameter3D: 9.0, Confidence: 0.99, Method: "2d c++"},
		{Timestamp: 1.30, Diameter3D: 7.0, Confidence: 0.85, Method: "pye3d"},
	}
	timings := []gaze.FixationTiming{
		{ID: 4, Start: 5.0, Duration: 100},
		{ID: 2, Start: 1.0, Duration: 200},
		// later rows of the same id are ignored
		{ID: 2, Start: 1.3, Duration: 100},
	}

	means := PupilByFixation(samples, timings, DefaultPupilOptions())
	require.Len(t, means, 2)

	assert.Equal(t, 2, means[0].FixationID)
	assert.InDelta(t, 4.0, means[0].Diameter, 1e-12)
	assert.Equal(t, 2, means[0].Samples)

	assert.Equal(t, 4, means[1].FixationID)
	assert.True(t, math.IsNaN(means[1].Diameter))
	assert.Zero(t, means[1].Samples)
}

func TestWritePupilLeavesNaNEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePupil(&buf, []PupilMean{
		{FixationID: 1, Diameter: 3.5, Samples: 4},
		{FixationID: 2, Diameter: math.NaN()},
	}))
	assert.Equal(t, "fixation_id,diameter_3d,samples\n1,3.5,4\n2,,0\n", buf.String())
}

func TestWriteHistogramRejectsMismatch(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, WriteHistogram(&buf, []float64{1, 2}, []int{1, 2}))
}

func TestSaveVelocityReport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	paths, err := SaveVelocityReport(dir, []VelocitySample{{Time: 0, DegPerSec: 12.5}, {Time: 0.1, DegPerSec: 1000}})
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, VelocityFile), filepath.Join(dir, VelocityHistogramFile)}, paths)

	series, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Equal(t, "time,deg_per_sec\n0,12.5\n0.1,1000\n", string(series))

	hist, err := os.ReadFile(paths[1])
	require.NoError(t, err)
	// header plus 49 bins
	assert.Equal(t, 50, bytes.Count(hist, []byte("\n")))
}

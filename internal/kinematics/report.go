package kinematics

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/kikiluvv/gazemap/pkg/util"
)

// Output file names
const (
	VelocityFile          = "gaze_velocity.csv"
	VelocityHistogramFile = "gaze_velocity_histogram.csv"
	PupilFile             = "pupil_diameter.csv"
)

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteVelocity writes time,deg_per_sec rows
func WriteVelocity(w io.Writer, samples []VelocitySample) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "deg_per_sec"}); err != nil {
		return err
	}
	for _, s := range samples {
		if err := cw.Write([]string{formatFloat(s.Time), formatFloat(s.DegPerSec)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteHistogram writes one lower,upper,count row per bin
func WriteHistogram(w io.Writer, edges []float64, counts []int) error {
	if len(counts) != len(edges)-1 {
		return fmt.Errorf("histogram has %d counts for %d edges", len(counts), len(edges))
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"lower", "upper", "count"}); err != nil {
		return err
	}
	for i, c := range counts {
		if err := cw.Write([]string{formatFloat(edges[i]), formatFloat(edges[i+1]), strconv.Itoa(c)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WritePupil writes fixation_id,diameter_3d,samples rows. A fixation with
// no qualifying samples has an empty diameter cell.
func WritePupil(w io.Writer, means []PupilMean) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"fixation_id", "diameter_3d", "samples"}); err != nil {
		return err
	}
	for _, m := range means {
		if err := cw.Write([]string{strconv.Itoa(m.FixationID), formatFloat(m.Diameter), strconv.Itoa(m.Samples)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveVelocityReport writes the velocity series and histogram into dir and
// returns the paths written.
func SaveVelocityReport(dir string, samples []VelocitySample) ([]string, error) {
	if err := util.EnsureDir(dir); err != nil {
		return nil, err
	}

	values := make([]float64, len(samples))
	for i, s := range samples {
		values[i] = s.DegPerSec
	}
	edges := LogEdges(HistogramMin, HistogramMax, HistogramEdges)
	counts := Histogram(values, edges)

	series := filepath.Join(dir, VelocityFile)
	if err := writeFile(series, func(w io.Writer) error { return WriteVelocity(w, samples) }); err != nil {
		return nil, err
	}
	hist := filepath.Join(dir, VelocityHistogramFile)
	if err := writeFile(hist, func(w io.Writer) error { return WriteHistogram(w, edges, counts) }); err != nil {
		return []string{series}, err
	}
	return []string{series, hist}, nil
}

// SavePupilReport writes per-fixation pupil means to path
func SavePupilReport(path string, means []PupilMean) error {
	if err := util.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	return writeFile(path, func(w io.Writer) error { return WritePupil(w, means) })
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

package gaze

import "io"

// Required columns for the kinematics tables
var (
	Gaze3DColumns         = []string{"gaze_timestamp", "gaze_point_3d_x", "gaze_point_3d_y", "gaze_point_3d_z"}
	PupilColumns          = []string{"pupil_timestamp", "diameter_3d", "confidence"}
	FixationTimingColumns = []string{"id", "start_timestamp", "duration"}
)

// Gaze3D is a gaze point in eye-camera space (mm) at a timestamp (seconds)
type Gaze3D struct {
	Timestamp float64
	X, Y, Z   float64
}

// PupilSample is one pupil measurement
type PupilSample struct {
	Timestamp  float64
	Diameter3D float64
	Confidence float64
	Method     string
}

// FixationTiming places a fixation in time; Duration is in milliseconds
type FixationTiming struct {
	ID       int
	Start    float64
	Duration float64
}

// LoadGaze3D reads 3D gaze points. Rows with an empty required cell are
// skipped and negative depths are mirrored to positive.
func LoadGaze3D(path string) ([]Gaze3D, error) {
	var out []Gaze3D
	err := loadFile(path, func(r io.Reader, name string) error {
		var err error
		out, err = ReadGaze3D(r, name)
		return err
	})
	return out, err
}

// ReadGaze3D parses 3D gaze points; see LoadGaze3D
func ReadGaze3D(r io.Reader, name string) ([]Gaze3D, error) {
	var points []Gaze3D
	err := readTable(r, name, Gaze3DColumns, func(rec row) error {
		for _, col := range Gaze3DColumns {
			if !rec.has(col) {
				return nil
			}
		}
		var (
			p   Gaze3D
			err error
		)
		if p.Timestamp, err = rec.float("gaze_timestamp"); err != nil {
			return err
		}
		if p.X, err = rec.float("gaze_point_3d_x"); err != nil {
			return err
		}
		if p.Y, err = rec.float("gaze_point_3d_y"); err != nil {
			return err
		}
		if p.Z, err = rec.float("gaze_point_3d_z"); err != nil {
			return err
		}
		if p.Z < 0 {
			p.Z = -p.Z
		}
		points = append(points, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return points, nil
}

// LoadPupil reads pupil positions; the method column is optional
func LoadPupil(path string) ([]PupilSample, error) {
	var out []PupilSample
	err := loadFile(path, func(r io.Reader, name string) error {
		var err error
		out, err = ReadPupil(r, name)
		return err
	})
	return out, err
}

// ReadPupil parses pupil samples. Rows without a diameter are skipped.
func ReadPupil(r io.Reader, name string) ([]PupilSample, error) {
	var samples []PupilSample
	err := readTable(r, name, PupilColumns, func(rec row) error {
		if !rec.has("diameter_3d") {
			return nil
		}
		var (
			s   PupilSample
			err error
		)
		if s.Timestamp, err = rec.float("pupil_timestamp"); err != nil {
			return err
		}
		if s.Diameter3D, err = rec.float("diameter_3d"); err != nil {
			return err
		}
		if s.Confidence, err = rec.float("confidence"); err != nil {
			return err
		}
		s.Method = rec.raw("method")
		samples = append(samples, s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return samples, nil
}

// LoadFixationTimings reads fixation ids with start timestamps and durations
func LoadFixationTimings(path string) ([]FixationTiming, error) {
	var out []FixationTiming
	err := loadFile(path, func(r io.Reader, name string) error {
		var err error
		out, err = ReadFixationTimings(r, name)
		return err
	})
	return out, err
}

// ReadFixationTimings parses fixation timings in file order
func ReadFixationTimings(r io.Reader, name string) ([]FixationTiming, error) {
	var timings []FixationTiming
	err := readTable(r, name, FixationTimingColumns, func(rec row) error {
		if !rec.has("id") {
			return nil
		}
		var (
			ft  FixationTiming
			err error
		)
		if ft.ID, err = rec.int("id"); err != nil {
			return err
		}
		if ft.Start, err = rec.float("start_timestamp"); err != nil {
			return err
		}
		if ft.Duration, err = rec.float("duration"); err != nil {
			return err
		}
		timings = append(timings, ft)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return timings, nil
}

package gaze

import "io"

// Required columns per table
var (
	SampleColumns   = []string{"world_index", "norm_pos_x", "norm_pos_y"}
	FixationColumns = []string{"start_frame_index", "end_frame_index", "norm_pos_x", "norm_pos_y", "id"}
)

// Sample is one gaze position. WorldIndex is the frame index assigned by the
// eye-tracker export; X and Y are normalised with a bottom-left origin.
type Sample struct {
	WorldIndex int
	X          float64
	Y          float64
}

// Fixation is a sustained gaze event spanning StartFrame..EndFrame inclusive
type Fixation struct {
	ID         int
	StartFrame int
	EndFrame   int
	X          float64
	Y          float64
}

// ActiveAt reports whether the fixation covers the table index
func (f Fixation) ActiveAt(index int) bool {
	return f.StartFrame <= index && index <= f.EndFrame
}

// LoadSamples reads a gaze positions export
func LoadSamples(path string) ([]Sample, error) {
	var out []Sample
	err := loadFile(path, func(r io.Reader, name string) error {
		var err error
		out, err = ReadSamples(r, name)
		return err
	})
	return out, err
}

// ReadSamples parses gaze samples; name labels errors. Rows without a
// world_index are skipped and blank coordinates read as NaN.
func ReadSamples(r io.Reader, name string) ([]Sample, error) {
	var samples []Sample
	err := readTable(r, name, SampleColumns, func(rec row) error {
		if !rec.has("world_index") {
			return nil
		}
		idx, err := rec.int("world_index")
		if err != nil {
			return err
		}
		x, err := rec.float("norm_pos_x")
		if err != nil {
			return err
		}
		y, err := rec.float("norm_pos_y")
		if err != nil {
			return err
		}
		samples = append(samples, Sample{WorldIndex: idx, X: x, Y: y})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return samples, nil
}

// LoadFixations reads a fixations export
func LoadFixations(path string) ([]Fixation, error) {
	var out []Fixation
	err := loadFile(path, func(r io.Reader, name string) error {
		var err error
		out, err = ReadFixations(r, name)
		return err
	})
	return out, err
}

// ReadFixations parses fixation events; name labels errors. Rows missing a
// frame index or id are skipped.
func ReadFixations(r io.Reader, name string) ([]Fixation, error) {
	var fixations []Fixation
	err := readTable(r, name, FixationColumns, func(rec row) error {
		if !rec.has("start_frame_index") || !rec.has("end_frame_index") || !rec.has("id") {
			return nil
		}
		var (
			fx  Fixation
			err error
		)
		if fx.StartFrame, err = rec.int("start_frame_index"); err != nil {
			return err
		}
		if fx.EndFrame, err = rec.int("end_frame_index"); err != nil {
			return err
		}
		if fx.X, err = rec.float("norm_pos_x"); err != nil {
			return err
		}
		if fx.Y, err = rec.float("norm_pos_y"); err != nil {
			return err
		}
		if fx.ID, err = rec.int("id"); err != nil {
			return err
		}
		fixations = append(fixations, fx)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fixations, nil
}

package gaze

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSamples(t *testing.T) {
	data := `gaze_timestamp,world_index,confidence,norm_pos_x,norm_pos_y
1.0,12,0.9,0.25,0.75
1.1,12,0.9,0.30,0.70
1.2,13.0,0.8,1.5,-0.2
`
	samples, err := ReadSamples(strings.NewReader(data), "gaze.csv")
	require.NoError(t, err)

	assert.Equal(t, []Sample{
		{WorldIndex: 12, X: 0.25, Y: 0.75},
		{WorldIndex: 12, X: 0.30, Y: 0.70},
		// out-of-range values pass through
		{WorldIndex: 13, X: 1.5, Y: -0.2},
	}, samples)
}

func TestReadSamplesMissingColumn(t *testing.T) {
	data := "world_index,norm_pos_x\n1,0.5\n"
	_, err := ReadSamples(strings.NewReader(data), "gaze.csv")

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr), "got %v", err)
	assert.Equal(t, []string{"norm_pos_y"}, schemaErr.Missing)
	assert.Contains(t, err.Error(), "norm_pos_y")
}

func TestReadSamplesEmptyInputIsSchemaError(t *testing.T) {
	_, err := ReadSamples(strings.NewReader(""), "empty.csv")

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, SampleColumns, schemaErr.Missing)
}

func TestReadSamplesBadCell(t *testing.T) {
	data := "world_index,norm_pos_x,norm_pos_y\n1,0.5,0.5\n2.5,0.1,0.1\n"
	_, err := ReadSamples(strings.NewReader(data), "gaze.csv")

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr), "got %v", err)
	assert.Equal(t, "world_index", parseErr.Column)
	assert.Equal(t, 3, parseErr.Line)
}

func TestReadSamplesBlankCells(t *testing.T) {
	data := "world_index,norm_pos_x,norm_pos_y\n1,0.5,0.5\n2,,0.4\n,0.1,0.1\n3,nan,NaN\n"
	samples, err := ReadSamples(strings.NewReader(data), "g.csv")
	require.NoError(t, err)

	require.Len(t, samples, 3)
	assert.Equal(t, Sample{WorldIndex: 1, X: 0.5, Y: 0.5}, samples[0])
	assert.Equal(t, 2, samples[1].WorldIndex)
	assert.True(t, math.IsNaN(samples[1].X))
	assert.Equal(t, 0.4, samples[1].Y)
	assert.Equal(t, 3, samples[2].WorldIndex)
	assert.True(t, math.IsNaN(samples[2].X))
	assert.True(t, math.IsNaN(samples[2].Y))
}

func TestReadFixationsSkipsBlankIndices(t *testing.T) {
	data := `id,start_frame_index,end_frame_index,norm_pos_x,norm_pos_y
1,10,12,0.5,0.5
2,,14,0.5,0.5
,15,16,0.5,0.5
4,20,22,,0.3
`
	fixations, err := ReadFixations(strings.NewReader(data), "fixations.csv")
	require.NoError(t, err)

	require.Len(t, fixations, 2)
	assert.Equal(t, 1, fixations[0].ID)
	assert.Equal(t, 4, fixations[1].ID)
	assert.True(t, math.IsNaN(fixations[1].X))
}

func TestReadFixations(t *testing.T) {
	data := `id,start_timestamp,duration,start_frame_index,end_frame_index,norm_pos_x,norm_pos_y
7,10.0,250,2,4,0.5,0.25
8,10.3,120,6,5,0.1,0.9
`
	fixations, err := ReadFixations(strings.NewReader(data), "fixations.csv")
	require.NoError(t, err)
	require.Len(t, fixations, 2)

	assert.Equal(t, Fixation{ID: 7, StartFrame: 2, EndFrame: 4, X: 0.5, Y: 0.25}, fixations[0])
	assert.True(t, fixations[0].ActiveAt(2))
	assert.True(t, fixations[0].ActiveAt(4))
	assert.False(t, fixations[0].ActiveAt(5))
	// start > end is kept and simply never active
	assert.False(t, fixations[1].ActiveAt(5))
}

func TestReadFixationsReportsAllMissing(t *testing.T) {
	_, err := ReadFixations(strings.NewReader("id,norm_pos_x\n"), "fixations.csv")

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, []string{"start_frame_index", "end_frame_index", "norm_pos_y"}, schemaErr.Missing)
}

func TestLoadSamplesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gaze_positions.csv")
	require.NoError(t, os.WriteFile(path, []byte("\ufeffworld_index,norm_pos_x,norm_pos_y\n5,0.1,0.2\n"), 0644))

	samples, err := LoadSamples(path)
	require.NoError(t, err)
	assert.Equal(t, []Sample{{WorldIndex: 5, X: 0.1, Y: 0.2}}, samples)

	_, err = LoadSamples(filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadGaze3DDropsIncompleteRowsAndMirrorsDepth(t *testing.T) {
	data := `gaze_timestamp,gaze_point_3d_x,gaze_point_3d_y,gaze_point_3d_z
0.0,1,2,-300
0.1,1,,300
0.2,2,3,NaN
0.3,3,4,250
`
	points, err := ReadGaze3D(strings.NewReader(data), "gaze.csv")
	require.NoError(t, err)
	assert.Equal(t, []Gaze3D{
		{Timestamp: 0.0, X: 1, Y: 2, Z: 300},
		{Timestamp: 0.3, X: 3, Y: 4, Z: 250},
	}, points)
}

func TestReadPupilAndTimings(t *testing.T) {
	pupil := `pupil_timestamp,method,diameter_3d,confidence
1.0,pye3d 0.3.0 real-time,3.1,0.95
1.1,2d c++,,0.99
`
	samples, err := ReadPupil(strings.NewReader(pupil), "pupil.csv")
	require.NoError(t, err)
	assert.Equal(t, []PupilSample{{Timestamp: 1.0, Diameter3D: 3.1, Confidence: 0.95, Method: "pye3d 0.3.0 real-time"}}, samples)

	timings, err := ReadFixationTimings(strings.NewReader("id,start_timestamp,duration\n1,1.0,200\n"), "fixations.csv")
	require.NoError(t, err)
	assert.Equal(t, []FixationTiming{{ID: 1, Start: 1.0, Duration: 200}}, timings)
}

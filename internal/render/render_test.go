package render

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kikiluvv/gazemap/internal/density"
	"github.com/kikiluvv/gazemap/internal/gaze"
	"github.com/kikiluvv/gazemap/internal/video"
	"github.com/kikiluvv/gazemap/internal/video/videotest"
)

func TestPalettes(t *testing.T) {
	reg := NewRegistry()
	assert.Equal(t, []string{"gray", "hot", "jet"}, reg.List())

	jet, ok := reg.Get(Jet)
	require.True(t, ok)
	assert.Equal(t, color.RGBA{B: 128, A: 255}, jet.Color(0))
	assert.Equal(t, color.RGBA{R: 128, A: 255}, jet.Color(255))

	hot, _ := reg.Get(Hot)
	assert.Equal(t, color.RGBA{A: 255}, hot.Color(0))
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, hot.Color(255))

	gray, _ := reg.Get(Gray)
	assert.Equal(t, color.RGBA{R: 100, G: 100, B: 100, A: 255}, gray.Color(100))

	_, err := Lookup("viridis")
	assert.ErrorContains(t, err, "viridis")
}

func TestParseHexColor(t *testing.T) {
	c, err := ParseHexColor("#FF8000")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 255, G: 128, A: 255}, c)

	c, err = ParseHexColor("00ff00")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{G: 255, A: 255}, c)

	_, err = ParseHexColor("#F00")
	assert.Error(t, err)
	_, err = ParseHexColor("#GGGGGG")
	assert.Error(t, err)
}

func TestCompositeBlendsAndKeepsInput(t *testing.T) {
	frame := videotest.SolidFrames(1, 8, 6, color.RGBA{R: 100, G: 100, B: 100, A: 255})[0]
	before := frame.Clone()

	grid := density.Normalize(density.DefaultEstimator().Estimate(nil, 8, 6), 0, 255)
	out := NewHeatmapOverlay().Composite(frame, grid)

	assert.True(t, frame.Equal(before), "input frame was modified")
	assert.Equal(t, 8, out.Width())
	assert.Equal(t, 6, out.Height())

	// 0.7*100 + 0.3*jet(0)
	assert.Equal(t, color.RGBA{R: 70, G: 70, B: 108, A: 255}, out.Image.RGBAAt(3, 2))
	assert.Equal(t, color.RGBA{R: 70, G: 70, B: 108, A: 255}, out.Image.RGBAAt(7, 5))
}

func TestCompositeSaturates(t *testing.T) {
	frame := videotest.SolidFrames(1, 4, 4, color.RGBA{R: 250, G: 250, B: 250, A: 255})[0]
	p, _ := Lookup(Hot)
	overlay := HeatmapOverlay{Palette: p, FrameWeight: 1, HeatWeight: 1}

	grid := density.Grid{Rows: 4, Cols: 4, Data: make([]float64, 16)}
	for i := range grid.Data {
		grid.Data[i] = 255
	}
	out := overlay.Composite(frame, grid)
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, out.Image.RGBAAt(0, 0))
}

func TestCompositeUpsamplesCoarseGrid(t *testing.T) {
	frame := video.NewFrame(0, 16, 12)
	grid := density.Grid{Rows: 6, Cols: 8, Data: make([]float64, 48)}
	grid.Set(3, 4, 255)

	out := NewHeatmapOverlay().Composite(frame, grid)
	require.Equal(t, image.Rect(0, 0, 16, 12), out.Image.Bounds())

	corner := out.Image.RGBAAt(0, 0)
	center := out.Image.RGBAAt(9, 7)
	assert.NotEqual(t, corner, center)
	assert.Greater(t, center.R, corner.R)
}

func TestColorizeLevels(t *testing.T) {
	p, _ := Lookup(Gray)
	img := HeatmapOverlay{Palette: p}.Colorize(density.Grid{Rows: 1, Cols: 3, Data: []float64{-1, 127.9, 300}})
	assert.Equal(t, uint8(0), img.RGBAAt(0, 0).R)
	assert.Equal(t, uint8(127), img.RGBAAt(1, 0).R)
	assert.Equal(t, uint8(255), img.RGBAAt(2, 0).R)
}

func TestMarkerDraw(t *testing.T) {
	frame := video.NewFrame(3, 100, 80)
	before := frame.Clone()

	m := NewMarkerRenderer()
	out := m.Draw(frame, []gaze.Fixation{{ID: 7, X: 0.5, Y: 0.25}})

	assert.True(t, frame.Equal(before), "input frame was modified")
	assert.Equal(t, 3, out.Index)

	red := color.RGBA{R: 255, A: 255}
	assert.Equal(t, red, out.Image.RGBAAt(50, 20))
	assert.Equal(t, red, out.Image.RGBAAt(60, 20))
	assert.Equal(t, red, out.Image.RGBAAt(50, 30))
	assert.Equal(t, color.RGBA{A: 255}, out.Image.RGBAAt(61, 20))
	assert.Equal(t, color.RGBA{A: 255}, out.Image.RGBAAt(0, 79))

	// label baseline sits at (55, 15)
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	found := false
	for y := 4; y <= 17 && !found; y++ {
		for x := 55; x <= 62; x++ {
			if out.Image.RGBAAt(x, y) == white {
				found = true
				break
			}
		}
	}
	assert.True(t, found, "no label pixels drawn")
}

func TestMarkerDrawNoFixationsIsIdentical(t *testing.T) {
	frame := videotest.SolidFrames(1, 10, 10, color.RGBA{G: 40, A: 255})[0]
	out := NewMarkerRenderer().Draw(frame, nil)
	assert.True(t, out.Equal(frame))
	assert.NotSame(t, frame.Image, out.Image)
}

func TestMarkerDrawSkipsMissingPosition(t *testing.T) {
	frame := videotest.SolidFrames(1, 10, 10, color.RGBA{G: 40, A: 255})[0]
	out := NewMarkerRenderer().Draw(frame, []gaze.Fixation{
		{ID: 1, X: math.NaN(), Y: 0.5},
		{ID: 2, X: 0.5, Y: math.NaN()},
	})
	assert.True(t, out.Equal(frame))
}

func TestMarkerClipsAtBorder(t *testing.T) {
	frame := video.NewFrame(0, 20, 20)
	out := NewMarkerRenderer().Draw(frame, []gaze.Fixation{{ID: 1, X: 0, Y: 0}, {ID: 2, X: 1.2, Y: -0.5}})
	assert.Equal(t, color.RGBA{R: 255, A: 255}, out.Image.RGBAAt(0, 0))
}

func TestMarkerPosition(t *testing.T) {
	m := NewMarkerRenderer()
	assert.Equal(t, image.Pt(50, 20), m.Position(0.5, 0.25, 100, 80))

	m.FlipY = true
	assert.Equal(t, image.Pt(50, 60), m.Position(0.5, 0.25, 100, 80))
}

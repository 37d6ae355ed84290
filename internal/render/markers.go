package render

import (
	"image"
	"image/color"
	"math"
	"strconv"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/kikiluvv/gazemap/internal/gaze"
	"github.com/kikiluvv/gazemap/internal/video"
)

// MarkerRenderer draws a filled disc and the fixation id for each fixation
type MarkerRenderer struct {
	Radius     int
	Fill       color.RGBA
	Text       color.RGBA
	TextOffset image.Point
	// FlipY treats y as bottom-left origin
	FlipY bool
	Face  font.Face
}

// NewMarkerRenderer returns red radius-10 discs with white labels
func NewMarkerRenderer() MarkerRenderer {
	return MarkerRenderer{
		Radius:     10,
		Fill:       color.RGBA{R: 255, A: 255},
		Text:       color.RGBA{R: 255, G: 255, B: 255, A: 255},
		TextOffset: image.Pt(5, -5),
		Face:       basicfont.Face7x13,
	}
}

// Position converts a normalised location to pixel coordinates
func (m MarkerRenderer) Position(x, y float64, width, height int) image.Point {
	if m.FlipY {
		y = 1 - y
	}
	return image.Pt(int(x*float64(width)), int(y*float64(height)))
}

// Draw returns a copy of frame with one marker per fixation, drawn in order
// so later markers cover earlier ones. Fixations without a position are
// skipped.
func (m MarkerRenderer) Draw(frame video.Frame, fixations []gaze.Fixation) video.Frame {
	out := frame.Clone()
	face := m.Face
	if face == nil {
		face = basicfont.Face7x13
	}

	for _, f := range fixations {
		if math.IsNaN(f.X) || math.IsNaN(f.Y) {
			continue
		}
		p := m.Position(f.X, f.Y, out.Width(), out.Height())
		fillDisc(out.Image, p, m.Radius, m.Fill)

		d := font.Drawer{
			Dst:  out.Image,
			Src:  image.NewUniform(m.Text),
			Face: face,
			Dot:  fixed.P(p.X+m.TextOffset.X, p.Y+m.TextOffset.Y),
		}
		d.DrawString(strconv.Itoa(f.ID))
	}
	return out
}

func fillDisc(img *image.RGBA, center image.Point, radius int, c color.RGBA) {
	bounds := img.Bounds()
	r2 := radius * radius
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy > r2 {
				continue
			}
			p := image.Pt(center.X+dx, center.Y+dy)
			if p.In(bounds) {
				img.SetRGBA(p.X, p.Y, c)
			}
		}
	}
}

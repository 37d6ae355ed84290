package render

import (
	"image"
	"image/draw"
	"math"

	"github.com/nfnt/resize"

	"github.com/kikiluvv/gazemap/internal/density"
	"github.com/kikiluvv/gazemap/internal/video"
)

// HeatmapOverlay blends a colourised density grid over a frame
type HeatmapOverlay struct {
	Palette     Palette
	FrameWeight float64
	HeatWeight  float64
}

// NewHeatmapOverlay returns the 0.7/0.3 jet overlay
func NewHeatmapOverlay() HeatmapOverlay {
	p, _ := NewRegistry().Get(Jet)
	return HeatmapOverlay{Palette: p, FrameWeight: 0.7, HeatWeight: 0.3}
}

// Composite returns a new frame; norm must already be scaled to 0..255.
// The input frame is not modified.
func (h HeatmapOverlay) Composite(frame video.Frame, norm density.Grid) video.Frame {
	w, hgt := frame.Width(), frame.Height()
	heat := h.Colorize(norm)
	if heat.Bounds().Dx() != w || heat.Bounds().Dy() != hgt {
		heat = toRGBA(resize.Resize(uint(w), uint(hgt), heat, resize.Bilinear))
	}

	out := video.NewFrame(frame.Index, w, hgt)
	src := frame.Image
	for y := 0; y < hgt; y++ {
		so := src.PixOffset(src.Rect.Min.X, src.Rect.Min.Y+y)
		ho := heat.PixOffset(heat.Rect.Min.X, heat.Rect.Min.Y+y)
		oo := out.Image.PixOffset(0, y)
		for x := 0; x < w; x++ {
			for c := 0; c < 3; c++ {
				out.Image.Pix[oo+c] = saturate(h.FrameWeight*float64(src.Pix[so+c]) + h.HeatWeight*float64(heat.Pix[ho+c]))
			}
			out.Image.Pix[oo+3] = 255
			so += 4
			ho += 4
			oo += 4
		}
	}
	return out
}

// Colorize maps each grid cell to a palette colour at grid resolution
func (h HeatmapOverlay) Colorize(norm density.Grid) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, norm.Cols, norm.Rows))
	for r := 0; r < norm.Rows; r++ {
		for c := 0; c < norm.Cols; c++ {
			img.SetRGBA(c, r, h.Palette.Color(level(norm.At(r, c))))
		}
	}
	return img
}

// level truncates like a uint8 cast of the normalised value
func level(v float64) uint8 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}

func saturate(v float64) uint8 {
	v = math.Round(v)
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

// Package video defines the frame model and the source/sink contracts the
// compositing pipeline streams through.
package video

import (
	"bytes"
	"fmt"
	"image"
)

// Frame is one decoded raster image identified by its zero-based position in
// decode order. Image is treated as immutable once the frame leaves its
// source; compositors work on a Clone.
type Frame struct {
	Index int
	Image *image.RGBA
}

// NewFrame allocates an opaque black frame
func NewFrame(index, width, height int) Frame {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	return Frame{Index: index, Image: img}
}

// FromRGB24 builds a frame from packed rgb24 pixels
func FromRGB24(index, width, height int, pix []byte) (Frame, error) {
	if len(pix) != width*height*3 {
		return Frame{}, fmt.Errorf("rgb24 buffer is %d bytes, want %d for %dx%d", len(pix), width*height*3, width, height)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i, j := 0, 0; i < len(pix); i, j = i+3, j+4 {
		img.Pix[j] = pix[i]
		img.Pix[j+1] = pix[i+1]
		img.Pix[j+2] = pix[i+2]
		img.Pix[j+3] = 0xff
	}
	return Frame{Index: index, Image: img}, nil
}

// RGB24 packs the frame into rgb24 bytes, dropping alpha
func (f Frame) RGB24() []byte {
	w, h := f.Width(), f.Height()
	out := make([]byte, 0, w*h*3)
	for y := 0; y < h; y++ {
		row := f.Image.Pix[y*f.Image.Stride : y*f.Image.Stride+w*4]
		for x := 0; x < len(row); x += 4 {
			out = append(out, row[x], row[x+1], row[x+2])
		}
	}
	return out
}

// Width returns the frame width in pixels
func (f Frame) Width() int {
	return f.Image.Bounds().Dx()
}

// Height returns the frame height in pixels
func (f Frame) Height() int {
	return f.Image.Bounds().Dy()
}

// Clone returns a deep copy with its own tightly packed pixel buffer. The
// source may be a sub-image with a wider stride.
func (f Frame) Clone() Frame {
	img := image.NewRGBA(f.Image.Rect)
	rowBytes := f.Width() * 4
	for y := 0; y < f.Height(); y++ {
		copy(img.Pix[y*img.Stride:y*img.Stride+rowBytes], f.Image.Pix[y*f.Image.Stride:])
	}
	return Frame{Index: f.Index, Image: img}
}

// Equal reports whether both frames hold identical pixels
func (f Frame) Equal(other Frame) bool {
	if f.Image == nil || other.Image == nil {
		return f.Image == other.Image
	}
	if f.Image.Rect != other.Image.Rect {
		return false
	}
	return bytes.Equal(f.RGB24(), other.RGB24())
}

package ffmpeg

import "strings"

// FilterBuilder helps construct ffmpeg filter chains
type FilterBuilder struct {
	filters []string
}

// NewFilterBuilder creates a new filter builder
func NewFilterBuilder() *FilterBuilder {
	return &FilterBuilder{
		filters: make([]string, 0),
	}
}

// Format adds a pixel format conversion
func (fb *FilterBuilder) Format(pixFmt string) *FilterBuilder {
	if pixFmt == "" {
		return fb
	}
	fb.filters = append(fb.filters, "format="+pixFmt)
	return fb
}

// Build returns the complete filter string joined with commas
func (fb *FilterBuilder) Build() string {
	if len(fb.filters) == 0 {
		return ""
	}
	return strings.Join(fb.filters, ",")
}

// PixelFormat picks the output chroma layout for a frame size. 4:2:0 needs
// even dimensions, so odd sizes fall back to 4:4:4 rather than being cropped.
func PixelFormat(width, height int) string {
	if width%2 == 0 && height%2 == 0 {
		return "yuv420p"
	}
	return "yuv444p"
}

// Package render composites heatmaps and fixation markers onto frames.
package render

import (
	"fmt"
	"image/color"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Palette maps a display level to a colour
type Palette struct {
	Name string
	lut  [256]color.RGBA
}

// NewPalette builds a lookup table from fn, which receives x in [0,1] and
// returns channel intensities in [0,1].
func NewPalette(name string, fn func(x float64) (r, g, b float64)) Palette {
	p := Palette{Name: name}
	for i := range p.lut {
		r, g, b := fn(float64(i) / 255)
		p.lut[i] = color.RGBA{R: unit(r), G: unit(g), B: unit(b), A: 255}
	}
	return p
}

// Color returns the colour for level v
func (p Palette) Color(v uint8) color.RGBA {
	return p.lut[v]
}

// Available palettes
const (
	Jet  = "jet"
	Hot  = "hot"
	Gray = "gray"
)

// Registry manages available palettes
type Registry struct {
	palettes map[string]Palette
}

// NewRegistry creates a registry holding the built-in palettes
func NewRegistry() *Registry {
	r := &Registry{palettes: make(map[string]Palette)}
	r.Register(NewPalette(Jet, jet))
	r.Register(NewPalette(Hot, hot))
	r.Register(NewPalette(Gray, func(x float64) (float64, float64, float64) { return x, x, x }))
	return r
}

// Register adds a palette, replacing any with the same name
func (r *Registry) Register(p Palette) {
	r.palettes[p.Name] = p
}

// Get retrieves a palette by name
func (r *Registry) Get(name string) (Palette, bool) {
	p, ok := r.palettes[name]
	return p, ok
}

// List returns the registered names in sorted order
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.palettes))
	for name := range r.palettes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup resolves a palette from the built-in registry
func Lookup(name string) (Palette, error) {
	p, ok := NewRegistry().Get(name)
	if !ok {
		return Palette{}, fmt.Errorf("unknown colormap %q", name)
	}
	return p, nil
}

// jet runs dark blue, cyan, yellow, dark red
func jet(x float64) (float64, float64, float64) {
	return clamp01(1.5 - math.Abs(4*x-3)),
		clamp01(1.5 - math.Abs(4*x-2)),
		clamp01(1.5 - math.Abs(4*x-1))
}

func hot(x float64) (float64, float64, float64) {
	return clamp01(3 * x), clamp01(3*x - 1), clamp01(3*x - 2)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func unit(v float64) uint8 {
	return uint8(math.Round(clamp01(v) * 255))
}

// ParseHexColor parses "#RRGGBB" or "RRGGBB"
func ParseHexColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid colour %q: want #RRGGBB", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

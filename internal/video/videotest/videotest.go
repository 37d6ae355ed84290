// Package videotest provides in-memory video sources and sinks for tests.
package videotest

import (
	"context"
	"errors"
	"image/color"
	"io"
	"os"
	"sync"

	"github.com/kikiluvv/gazemap/internal/video"
)

// SolidFrames returns n frames of the given size, each filled with c
func SolidFrames(n, width, height int, c color.RGBA) []video.Frame {
	frames := make([]video.Frame, n)
	for i := range frames {
		f := video.NewFrame(i, width, height)
		for p := 0; p < len(f.Image.Pix); p += 4 {
			f.Image.Pix[p] = c.R
			f.Image.Pix[p+1] = c.G
			f.Image.Pix[p+2] = c.B
			f.Image.Pix[p+3] = 0xff
		}
		frames[i] = f
	}
	return frames
}

// Source replays a fixed slice of frames. When FailAfter is positive the
// source stops after that many frames and reports truncation.
type Source struct {
	Frames    []video.Frame
	FPS       float64
	FailAfter int

	pos       int
	truncated bool
	closed    bool
}

func (s *Source) Info() video.Info {
	info := video.Info{FPS: s.FPS}
	if len(s.Frames) > 0 {
		info.Width = s.Frames[0].Width()
		info.Height = s.Frames[0].Height()
	}
	return info
}

func (s *Source) Next(ctx context.Context) (video.Frame, error) {
	if err := ctx.Err(); err != nil {
		return video.Frame{}, err
	}
	if s.FailAfter > 0 && s.pos >= s.FailAfter {
		s.truncated = true
		return video.Frame{}, io.EOF
	}
	if s.pos >= len(s.Frames) {
		return video.Frame{}, io.EOF
	}
	f := s.Frames[s.pos]
	s.pos++
	return f, nil
}

func (s *Source) Truncated() bool { return s.truncated }

func (s *Source) Close() error {
	s.closed = true
	return nil
}

// Closed reports whether Close was called
func (s *Source) Closed() bool { return s.closed }

// Sink records written frames in memory
type Sink struct {
	Path   string
	Info   video.Info
	Frames []video.Frame
	closed bool
}

func (s *Sink) Write(frame video.Frame) error {
	if s.closed {
		return errors.New("write to closed sink")
	}
	s.Frames = append(s.Frames, frame)
	return nil
}

func (s *Sink) Close() error {
	s.closed = true
	return nil
}

// Closed reports whether Close was called
func (s *Sink) Closed() bool { return s.closed }

// Opener serves registered sources by path and records every sink it opens.
// Sinks are only created on open, so a test can assert no output exists
// when Sinks is empty.
type Opener struct {
	mu      sync.Mutex
	Sources map[string]*Source
	Sinks   map[string]*Sink
	// SinkErr, when set, is returned by OpenSink
	SinkErr error
}

// NewOpener creates an empty opener
func NewOpener() *Opener {
	return &Opener{
		Sources: make(map[string]*Source),
		Sinks:   make(map[string]*Sink),
	}
}

// Add registers frames under path
func (o *Opener) Add(path string, fps float64, frames []video.Frame) *Source {
	o.mu.Lock()
	defer o.mu.Unlock()
	src := &Source{Frames: frames, FPS: fps}
	o.Sources[path] = src
	return src
}

func (o *Opener) OpenSource(ctx context.Context, path string) (video.Source, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	src, ok := o.Sources[path]
	if !ok {
		return nil, &video.DecodeError{Path: path, Reason: "cannot open", Err: os.ErrNotExist}
	}
	// replay from the start for every open
	cp := *src
	cp.pos = 0
	return &cp, nil
}

func (o *Opener) OpenSink(ctx context.Context, path string, info video.Info) (video.Sink, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.SinkErr != nil {
		return nil, &video.EncodeError{Path: path, Err: o.SinkErr}
	}
	sink := &Sink{Path: path, Info: info}
	o.Sinks[path] = sink
	return sink, nil
}

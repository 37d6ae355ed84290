package video

import (
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"
)

// DefaultSequencePattern names frames frame_000000.png, frame_000001.png, ...
const DefaultSequencePattern = "frame_%06d.png"

// SequenceSink writes each frame as a numbered PNG. Numbering follows write
// order, not frame index, so the sequence has no gaps.
type SequenceSink struct {
	dir     string
	pattern string
	paths   []string
}

// NewSequenceSink creates dir if needed. An empty pattern selects
// DefaultSequencePattern.
func NewSequenceSink(dir, pattern string) (*SequenceSink, error) {
	if pattern == "" {
		pattern = DefaultSequencePattern
	}
	if strings.Count(pattern, "%") != 1 {
		return nil, fmt.Errorf("sequence pattern %q must contain exactly one verb", pattern)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &EncodeError{Path: dir, Err: err}
	}
	return &SequenceSink{dir: dir, pattern: pattern}, nil
}

// Write encodes the frame to the next numbered file
func (s *SequenceSink) Write(frame Frame) error {
	path := filepath.Join(s.dir, fmt.Sprintf(s.pattern, len(s.paths)))

	f, err := os.Create(path)
	if err != nil {
		return &EncodeError{Path: path, Err: err}
	}
	if err := png.Encode(f, frame.Image); err != nil {
		_ = f.Close()
		return &EncodeError{Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &EncodeError{Path: path, Err: err}
	}

	s.paths = append(s.paths, path)
	return nil
}

// Close is a no-op; every frame is flushed by Write
func (s *SequenceSink) Close() error {
	return nil
}

// Paths returns the files written so far
func (s *SequenceSink) Paths() []string {
	return s.paths
}

// Pattern returns the full path pattern suitable for an ffmpeg image2 input
func (s *SequenceSink) Pattern() string {
	return filepath.Join(s.dir, s.pattern)
}

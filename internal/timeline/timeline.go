// Package timeline maps decode-order frame positions onto the index space of
// an eye-tracker export.
//
// The offset is the smallest index recorded in the table, so decode
// position 0 is assumed to be the first recorded frame. Nothing verifies
// that assumption; callers log the offset so a mismatch can be spotted.
package timeline

import (
	"github.com/kikiluvv/gazemap/internal/gaze"
)

// Policy decides what happens to a frame with no matching rows
type Policy int

const (
	// Drop omits the frame from the output
	Drop Policy = iota
	// PassThrough writes the frame unmodified
	PassThrough
)

// ParsePolicy maps a config value to a Policy
func ParsePolicy(s string) (Policy, bool) {
	switch s {
	case "drop":
		return Drop, true
	case "passthrough":
		return PassThrough, true
	}
	return Drop, false
}

func (p Policy) String() string {
	if p == PassThrough {
		return "passthrough"
	}
	return "drop"
}

// GazeIndex resolves the gaze samples recorded for each frame position
type GazeIndex struct {
	offset  int
	byIndex map[int][]gaze.Sample
}

// NewGazeIndex groups samples by world index, keeping input order within a
// group. An empty table yields offset 0 and no matches.
func NewGazeIndex(samples []gaze.Sample) *GazeIndex {
	idx := &GazeIndex{byIndex: make(map[int][]gaze.Sample)}
	for i, s := range samples {
		if i == 0 || s.WorldIndex < idx.offset {
			idx.offset = s.WorldIndex
		}
		idx.byIndex[s.WorldIndex] = append(idx.byIndex[s.WorldIndex], s)
	}
	return idx
}

// Offset returns min(world_index)
func (g *GazeIndex) Offset() int {
	return g.offset
}

// TableIndex translates a decode position into the table's index space
func (g *GazeIndex) TableIndex(pos int) int {
	return pos + g.offset
}

// At returns the samples whose world index equals the position's table index
func (g *GazeIndex) At(pos int) []gaze.Sample {
	return g.byIndex[g.TableIndex(pos)]
}

// Len returns the number of distinct world indexes
func (g *GazeIndex) Len() int {
	return len(g.byIndex)
}

// FixationIndex resolves the fixations active at each frame position
type FixationIndex struct {
	offset    int
	fixations []gaze.Fixation
}

// NewFixationIndex keeps fixations in input order; the offset is
// min(start_frame_index).
func NewFixationIndex(fixations []gaze.Fixation) *FixationIndex {
	idx := &FixationIndex{fixations: fixations}
	for i, f := range fixations {
		if i == 0 || f.StartFrame < idx.offset {
			idx.offset = f.StartFrame
		}
	}
	return idx
}

// Offset returns min(start_frame_index)
func (f *FixationIndex) Offset() int {
	return f.offset
}

// TableIndex translates a decode position into the table's index space
func (f *FixationIndex) TableIndex(pos int) int {
	return pos + f.offset
}

// Active returns every fixation covering the position, in input order
func (f *FixationIndex) Active(pos int) []gaze.Fixation {
	index := f.TableIndex(pos)
	var active []gaze.Fixation
	for _, fx := range f.fixations {
		if fx.ActiveAt(index) {
			active = append(active, fx)
		}
	}
	return active
}

// Len returns the number of fixations
func (f *FixationIndex) Len() int {
	return len(f.fixations)
}

// Package clips plans and cuts fixed-layout segments out of study videos.
package clips

import (
	"fmt"
	"time"
)

// Clip is one planned output segment
type Clip struct {
	// Name is the output file name inside the video's directory
	Name  string
	Start time.Duration
	End   time.Duration
}

// Duration returns the clip length
func (c Clip) Duration() time.Duration {
	return c.End - c.Start
}

// SplitOptions controls the segmentation layout
type SplitOptions struct {
	// Videos shorter than ShortThreshold are copied whole
	ShortThreshold time.Duration
	// Only the first MaxDuration is split into parts; the rest is leftover
	MaxDuration time.Duration
	Parts       int
}

// DefaultSplitOptions splits the first five minutes into five parts
func DefaultSplitOptions() SplitOptions {
	return SplitOptions{
		ShortThreshold: 60 * time.Second,
		MaxDuration:    300 * time.Second,
		Parts:          5,
	}
}

// Plan lays out the clips for a video of the given duration
func Plan(base string, duration time.Duration, opts SplitOptions) []Clip {
	if duration <= 0 {
		return nil
	}
	if duration < opts.ShortThreshold || opts.Parts < 1 {
		return []Clip{{Name: base + ".mp4", Start: 0, End: duration}}
	}

	total := min(duration, opts.MaxDuration)
	segment := total / time.Duration(opts.Parts)

	clips := make([]Clip, 0, opts.Parts+1)
	start := time.Duration(0)
	for i := 0; i < opts.Parts; i++ {
		end := start + segment
		if i == opts.Parts-1 || end > total {
			end = total
		}
		clips = append(clips, Clip{Name: fmt.Sprintf("part_%d.mp4", i+1), Start: start, End: end})
		start = end
	}

	if duration > total {
		clips = append(clips, Clip{Name: "leftover.mp4", Start: total, End: duration})
	}
	return clips
}

// Input is a probed source video
type Input struct {
	Path     string
	Duration time.Duration
}

// FilterByDuration splits inputs into those at least minDuration long and
// those that are too short. Order is preserved.
func FilterByDuration(inputs []Input, minDuration time.Duration) (kept, skipped []Input) {
	for _, in := range inputs {
		if in.Duration >= minDuration {
			kept = append(kept, in)
		} else {
			skipped = append(skipped, in)
		}
	}
	return kept, skipped
}

package pipeline

import (
	"context"
	"time"

	"github.com/kikiluvv/gazemap/internal/densitylog"
	"github.com/kikiluvv/gazemap/internal/ffmpeg"
	"github.com/kikiluvv/gazemap/internal/video"
)

// Variant names a compositing path
type Variant string

const (
	Heatmap   Variant = "heatmap"
	Fixations Variant = "fixations"
	Sequence  Variant = "frames"
)

// Result summarises one pipeline run
type Result struct {
	Variant Variant
	Output  string
	Info    video.Info
	// Offset is the table index of decode position 0
	Offset    int
	Decoded   int
	Written   int
	Matched   int
	Dropped   int
	Truncated bool
	Elapsed   time.Duration
	// Frames lists the image files of a sequence run that were kept
	Frames []string
}

// Assembler turns an image sequence into a video; *ffmpeg.Executor
// satisfies it
type Assembler interface {
	AssembleSequence(ctx context.Context, opts ffmpeg.SequenceOptions) error
}

// outcome is one processed frame on its way to the writer
type outcome struct {
	seq     int
	frame   video.Frame
	keep    bool
	matched bool
	record  *densitylog.Record
}

type job struct {
	seq   int
	frame video.Frame
}

package ffmpeg

import (
	"context"
	"fmt"
	"strings"
)

// SequenceOptions configures assembling a numbered image sequence
type SequenceOptions struct {
	// Pattern is a printf-style path such as dir/frame_%06d.png
	Pattern      string
	FPS          float64
	Width        int
	Height       int
	Output       string
	Encode       EncodeOptions
	ProgressFunc ProgressFunc
}

func sequenceArgs(opts SequenceOptions) []string {
	enc := opts.Encode.withDefaults()

	args := []string{
		"-framerate", formatRate(opts.FPS),
		"-i", opts.Pattern,
		"-c:v", enc.VideoCodec,
		"-preset", enc.Preset,
		"-crf", fmt.Sprintf("%d", enc.CRF),
	}
	if opts.Width > 0 && opts.Height > 0 {
		args = append(args, "-vf", NewFilterBuilder().Format(PixelFormat(opts.Width, opts.Height)).Build())
	}
	return append(args, opts.Output)
}

// AssembleSequence encodes an image sequence into a video at opts.FPS
func (e *Executor) AssembleSequence(ctx context.Context, opts SequenceOptions) error {
	if opts.Pattern == "" || !strings.Contains(opts.Pattern, "%") {
		return fmt.Errorf("sequence pattern %q needs a frame number verb", opts.Pattern)
	}
	if opts.Output == "" {
		return fmt.Errorf("output path is required")
	}
	if opts.FPS <= 0 {
		return fmt.Errorf("invalid frame rate %v", opts.FPS)
	}

	e.logger.Info().
		Str("pattern", opts.Pattern).
		Str("output", opts.Output).
		Float64("fps", opts.FPS).
		Msg("assembling frame sequence")

	runOpts := RunOptions{
		Args:            sequenceArgs(opts),
		ProgressHandler: opts.ProgressFunc,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("sequence output")
		},
	}

	if err := e.Run(ctx, runOpts); err != nil {
		return fmt.Errorf("sequence assembly failed: %w", err)
	}

	e.logger.Info().Str("output", opts.Output).Msg("sequence assembled")
	return nil
}

package ffmpeg

import (
	"context"
	"fmt"
	"time"

	"github.com/kikiluvv/gazemap/pkg/util"
)

// ClipOptions defines clip extraction parameters
type ClipOptions struct {
	Start        time.Duration
	End          time.Duration
	Output       string
	Encode       EncodeOptions
	AudioCodec   string
	ProgressFunc ProgressFunc
}

func clipArgs(input string, opts ClipOptions) []string {
	enc := opts.Encode.withDefaults()
	audioCodec := opts.AudioCodec
	if audioCodec == "" {
		audioCodec = DefaultAudioCodec
	}

	return []string{
		"-i", input,
		"-ss", util.FormatDuration(opts.Start),
		"-t", util.FormatDuration(opts.End - opts.Start),
		"-c:v", enc.VideoCodec,
		"-preset", enc.Preset,
		"-crf", fmt.Sprintf("%d", enc.CRF),
		"-c:a", audioCodec,
		opts.Output,
	}
}

// ExtractClip re-encodes a segment of a video
func (e *Executor) ExtractClip(ctx context.Context, input string, opts ClipOptions) error {
	duration := opts.End - opts.Start
	if duration <= 0 {
		return fmt.Errorf("invalid clip duration: end must be after start")
	}

	e.logger.Info().
		Str("input", input).
		Str("output", opts.Output).
		Dur("start", opts.Start).
		Dur("duration", duration).
		Msg("extracting clip")

	runOpts := RunOptions{
		Args:            clipArgs(input, opts),
		ProgressHandler: opts.ProgressFunc,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("clip extraction")
		},
	}

	if err := e.Run(ctx, runOpts); err != nil {
		return fmt.Errorf("clip extraction failed: %w", err)
	}

	e.logger.Info().Str("output", opts.Output).Msg("clip extraction complete")
	return nil
}

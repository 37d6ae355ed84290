package clips

import (
	"context"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/gazemap/internal/ffmpeg"
	"github.com/kikiluvv/gazemap/pkg/util"
)

// Extractor probes and cuts videos; *ffmpeg.Executor satisfies it
type Extractor interface {
	ProbeVideo(ctx context.Context, path string) (*ffmpeg.VideoInfo, error)
	ExtractClip(ctx context.Context, input string, opts ffmpeg.ClipOptions) error
}

// Splitter runs a segmentation plan over a batch of videos
type Splitter struct {
	logger    zerolog.Logger
	extractor Extractor
	opts      SplitOptions
	encode    ffmpeg.EncodeOptions
}

// Report summarises a split run
type Report struct {
	Written []string
	Skipped []string
	Failed  []string
}

// NewSplitter creates a splitter writing with the given encode settings
func NewSplitter(logger zerolog.Logger, extractor Extractor, opts SplitOptions, encode ffmpeg.EncodeOptions) *Splitter {
	return &Splitter{
		logger:    logger.With().Str("component", "split").Logger(),
		extractor: extractor,
		opts:      opts,
		encode:    encode,
	}
}

// Split probes every input, drops those shorter than minDuration and writes
// the planned clips into outDir/<base>/. A failing input is logged and the
// remaining inputs still run; only cancellation aborts the batch.
func (s *Splitter) Split(ctx context.Context, inputs []string, outDir string, minDuration time.Duration) (Report, error) {
	var report Report

	probed := make([]Input, 0, len(inputs))
	for _, path := range inputs {
		info, err := s.extractor.ProbeVideo(ctx, path)
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			s.logger.Error().Err(err).Str("input", path).Msg("cannot probe video")
			report.Failed = append(report.Failed, path)
			continue
		}
		probed = append(probed, Input{Path: path, Duration: info.Duration})
	}

	kept, skipped := FilterByDuration(probed, minDuration)
	for _, in := range skipped {
		s.logger.Info().
			Str("input", in.Path).
			Dur("duration", in.Duration).
			Dur("min_duration", minDuration).
			Msg("skipped: too short")
		report.Skipped = append(report.Skipped, in.Path)
	}

	for _, in := range kept {
		written, err := s.splitOne(ctx, in, outDir)
		report.Written = append(report.Written, written...)
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			s.logger.Error().Err(err).Str("input", in.Path).Msg("split failed")
			report.Failed = append(report.Failed, in.Path)
		}
	}

	s.logger.Info().
		Int("written", len(report.Written)).
		Int("skipped", len(report.Skipped)).
		Int("failed", len(report.Failed)).
		Msg("split complete")
	return report, nil
}

func (s *Splitter) splitOne(ctx context.Context, in Input, outDir string) ([]string, error) {
	base := util.BaseName(in.Path)
	dir := filepath.Join(outDir, base)
	if err := util.EnsureDir(dir); err != nil {
		return nil, err
	}

	plan := Plan(base, in.Duration, s.opts)
	s.logger.Info().
		Str("input", in.Path).
		Dur("duration", in.Duration).
		Int("clips", len(plan)).
		Msg("splitting video")

	var written []string
	for _, c := range plan {
		out := filepath.Join(dir, c.Name)
		err := s.extractor.ExtractClip(ctx, in.Path, ffmpeg.ClipOptions{
			Start:  c.Start,
			End:    c.End,
			Output: out,
			Encode: s.encode,
		})
		if err != nil {
			return written, err
		}
		written = append(written, out)
	}
	return written, nil
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/gazemap/internal/config"
	"github.com/kikiluvv/gazemap/internal/density"
	"github.com/kikiluvv/gazemap/internal/densitylog"
	"github.com/kikiluvv/gazemap/internal/ffmpeg"
	"github.com/kikiluvv/gazemap/internal/gaze"
	"github.com/kikiluvv/gazemap/internal/render"
	"github.com/kikiluvv/gazemap/internal/timeline"
	"github.com/kikiluvv/gazemap/internal/video"
	"github.com/kikiluvv/gazemap/pkg/util"
)

// Pipeline orchestrates loading, synchronisation, compositing and encoding
type Pipeline struct {
	logger    zerolog.Logger
	cfg       *config.Config
	opener    video.Opener
	assembler Assembler

	estimator      density.Estimator
	overlay        render.HeatmapOverlay
	markers        render.MarkerRenderer
	heatmapPolicy  timeline.Policy
	fixationPolicy timeline.Policy
	densityLog     *densitylog.Writer
}

// New creates a pipeline. assembler may be nil when the frame-sequence
// variant is not used.
func New(logger zerolog.Logger, cfg *config.Config, opener video.Opener, assembler Assembler) (*Pipeline, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if opener == nil {
		return nil, fmt.Errorf("video opener is required")
	}

	palette, err := render.Lookup(cfg.Heatmap.Colormap)
	if err != nil {
		return nil, err
	}
	fill, err := render.ParseHexColor(cfg.Fixation.Color)
	if err != nil {
		return nil, fmt.Errorf("fixation.color: %w", err)
	}
	text, err := render.ParseHexColor(cfg.Fixation.TextColor)
	if err != nil {
		return nil, fmt.Errorf("fixation.text_color: %w", err)
	}

	heatmapPolicy, ok := timeline.ParsePolicy(cfg.Heatmap.Unmatched)
	if !ok {
		return nil, fmt.Errorf("unknown heatmap.unmatched policy %q", cfg.Heatmap.Unmatched)
	}
	fixationPolicy, ok := timeline.ParsePolicy(cfg.Fixation.Unmatched)
	if !ok {
		return nil, fmt.Errorf("unknown fixation.unmatched policy %q", cfg.Fixation.Unmatched)
	}

	estimator := density.Estimator{
		Scale:  cfg.Heatmap.GridScale,
		Policy: density.FixedSigma,
		Sigma:  cfg.Heatmap.Sigma,
		Detail: cfg.Heatmap.Detail,
		FlipY:  cfg.Heatmap.FlipY,
	}
	if cfg.Heatmap.SigmaPolicy == config.SigmaDetail {
		estimator.Policy = density.DetailSigma
	}

	markers := render.NewMarkerRenderer()
	markers.Radius = cfg.Fixation.Radius
	markers.Fill = fill
	markers.Text = text
	markers.TextOffset = image.Pt(cfg.Fixation.TextOffsetX, cfg.Fixation.TextOffsetY)
	markers.FlipY = cfg.Fixation.FlipY

	return &Pipeline{
		logger:    logger.With().Str("component", "pipeline").Logger(),
		cfg:       cfg,
		opener:    opener,
		assembler: assembler,
		estimator: estimator,
		overlay: render.HeatmapOverlay{
			Palette:     palette,
			FrameWeight: cfg.Heatmap.FrameWeight,
			HeatWeight:  cfg.Heatmap.HeatWeight,
		},
		markers:        markers,
		heatmapPolicy:  heatmapPolicy,
		fixationPolicy: fixationPolicy,
	}, nil
}

// SetDensityLog records every composited heatmap grid to w
func (p *Pipeline) SetDensityLog(w *densitylog.Writer) {
	p.densityLog = w
}

// RenderHeatmap composites a gaze density heatmap onto every matched frame
// of videoPath and encodes the result to output.
func (p *Pipeline) RenderHeatmap(ctx context.Context, videoPath, gazePath, output string) (*Result, error) {
	start := time.Now()
	p.logger.Info().
		Str("video", videoPath).
		Str("gaze", gazePath).
		Str("output", output).
		Msg("starting heatmap pipeline")

	idx, err := p.loadGaze(gazePath)
	if err != nil {
		return nil, err
	}

	res := &Result{Variant: Heatmap, Output: output, Offset: idx.Offset()}
	err = p.run(ctx, res, videoPath, func(info video.Info) (video.Sink, error) {
		return p.opener.OpenSink(ctx, output, info)
	}, p.heatmapFrame(idx))
	if err != nil {
		return res, err
	}

	res.Elapsed = time.Since(start)
	p.logResult(res)
	return res, nil
}

// RenderFixations draws a marker for every active fixation onto each frame
// and encodes the result to output.
func (p *Pipeline) RenderFixations(ctx context.Context, videoPath, fixationPath, output string) (*Result, error) {
	start := time.Now()
	p.logger.Info().
		Str("video", videoPath).
		Str("fixations", fixationPath).
		Str("output", output).
		Msg("starting fixation pipeline")

	fixations, err := gaze.LoadFixations(fixationPath)
	if err != nil {
		return nil, fmt.Errorf("load fixations: %w", err)
	}
	idx := timeline.NewFixationIndex(fixations)
	p.logger.Info().
		Int("fixations", idx.Len()).
		Int("offset", idx.Offset()).
		Msg("fixation table loaded")

	res := &Result{Variant: Fixations, Output: output, Offset: idx.Offset()}
	err = p.run(ctx, res, videoPath, func(info video.Info) (video.Sink, error) {
		return p.opener.OpenSink(ctx, output, info)
	}, p.fixationFrame(idx))
	if err != nil {
		return res, err
	}

	res.Elapsed = time.Since(start)
	p.logResult(res)
	return res, nil
}

// RenderHeatmapSequence writes each composited heatmap frame as a PNG into
// outDir and assembles them into a video at the source frame rate.
func (p *Pipeline) RenderHeatmapSequence(ctx context.Context, videoPath, gazePath, outDir string) (*Result, error) {
	if p.assembler == nil {
		return nil, fmt.Errorf("frame sequence assembly is not configured")
	}
	start := time.Now()
	p.logger.Info().
		Str("video", videoPath).
		Str("gaze", gazePath).
		Str("output_dir", outDir).
		Msg("starting frame sequence pipeline")

	idx, err := p.loadGaze(gazePath)
	if err != nil {
		return nil, err
	}

	output := filepath.Join(outDir, p.cfg.Sequence.OutputName)
	res := &Result{Variant: Sequence, Output: output, Offset: idx.Offset()}

	var seq *video.SequenceSink
	err = p.run(ctx, res, videoPath, func(video.Info) (video.Sink, error) {
		var err error
		seq, err = video.NewSequenceSink(outDir, p.cfg.Sequence.Pattern)
		return seq, err
	}, p.heatmapFrame(idx))
	if err != nil {
		return res, err
	}

	if res.Written == 0 {
		p.logger.Warn().Msg("no frames matched, skipping sequence assembly")
		res.Output = ""
		res.Elapsed = time.Since(start)
		return res, nil
	}

	err = p.assembler.AssembleSequence(ctx, ffmpeg.SequenceOptions{
		Pattern: seq.Pattern(),
		FPS:     res.Info.FPS,
		Width:   res.Info.Width,
		Height:  res.Info.Height,
		Output:  output,
		Encode: ffmpeg.EncodeOptions{
			VideoCodec: p.cfg.FFmpeg.VideoCodec,
			Preset:     p.cfg.FFmpeg.Preset,
			CRF:        p.cfg.FFmpeg.CRF,
		},
	})
	if err != nil {
		return res, err
	}

	if p.cfg.Sequence.KeepFrames {
		res.Frames = seq.Paths()
	} else {
		removed := util.CleanupFiles(seq.Paths()...)
		p.logger.Debug().Int("frames", removed).Msg("removed frame images")
	}

	res.Elapsed = time.Since(start)
	p.logResult(res)
	return res, nil
}

func (p *Pipeline) loadGaze(gazePath string) (*timeline.GazeIndex, error) {
	samples, err := gaze.LoadSamples(gazePath)
	if err != nil {
		return nil, fmt.Errorf("load gaze positions: %w", err)
	}
	idx := timeline.NewGazeIndex(samples)
	p.logger.Info().
		Int("samples", len(samples)).
		Int("frames", idx.Len()).
		Int("offset", idx.Offset()).
		Msg("gaze table loaded")
	return idx, nil
}

// run opens the source, checks that it yields at least one frame, opens the
// sink and streams every frame through process.
func (p *Pipeline) run(ctx context.Context, res *Result, videoPath string, openSink func(video.Info) (video.Sink, error), process processFunc) (err error) {
	src, err := p.opener.OpenSource(ctx, videoPath)
	if err != nil {
		return err
	}
	defer src.Close()

	res.Info = src.Info()
	if res.Info.FPS <= 0 {
		return &video.DecodeError{Path: videoPath, Reason: "frame rate unavailable"}
	}

	first, err := src.Next(ctx)
	if errors.Is(err, io.EOF) {
		return &video.DecodeError{Path: videoPath, Reason: "no frames decoded"}
	}
	if err != nil {
		return err
	}
	if res.Info.Width == 0 || res.Info.Height == 0 {
		res.Info.Width, res.Info.Height = first.Width(), first.Height()
	}

	sink, err := openSink(res.Info)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sink.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	p.logger.Info().
		Int("width", res.Info.Width).
		Int("height", res.Info.Height).
		Float64("fps", res.Info.FPS).
		Int("workers", max(p.cfg.Concurrency, 1)).
		Msg("streaming frames")

	res.Decoded, err = p.stream(ctx, src, first, process, func(o outcome) error {
		if o.matched {
			res.Matched++
		}
		if !o.keep {
			res.Dropped++
			p.logger.Debug().Int("frame", o.frame.Index).Msg("frame dropped")
			return nil
		}
		if err := sink.Write(o.frame); err != nil {
			return err
		}
		res.Written++
		if o.record != nil && p.densityLog != nil {
			if err := p.densityLog.Write(*o.record); err != nil {
				p.logger.Warn().Err(err).Int("frame", o.frame.Index).Msg("density log write failed")
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	res.Truncated = src.Truncated()
	if res.Truncated {
		p.logger.Warn().
			Int("frames", res.Decoded).
			Str("video", videoPath).
			Msg("video decoding stopped early, output is truncated")
	}
	return nil
}

// heatmapFrame composites the density of the frame's gaze samples
func (p *Pipeline) heatmapFrame(idx *timeline.GazeIndex) processFunc {
	return func(frame video.Frame) outcome {
		samples := idx.At(frame.Index)
		if len(samples) == 0 {
			return outcome{frame: frame, keep: p.heatmapPolicy == timeline.PassThrough}
		}

		points := make([]density.Point, len(samples))
		for i, s := range samples {
			points[i] = density.Point{X: s.X, Y: s.Y}
		}
		grid := p.estimator.Estimate(points, frame.Width(), frame.Height())
		out := p.overlay.Composite(frame, density.Normalize(grid, 0, 255))

		o := outcome{frame: out, keep: true, matched: true}
		if p.densityLog != nil {
			o.record = newRecord(frame.Index, idx.TableIndex(frame.Index), len(points), p.estimator.SigmaFor(grid.Rows, grid.Cols), grid)
		}
		return o
	}
}

// fixationFrame draws the markers of every fixation active at the frame
func (p *Pipeline) fixationFrame(idx *timeline.FixationIndex) processFunc {
	return func(frame video.Frame) outcome {
		active := idx.Active(frame.Index)
		if len(active) == 0 {
			return outcome{frame: frame, keep: p.fixationPolicy == timeline.PassThrough}
		}
		return outcome{frame: p.markers.Draw(frame, active), keep: true, matched: true}
	}
}

func newRecord(frame, tableIndex, points int, sigma float64, grid density.Grid) *densitylog.Record {
	data := make([]float32, len(grid.Data))
	for i, v := range grid.Data {
		data[i] = float32(v)
	}
	return &densitylog.Record{
		Frame:      frame,
		TableIndex: tableIndex,
		Rows:       grid.Rows,
		Cols:       grid.Cols,
		Sigma:      sigma,
		Points:     points,
		Data:       data,
	}
}

func (p *Pipeline) logResult(res *Result) {
	p.logger.Info().
		Str("variant", string(res.Variant)).
		Str("output", res.Output).
		Int("decoded", res.Decoded).
		Int("written", res.Written).
		Int("matched", res.Matched).
		Int("dropped", res.Dropped).
		Int("offset", res.Offset).
		Bool("truncated", res.Truncated).
		Dur("elapsed", res.Elapsed).
		Msg("pipeline complete")
}

package main

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kikiluvv/gazemap/internal/config"
	"github.com/kikiluvv/gazemap/internal/cvio"
	"github.com/kikiluvv/gazemap/internal/densitylog"
	"github.com/kikiluvv/gazemap/internal/ffmpeg"
	"github.com/kikiluvv/gazemap/internal/logging"
	"github.com/kikiluvv/gazemap/internal/pipeline"
	"github.com/kikiluvv/gazemap/internal/video"
)

var keepFrames bool

var renderCmd = &cobra.Command{
	Use:   "render [video] [gaze_positions] [fixations] [heatmap_video] [fixation_video]",
	Short: "Render both the heatmap and the fixation video",
	Args:  cobra.ExactArgs(5),
	RunE: func(cmd *cobra.Command, args []string) error {
		pipe, done, err := newPipeline(cmd)
		if err != nil {
			return err
		}
		defer done()

		videoPath := args[0]
		failed := 0

		res, err := pipe.RenderHeatmap(cmd.Context(), videoPath, args[1], args[3])
		if err != nil {
			log.Error().Err(err).Str("variant", string(pipeline.Heatmap)).Msg("variant failed")
			failed++
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), res.Output)
		}

		res, err = pipe.RenderFixations(cmd.Context(), videoPath, args[2], args[4])
		if err != nil {
			log.Error().Err(err).Str("variant", string(pipeline.Fixations)).Msg("variant failed")
			failed++
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), res.Output)
		}

		if failed > 0 {
			return fmt.Errorf("%d of 2 variants failed", failed)
		}
		return nil
	},
}

var heatmapCmd = &cobra.Command{
	Use:   "heatmap [video] [gaze_positions] [output]",
	Short: "Composite a gaze density heatmap onto a video",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		pipe, done, err := newPipeline(cmd)
		if err != nil {
			return err
		}
		defer done()

		res, err := pipe.RenderHeatmap(cmd.Context(), args[0], args[1], args[2])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.Output)
		return nil
	},
}

var fixationsCmd = &cobra.Command{
	Use:   "fixations [video] [fixations] [output]",
	Short: "Draw fixation markers onto a video",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		pipe, done, err := newPipeline(cmd)
		if err != nil {
			return err
		}
		defer done()

		res, err := pipe.RenderFixations(cmd.Context(), args[0], args[1], args[2])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.Output)
		return nil
	},
}

var framesCmd = &cobra.Command{
	Use:   "frames [video] [gaze_positions] [output_dir]",
	Short: "Write heatmap frames as images and assemble them into a video",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		if cmd.Flags().Changed("keep-frames") {
			cfg.Sequence.KeepFrames = keepFrames
		}

		pipe, done, err := newPipeline(cmd)
		if err != nil {
			return err
		}
		defer done()

		res, err := pipe.RenderHeatmapSequence(cmd.Context(), args[0], args[1], args[2])
		if err != nil {
			return err
		}
		if res.Output != "" {
			fmt.Fprintln(cmd.OutOrStdout(), res.Output)
		}
		return nil
	},
}

func init() {
	framesCmd.Flags().BoolVar(&keepFrames, "keep-frames", true, "keep the intermediate frame images")
}

// newPipeline wires the configured video backend, the ffmpeg assembler and
// the optional density log. The returned func releases them.
func newPipeline(cmd *cobra.Command) (*pipeline.Pipeline, func(), error) {
	cfg := config.FromContext(cmd.Context())
	logger := logging.WithComponent("cli")

	exec, err := ffmpeg.New(log.Logger, ffmpeg.Options{
		FFmpegPath:  cfg.FFmpeg.BinaryPath,
		FFprobePath: cfg.FFmpeg.ProbePath,
		Threads:     cfg.FFmpeg.Threads,
	})
	if err != nil && cfg.Video.Backend == config.BackendFFmpeg {
		return nil, nil, err
	}

	opener, err := newOpener(cfg, exec, logger)
	if err != nil {
		return nil, nil, err
	}

	var assembler pipeline.Assembler
	if exec != nil {
		assembler = exec
	}

	pipe, err := pipeline.New(log.Logger, cfg, opener, assembler)
	if err != nil {
		return nil, nil, err
	}

	done := func() {}
	if cfg.DensityLog.Enabled {
		w, err := densitylog.Create(cfg.DensityLog.Dir, logging.RunID())
		if err != nil {
			return nil, nil, fmt.Errorf("create density log: %w", err)
		}
		pipe.SetDensityLog(w)
		logger.Info().Str("path", w.Path()).Msg("recording density grids")
		done = func() {
			if err := w.Close(); err != nil {
				logger.Warn().Err(err).Msg("closing density log")
			}
		}
	}
	return pipe, done, nil
}

func newOpener(cfg *config.Config, exec *ffmpeg.Executor, logger zerolog.Logger) (video.Opener, error) {
	switch cfg.Video.Backend {
	case config.BackendGoCV:
		opener, err := cvio.NewOpener(log.Logger)
		if errors.Is(err, cvio.ErrUnavailable) {
			return nil, fmt.Errorf("video.backend %q: %w", cfg.Video.Backend, err)
		}
		return opener, err
	default:
		logger.Debug().Str("backend", cfg.Video.Backend).Msg("using ffmpeg video backend")
		return ffmpeg.NewOpener(exec, ffmpeg.EncodeOptions{
			VideoCodec: cfg.FFmpeg.VideoCodec,
			Preset:     cfg.FFmpeg.Preset,
			CRF:        cfg.FFmpeg.CRF,
		}), nil
	}
}

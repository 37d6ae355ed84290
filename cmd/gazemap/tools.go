package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kikiluvv/gazemap/internal/clips"
	"github.com/kikiluvv/gazemap/internal/config"
	"github.com/kikiluvv/gazemap/internal/densitylog"
	"github.com/kikiluvv/gazemap/internal/ffmpeg"
	"github.com/kikiluvv/gazemap/internal/gaze"
	"github.com/kikiluvv/gazemap/internal/kinematics"
	"github.com/kikiluvv/gazemap/internal/logging"
	"github.com/kikiluvv/gazemap/pkg/util"
)

var (
	splitOut         string
	splitMinDuration time.Duration
	velocityOut      string
	pupilOut         string
)

var splitCmd = &cobra.Command{
	Use:   "split [video]...",
	Short: "Cut study videos into fixed-layout segments",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		exec, err := ffmpeg.New(log.Logger, ffmpeg.Options{
			FFmpegPath:  cfg.FFmpeg.BinaryPath,
			FFprobePath: cfg.FFmpeg.ProbePath,
			Threads:     cfg.FFmpeg.Threads,
		})
		if err != nil {
			return err
		}

		minDuration := cfg.Split.MinDuration
		if cmd.Flags().Changed("min-duration") {
			minDuration = splitMinDuration
		}

		splitter := clips.NewSplitter(log.Logger, exec, clips.SplitOptions{
			ShortThreshold: cfg.Split.ShortThreshold,
			MaxDuration:    cfg.Split.MaxDuration,
			Parts:          cfg.Split.Parts,
		}, ffmpeg.EncodeOptions{
			VideoCodec: cfg.FFmpeg.VideoCodec,
			Preset:     cfg.FFmpeg.Preset,
			CRF:        cfg.FFmpeg.CRF,
		})

		report, err := splitter.Split(cmd.Context(), args, splitOut, minDuration)
		if err != nil {
			return err
		}
		for _, path := range report.Written {
			fmt.Fprintln(cmd.OutOrStdout(), path)
		}
		if len(report.Failed) > 0 {
			return fmt.Errorf("%d of %d videos failed", len(report.Failed), len(args))
		}
		return nil
	},
}

var kinematicsCmd = &cobra.Command{
	Use:   "kinematics",
	Short: "Gaze velocity and pupil reports",
}

var velocityCmd = &cobra.Command{
	Use:   "velocity [gaze_positions]",
	Short: "Angular gaze velocity series and histogram",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := logging.WithComponent("kinematics")

		points, err := gaze.LoadGaze3D(args[0])
		if err != nil {
			return err
		}
		samples := kinematics.Velocity(points)
		logger.Info().
			Int("points", len(points)).
			Int("samples", len(samples)).
			Msg("velocity computed")

		paths, err := kinematics.SaveVelocityReport(velocityOut, samples)
		if err != nil {
			return err
		}
		for _, path := range paths {
			fmt.Fprintln(cmd.OutOrStdout(), path)
		}
		return nil
	},
}

var pupilCmd = &cobra.Command{
	Use:   "pupil [pupil_positions] [fixations]",
	Short: "Mean pupil diameter per fixation",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		logger := logging.WithComponent("kinematics")

		samples, err := gaze.LoadPupil(args[0])
		if err != nil {
			return err
		}
		timings, err := gaze.LoadFixationTimings(args[1])
		if err != nil {
			return err
		}

		means := kinematics.PupilByFixation(samples, timings, kinematics.PupilOptions{
			MinConfidence: cfg.Kinematics.MinConfidence,
			ExcludeMethod: cfg.Kinematics.ExcludeMethod,
		})
		logger.Info().
			Int("samples", len(samples)).
			Int("fixations", len(means)).
			Msg("pupil means computed")

		if err := kinematics.SavePupilReport(pupilOut, means); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), pupilOut)
		return nil
	},
}

var densityCmd = &cobra.Command{
	Use:   "density",
	Short: "Density log commands",
}

var densityInspectCmd = &cobra.Command{
	Use:   "inspect [file]",
	Short: "Summarise a density log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		s, err := densitylog.Summarize(f)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "records:  %d\n", s.Records)
		fmt.Fprintf(out, "frames:   %d\n", s.Frames)
		fmt.Fprintf(out, "points:   %d\n", s.Points)
		fmt.Fprintf(out, "grid:     %dx%d\n", s.Cols, s.Rows)
		if s.Records > 0 {
			fmt.Fprintf(out, "span:     %s\n", util.FormatDuration(s.LastTime.Sub(s.FirstTime)))
			fmt.Fprintf(out, "peak:     %.4g at frame %d\n", s.PeakValue, s.PeakFrame)
		}
		return nil
	},
}

func init() {
	splitCmd.Flags().StringVar(&splitOut, "out", "output_videos", "output directory")
	splitCmd.Flags().DurationVar(&splitMinDuration, "min-duration", 10*time.Second, "skip videos shorter than this")

	velocityCmd.Flags().StringVar(&velocityOut, "out", ".", "output directory")
	pupilCmd.Flags().StringVar(&pupilOut, "out", filepath.Join(".", kinematics.PupilFile), "output file")

	kinematicsCmd.AddCommand(velocityCmd)
	kinematicsCmd.AddCommand(pupilCmd)
	densityCmd.AddCommand(densityInspectCmd)
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kikiluvv/gazemap/internal/config"
	"github.com/kikiluvv/gazemap/internal/logging"
	"github.com/kikiluvv/gazemap/internal/render"
	"github.com/kikiluvv/gazemap/pkg/util"
)

var (
	cfgFile string
	verbose bool
	logPath string
	logFile *os.File
)

func main() {
	ctx := context.Background()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		log.Error().Err(err).Msg("command failed")
	}
	if logFile != nil {
		logFile.Close()
	}
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "gazemap",
	Short:         "gazemap - eye-tracking overlays for scene videos",
	Long:          "Composites gaze density heatmaps and fixation markers onto eye-tracker world videos.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logging
		if logPath != "" {
			f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return fmt.Errorf("open log file: %w", err)
			}
			logFile = f
			logging.Init(verbose, f)
		} else {
			logging.Init(verbose)
		}

		// Load config
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		// Store config in context
		ctx := config.WithConfig(cmd.Context(), cfg)
		cmd.SetContext(ctx)

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./gazemap.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logPath, "log-file", "", "also append JSON log events to this file")

	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(heatmapCmd)
	rootCmd.AddCommand(fixationsCmd)
	rootCmd.AddCommand(framesCmd)
	rootCmd.AddCommand(splitCmd)
	rootCmd.AddCommand(kinematicsCmd)
	rootCmd.AddCommand(densityCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(listCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Config management commands",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "./gazemap.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if util.FileExists(path) {
			return fmt.Errorf("%s already exists", path)
		}
		if err := config.Default().Save(path); err != nil {
			return err
		}
		log.Info().Str("path", path).Msg("wrote default config")
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:       "list [colormaps]",
	Short:     "List available resources",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"colormaps"},
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "colormaps":
			for _, name := range render.NewRegistry().List() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		default:
			return fmt.Errorf("unknown resource %q", args[0])
		}
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

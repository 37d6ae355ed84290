package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

// Unmatched-frame policies
const (
	PolicyDrop        = "drop"
	PolicyPassThrough = "passthrough"
)

// Sigma policies for the density estimator
const (
	SigmaFixed  = "fixed"
	SigmaDetail = "detail"
)

// Video backends
const (
	BackendFFmpeg = "ffmpeg"
	BackendGoCV   = "gocv"
)

// Config holds all application configuration
type Config struct {
	// Core settings
	Concurrency int `yaml:"concurrency"`

	// FFmpeg settings
	FFmpeg FFmpegConfig `yaml:"ffmpeg"`

	// Video I/O backend
	Video VideoConfig `yaml:"video"`

	// Compositing settings
	Heatmap  HeatmapConfig  `yaml:"heatmap"`
	Fixation FixationConfig `yaml:"fixation"`

	// Frame-sequence variant
	Sequence SequenceConfig `yaml:"sequence"`

	// Per-frame density grid log
	DensityLog DensityLogConfig `yaml:"density_log"`

	// Video segmentation
	Split SplitConfig `yaml:"split"`

	// Gaze and pupil kinematics
	Kinematics KinematicsConfig `yaml:"kinematics"`
}

type FFmpegConfig struct {
	BinaryPath string `yaml:"binary_path"`
	ProbePath  string `yaml:"probe_path"`
	Threads    int    `yaml:"threads"`
	Preset     string `yaml:"preset"`
	CRF        int    `yaml:"crf"`
	VideoCodec string `yaml:"video_codec"`
}

type VideoConfig struct {
	Backend string `yaml:"backend"`
}

type HeatmapConfig struct {
	// GridScale sizes the histogram relative to the frame (0.5 = half resolution)
	GridScale   float64 `yaml:"grid_scale"`
	SigmaPolicy string  `yaml:"sigma_policy"`
	Sigma       float64 `yaml:"sigma"`
	Detail      float64 `yaml:"detail"`
	FrameWeight float64 `yaml:"frame_weight"`
	HeatWeight  float64 `yaml:"heat_weight"`
	FlipY       bool    `yaml:"flip_y"`
	Colormap    string  `yaml:"colormap"`
	Unmatched   string  `yaml:"unmatched"`
}

type FixationConfig struct {
	Radius      int    `yaml:"radius"`
	Color       string `yaml:"color"`
	TextColor   string `yaml:"text_color"`
	TextOffsetX int    `yaml:"text_offset_x"`
	TextOffsetY int    `yaml:"text_offset_y"`
	FlipY       bool   `yaml:"flip_y"`
	Unmatched   string `yaml:"unmatched"`
}

type SequenceConfig struct {
	Pattern    string `yaml:"pattern"`
	OutputName string `yaml:"output_name"`
	KeepFrames bool   `yaml:"keep_frames"`
}

type DensityLogConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

type SplitConfig struct {
	ShortThreshold time.Duration `yaml:"short_threshold"`
	MaxDuration    time.Duration `yaml:"max_duration"`
	Parts          int           `yaml:"parts"`
	MinDuration    time.Duration `yaml:"min_duration"`
}

type KinematicsConfig struct {
	MinConfidence float64 `yaml:"min_confidence"`
	ExcludeMethod string  `yaml:"exclude_method"`
}

// Load reads configuration from file or returns defaults.
// Environment overrides (optionally from ./.env) are applied last.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = findConfigFile()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate rejects settings the pipeline cannot honour. Colormap names are
// resolved later, against the palette registry, when a pipeline is built.
func (c *Config) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	switch c.Video.Backend {
	case BackendFFmpeg, BackendGoCV:
	default:
		return fmt.Errorf("unknown video backend %q", c.Video.Backend)
	}
	for name, policy := range map[string]string{
		"heatmap.unmatched":  c.Heatmap.Unmatched,
		"fixation.unmatched": c.Fixation.Unmatched,
	} {
		if policy != PolicyDrop && policy != PolicyPassThrough {
			return fmt.Errorf("%s must be %q or %q, got %q", name, PolicyDrop, PolicyPassThrough, policy)
		}
	}
	switch c.Heatmap.SigmaPolicy {
	case SigmaFixed:
		if c.Heatmap.Sigma < 0 {
			return fmt.Errorf("heatmap.sigma cannot be negative")
		}
	case SigmaDetail:
		if c.Heatmap.Detail < 0 {
			return fmt.Errorf("heatmap.detail cannot be negative")
		}
	default:
		return fmt.Errorf("unknown heatmap.sigma_policy %q", c.Heatmap.SigmaPolicy)
	}
	if c.Heatmap.GridScale <= 0 || c.Heatmap.GridScale > 1 {
		return fmt.Errorf("heatmap.grid_scale must be in (0, 1], got %v", c.Heatmap.GridScale)
	}
	if c.Heatmap.FrameWeight < 0 || c.Heatmap.HeatWeight < 0 {
		return fmt.Errorf("heatmap weights cannot be negative")
	}
	if c.Fixation.Radius < 0 {
		return fmt.Errorf("fixation.radius cannot be negative")
	}
	if c.Split.Parts < 1 {
		return fmt.Errorf("split.parts must be at least 1")
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Concurrency: 4,
		FFmpeg: FFmpegConfig{
			BinaryPath: "ffmpeg",
			ProbePath:  "ffprobe",
			Threads:    0,
			Preset:     "medium",
			CRF:        23,
			VideoCodec: "libx264",
		},
		Video: VideoConfig{
			Backend: BackendFFmpeg,
		},
		Heatmap: HeatmapConfig{
			GridScale:   0.5,
			SigmaPolicy: SigmaFixed,
			Sigma:       5,
			Detail:      0.05,
			FrameWeight: 0.7,
			HeatWeight:  0.3,
			FlipY:       true,
			Colormap:    "jet",
			Unmatched:   PolicyDrop,
		},
		Fixation: FixationConfig{
			Radius:      10,
			Color:       "#FF0000",
			TextColor:   "#FFFFFF",
			TextOffsetX: 5,
			TextOffsetY: -5,
			FlipY:       false,
			Unmatched:   PolicyPassThrough,
		},
		Sequence: SequenceConfig{
			Pattern:    "frame_%06d.png",
			OutputName: "heatmap.mp4",
			KeepFrames: true,
		},
		DensityLog: DensityLogConfig{
			Enabled: false,
			Dir:     "./density",
		},
		Split: SplitConfig{
			ShortThreshold: 60 * time.Second,
			MaxDuration:    300 * time.Second,
			Parts:          5,
			MinDuration:    10 * time.Second,
		},
		Kinematics: KinematicsConfig{
			MinConfidence: 0.8,
			ExcludeMethod: "2d c++",
		},
	}
}

// Default returns the built-in configuration
func Default() *Config {
	return defaultConfig()
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("GAZEMAP_FFMPEG"); v != "" {
		c.FFmpeg.BinaryPath = v
	}
	if v := os.Getenv("GAZEMAP_FFPROBE"); v != "" {
		c.FFmpeg.ProbePath = v
	}
	if v := os.Getenv("GAZEMAP_BACKEND"); v != "" {
		c.Video.Backend = v
	}
	if v := os.Getenv("GAZEMAP_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("GAZEMAP_CONCURRENCY: %w", err)
		}
		c.Concurrency = n
	}
	return nil
}

func findConfigFile() string {
	candidates := []string{
		"./gazemap.yaml",
		"./gazemap.yml",
		filepath.Join(os.Getenv("HOME"), ".gazemap", "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return defaultConfig()
}

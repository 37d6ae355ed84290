package ffmpeg

import "time"

// VideoInfo describes the first video stream of a file
type VideoInfo struct {
	FilePath string
	Duration time.Duration
	Width    int
	Height   int
	FPS      float64
	// Frames is the container's frame count, 0 when unknown
	Frames int
	// VariableRate is set when the nominal and average rates disagree
	VariableRate bool
	Bitrate      int64
	VideoCodec   string
	HasAudio     bool
	AudioCodec   string
}

// Progress represents ffmpeg progress data
type Progress struct {
	Frame   int
	FPS     float64
	Bitrate string
	Time    string
	Speed   string
}

// RunOptions configures ffmpeg execution
type RunOptions struct {
	Args            []string
	ProgressHandler func(*Progress)
	LogHandler      func(line string)
}

// Default encoding settings
const (
	DefaultCRF        = 23
	DefaultPreset     = "medium"
	DefaultVideoCodec = "libx264"
	DefaultAudioCodec = "aac"
)

// EncodeOptions selects codec settings for every encoding operation
type EncodeOptions struct {
	VideoCodec string
	Preset     string
	CRF        int
}

// withDefaults fills unset fields with the package defaults
func (o EncodeOptions) withDefaults() EncodeOptions {
	if o.VideoCodec == "" {
		o.VideoCodec = DefaultVideoCodec
	}
	if o.Preset == "" {
		o.Preset = DefaultPreset
	}
	if o.CRF == 0 {
		o.CRF = DefaultCRF
	}
	return o
}

// ProgressFunc is a callback for progress updates during ffmpeg operations.
// Called periodically with progress information as the operation executes.
type ProgressFunc func(*Progress)

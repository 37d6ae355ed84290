package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/kikiluvv/gazemap/pkg/util"
)

// ProbeVideo reads the stream layout of a video with ffprobe
func (e *Executor) ProbeVideo(ctx context.Context, filePath string) (*VideoInfo, error) {
	if filePath == "" {
		return nil, fmt.Errorf("file path is required")
	}

	cmd := exec.CommandContext(ctx, e.ffprobePath, probeArgs(filePath)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w (%s)", filePath, err, strings.TrimSpace(stderr.String()))
	}

	info, err := parseProbe(filePath, output)
	if err != nil {
		return nil, err
	}
	if info.VariableRate {
		e.logger.Warn().
			Str("file", filePath).
			Float64("fps", info.FPS).
			Msg("video looks variable frame rate, frame indices assume a constant rate")
	}
	return info, nil
}

func probeArgs(filePath string) []string {
	return []string{
		"-v", "error",
		"-print_format", "json",
		"-show_entries", "format=duration,bit_rate:stream=codec_type,codec_name,width,height,r_frame_rate,avg_frame_rate,nb_frames,duration",
		filePath,
	}
}

func parseProbe(filePath string, output []byte) (*VideoInfo, error) {
	var probe probeResult
	if err := json.Unmarshal(output, &probe); err != nil {
		return nil, fmt.Errorf("parse ffprobe output for %s: %w", filePath, err)
	}

	info := &VideoInfo{FilePath: filePath}
	info.Duration = parseSeconds(probe.Format.Duration)
	if br, err := strconv.ParseInt(probe.Format.BitRate, 10, 64); err == nil {
		info.Bitrate = br
	}

	// First video stream wins; cover art and secondary angles are ignored
	videoFound := false
	for _, stream := range probe.Streams {
		switch stream.CodecType {
		case "video":
			if videoFound {
				continue
			}
			videoFound = true
			info.Width = stream.Width
			info.Height = stream.Height
			info.VideoCodec = stream.CodecName

			// r_frame_rate is 0/0 for some containers; fall back to the average
			info.FPS = util.ParseFrameRate(stream.RFrameRate)
			avg := util.ParseFrameRate(stream.AvgFrameRate)
			if info.FPS <= 0 {
				info.FPS = avg
			}
			info.VariableRate = info.FPS > 0 && avg > 0 && math.Abs(info.FPS-avg) > 0.01*info.FPS

			if n, err := strconv.Atoi(stream.NbFrames); err == nil {
				info.Frames = n
			}
			if info.Duration == 0 {
				info.Duration = parseSeconds(stream.Duration)
			}
		case "audio":
			info.HasAudio = true
			info.AudioCodec = stream.CodecName
		}
	}
	if !videoFound {
		return nil, fmt.Errorf("%s has no video stream", filePath)
	}

	return info, nil
}

func parseSeconds(s string) time.Duration {
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}

// probeResult matches the ffprobe JSON entries requested by probeArgs
type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
		BitRate  string `json:"bit_rate"`
	} `json:"format"`
	Streams []struct {
		CodecType    string `json:"codec_type"`
		CodecName    string `json:"codec_name"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		RFrameRate   string `json:"r_frame_rate"`
		AvgFrameRate string `json:"avg_frame_rate"`
		NbFrames     string `json:"nb_frames"`
		Duration     string `json:"duration"`
	} `json:"streams"`
}

package ffmpeg_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/gazemap/internal/config"
	"github.com/kikiluvv/gazemap/internal/ffmpeg"
	"github.com/kikiluvv/gazemap/internal/pipeline"
	"github.com/kikiluvv/gazemap/internal/video"
)

// local helper (cannot use unexported ones from ffmpeg package)
func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH - install with: brew install ffmpeg")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not found in PATH - install with: brew install ffmpeg")
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func countFrames(t *testing.T, opener video.Opener, path string) int {
	t.Helper()
	src, err := opener.OpenSource(context.Background(), path)
	if err != nil {
		t.Fatalf("reopen %s: %v", path, err)
	}
	defer src.Close()

	n := 0
	for {
		_, err := src.Next(context.Background())
		if errors.Is(err, io.EOF) {
			return n
		}
		if err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
		n++
	}
}

func TestIntegration_PipelineVariants(t *testing.T) {
	skipIfNoFFmpeg(t)

	dir := t.TempDir()
	input := filepath.Join(dir, "world.mp4")
	cmd := exec.Command("ffmpeg", "-f", "lavfi", "-i", "testsrc=duration=2:size=64x48:rate=10", "-pix_fmt", "yuv420p", "-y", input)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Skipf("could not generate test video: %v: %s", err, out)
	}

	// gaze on every even frame, indices starting at 1000
	var gazeCSV strings.Builder
	gazeCSV.WriteString("world_index,norm_pos_x,norm_pos_y,confidence\n")
	for i := 0; i < 20; i += 2 {
		fmt.Fprintf(&gazeCSV, "%d,0.%d,0.5,0.99\n", 1000+i, i/2)
	}
	gazePath := writeFile(t, dir, "gaze_positions.csv", gazeCSV.String())
	fixPath := writeFile(t, dir, "fixations.csv",
		"id,start_timestamp,duration,start_frame_index,end_frame_index,norm_pos_x,norm_pos_y\n"+
			"3,0.0,400,1000,1004,0.5,0.5\n")

	logger := zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	}).With().Str("test", "integration_pipeline").Logger()

	executor, err := ffmpeg.New(logger, ffmpeg.Options{Threads: 2})
	if err != nil {
		t.Fatalf("failed to create executor: %v", err)
	}
	opener := ffmpeg.NewOpener(executor, ffmpeg.EncodeOptions{Preset: "ultrafast"})

	cfg := config.Default()
	cfg.Concurrency = 3
	cfg.FFmpeg.Preset = "ultrafast"
	p, err := pipeline.New(logger, cfg, opener, executor)
	if err != nil {
		t.Fatalf("failed to create pipeline: %v", err)
	}

	ctx := context.Background()
	start := time.Now()

	heatmap := filepath.Join(dir, "heatmap.mp4")
	res, err := p.RenderHeatmap(ctx, input, gazePath, heatmap)
	if err != nil {
		t.Fatalf("RenderHeatmap failed: %v", err)
	}
	if res.Decoded != 20 || res.Written != 10 {
		t.Errorf("heatmap decoded=%d written=%d, want 20 and 10", res.Decoded, res.Written)
	}
	if got := countFrames(t, opener, heatmap); got != 10 {
		t.Errorf("heatmap output has %d frames, want 10", got)
	}

	fixations := filepath.Join(dir, "fixations.mp4")
	res, err = p.RenderFixations(ctx, input, fixPath, fixations)
	if err != nil {
		t.Fatalf("RenderFixations failed: %v", err)
	}
	if res.Matched != 5 || res.Written != 20 {
		t.Errorf("fixations matched=%d written=%d, want 5 and 20", res.Matched, res.Written)
	}
	if got := countFrames(t, opener, fixations); got != 20 {
		t.Errorf("fixation output has %d frames, want 20", got)
	}

	framesDir := filepath.Join(dir, "frames")
	res, err = p.RenderHeatmapSequence(ctx, input, gazePath, framesDir)
	if err != nil {
		t.Fatalf("RenderHeatmapSequence failed: %v", err)
	}
	if len(res.Frames) != 10 {
		t.Errorf("expected 10 frame images, got %d", len(res.Frames))
	}
	info, err := executor.ProbeVideo(ctx, res.Output)
	if err != nil {
		t.Fatalf("probe assembled video: %v", err)
	}
	if info.Width != 64 || info.Height != 48 || info.FPS != 10 {
		t.Errorf("assembled video is %dx%d at %v fps, want 64x48 at 10", info.Width, info.Height, info.FPS)
	}

	t.Logf("pipeline integration completed in %v", time.Since(start))
}

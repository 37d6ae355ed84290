package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/gazemap/internal/video"
)

// Opener streams video through ffmpeg subprocesses
type Opener struct {
	exec   *Executor
	encode EncodeOptions
}

// NewOpener returns a video.Opener backed by e
func NewOpener(e *Executor, encode EncodeOptions) *Opener {
	return &Opener{exec: e, encode: encode.withDefaults()}
}

// decodeArgs streams the first video stream as packed rgb24 on stdout
func decodeArgs(input string) []string {
	return []string{
		"-i", input,
		"-map", "0:v:0",
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-vsync", "passthrough",
		"pipe:1",
	}
}

// OpenSource probes path and starts a decoder for it
func (o *Opener) OpenSource(ctx context.Context, path string) (video.Source, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &video.DecodeError{Path: path, Reason: "cannot open", Err: err}
	}

	meta, err := o.exec.ProbeVideo(ctx, path)
	if err != nil {
		return nil, &video.DecodeError{Path: path, Reason: "probe failed", Err: err}
	}
	if meta.Width <= 0 || meta.Height <= 0 {
		return nil, &video.DecodeError{Path: path, Reason: "no video stream"}
	}
	if meta.FPS <= 0 {
		return nil, &video.DecodeError{Path: path, Reason: "frame rate unavailable"}
	}

	args := o.exec.commandArgs(decodeArgs(path))
	cmd := exec.CommandContext(ctx, o.exec.ffmpegPath, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &video.DecodeError{Path: path, Reason: "cannot start decoder", Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, &video.DecodeError{Path: path, Reason: "cannot start decoder", Err: err}
	}

	o.exec.logger.Debug().Strs("args", args).Msg("starting decoder")
	if err := cmd.Start(); err != nil {
		return nil, &video.DecodeError{Path: path, Reason: "cannot start decoder", Err: err}
	}

	d := &decoder{
		path:   path,
		info:   video.Info{Width: meta.Width, Height: meta.Height, FPS: meta.FPS},
		cmd:    cmd,
		stdout: bufio.NewReaderSize(stdout, 1<<20),
		stderr: newTail(8),
		logger: o.exec.logger.With().Str("input", path).Logger(),
	}
	d.wg.Add(1)
	go d.drainStderr(stderr)

	o.exec.logger.Info().
		Str("input", path).
		Int("width", meta.Width).
		Int("height", meta.Height).
		Float64("fps", meta.FPS).
		Msg("decoder started")

	return d, nil
}

type decoder struct {
	path   string
	info   video.Info
	cmd    *exec.Cmd
	stdout *bufio.Reader
	stderr *tail
	logger zerolog.Logger
	wg     sync.WaitGroup

	pos       int
	done      bool
	truncated bool
	waited    bool
	waitErr   error
}

func (d *decoder) Info() video.Info {
	return d.info
}

func (d *decoder) Truncated() bool {
	return d.truncated
}

// Next reads exactly one frame. A short read or a failing exit status ends
// the stream and marks it truncated.
func (d *decoder) Next(ctx context.Context) (video.Frame, error) {
	if d.done {
		return video.Frame{}, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return video.Frame{}, err
	}

	buf := make([]byte, d.info.Width*d.info.Height*3)
	_, err := io.ReadFull(d.stdout, buf)
	if err == nil {
		frame, err := video.FromRGB24(d.pos, d.info.Width, d.info.Height, buf)
		if err != nil {
			return video.Frame{}, err
		}
		d.pos++
		return frame, nil
	}

	d.done = true
	waitErr := d.wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return video.Frame{}, ctxErr
	}

	// a partial trailing frame is discarded
	d.truncated = !errors.Is(err, io.EOF) || waitErr != nil
	if d.truncated {
		d.logger.Warn().
			Err(waitErr).
			Int("frames", d.pos).
			Str("stderr", d.stderr.String()).
			Msg("decoder stopped early")
	}
	return video.Frame{}, io.EOF
}

func (d *decoder) drainStderr(r io.Reader) {
	defer d.wg.Done()
	streamOutput(r, nil, func(line string) {
		if isProgressLine(line) {
			return
		}
		d.stderr.add(line)
		d.logger.Debug().Str("ffmpeg", line).Msg("decoder output")
	})
}

func (d *decoder) wait() error {
	if d.waited {
		return d.waitErr
	}
	d.waited = true
	d.wg.Wait()
	if err := d.cmd.Wait(); err != nil {
		d.waitErr = fmt.Errorf("ffmpeg decoder: %w", err)
	}
	return d.waitErr
}

// Close stops the decoder if frames remain unread
func (d *decoder) Close() error {
	if !d.waited && d.cmd.Process != nil {
		_ = d.cmd.Process.Kill()
	}
	d.done = true
	_ = d.wait()
	return nil
}

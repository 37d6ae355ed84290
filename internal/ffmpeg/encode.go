package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/gazemap/internal/video"
)

// encodeArgs reads packed rgb24 from stdin and writes H.264 at the source
// size and rate
func encodeArgs(output string, info video.Info, opts EncodeOptions) []string {
	opts = opts.withDefaults()
	filter := NewFilterBuilder().Format(PixelFormat(info.Width, info.Height)).Build()

	return []string{
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-s", fmt.Sprintf("%dx%d", info.Width, info.Height),
		"-r", formatRate(info.FPS),
		"-i", "pipe:0",
		"-an",
		"-c:v", opts.VideoCodec,
		"-preset", opts.Preset,
		"-crf", fmt.Sprintf("%d", opts.CRF),
		"-vf", filter,
		output,
	}
}

func formatRate(fps float64) string {
	return strconv.FormatFloat(fps, 'f', -1, 64)
}

// OpenSink starts an encoder writing to path
func (o *Opener) OpenSink(ctx context.Context, path string, info video.Info) (video.Sink, error) {
	if info.Width <= 0 || info.Height <= 0 {
		return nil, &video.EncodeError{Path: path, Err: fmt.Errorf("invalid frame size %dx%d", info.Width, info.Height)}
	}
	if info.FPS <= 0 {
		return nil, &video.EncodeError{Path: path, Err: fmt.Errorf("invalid frame rate %v", info.FPS)}
	}

	// fail before spawning ffmpeg when the destination is not writable
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, &video.EncodeError{Path: path, Err: err}
	}
	f.Close()

	args := o.exec.commandArgs(encodeArgs(path, info, o.encode))
	cmd := exec.CommandContext(ctx, o.exec.ffmpegPath, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &video.EncodeError{Path: path, Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, &video.EncodeError{Path: path, Err: err}
	}

	o.exec.logger.Debug().Strs("args", args).Msg("starting encoder")
	if err := cmd.Start(); err != nil {
		return nil, &video.EncodeError{Path: path, Err: fmt.Errorf("failed to start ffmpeg: %w", err)}
	}

	s := &encoder{
		path:   path,
		info:   info,
		cmd:    cmd,
		stdin:  stdin,
		stderr: newTail(8),
		logger: o.exec.logger.With().Str("output", path).Logger(),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		streamOutput(stderr, func(p *Progress) {
			s.logger.Debug().Int("frame", p.Frame).Float64("fps", p.FPS).Msg("encode progress")
		}, func(line string) {
			if !isProgressLine(line) {
				s.stderr.add(line)
			}
		})
	}()

	return s, nil
}

type encoder struct {
	path   string
	info   video.Info
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *tail
	logger zerolog.Logger
	wg     sync.WaitGroup

	frames int
	closed bool
	err    error
}

func (s *encoder) Write(frame video.Frame) error {
	if s.closed {
		return &video.EncodeError{Path: s.path, Err: errors.New("sink is closed")}
	}
	if frame.Width() != s.info.Width || frame.Height() != s.info.Height {
		return &video.EncodeError{Path: s.path, Err: fmt.Errorf("frame %d is %dx%d, sink expects %dx%d",
			frame.Index, frame.Width(), frame.Height(), s.info.Width, s.info.Height)}
	}

	if _, err := s.stdin.Write(frame.RGB24()); err != nil {
		return &video.EncodeError{Path: s.path, Err: fmt.Errorf("write frame %d: %w (%s)", frame.Index, err, s.stderr.String())}
	}
	s.frames++
	return nil
}

// Close flushes the encoder and waits for ffmpeg to finalise the file
func (s *encoder) Close() error {
	if s.closed {
		return s.err
	}
	s.closed = true

	if err := s.stdin.Close(); err != nil {
		s.err = &video.EncodeError{Path: s.path, Err: err}
	}
	s.wg.Wait()
	if err := s.cmd.Wait(); err != nil && s.err == nil {
		s.err = &video.EncodeError{Path: s.path, Err: fmt.Errorf("ffmpeg encoder: %w (%s)", err, s.stderr.String())}
	}

	if s.err == nil {
		s.logger.Info().Int("frames", s.frames).Msg("encoder finished")
	}
	return s.err
}

//go:build gocv

package cvio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	"github.com/kikiluvv/gazemap/internal/video"
)

// Enabled reports whether the OpenCV backend is part of this build
const Enabled = true

// Opener opens sources with VideoCapture and sinks with VideoWriter
type Opener struct {
	logger zerolog.Logger
}

// NewOpener creates an OpenCV-backed opener
func NewOpener(logger zerolog.Logger) (video.Opener, error) {
	return &Opener{logger: logger.With().Str("component", "gocv").Logger()}, nil
}

func (o *Opener) OpenSource(ctx context.Context, path string) (video.Source, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &video.DecodeError{Path: path, Reason: "cannot open", Err: err}
	}
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, &video.DecodeError{Path: path, Reason: "cannot open", Err: err}
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, &video.DecodeError{Path: path, Reason: "cannot open"}
	}

	info := video.Info{
		Width:  int(vc.Get(gocv.VideoCaptureFrameWidth)),
		Height: int(vc.Get(gocv.VideoCaptureFrameHeight)),
		FPS:    vc.Get(gocv.VideoCaptureFPS),
	}
	if info.FPS <= 0 {
		vc.Close()
		return nil, &video.DecodeError{Path: path, Reason: "frame rate unavailable"}
	}

	o.logger.Debug().
		Str("path", path).
		Int("width", info.Width).
		Int("height", info.Height).
		Float64("fps", info.FPS).
		Msg("capture opened")

	return &capture{
		vc:   vc,
		info: info,
		bgr:  gocv.NewMat(),
		rgba: gocv.NewMat(),
	}, nil
}

type capture struct {
	vc     *gocv.VideoCapture
	info   video.Info
	bgr    gocv.Mat
	rgba   gocv.Mat
	pos    int
	done   bool
	closed bool
}

func (c *capture) Info() video.Info {
	return c.info
}

// Truncated is always false; VideoCapture does not distinguish a read error
// from the end of the stream.
func (c *capture) Truncated() bool {
	return false
}

func (c *capture) Next(ctx context.Context) (video.Frame, error) {
	if err := ctx.Err(); err != nil {
		return video.Frame{}, err
	}
	if c.done {
		return video.Frame{}, io.EOF
	}
	if ok := c.vc.Read(&c.bgr); !ok || c.bgr.Empty() {
		c.done = true
		return video.Frame{}, io.EOF
	}

	gocv.CvtColor(c.bgr, &c.rgba, gocv.ColorBGRToRGBA)
	w, h := c.rgba.Cols(), c.rgba.Rows()
	frame := video.NewFrame(c.pos, w, h)
	copy(frame.Image.Pix, c.rgba.ToBytes())
	c.pos++
	return frame, nil
}

func (c *capture) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.bgr.Close()
	c.rgba.Close()
	return c.vc.Close()
}

func (o *Opener) OpenSink(ctx context.Context, path string, info video.Info) (video.Sink, error) {
	if info.Width <= 0 || info.Height <= 0 || info.FPS <= 0 {
		return nil, &video.EncodeError{Path: path, Err: fmt.Errorf("invalid stream %dx%d at %v fps", info.Width, info.Height, info.FPS)}
	}
	vw, err := gocv.VideoWriterFile(path, FourCC, info.FPS, info.Width, info.Height, true)
	if err != nil {
		return nil, &video.EncodeError{Path: path, Err: err}
	}
	if !vw.IsOpened() {
		vw.Close()
		return nil, &video.EncodeError{Path: path, Err: errors.New("video writer did not open")}
	}
	return &writer{path: path, vw: vw, info: info, bgr: gocv.NewMat()}, nil
}

type writer struct {
	path   string
	vw     *gocv.VideoWriter
	info   video.Info
	bgr    gocv.Mat
	closed bool
}

func (w *writer) Write(frame video.Frame) error {
	if w.closed {
		return &video.EncodeError{Path: w.path, Err: errors.New("sink is closed")}
	}
	if frame.Width() != w.info.Width || frame.Height() != w.info.Height {
		return &video.EncodeError{Path: w.path, Err: fmt.Errorf("frame %d is %dx%d, sink expects %dx%d",
			frame.Index, frame.Width(), frame.Height(), w.info.Width, w.info.Height)}
	}

	rgba, err := gocv.NewMatFromBytes(frame.Height(), frame.Width(), gocv.MatTypeCV8UC4, frame.Clone().Image.Pix)
	if err != nil {
		return &video.EncodeError{Path: w.path, Err: fmt.Errorf("frame %d: %w", frame.Index, err)}
	}
	defer rgba.Close()

	gocv.CvtColor(rgba, &w.bgr, gocv.ColorRGBAToBGR)
	if err := w.vw.Write(w.bgr); err != nil {
		return &video.EncodeError{Path: w.path, Err: err}
	}
	return nil
}

func (w *writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.bgr.Close()
	if err := w.vw.Close(); err != nil {
		return &video.EncodeError{Path: w.path, Err: err}
	}
	return nil
}

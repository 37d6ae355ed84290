package video

import (
	"context"
	"fmt"
)

// Info describes a video stream
type Info struct {
	Width  int
	Height int
	FPS    float64
}

// Source produces frames in decode order.
// Next returns io.EOF once the stream is exhausted.
type Source interface {
	Info() Info
	Next(ctx context.Context) (Frame, error)
	// Truncated reports whether decoding ended on a failure rather than
	// a clean end-of-stream.
	Truncated() bool
	Close() error
}

// Sink appends frames to an output in the order they are written.
// A Sink has a single writer.
type Sink interface {
	Write(frame Frame) error
	Close() error
}

// Opener opens sources and sinks for a backend
type Opener interface {
	OpenSource(ctx context.Context, path string) (Source, error)
	OpenSink(ctx context.Context, path string, info Info) (Sink, error)
}

// DecodeError reports a source that cannot be opened, probed or yields no frames
type DecodeError struct {
	Path   string
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("decode %s: %s", e.Path, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// EncodeError reports an output that cannot be opened or written
type EncodeError struct {
	Path string
	Err  error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %s: %v", e.Path, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

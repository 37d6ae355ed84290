package pipeline

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/kikiluvv/gazemap/internal/video"
)

// processFunc composites one frame. It must not modify the input frame.
type processFunc func(frame video.Frame) outcome

// emitFunc receives outcomes in decode order on a single goroutine
type emitFunc func(o outcome) error

// stream runs process over every frame of src on the configured number of
// workers and hands the outcomes to emit in decode order. first is the frame
// already read from src. At most twice the worker count of frames are in
// flight at once.
func (p *Pipeline) stream(ctx context.Context, src video.Source, first video.Frame, process processFunc, emit emitFunc) (int, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := max(p.cfg.Concurrency, 1)
	window := make(chan struct{}, 2*workers)
	jobs := make(chan job)
	results := make(chan outcome, 2*workers)

	var readErr error
	decoded := 0
	producerDone := make(chan struct{})
	go func() {
		defer close(producerDone)
		defer close(jobs)
		frame := first
		for seq := 0; ; seq++ {
			if seq > 0 {
				f, err := src.Next(ctx)
				if errors.Is(err, io.EOF) {
					return
				}
				if err != nil {
					readErr = err
					return
				}
				frame = f
			}
			select {
			case window <- struct{}{}:
			case <-ctx.Done():
				return
			}
			select {
			case jobs <- job{seq: seq, frame: frame}:
				decoded++
			case <-ctx.Done():
				<-window
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				out := process(j.frame)
				out.seq = j.seq
				select {
				case results <- out:
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var emitErr error
	pending := make(map[int]outcome)
	next := 0
	for out := range results {
		pending[out.seq] = out
		for {
			o, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++
			if emitErr == nil {
				if err := emit(o); err != nil {
					emitErr = err
					cancel()
				}
			}
			<-window
		}
	}

	<-producerDone
	switch {
	case emitErr != nil:
		return decoded, emitErr
	case readErr != nil:
		return decoded, readErr
	}
	return decoded, ctx.Err()
}

// Package densitylog records the per-frame density grids of a heatmap run
// as length-prefixed CBOR records.
//
// File layout: the 8-byte magic, then records of
// [8B unix nanos LE][4B payload length LE][CBOR payload].
package densitylog

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Magic opens every density log
const Magic = "GAZEDNS1"

// Ext is the density log file extension
const Ext = ".gdl"

// MaxRecordSize bounds a single CBOR payload. A full-resolution 4K grid
// encodes to roughly 42 MB.
const MaxRecordSize = 128 << 20

// Record is one composited frame's smoothed, un-normalised density grid
type Record struct {
	Frame      int       `cbor:"frame"`
	TableIndex int       `cbor:"table_index"`
	Rows       int       `cbor:"rows"`
	Cols       int       `cbor:"cols"`
	Sigma      float64   `cbor:"sigma"`
	Points     int       `cbor:"points"`
	Data       []float32 `cbor:"data"`
}

// Writer appends records to a density log
type Writer struct {
	mu   sync.Mutex
	path string
	f    *os.File
	w    *bufio.Writer
	now  func() time.Time
}

// Create opens <dir>/<timestamp>_<run>.gdl
func Create(dir, run string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	timestamp := time.Now().Format("20060102_150405")
	path := filepath.Join(dir, fmt.Sprintf("%s_%s%s", timestamp, run, Ext))
	return Open(path)
}

// Open creates or truncates path and writes the magic
func Open(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := bufio.NewWriterSize(f, 1024*1024)
	if _, err := w.WriteString(Magic); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Writer{path: path, f: f, w: w, now: time.Now}, nil
}

// Path returns the file being written
func (lw *Writer) Path() string {
	return lw.path
}

// Write appends one record
func (lw *Writer) Write(rec Record) error {
	payload, err := cbor.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode density record: %w", err)
	}
	if len(payload) > MaxRecordSize {
		return fmt.Errorf("density record for frame %d is too large: %d bytes", rec.Frame, len(payload))
	}

	lw.mu.Lock()
	defer lw.mu.Unlock()
	if lw.w == nil {
		return fmt.Errorf("density log writer is closed")
	}
	var header [12]byte
	binary.LittleEndian.PutUint64(header[:8], uint64(lw.now().UnixNano()))
	binary.LittleEndian.PutUint32(header[8:12], uint32(len(payload)))
	if _, err := lw.w.Write(header[:]); err != nil {
		return err
	}
	if _, err := lw.w.Write(payload); err != nil {
		return err
	}
	return nil
}

// Close flushes buffered records and closes the file
func (lw *Writer) Close() error {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	if lw.w == nil {
		return nil
	}
	if err := lw.w.Flush(); err != nil {
		_ = lw.f.Close()
		lw.w = nil
		return err
	}
	err := lw.f.Close()
	lw.w = nil
	return err
}

// Entry is a record read back with its write time
type Entry struct {
	Time   time.Time
	Record Record
}

// Reader iterates the records of a density log
type Reader struct {
	r io.Reader
}

// NewReader checks the magic and returns a reader positioned at the first
// record
func NewReader(r io.Reader) (*Reader, error) {
	header := make([]byte, len(Magic))
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}
	if string(header) != Magic {
		return nil, fmt.Errorf("unexpected density log magic %q", string(header))
	}
	return &Reader{r: bufio.NewReader(r)}, nil
}

// Next returns the next entry or io.EOF after the last complete record
func (lr *Reader) Next() (Entry, error) {
	var meta [12]byte
	if _, err := io.ReadFull(lr.r, meta[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Entry{}, fmt.Errorf("truncated record header: %w", err)
		}
		return Entry{}, err
	}
	ts := int64(binary.LittleEndian.Uint64(meta[:8]))
	size := binary.LittleEndian.Uint32(meta[8:12])
	if size > MaxRecordSize {
		return Entry{}, fmt.Errorf("corrupt record header: payload length %d exceeds %d", size, MaxRecordSize)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(lr.r, payload); err != nil {
		return Entry{}, fmt.Errorf("read payload: %w", err)
	}

	var rec Record
	if err := cbor.Unmarshal(payload, &rec); err != nil {
		return Entry{}, fmt.Errorf("decode density record: %w", err)
	}
	return Entry{Time: time.Unix(0, ts), Record: rec}, nil
}

// Summary aggregates a density log for inspection
type Summary struct {
	Records   int
	Frames    int
	Points    int
	FirstTime time.Time
	LastTime  time.Time
	Rows      int
	Cols      int
	// PeakFrame is the frame whose grid holds the largest single cell
	PeakFrame int
	PeakValue float32
}

// Summarize reads every record from r
func Summarize(r io.Reader) (Summary, error) {
	var s Summary
	lr, err := NewReader(r)
	if err != nil {
		return s, err
	}

	frames := make(map[int]struct{})
	for {
		e, err := lr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return s, err
		}
		if s.Records == 0 {
			s.FirstTime = e.Time
			s.Rows, s.Cols = e.Record.Rows, e.Record.Cols
		}
		s.LastTime = e.Time
		s.Records++
		s.Points += e.Record.Points
		frames[e.Record.Frame] = struct{}{}
		for _, v := range e.Record.Data {
			if v > s.PeakValue {
				s.PeakValue = v
				s.PeakFrame = e.Record.Frame
			}
		}
	}
	s.Frames = len(frames)
	return s, nil
}

// Package gaze loads eye-tracker CSV exports.
//
// Tables are read fully into memory. Only the presence of required columns
// is checked; values such as out-of-range normalised coordinates or negative
// indices are passed through untouched.
package gaze

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// SchemaError reports required columns missing from a table header
type SchemaError struct {
	Source  string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: missing required columns: %s", e.Source, strings.Join(e.Missing, ", "))
}

// ParseError reports a cell that does not hold the expected value type
type ParseError struct {
	Source string
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: column %s: invalid value %q: %v", e.Source, e.Line, e.Column, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// row gives typed access to one CSV record by column name
type row struct {
	source string
	line   int
	cols   map[string]int
	values []string
}

func (r row) raw(col string) string {
	i, ok := r.cols[col]
	if !ok || i >= len(r.values) {
		return ""
	}
	return strings.TrimSpace(r.values[i])
}

// has reports whether the column is present and non-empty
func (r row) has(col string) bool {
	v := r.raw(col)
	return v != "" && !strings.EqualFold(v, "nan")
}

// float reads a blank or "nan" cell as NaN, as pandas does
func (r row) float(col string) (float64, error) {
	if !r.has(col) {
		return math.NaN(), nil
	}
	v := r.raw(col)
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, &ParseError{Source: r.source, Line: r.line, Column: col, Value: v, Err: err}
	}
	return f, nil
}

// int accepts integral float text ("12.0") the way pandas writes int columns
// that once held NaN. Callers skip rows whose index cells are blank.
func (r row) int(col string) (int, error) {
	v := r.raw(col)
	if n, err := strconv.Atoi(v); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, &ParseError{Source: r.source, Line: r.line, Column: col, Value: v, Err: err}
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, &ParseError{Source: r.source, Line: r.line, Column: col, Value: v, Err: errors.New("not an integer")}
	}
	return int(f), nil
}

// readTable checks the header for required columns, then hands each record
// to fn in file order.
func readTable(r io.Reader, source string, required []string, fn func(row) error) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return &SchemaError{Source: source, Missing: append([]string(nil), required...)}
	}
	if err != nil {
		return fmt.Errorf("%s: read header: %w", source, err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}

	var missing []string
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Source: source, Missing: missing}
	}

	for {
		record, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s: %w", source, err)
		}
		line, _ := cr.FieldPos(0)
		if err := fn(row{source: source, line: line, cols: cols, values: record}); err != nil {
			return err
		}
	}
}

func loadFile(path string, load func(io.Reader, string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return load(f, path)
}

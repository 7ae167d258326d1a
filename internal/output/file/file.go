package file

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/hejijunhao/oktify/internal/model"
)

const (
	defaultBufSize = 64 * 1024 // 64KB

	// PartialSuffix marks a report that has not been completed.
	PartialSuffix = ".partial"
)

var errClosed = errors.New("file output: already closed")

// Option configures a file Output.
type Option func(*Output)

// WithBufSize sets the bufio.Writer buffer size. Default: 64KB.
func WithBufSize(bytes int) Option {
	return func(o *Output) { o.bufSize = bytes }
}

// DefaultFilename is the report name used when none is given, e.g.
// "group_changes_20240510_083000.csv".
func DefaultFilename(c model.Category, now time.Time) string {
	return fmt.Sprintf("%s_%s.csv", c.ReportName(), now.Format("20060102_150405"))
}

// Output writes a CSV report for one category. Rows go to path+".partial";
// Close renames it to path, Abort leaves it in place with a trailer line.
// A report at path is therefore always complete.
type Output struct {
	mu       sync.Mutex
	f        *os.File
	w        *bufio.Writer
	csv      *csv.Writer
	path     string
	category model.Category
	bufSize  int
	rows     int
	closed   bool
}

// New creates the partial file for path and writes the category header.
func New(path string, c model.Category, opts ...Option) (*Output, error) {
	o := &Output{
		path:     path,
		category: c,
		bufSize:  defaultBufSize,
	}
	for _, opt := range opts {
		opt(o)
	}
	if err := o.openFile(); err != nil {
		return nil, err
	}
	if err := o.csv.Write(model.Header(c)); err != nil {
		o.f.Close()
		return nil, fmt.Errorf("file output: header: %w", err)
	}
	return o, nil
}

// Write appends one row. Rows of another category are rejected.
func (o *Output) Write(_ context.Context, row model.ReportRow) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return errClosed
	}
	if row.Category != o.category {
		return fmt.Errorf("file output: %v row in %v report", row.Category, o.category)
	}
	if err := o.csv.Write(row.Record()); err != nil {
		return fmt.Errorf("file output: write: %w", err)
	}
	o.rows++
	return nil
}

// Close flushes the report and moves it to its final path.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true

	if err := o.finish(); err != nil {
		return err
	}
	if err := os.Rename(o.PartialPath(), o.path); err != nil {
		return fmt.Errorf("file output: %w", err)
	}
	return nil
}

// Abort flushes what was written, appends an INCOMPLETE trailer and keeps
// the report at its partial path.
func (o *Output) Abort(reason string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true

	o.csv.Flush()
	reason = strings.Join(strings.Fields(reason), " ")
	if _, err := fmt.Fprintf(o.w, "# INCOMPLETE: %s\n", reason); err != nil {
		o.f.Close()
		return fmt.Errorf("file output: trailer: %w", err)
	}
	return o.finish()
}

// Path is the final report path.
func (o *Output) Path() string { return o.path }

// PartialPath is where rows are written until Close.
func (o *Output) PartialPath() string { return o.path + PartialSuffix }

// Rows is the number of data rows written.
func (o *Output) Rows() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.rows
}

func (o *Output) finish() error {
	o.csv.Flush()
	if err := o.csv.Error(); err != nil {
		o.f.Close()
		return fmt.Errorf("file output: flush: %w", err)
	}
	if err := o.w.Flush(); err != nil {
		o.f.Close()
		return fmt.Errorf("file output: flush: %w", err)
	}
	return o.f.Close()
}

// openFile truncates (or creates) the partial file and wraps it in a
// bufio.Writer.
func (o *Output) openFile() error {
	f, err := os.OpenFile(o.PartialPath(), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("file output: open %s: %w", o.PartialPath(), err)
	}
	o.f = f
	o.w = bufio.NewWriterSize(f, o.bufSize)
	o.csv = csv.NewWriter(o.w)
	return nil
}

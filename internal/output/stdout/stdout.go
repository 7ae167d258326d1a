package stdout

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/hejijunhao/oktify/internal/model"
)

// Option configures a stdout Output.
type Option func(*Output)

// WithWriter redirects the table away from os.Stdout.
func WithWriter(w io.Writer) Option {
	return func(o *Output) { o.w = w }
}

// Output renders report rows as an aligned terminal table. Column widths
// depend on every row, so nothing is printed before Close or Abort.
type Output struct {
	w        io.Writer
	tw       *tabwriter.Writer
	category model.Category
	rows     int
}

// New creates a table output for one category.
func New(c model.Category, opts ...Option) *Output {
	o := &Output{w: os.Stdout, category: c}
	for _, opt := range opts {
		opt(o)
	}
	o.tw = tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)
	return o
}

func (o *Output) Write(_ context.Context, row model.ReportRow) error {
	if o.rows == 0 {
		if _, err := fmt.Fprintln(o.tw, strings.Join(columnTitles(o.category), "\t")); err != nil {
			return fmt.Errorf("stdout output: %w", err)
		}
	}
	if _, err := fmt.Fprintln(o.tw, strings.Join(row.Record(), "\t")); err != nil {
		return fmt.Errorf("stdout output: %w", err)
	}
	o.rows++
	return nil
}

// Close prints the table, or a notice when there were no rows.
func (o *Output) Close() error {
	if o.rows == 0 {
		_, err := fmt.Fprintf(o.w, "No %s found in the given time period.\n", o.category.Noun())
		return err
	}
	if err := o.tw.Flush(); err != nil {
		return fmt.Errorf("stdout output: %w", err)
	}
	_, err := fmt.Fprintf(o.w, "\n%d %s.\n", o.rows, o.category.Noun())
	return err
}

// Abort prints the rows received so far followed by the reason.
func (o *Output) Abort(reason string) error {
	if err := o.tw.Flush(); err != nil {
		return fmt.Errorf("stdout output: %w", err)
	}
	_, err := fmt.Fprintf(o.w, "INCOMPLETE after %d %s: %s\n", o.rows, o.category.Noun(), reason)
	return err
}

func columnTitles(c model.Category) []string {
	header := model.Header(c)
	for i, h := range header {
		header[i] = strings.ToUpper(strings.ReplaceAll(h, "_", " "))
	}
	return header
}

package output

import (
	"context"

	"github.com/hejijunhao/oktify/internal/model"
)

// Output defines the interface for report row destinations.
type Output interface {
	Write(ctx context.Context, row model.ReportRow) error
	// Close finalizes a complete report.
	Close() error
}

// Aborter is implemented by outputs that can mark a report as incomplete.
// Abort replaces Close for runs that failed part way; reason is recorded in
// the output when the format allows it.
type Aborter interface {
	Abort(reason string) error
}

// Abort finalizes o as incomplete. Outputs without Abort are closed.
func Abort(o Output, reason string) error {
	if a, ok := o.(Aborter); ok {
		return a.Abort(reason)
	}
	return o.Close()
}

package multi

import (
	"context"
	"errors"

	"github.com/hejijunhao/oktify/internal/model"
	"github.com/hejijunhao/oktify/internal/output"
)

// Multi fans out rows to multiple output.Output implementations.
// Each Write call delivers the row to every wrapped output sequentially.
// If one output fails, the remaining outputs still receive the row.
type Multi struct {
	outputs []output.Output
}

// New creates a Multi that fans out to the given outputs.
func New(outputs ...output.Output) *Multi {
	return &Multi{outputs: outputs}
}

// Write delivers the row to every wrapped output. Errors are collected
// but do not prevent delivery to subsequent outputs.
func (m *Multi) Write(ctx context.Context, row model.ReportRow) error {
	var errs []error
	for _, o := range m.outputs {
		if err := o.Write(ctx, row); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close calls Close on every wrapped output, collecting errors.
func (m *Multi) Close() error {
	var errs []error
	for _, o := range m.outputs {
		if err := o.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Abort aborts every wrapped output, collecting errors.
func (m *Multi) Abort(reason string) error {
	var errs []error
	for _, o := range m.outputs {
		if err := output.Abort(o, reason); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

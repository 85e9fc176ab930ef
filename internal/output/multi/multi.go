package multi

import (
	"context"
	"errors"

	"github.com/crimson-sun/leafdoc/internal/model"
	"github.com/crimson-sun/leafdoc/internal/output"
)

// Multi delivers each diagnosis to several outputs in order, for example the
// terminal renderer, a JSON stream and a report file in one CLI run.
type Multi struct {
	outputs []output.Output
}

// New creates a Multi over the given outputs. Nil entries are dropped so
// callers can pass optional destinations unconditionally.
func New(outputs ...output.Output) *Multi {
	m := &Multi{}
	for _, o := range outputs {
		if o != nil {
			m.outputs = append(m.outputs, o)
		}
	}
	return m
}

// Len returns the number of wrapped outputs.
func (m *Multi) Len() int {
	return len(m.outputs)
}

// Write hands d to every output. A failing output does not stop delivery to
// the rest; all errors are joined.
func (m *Multi) Write(ctx context.Context, d model.Diagnosis) error {
	var errs []error
	for _, o := range m.outputs {
		if err := o.Write(ctx, d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every output and joins their errors.
func (m *Multi) Close() error {
	var errs []error
	for _, o := range m.outputs {
		if err := o.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

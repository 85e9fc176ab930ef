package file

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/crimson-sun/leafdoc/internal/model"
	"github.com/crimson-sun/leafdoc/internal/output"
)

const defaultBufSize = 4 * 1024

// Output writes text reports to a file. Successive reports are separated by
// a blank line.
type Output struct {
	w       *bufio.Writer
	f       *os.File
	mu      sync.Mutex
	path    string
	written int
}

// New creates (or truncates) path and returns an Output writing to it.
func New(path string) (*Output, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("file output: open %s: %w", path, err)
	}
	return &Output{
		w:    bufio.NewWriterSize(f, defaultBufSize),
		f:    f,
		path: path,
	}, nil
}

// Path returns the destination path.
func (o *Output) Path() string {
	return o.path
}

// Write appends the diagnosis report to the file.
func (o *Output) Write(_ context.Context, d model.Diagnosis) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.written > 0 {
		if _, err := o.w.WriteString("\n"); err != nil {
			return fmt.Errorf("file output: write: %w", err)
		}
	}
	if _, err := o.w.WriteString(output.FormatReport(d.Record, d.Confidence)); err != nil {
		return fmt.Errorf("file output: write: %w", err)
	}
	o.written++
	return nil
}

// Close flushes the buffer and closes the file.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.w.Flush(); err != nil {
		o.f.Close()
		return fmt.Errorf("file output: flush: %w", err)
	}
	return o.f.Close()
}

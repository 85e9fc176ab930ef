package stdout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/crimson-sun/leafdoc/internal/model"
	"github.com/crimson-sun/leafdoc/internal/output"
)

// Output writes JSON-encoded diagnoses, one document per line.
type Output struct {
	enc        *json.Encoder
	withReport bool
}

// New creates a stdout Output with optional pretty-printed JSON. When
// withReport is true each document embeds the text report.
func New(pretty, withReport bool) *Output {
	return NewWriter(os.Stdout, pretty, withReport)
}

// NewWriter is New with an explicit destination.
func NewWriter(w io.Writer, pretty, withReport bool) *Output {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return &Output{enc: enc, withReport: withReport}
}

func (o *Output) Write(_ context.Context, d model.Diagnosis) error {
	if err := o.enc.Encode(output.NewDocument(d, o.withReport)); err != nil {
		return fmt.Errorf("stdout output: %w", err)
	}
	return nil
}

func (o *Output) Close() error {
	return nil
}

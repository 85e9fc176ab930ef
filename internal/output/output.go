package output

import (
	"context"

	"github.com/crimson-sun/leafdoc/internal/model"
)

// Output defines the interface for diagnosis destinations.
type Output interface {
	Write(ctx context.Context, d model.Diagnosis) error
	Close() error
}

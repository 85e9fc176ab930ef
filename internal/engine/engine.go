package engine

import (
	"fmt"
	"image"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/crimson-sun/leafdoc/internal/engine/taxonomy"
	"github.com/crimson-sun/leafdoc/internal/model"
)

// DefaultConfidenceThreshold is the confidence below which a diagnosis is
// flagged for manual verification.
const DefaultConfidenceThreshold = 0.7

// Classifier is the subset of classifier.Classifier the engine depends on.
type Classifier interface {
	Classify(img image.Image) (model.ClassificationResult, error)
	NumClasses() int
}

// Engine orchestrates the classify → resolve flow. It holds no per-request
// state and is safe for concurrent use.
type Engine struct {
	classifier Classifier
	taxonomy   *taxonomy.Taxonomy
	threshold  float64
	now        func() time.Time
}

// New creates an Engine. It fails when the classifier's output dimension
// does not match the taxonomy's label set, or when threshold is outside
// [0, 1].
func New(cls Classifier, tax *taxonomy.Taxonomy, threshold float64) (*Engine, error) {
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("engine: confidence threshold must be in [0, 1], got %v", threshold)
	}
	if cls.NumClasses() != tax.Len() {
		return nil, fmt.Errorf("engine: classifier has %d classes, taxonomy has %d labels", cls.NumClasses(), tax.Len())
	}
	return &Engine{
		classifier: cls,
		taxonomy:   tax,
		threshold:  threshold,
		now:        time.Now,
	}, nil
}

// Threshold returns the low-confidence threshold.
func (e *Engine) Threshold() float64 {
	return e.threshold
}

// Taxonomy returns the diagnosis table.
func (e *Engine) Taxonomy() *taxonomy.Taxonomy {
	return e.taxonomy
}

// Process classifies a decoded image and resolves it to a diagnosis. An
// unresolvable label is not an error: the diagnosis carries the Unknown
// record.
func (e *Engine) Process(img image.Image) (model.Diagnosis, error) {
	res, err := e.classifier.Classify(img)
	if err != nil {
		return model.Diagnosis{}, err
	}

	label, rec, ok := e.taxonomy.Lookup(res)
	if !ok {
		slog.Warn("classifier label not in diagnosis table",
			"label_index", res.LabelIndex,
			"label", label,
			"confidence", res.Confidence,
		)
	}

	return model.Diagnosis{
		ID:            uuid.NewString(),
		Label:         label,
		Record:        rec,
		Confidence:    res.Confidence,
		LowConfidence: res.Confidence < e.threshold,
		CreatedAt:     e.now().UTC(),
	}, nil
}

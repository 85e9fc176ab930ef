package leafdoc

import (
	"fmt"
	"image"
	"io"

	"github.com/crimson-sun/leafdoc/internal/engine"
	"github.com/crimson-sun/leafdoc/internal/engine/classifier"
	"github.com/crimson-sun/leafdoc/internal/engine/ingest"
	"github.com/crimson-sun/leafdoc/internal/engine/taxonomy"
	"github.com/crimson-sun/leafdoc/internal/model"
	"github.com/crimson-sun/leafdoc/internal/output"
)

// Errors callers can branch on with errors.Is.
var (
	ErrArtifactLoad  = classifier.ErrArtifactLoad
	ErrInvalidTable  = taxonomy.ErrInvalidTable
	ErrDecode        = ingest.ErrDecode
	ErrTooLarge      = ingest.ErrTooLarge
	ErrTooManyPixels = ingest.ErrTooManyPixels
)

// Leafdoc is a leaf disease diagnosis engine. Safe for concurrent use.
type Leafdoc struct {
	engine     *engine.Engine
	classifier *classifier.Classifier
	maxBytes   int64
	maxPixels  int64
}

// New loads the diagnosis table and the model. Loading the model is
// expensive; create once, reuse across requests.
func New(opts ...Option) (*Leafdoc, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	tax, err := taxonomy.Load(o.tablePath)
	if err != nil {
		return nil, fmt.Errorf("leafdoc: %w", err)
	}

	var cls *classifier.Classifier
	if o.predictor != nil {
		cls = classifier.NewWithPredictor(o.predictor, classifier.NHWC, model.NumClasses)
	} else {
		copts := []classifier.Option{classifier.WithIntraOpThreads(o.threads)}
		if o.runtimeLib != "" {
			copts = append(copts, classifier.WithRuntimeLibrary(o.runtimeLib))
		}
		cls, err = classifier.New(resolveModelPath(o), model.NumClasses, copts...)
		if err != nil {
			return nil, fmt.Errorf("leafdoc: %w", err)
		}
	}

	eng, err := engine.New(cls, tax, o.confidenceThreshold)
	if err != nil {
		cls.Close()
		return nil, fmt.Errorf("leafdoc: %w", err)
	}

	return &Leafdoc{engine: eng, classifier: cls, maxBytes: o.maxBytes, maxPixels: o.maxPixels}, nil
}

// Diagnose reads a JPEG or PNG image from r and diagnoses it. Unreadable or
// oversized input returns ErrDecode, ErrTooLarge or ErrTooManyPixels.
func (l *Leafdoc) Diagnose(r io.Reader) (Diagnosis, error) {
	up, err := ingest.Decode(r, l.maxBytes, ingest.WithMaxPixels(l.maxPixels))
	if err != nil {
		return Diagnosis{}, err
	}
	return l.DiagnoseImage(up.Image)
}

// DiagnoseImage diagnoses an already decoded image.
func (l *Leafdoc) DiagnoseImage(img image.Image) (Diagnosis, error) {
	d, err := l.engine.Process(img)
	if err != nil {
		return Diagnosis{}, err
	}
	return fromModel(d), nil
}

// Report renders the plain-text report for d, the same text the web UI
// offers as plant_disease_report.txt.
func (l *Leafdoc) Report(d Diagnosis) string {
	return output.FormatReport(d.record(), d.Confidence)
}

// Labels returns the label contract in model output order.
func (l *Leafdoc) Labels() []Label {
	tax := l.engine.Taxonomy()
	names := tax.Labels()
	labels := make([]Label, len(names))
	for i, name := range names {
		rec, _ := tax.Record(name)
		labels[i] = Label{
			Index:   i,
			Name:    name,
			Plant:   rec.Plant,
			Status:  string(rec.Status),
			Disease: rec.Disease,
		}
	}
	return labels
}

// Threshold returns the low-confidence threshold in effect.
func (l *Leafdoc) Threshold() float64 {
	return l.engine.Threshold()
}

// Close releases model resources. Must be called when the Leafdoc instance
// is no longer needed.
func (l *Leafdoc) Close() error {
	return l.classifier.Close()
}

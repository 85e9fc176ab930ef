package leafdoc

import (
	"path/filepath"

	"github.com/crimson-sun/leafdoc/internal/engine"
	"github.com/crimson-sun/leafdoc/internal/engine/classifier"
	"github.com/crimson-sun/leafdoc/internal/engine/ingest"
)

// ModelFile is the model file name looked up inside the model directory.
const ModelFile = "plant_disease_model.onnx"

type options struct {
	modelDir            string
	modelPath           string
	runtimeLib          string
	tablePath           string
	confidenceThreshold float64
	maxBytes            int64
	maxPixels           int64
	threads             int

	predictor classifier.Predictor // tests only
}

// Option configures a Leafdoc instance.
type Option func(*options)

// WithModelDir sets the directory holding plant_disease_model.onnx and,
// unless WithRuntimeLibrary says otherwise, libonnxruntime.so.
func WithModelDir(dir string) Option {
	return func(o *options) {
		o.modelDir = dir
	}
}

// WithModelPath sets an explicit model file path. It takes precedence over
// WithModelDir.
func WithModelPath(path string) Option {
	return func(o *options) {
		o.modelPath = path
	}
}

// WithRuntimeLibrary sets the ONNX Runtime shared library path.
func WithRuntimeLibrary(path string) Option {
	return func(o *options) {
		o.runtimeLib = path
	}
}

// WithTablePath loads the diagnosis table from a YAML file instead of the
// built-in one. The file must cover every model label exactly once.
func WithTablePath(path string) Option {
	return func(o *options) {
		o.tablePath = path
	}
}

// WithConfidenceThreshold sets the confidence below which a diagnosis is
// flagged for manual verification. Default: 0.7.
func WithConfidenceThreshold(t float64) Option {
	return func(o *options) {
		o.confidenceThreshold = t
	}
}

// WithMaxBytes caps the image size Diagnose reads. Default: 10 MiB.
func WithMaxBytes(n int64) Option {
	return func(o *options) {
		o.maxBytes = n
	}
}

// WithMaxPixels caps the decoded image size (width*height) Diagnose
// accepts. Default: 40 megapixels.
func WithMaxPixels(n int64) Option {
	return func(o *options) {
		o.maxPixels = n
	}
}

// WithIntraOpThreads sets the ONNX Runtime intra-op thread count. Default: 4.
func WithIntraOpThreads(n int) Option {
	return func(o *options) {
		o.threads = n
	}
}

func withPredictor(p classifier.Predictor) Option {
	return func(o *options) {
		o.predictor = p
	}
}

func defaultOptions() options {
	return options{
		confidenceThreshold: engine.DefaultConfidenceThreshold,
		maxBytes:            ingest.DefaultMaxBytes,
		maxPixels:           ingest.DefaultMaxPixels,
		threads:             4,
	}
}

// resolveModelPath picks the model file. An explicit path wins over
// modelDir, which defaults to "models".
func resolveModelPath(o options) string {
	if o.modelPath != "" {
		return o.modelPath
	}
	dir := o.modelDir
	if dir == "" {
		dir = "models"
	}
	return filepath.Join(dir, ModelFile)
}

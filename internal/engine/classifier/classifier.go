package classifier

import (
	"errors"
	"fmt"
	"image"
	"math"
	"path/filepath"

	"github.com/crimson-sun/leafdoc/internal/model"
)

// ErrArtifactLoad is returned by New when the model artifact or the ONNX
// Runtime library cannot be loaded, or when the model's tensors do not match
// the preprocessing and label contract.
var ErrArtifactLoad = errors.New("classifier: model artifact could not be loaded")

// Predictor runs one forward pass over a preprocessed image.
type Predictor interface {
	Predict(input []float32) ([]float32, error)
	Close() error
}

type options struct {
	libPath string
	threads int
}

// Option configures New.
type Option func(*options)

// WithRuntimeLibrary sets the path of the ONNX Runtime shared library.
// Default: libonnxruntime.so next to the model file.
func WithRuntimeLibrary(path string) Option {
	return func(o *options) { o.libPath = path }
}

// WithIntraOpThreads sets the ONNX Runtime intra-op thread count. Default: 4.
func WithIntraOpThreads(n int) Option {
	return func(o *options) { o.threads = n }
}

// Classifier turns an image into a ClassificationResult. It is immutable
// after construction and safe for concurrent use.
type Classifier struct {
	predictor  Predictor
	layout     Layout
	numClasses int
}

// New loads the ONNX model at modelPath. The model must take one
// InputSize x InputSize RGB image and produce numClasses scores.
func New(modelPath string, numClasses int, opts ...Option) (*Classifier, error) {
	o := options{threads: 4}
	for _, opt := range opts {
		opt(&o)
	}
	if o.libPath == "" {
		o.libPath = filepath.Join(filepath.Dir(modelPath), "libonnxruntime.so")
	}

	sess, err := newONNXSession(modelPath, o.libPath, numClasses, o.threads)
	if err != nil {
		return nil, err
	}
	return &Classifier{predictor: sess, layout: sess.layout, numClasses: numClasses}, nil
}

// NewWithPredictor builds a Classifier around an existing predictor.
func NewWithPredictor(p Predictor, layout Layout, numClasses int) *Classifier {
	return &Classifier{predictor: p, layout: layout, numClasses: numClasses}
}

// NumClasses returns the length of the model's output vector.
func (c *Classifier) NumClasses() int {
	return c.numClasses
}

// Layout returns the input layout the model expects.
func (c *Classifier) Layout() Layout {
	return c.layout
}

// Classify preprocesses img, runs one forward pass and returns the arg-max
// class with its probability. Ties go to the lowest index. The same image
// always yields the same result.
func (c *Classifier) Classify(img image.Image) (model.ClassificationResult, error) {
	if img == nil {
		return model.ClassificationResult{}, errors.New("classifier: nil image")
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return model.ClassificationResult{}, fmt.Errorf("classifier: empty image %v", b)
	}

	scores, err := c.predictor.Predict(Preprocess(img, c.layout))
	if err != nil {
		return model.ClassificationResult{}, fmt.Errorf("classifier: %w", err)
	}
	if len(scores) != c.numClasses {
		return model.ClassificationResult{}, fmt.Errorf("classifier: model returned %d scores, want %d", len(scores), c.numClasses)
	}

	idx, conf, ok := argmax(probabilities(scores))
	if !ok {
		return model.ClassificationResult{}, errors.New("classifier: model returned no finite scores")
	}
	return model.ClassificationResult{LabelIndex: idx, Confidence: conf}, nil
}

// Close releases the underlying predictor.
func (c *Classifier) Close() error {
	if c.predictor != nil {
		return c.predictor.Close()
	}
	return nil
}

// probabilities returns scores unchanged when they already lie in [0, 1]
// (a softmax head), otherwise it treats them as logits and applies softmax.
func probabilities(scores []float32) []float64 {
	out := make([]float64, len(scores))
	isProb := true
	for i, s := range scores {
		v := float64(s)
		out[i] = v
		if !math.IsNaN(v) && (v < 0 || v > 1) {
			isProb = false
		}
	}
	if isProb {
		return out
	}
	return softmax(out)
}

func softmax(logits []float64) []float64 {
	probs := make([]float64, len(logits))

	// +Inf logits share all of the mass; finite and -Inf ones get zero.
	var inf int
	for _, v := range logits {
		if math.IsInf(v, 1) {
			inf++
		}
	}
	if inf > 0 {
		for i, v := range logits {
			switch {
			case math.IsNaN(v):
				probs[i] = math.NaN()
			case math.IsInf(v, 1):
				probs[i] = 1 / float64(inf)
			}
		}
		return probs
	}

	maxLogit := math.Inf(-1)
	for _, v := range logits {
		if !math.IsNaN(v) && v > maxLogit {
			maxLogit = v
		}
	}
	if math.IsInf(maxLogit, -1) {
		// Every non-NaN logit is -Inf: they are equal, so the mass is uniform.
		var n int
		for _, v := range logits {
			if !math.IsNaN(v) {
				n++
			}
		}
		for i, v := range logits {
			if math.IsNaN(v) {
				probs[i] = math.NaN()
			} else {
				probs[i] = 1 / float64(n)
			}
		}
		return probs
	}

	var sum float64
	for i, v := range logits {
		if math.IsNaN(v) {
			probs[i] = math.NaN()
			continue
		}
		probs[i] = math.Exp(v - maxLogit)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// argmax returns the index and value of the largest non-NaN element. Ties
// keep the first occurrence. ok is false when every element is NaN.
func argmax(v []float64) (idx int, val float64, ok bool) {
	idx = -1
	for i, x := range v {
		if math.IsNaN(x) {
			continue
		}
		if idx < 0 || x > val {
			idx, val = i, x
		}
	}
	if idx < 0 {
		return 0, 0, false
	}
	return idx, math.Min(math.Max(val, 0), 1), true
}

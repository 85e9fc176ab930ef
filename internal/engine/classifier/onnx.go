package classifier

import (
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ortEnv manages global ONNX Runtime initialization (process-wide singleton).
var ortEnv struct {
	once sync.Once
	err  error
}

// initORT initializes the ONNX Runtime environment. Safe to call multiple
// times; only the first call has any effect.
func initORT(libPath string) error {
	ortEnv.once.Do(func() {
		ort.SetSharedLibraryPath(libPath)
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

// onnxSession wraps a DynamicAdvancedSession for a single-input image model
// producing one score vector per image.
type onnxSession struct {
	session    *ort.DynamicAdvancedSession
	inputName  string
	outputName string
	inputShape ort.Shape // batch dimension fixed to 1
	outShape   ort.Shape // batch dimension fixed to 1
	layout     Layout
}

// newONNXSession loads the ONNX model and creates an inference session. It
// validates the input tensor against the fixed preprocessing resolution and
// the output tensor against numClasses.
func newONNXSession(modelPath, libPath string, numClasses, threads int) (*onnxSession, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArtifactLoad, err)
	}

	if err := initORT(libPath); err != nil {
		return nil, fmt.Errorf("%w: initialize runtime from %s: %w", ErrArtifactLoad, libPath, err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read model info: %w", ErrArtifactLoad, err)
	}

	in, layout, err := validateInput(inputs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArtifactLoad, err)
	}
	out, err := validateOutput(outputs, numClasses)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArtifactLoad, err)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("%w: session options: %w", ErrArtifactLoad, err)
	}
	defer opts.Destroy()
	if threads > 0 {
		opts.SetIntraOpNumThreads(threads)
	}
	opts.SetInterOpNumThreads(1)

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{in.Name},
		[]string{out.Name},
		opts,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: create session: %w", ErrArtifactLoad, err)
	}

	return &onnxSession{
		session:    session,
		inputName:  in.Name,
		outputName: out.Name,
		inputShape: layout.shape(),
		outShape:   batchOfOne(out.Dimensions),
		layout:     layout,
	}, nil
}

// validateInput checks for a single rank-4 float input and infers its
// layout. Dynamic dimensions (<= 0) are accepted; fixed ones must match
// InputSize and three channels.
func validateInput(inputs []ort.InputOutputInfo) (ort.InputOutputInfo, Layout, error) {
	if len(inputs) != 1 {
		return ort.InputOutputInfo{}, 0, fmt.Errorf("expected 1 model input, got %d", len(inputs))
	}
	in := inputs[0]
	if in.DataType != ort.TensorElementDataTypeFloat {
		return in, 0, fmt.Errorf("input %q: expected float32 tensor, got %v", in.Name, in.DataType)
	}
	dims := in.Dimensions
	if len(dims) != 4 {
		return in, 0, fmt.Errorf("input %q: expected 4D tensor, got %v", in.Name, dims)
	}

	layout := NHWC
	if dims[1] == 3 && dims[3] != 3 {
		layout = NCHW
	}
	want := layout.shape()
	for i := 1; i < 4; i++ {
		if dims[i] > 0 && dims[i] != want[i] {
			return in, 0, fmt.Errorf("input %q: shape %v incompatible with %v", in.Name, dims, want)
		}
	}
	return in, layout, nil
}

// validateOutput asserts the model's class dimension matches the label set.
func validateOutput(outputs []ort.InputOutputInfo, numClasses int) (ort.InputOutputInfo, error) {
	if len(outputs) == 0 {
		return ort.InputOutputInfo{}, fmt.Errorf("model has no outputs")
	}
	out := outputs[0]
	dims := out.Dimensions
	if len(dims) < 2 {
		return out, fmt.Errorf("output %q: expected [batch, classes], got %v", out.Name, dims)
	}
	if got := dims[len(dims)-1]; got != int64(numClasses) {
		return out, fmt.Errorf("output %q: model has %d classes, label set has %d", out.Name, got, numClasses)
	}
	for _, d := range dims[1 : len(dims)-1] {
		if d != 1 {
			return out, fmt.Errorf("output %q: unexpected shape %v", out.Name, dims)
		}
	}
	return out, nil
}

func batchOfOne(dims ort.Shape) ort.Shape {
	s := dims.Clone()
	s[0] = 1
	return s
}

// Predict runs a single forward pass over one preprocessed image and returns
// the model's score vector.
func (s *onnxSession) Predict(input []float32) ([]float32, error) {
	tIn, err := ort.NewTensor(s.inputShape, input)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create %s tensor: %w", s.inputName, err)
	}
	defer tIn.Destroy()

	tOut, err := ort.NewEmptyTensor[float32](s.outShape)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create output tensor: %w", err)
	}
	defer tOut.Destroy()

	if err := s.session.Run([]ort.Value{tIn}, []ort.Value{tOut}); err != nil {
		return nil, fmt.Errorf("onnx: inference failed: %w", err)
	}

	// Copy data out before tensor is destroyed.
	src := tOut.GetData()
	result := make([]float32, len(src))
	copy(result, src)
	return result, nil
}

// Close releases the ONNX session resources.
func (s *onnxSession) Close() error {
	return s.session.Destroy()
}

package leafdoc

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/crimson-sun/leafdoc/internal/model"
)

const testModelDir = "../../models"

func skipWithoutModel(t *testing.T) {
	t.Helper()
	if _, err := os.Stat(filepath.Join(testModelDir, ModelFile)); os.IsNotExist(err) {
		t.Skip("ONNX model not available, skipping integration test")
	}
}

// hotPredictor puts most of the probability mass on one class.
type hotPredictor struct {
	hot  int
	conf float32
}

func (h hotPredictor) Predict([]float32) ([]float32, error) {
	out := make([]float32, model.NumClasses)
	rest := (1 - h.conf) / float32(model.NumClasses-1)
	for i := range out {
		out[i] = rest
	}
	out[h.hot] = h.conf
	return out, nil
}

func (hotPredictor) Close() error { return nil }

func newFake(t *testing.T, hot int, conf float32, opts ...Option) *Leafdoc {
	t.Helper()
	l, err := New(append([]Option{withPredictor(hotPredictor{hot: hot, conf: conf})}, opts...)...)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func leafPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 20, 20))
	for i := 0; i < 20; i++ {
		img.Set(i, i, color.NRGBA{G: 180, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDiagnosePotatoHealthy(t *testing.T) {
	l := newFake(t, 3, 0.9)

	d, err := l.Diagnose(bytes.NewReader(leafPNG(t)))
	if err != nil {
		t.Fatalf("Diagnose() error: %v", err)
	}
	if d.Label != "Potato___healthy" {
		t.Errorf("Label = %q, want Potato___healthy", d.Label)
	}
	if d.Plant != "Potato" || d.Status != "Healthy" || d.Disease != "None" {
		t.Errorf("unexpected diagnosis %+v", d)
	}
	if d.LowConfidence {
		t.Error("0.9 should not be low confidence")
	}
	if d.ID == "" || d.CreatedAt.IsZero() {
		t.Error("ID and CreatedAt must be set")
	}
}

func TestDiagnoseLowConfidenceReport(t *testing.T) {
	l := newFake(t, 11, 0.42)

	d, err := l.Diagnose(bytes.NewReader(leafPNG(t)))
	if err != nil {
		t.Fatal(err)
	}
	if !d.LowConfidence {
		t.Error("0.42 should be flagged")
	}
	report := l.Report(d)
	for _, want := range []string{
		"🌿 PLANT DISEASE DIAGNOSIS REPORT",
		"🦠 Disease: Late Blight",
		"🧠 Confidence: 42.00%",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}
}

func TestReportContainsEveryField(t *testing.T) {
	l := newFake(t, 0, 0.8)
	d, err := l.Diagnose(bytes.NewReader(leafPNG(t)))
	if err != nil {
		t.Fatal(err)
	}
	report := l.Report(d)
	for _, field := range []string{d.Plant, d.Taxonomy, d.Status, d.Disease, d.Cause, d.DeficiencyNote, d.Description} {
		if !strings.Contains(report, field) {
			t.Errorf("report missing %q", field)
		}
	}
}

func TestDiagnoseRejectsNonImage(t *testing.T) {
	l := newFake(t, 3, 0.9)
	_, err := l.Diagnose(strings.NewReader("not an image"))
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestDiagnoseTooLarge(t *testing.T) {
	l := newFake(t, 3, 0.9, WithMaxBytes(16))
	_, err := l.Diagnose(bytes.NewReader(leafPNG(t)))
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}

func TestDiagnoseTooManyPixels(t *testing.T) {
	l := newFake(t, 3, 0.9, WithMaxPixels(10))
	_, err := l.Diagnose(bytes.NewReader(leafPNG(t)))
	if !errors.Is(err, ErrTooManyPixels) {
		t.Fatalf("expected ErrTooManyPixels, got %v", err)
	}
}

func TestLabels(t *testing.T) {
	l := newFake(t, 3, 0.9)
	labels := l.Labels()
	if len(labels) != model.NumClasses {
		t.Fatalf("len(Labels()) = %d, want %d", len(labels), model.NumClasses)
	}
	want := Label{Index: 3, Name: "Potato___healthy", Plant: "Potato", Status: "Healthy", Disease: "None"}
	if labels[3] != want {
		t.Errorf("Labels()[3] = %+v, want %+v", labels[3], want)
	}
}

func TestCustomThreshold(t *testing.T) {
	l := newFake(t, 3, 0.9, WithConfidenceThreshold(0.95))
	if l.Threshold() != 0.95 {
		t.Fatalf("Threshold() = %v", l.Threshold())
	}
	d, err := l.Diagnose(bytes.NewReader(leafPNG(t)))
	if err != nil {
		t.Fatal(err)
	}
	if !d.LowConfidence {
		t.Error("0.9 is below a 0.95 threshold")
	}
}

func TestInvalidTableRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.yaml")
	if err := os.WriteFile(path, []byte("entries: []\n"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := New(withPredictor(hotPredictor{hot: 3, conf: 0.9}), WithTablePath(path))
	if !errors.Is(err, ErrInvalidTable) {
		t.Fatalf("expected ErrInvalidTable, got %v", err)
	}
}

func TestNewBadPathReturnsError(t *testing.T) {
	_, err := New(WithModelDir("/nonexistent/path"))
	if !errors.Is(err, ErrArtifactLoad) {
		t.Fatalf("expected ErrArtifactLoad, got %v", err)
	}
}

func TestConcurrentDiagnose(t *testing.T) {
	l := newFake(t, 7, 0.88)
	data := leafPNG(t)

	const goroutines = 10
	var wg sync.WaitGroup
	errs := make(chan error, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := l.Diagnose(bytes.NewReader(data))
			if err != nil {
				errs <- err
				return
			}
			if d.Label != "Tomato__Tomato_Yellow_Leaf_Curl_Virus" {
				errs <- errors.New("unexpected label " + d.Label)
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent Diagnose() error: %v", err)
	}
}

func TestOptionsDefaults(t *testing.T) {
	o := defaultOptions()
	if o.confidenceThreshold != 0.7 {
		t.Errorf("default confidence threshold = %f, want 0.7", o.confidenceThreshold)
	}
	if o.maxBytes != 10<<20 {
		t.Errorf("default max bytes = %d", o.maxBytes)
	}
	if o.threads != 4 {
		t.Errorf("default threads = %d", o.threads)
	}
}

func TestResolveModelPath(t *testing.T) {
	tests := []struct {
		name string
		o    options
		want string
	}{
		{"default dir", options{}, filepath.Join("models", ModelFile)},
		{"dir", options{modelDir: "/data/models"}, filepath.Join("/data/models", ModelFile)},
		{"explicit wins", options{modelDir: "/data/models", modelPath: "/a/leaf.onnx"}, "/a/leaf.onnx"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveModelPath(tt.o); got != tt.want {
				t.Errorf("resolveModelPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDiagnoseWithModel(t *testing.T) {
	skipWithoutModel(t)

	l, err := New(WithModelDir(testModelDir))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer l.Close()

	d, err := l.Diagnose(bytes.NewReader(leafPNG(t)))
	if err != nil {
		t.Fatalf("Diagnose() error: %v", err)
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		t.Errorf("Confidence = %v, want within [0, 1]", d.Confidence)
	}
	again, err := l.Diagnose(bytes.NewReader(leafPNG(t)))
	if err != nil {
		t.Fatal(err)
	}
	if again.Label != d.Label || again.Confidence != d.Confidence {
		t.Errorf("same image gave %s/%v then %s/%v", d.Label, d.Confidence, again.Label, again.Confidence)
	}
}

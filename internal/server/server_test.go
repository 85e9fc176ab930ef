package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/leafdoc/internal/engine"
	"github.com/crimson-sun/leafdoc/internal/engine/taxonomy"
	"github.com/crimson-sun/leafdoc/internal/metrics"
	"github.com/crimson-sun/leafdoc/internal/model"
	"github.com/crimson-sun/leafdoc/internal/output"
)

// stubClassifier returns a fixed prediction for every image.
type stubClassifier struct {
	res model.ClassificationResult
	err error
}

func (s stubClassifier) Classify(image.Image) (model.ClassificationResult, error) {
	return s.res, s.err
}

func (stubClassifier) NumClasses() int { return model.NumClasses }

func newTestServer(t *testing.T, cls stubClassifier, opts ...Option) *Server {
	t.Helper()
	tax, err := taxonomy.Default()
	require.NoError(t, err)
	eng, err := engine.New(cls, tax, engine.DefaultConfidenceThreshold)
	require.NoError(t, err)
	return New(eng, opts...)
}

func potatoHealthy(conf float64) stubClassifier {
	return stubClassifier{res: model.ClassificationResult{LabelIndex: 3, Confidence: conf}}
}

func leafPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 16, 12))
	for y := 0; y < 12; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.NRGBA{R: 40, G: uint8(100 + x*5), B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func multipartRequest(t *testing.T, path, field string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, "leaf.png")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestIndexPage(t *testing.T) {
	s := newTestServer(t, potatoHealthy(0.97))
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	assert.Contains(t, body, "Plant Disease Detector")
	assert.Contains(t, body, `enctype="multipart/form-data"`)
	assert.Contains(t, body, "10 MB")
	assert.NotContains(t, body, "Download report")
}

func TestDiagnosePage(t *testing.T) {
	s := newTestServer(t, potatoHealthy(0.97))
	rec := serve(s, multipartRequest(t, "/diagnose", "image", leafPNG(t)))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Solanum tuberosum")
	assert.Contains(t, body, "No symptoms observed")
	assert.Contains(t, body, "97.00%")
	assert.Contains(t, body, "Identified as")
	assert.Contains(t, body, `src="data:image/png;base64,`)
	assert.Contains(t, body, `download="plant_disease_report.txt"`)
	assert.NotContains(t, body, "Low confidence")
}

func TestDiagnosePageLowConfidence(t *testing.T) {
	s := newTestServer(t, stubClassifier{res: model.ClassificationResult{LabelIndex: 11, Confidence: 0.42}})
	rec := serve(s, multipartRequest(t, "/diagnose", "image", leafPNG(t)))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Low confidence")
	assert.Contains(t, body, "42.00%")
	assert.Contains(t, body, `class="result low"`)
	assert.NotContains(t, body, "Identified as")
}

func TestDiagnosePageRejectsNonImage(t *testing.T) {
	s := newTestServer(t, potatoHealthy(0.97))
	rec := serve(s, multipartRequest(t, "/diagnose", "image", []byte("this is a text file, not a leaf")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "not a readable JPEG or PNG")
	assert.NotContains(t, body, "Download report")
}

func TestDiagnosePageMissingField(t *testing.T) {
	s := newTestServer(t, potatoHealthy(0.97))
	rec := serve(s, multipartRequest(t, "/diagnose", "photo", leafPNG(t)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Choose a leaf image")
}

func TestDiagnosePageWrongMethod(t *testing.T) {
	s := newTestServer(t, potatoHealthy(0.97))
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/diagnose", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestDiagnoseJSON(t *testing.T) {
	s := newTestServer(t, potatoHealthy(0.97))
	rec := serve(s, multipartRequest(t, "/api/diagnose", "image", leafPNG(t)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var doc output.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, "Potato___healthy", doc.Label)
	assert.Equal(t, model.StatusHealthy, doc.Status)
	assert.InDelta(t, 0.97, doc.Confidence, 1e-9)
	assert.False(t, doc.LowConfidence)
	assert.Contains(t, doc.Report, "🧠 Confidence: 97.00%")
}

func TestDiagnoseJSONRawBody(t *testing.T) {
	s := newTestServer(t, potatoHealthy(0.97))
	req := httptest.NewRequest(http.MethodPost, "/api/diagnose", bytes.NewReader(leafPNG(t)))
	req.Header.Set("Content-Type", "image/png")
	rec := serve(s, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"label":"Potato___healthy"`)
}

func TestDiagnoseJSONUnknownLabel(t *testing.T) {
	s := newTestServer(t, stubClassifier{res: model.ClassificationResult{LabelIndex: 99, Confidence: 0.9}})
	rec := serve(s, multipartRequest(t, "/api/diagnose", "image", leafPNG(t)))

	require.Equal(t, http.StatusOK, rec.Code)
	var doc output.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, model.StatusUnknown, doc.Status)
	assert.Empty(t, doc.Label)
}

func TestDiagnoseJSONTooLarge(t *testing.T) {
	tests := []struct {
		name string
		req  func(t *testing.T) *http.Request
	}{
		{"multipart", func(t *testing.T) *http.Request {
			return multipartRequest(t, "/api/diagnose", "image", make([]byte, 4096))
		}},
		{"raw", func(t *testing.T) *http.Request {
			req := httptest.NewRequest(http.MethodPost, "/api/diagnose", bytes.NewReader(make([]byte, 4096)))
			req.Header.Set("Content-Type", "image/jpeg")
			return req
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, potatoHealthy(0.97), WithMaxUploadBytes(1024))
			rec := serve(s, tt.req(t))

			assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
			var resp errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Contains(t, resp.Error, "1 KB")
		})
	}
}

func TestDiagnoseJSONTooManyPixels(t *testing.T) {
	// leafPNG is 16x12 = 192 pixels.
	s := newTestServer(t, potatoHealthy(0.97), WithMaxPixels(100))
	rec := serve(s, multipartRequest(t, "/api/diagnose", "image", leafPNG(t)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "100 pixels")

	s = newTestServer(t, potatoHealthy(0.97), WithMaxPixels(192))
	assert.Equal(t, http.StatusOK, serve(s, multipartRequest(t, "/api/diagnose", "image", leafPNG(t))).Code)
}

func TestDiagnoseJSONEngineFailure(t *testing.T) {
	s := newTestServer(t, stubClassifier{err: errors.New("session closed")})
	rec := serve(s, multipartRequest(t, "/api/diagnose", "image", leafPNG(t)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "session closed")
}

func TestReportDownload(t *testing.T) {
	s := newTestServer(t, potatoHealthy(0.97))
	rec := serve(s, multipartRequest(t, "/api/report", "image", leafPNG(t)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=plant_disease_report.txt`, rec.Header().Get("Content-Disposition"))

	tax, err := taxonomy.Default()
	require.NoError(t, err)
	rec3, ok := tax.Record("Potato___healthy")
	require.True(t, ok)
	assert.Equal(t, output.FormatReport(rec3, 0.97), rec.Body.String())
}

func TestReportRejectsNonImage(t *testing.T) {
	s := newTestServer(t, potatoHealthy(0.97))
	rec := serve(s, multipartRequest(t, "/api/report", "image", []byte("GIF89a")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLabels(t *testing.T) {
	s := newTestServer(t, potatoHealthy(0.97))
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/labels", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp labelsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 0.7, resp.Threshold)
	require.Len(t, resp.Labels, model.NumClasses)
	assert.Equal(t, labelEntry{Index: 3, Label: "Potato___healthy", Plant: "Potato", Status: model.StatusHealthy, Disease: "None"}, resp.Labels[3])
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, potatoHealthy(0.97))
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())
}

func TestRequestID(t *testing.T) {
	s := newTestServer(t, potatoHealthy(0.97))

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "trace-abc")
	rec = serve(s, req)
	assert.Equal(t, "trace-abc", rec.Header().Get(RequestIDHeader))
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, potatoHealthy(0.97), WithMetrics(metrics.New()))

	require.Equal(t, http.StatusOK, serve(s, multipartRequest(t, "/api/diagnose", "image", leafPNG(t))).Code)
	require.Equal(t, http.StatusBadRequest, serve(s, multipartRequest(t, "/api/diagnose", "image", []byte("nope"))).Code)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `leafdoc_diagnoses_total{label="Potato___healthy",status="Healthy"} 1`)
	assert.Contains(t, body, `leafdoc_rejected_uploads_total{reason="decode"} 1`)
	assert.Contains(t, body, `leafdoc_http_requests_total{code="200",route="POST /api/diagnose"} 1`)
	assert.Contains(t, body, `leafdoc_http_requests_total{code="400",route="POST /api/diagnose"} 1`)
}

func TestMetricsDisabled(t *testing.T) {
	s := newTestServer(t, potatoHealthy(0.97))
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeGracefulShutdown(t *testing.T) {
	s := newTestServer(t, potatoHealthy(0.97))
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Serve(ctx, ln, 5*time.Second)
	}()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", strings.TrimSpace(string(body)))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestHumanBytes(t *testing.T) {
	assert.Equal(t, "10 MB", humanBytes(10<<20))
	assert.Equal(t, "1 KB", humanBytes(1024))
	assert.Equal(t, "1536 KB", humanBytes(1536<<10))
	assert.Equal(t, "512 bytes", humanBytes(512))
}

func TestMegapixels(t *testing.T) {
	assert.Equal(t, "40 megapixels", megapixels(40_000_000))
	assert.Equal(t, "2.5 megapixels", megapixels(2_500_000))
	assert.Equal(t, "100 pixels", megapixels(100))
}

// recordingOutput collects forwarded diagnoses.
type recordingOutput struct {
	got []model.Diagnosis
	err error
}

func (r *recordingOutput) Write(_ context.Context, d model.Diagnosis) error {
	r.got = append(r.got, d)
	return r.err
}

func (r *recordingOutput) Close() error { return nil }

func TestDiagnosisForwardedToOutput(t *testing.T) {
	sink := &recordingOutput{}
	s := newTestServer(t, potatoHealthy(0.97), WithOutput(sink))

	require.Equal(t, http.StatusOK, serve(s, multipartRequest(t, "/api/diagnose", "image", leafPNG(t))).Code)
	require.Equal(t, http.StatusBadRequest, serve(s, multipartRequest(t, "/api/diagnose", "image", []byte("nope"))).Code)

	require.Len(t, sink.got, 1)
	assert.Equal(t, "Potato___healthy", sink.got[0].Label)
	assert.Equal(t, "leaf.png", sink.got[0].Source)
}

func TestRawBodySourceFromContentDisposition(t *testing.T) {
	sink := &recordingOutput{}
	s := newTestServer(t, potatoHealthy(0.97), WithOutput(sink))

	req := httptest.NewRequest(http.MethodPost, "/api/diagnose", bytes.NewReader(leafPNG(t)))
	req.Header.Set("Content-Type", "image/png")
	req.Header.Set("Content-Disposition", `attachment; filename="field-7.png"`)
	rec := serve(s, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"source":"field-7.png"`)
	require.Len(t, sink.got, 1)
	assert.Equal(t, "field-7.png", sink.got[0].Source)
}

func TestForwardFailureDoesNotFailRequest(t *testing.T) {
	sink := &recordingOutput{err: errors.New("hook down")}
	s := newTestServer(t, potatoHealthy(0.97), WithOutput(sink))

	rec := serve(s, multipartRequest(t, "/api/diagnose", "image", leafPNG(t)))
	assert.Equal(t, http.StatusOK, rec.Code)
}

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/crimson-sun/leafdoc/internal/engine/ingest"
	"github.com/crimson-sun/leafdoc/internal/model"
	"github.com/crimson-sun/leafdoc/internal/output"
)

// formField is the multipart field holding the uploaded image.
const formField = "image"

// multipartSlack covers multipart boundaries and headers on top of the
// image cap.
const multipartSlack = 64 << 10

var errMissingImage = errors.New("server: no image in request")

// diagnosis runs one request through ingest and the engine. The returned
// upload is only meaningful when err is nil.
func (s *Server) diagnosis(w http.ResponseWriter, r *http.Request) (ingest.Upload, model.Diagnosis, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+multipartSlack)

	up, name, err := s.readUpload(r)
	if err != nil {
		return ingest.Upload{}, model.Diagnosis{}, normalizeUploadErr(err)
	}

	start := time.Now()
	d, err := s.engine.Process(up.Image)
	if err != nil {
		return ingest.Upload{}, model.Diagnosis{}, err
	}
	d.Source = name
	s.metrics.ObserveDiagnosis(d, time.Since(start))

	slog.Info("diagnosis",
		"request_id", RequestID(r.Context()),
		"source", d.Source,
		"label", d.Label,
		"status", d.Record.Status,
		"confidence", d.Confidence,
		"low_confidence", d.LowConfidence,
	)
	if s.sink != nil {
		if err := s.sink.Write(r.Context(), d); err != nil {
			slog.Warn("forward diagnosis", "request_id", RequestID(r.Context()), "error", err)
		}
	}
	return up, d, nil
}

// readUpload accepts either a multipart form with an "image" field or a raw
// image body. name is the client file name, if one was sent.
func (s *Server) readUpload(r *http.Request) (up ingest.Upload, name string, err error) {
	limit := ingest.WithMaxPixels(s.maxPixels)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if strings.HasPrefix(mediaType, "image/") || mediaType == "application/octet-stream" {
		if _, params, err := mime.ParseMediaType(r.Header.Get("Content-Disposition")); err == nil {
			name = params["filename"]
		}
		up, err = ingest.Decode(r.Body, s.maxUpload, limit)
		return up, name, err
	}

	mr, err := r.MultipartReader()
	if err != nil {
		return ingest.Upload{}, "", fmt.Errorf("%w: %w", errMissingImage, err)
	}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return ingest.Upload{}, "", errMissingImage
		}
		if err != nil {
			return ingest.Upload{}, "", fmt.Errorf("%w: %w", errMissingImage, err)
		}
		if part.FormName() != formField {
			part.Close()
			continue
		}
		up, err = ingest.Decode(part, s.maxUpload, limit)
		name = part.FileName()
		part.Close()
		return up, name, err
	}
}

// normalizeUploadErr folds a body-limit hit into ingest.ErrTooLarge.
func normalizeUploadErr(err error) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return fmt.Errorf("%w: %w", ingest.ErrTooLarge, err)
	}
	return err
}

// classify maps an error to an HTTP status, a metrics reason and a message
// safe to show the user.
func (s *Server) classify(err error) (status int, reason, msg string) {
	switch {
	case errors.Is(err, ingest.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "too_large",
			fmt.Sprintf("The image is larger than %s. Please upload a smaller photo.", humanBytes(s.maxUpload))
	case errors.Is(err, ingest.ErrTooManyPixels):
		return http.StatusRequestEntityTooLarge, "too_many_pixels",
			fmt.Sprintf("The image is larger than %s. Please upload a smaller photo.", megapixels(s.maxPixels))
	case errors.Is(err, ingest.ErrDecode):
		return http.StatusBadRequest, "decode", "That file is not a readable JPEG or PNG image."
	case errors.Is(err, errMissingImage):
		return http.StatusBadRequest, "missing", "Choose a leaf image to upload."
	default:
		return http.StatusInternalServerError, "", "Diagnosis failed. Please try again."
	}
}

// reject logs and counts a failed diagnosis request.
func (s *Server) reject(r *http.Request, err error) (int, string) {
	status, reason, msg := s.classify(err)
	if reason != "" {
		s.metrics.RejectedUpload(reason)
		slog.Warn("upload rejected", "request_id", RequestID(r.Context()), "reason", reason, "error", err)
	} else {
		slog.Error("diagnosis failed", "request_id", RequestID(r.Context()), "error", err)
	}
	return status, msg
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, http.StatusOK, s.newPage())
}

func (s *Server) handleDiagnosePage(w http.ResponseWriter, r *http.Request) {
	up, d, err := s.diagnosis(w, r)
	p := s.newPage()
	if err != nil {
		status, msg := s.reject(r, err)
		p.Error = msg
		s.renderPage(w, status, p)
		return
	}
	if err := s.fillResult(&p, up, d); err != nil {
		slog.Error("render diagnosis", "request_id", RequestID(r.Context()), "error", err)
		p.Error = "Diagnosis failed. Please try again."
		s.renderPage(w, http.StatusInternalServerError, p)
		return
	}
	s.renderPage(w, http.StatusOK, p)
}

func (s *Server) handleDiagnoseJSON(w http.ResponseWriter, r *http.Request) {
	_, d, err := s.diagnosis(w, r)
	if err != nil {
		status, msg := s.reject(r, err)
		writeJSON(w, status, errorResponse{Error: msg})
		return
	}
	writeJSON(w, http.StatusOK, output.NewDocument(d, true))
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	_, d, err := s.diagnosis(w, r)
	if err != nil {
		status, msg := s.reject(r, err)
		http.Error(w, msg, status)
		return
	}
	w.Header().Set("Content-Type", output.ReportMIME+"; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": output.ReportFilename}))
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, output.FormatReport(d.Record, d.Confidence))
}

// labelEntry is one row of the label contract.
type labelEntry struct {
	Index   int          `json:"index"`
	Label   string       `json:"label"`
	Plant   string       `json:"plant"`
	Status  model.Status `json:"status"`
	Disease string       `json:"disease"`
}

func (s *Server) handleLabels(w http.ResponseWriter, r *http.Request) {
	tax := s.engine.Taxonomy()
	labels := tax.Labels()
	entries := make([]labelEntry, 0, len(labels))
	for i, label := range labels {
		rec, _ := tax.Record(label)
		entries = append(entries, labelEntry{
			Index:   i,
			Label:   label,
			Plant:   rec.Plant,
			Status:  rec.Status,
			Disease: rec.Disease,
		})
	}
	writeJSON(w, http.StatusOK, labelsResponse{
		Threshold: s.engine.Threshold(),
		Labels:    entries,
	})
}

type labelsResponse struct {
	Threshold float64      `json:"confidence_threshold"`
	Labels    []labelEntry `json:"labels"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, "ok\n")
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// megapixels formats a pixel count for users: "40 megapixels".
func megapixels(n int64) string {
	if n >= 1_000_000 {
		return strconv.FormatFloat(float64(n)/1e6, 'f', -1, 64) + " megapixels"
	}
	return fmt.Sprintf("%d pixels", n)
}

func humanBytes(n int64) string {
	const mib = 1 << 20
	if n >= mib && n%mib == 0 {
		return fmt.Sprintf("%d MB", n/mib)
	}
	if n >= 1<<10 {
		return fmt.Sprintf("%d KB", n>>10)
	}
	return fmt.Sprintf("%d bytes", n)
}

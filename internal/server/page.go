package server

import (
	"bytes"
	"embed"
	"encoding/base64"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/crimson-sun/leafdoc/internal/engine/ingest"
	"github.com/crimson-sun/leafdoc/internal/model"
	"github.com/crimson-sun/leafdoc/internal/output"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTmpl = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// page is the data behind templates/index.html.
type page struct {
	MaxUpload string
	Error     string

	HasResult     bool
	Preview       template.URL  // data: URI of the uploaded image
	Result        template.HTML // sanitized markdown rendering
	LowConfidence bool
	ReportHref    template.URL // data: URI of the text report
	ReportName    string
}

func (s *Server) newPage() page {
	return page{
		MaxUpload:  humanBytes(s.maxUpload),
		ReportName: output.ReportFilename,
	}
}

// fillResult renders the diagnosis markdown to sanitized HTML and embeds
// the preview and report as data URIs, so nothing is stored server side.
func (s *Server) fillResult(p *page, up ingest.Upload, d model.Diagnosis) error {
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(output.Markdown(d)), &buf); err != nil {
		return err
	}

	p.HasResult = true
	p.Result = template.HTML(s.policy.SanitizeBytes(buf.Bytes()))
	p.LowConfidence = d.LowConfidence
	p.Preview = dataURI(up.ContentType, up.Data)
	p.ReportHref = dataURI(output.ReportMIME+";charset=utf-8", []byte(output.FormatReport(d.Record, d.Confidence)))
	return nil
}

func dataURI(mediaType string, data []byte) template.URL {
	return template.URL("data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data))
}

func (s *Server) renderPage(w http.ResponseWriter, status int, p page) {
	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, p); err != nil {
		slog.Error("render page", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

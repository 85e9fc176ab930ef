package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/crimson-sun/leafdoc/internal/model"
)

const (
	// ReportFilename is the download name of the text report.
	ReportFilename = "plant_disease_report.txt"
	// ReportMIME is the content type of the text report.
	ReportMIME = "text/plain"
)

// FormatReport renders the plain-text diagnosis report. Every record field
// appears verbatim; confidence is printed as a percentage with two decimals.
func FormatReport(rec model.DiagnosisRecord, confidence float64) string {
	var b strings.Builder
	b.WriteString("🌿 PLANT DISEASE DIAGNOSIS REPORT\n\n")
	fmt.Fprintf(&b, "🪴 Plant: %s\n", rec.Plant)
	fmt.Fprintf(&b, "🔬 Taxonomy: %s\n", rec.Taxonomy)
	fmt.Fprintf(&b, "🌿 Status: %s\n", rec.Status)
	fmt.Fprintf(&b, "🦠 Disease: %s\n", rec.Disease)
	fmt.Fprintf(&b, "📌 Cause: %s\n", rec.Cause)
	fmt.Fprintf(&b, "🥕 Nutrient Deficiency: %s\n", rec.DeficiencyNote)
	fmt.Fprintf(&b, "🧪 Diagnosis: %s\n", rec.Description)
	fmt.Fprintf(&b, "🧠 Confidence: %s\n", Percent(confidence))
	return b.String()
}

// Percent formats a [0, 1] confidence as "NN.NN%".
func Percent(confidence float64) string {
	return fmt.Sprintf("%.2f%%", confidence*100)
}

// IsLowConfidence reports whether confidence falls below threshold.
func IsLowConfidence(confidence, threshold float64) bool {
	return confidence < threshold
}

// Document is the JSON form of a diagnosis, shared by the API, the CLI and
// the library.
type Document struct {
	ID             string       `json:"id"`
	Label          string       `json:"label,omitempty"`
	Plant          string       `json:"plant"`
	Taxonomy       string       `json:"taxonomy"`
	Status         model.Status `json:"status"`
	Disease        string       `json:"disease"`
	Cause          string       `json:"cause"`
	DeficiencyNote string       `json:"deficiency_note"`
	Description    string       `json:"diagnosis"`
	Confidence     float64      `json:"confidence"`
	LowConfidence  bool         `json:"low_confidence"`
	CreatedAt      time.Time    `json:"created_at"`
	Source         string       `json:"source,omitempty"`
	Report         string       `json:"report,omitempty"`
}

// NewDocument flattens a diagnosis. The text report is included when
// withReport is true.
func NewDocument(d model.Diagnosis, withReport bool) Document {
	doc := Document{
		ID:             d.ID,
		Label:          d.Label,
		Plant:          d.Record.Plant,
		Taxonomy:       d.Record.Taxonomy,
		Status:         d.Record.Status,
		Disease:        d.Record.Disease,
		Cause:          d.Record.Cause,
		DeficiencyNote: d.Record.DeficiencyNote,
		Description:    d.Record.Description,
		Confidence:     d.Confidence,
		LowConfidence:  d.LowConfidence,
		CreatedAt:      d.CreatedAt,
		Source:         d.Source,
	}
	if withReport {
		doc.Report = FormatReport(d.Record, d.Confidence)
	}
	return doc
}

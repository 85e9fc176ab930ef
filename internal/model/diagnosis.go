package model

import "time"

// Status is the health status of a diagnosed leaf.
type Status string

const (
	StatusHealthy  Status = "Healthy"
	StatusDiseased Status = "Diseased"
	StatusUnknown  Status = "Unknown"
)

// DiagnosisRecord is the static description attached to a classifier label.
// Records are values; callers receive copies and never share mutable state.
type DiagnosisRecord struct {
	Plant          string `json:"plant" yaml:"plant"`
	Taxonomy       string `json:"taxonomy" yaml:"taxonomy"`
	Status         Status `json:"status" yaml:"status"`
	Disease        string `json:"disease" yaml:"disease"`
	Cause          string `json:"cause" yaml:"cause"`
	DeficiencyNote string `json:"deficiency_note" yaml:"deficiency"`
	Description    string `json:"description" yaml:"diagnosis"`
}

// UnknownRecord returns the fallback record used when a label cannot be
// resolved. Every string field is "Unknown".
func UnknownRecord() DiagnosisRecord {
	return DiagnosisRecord{
		Plant:          "Unknown",
		Taxonomy:       "Unknown",
		Status:         StatusUnknown,
		Disease:        "Unknown",
		Cause:          "Unknown",
		DeficiencyNote: "Unknown",
		Description:    "Unknown",
	}
}

// ClassificationResult is the raw outcome of one inference call.
type ClassificationResult struct {
	LabelIndex int
	Confidence float64 // in [0, 1]
}

// Diagnosis is a resolved classification, ready for presentation.
type Diagnosis struct {
	ID            string
	Label         string // empty when the index fell outside the label set
	Record        DiagnosisRecord
	Confidence    float64
	LowConfidence bool
	CreatedAt     time.Time
	Source        string // file path or URL of the image, when known
}

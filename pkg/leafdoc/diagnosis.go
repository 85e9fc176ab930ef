package leafdoc

import (
	"time"

	"github.com/crimson-sun/leafdoc/internal/model"
)

// Diagnosis is the result of diagnosing one leaf image.
// This is the stable public type; internal representations may evolve
// independently.
type Diagnosis struct {
	ID             string    `json:"id"`
	Label          string    `json:"label,omitempty"` // model class name, empty when unresolved
	Plant          string    `json:"plant"`
	Taxonomy       string    `json:"taxonomy"`
	Status         string    `json:"status"` // Healthy, Diseased or Unknown
	Disease        string    `json:"disease"`
	Cause          string    `json:"cause"`
	DeficiencyNote string    `json:"deficiency_note"`
	Description    string    `json:"diagnosis"`
	Confidence     float64   `json:"confidence"` // probability of the predicted class, [0, 1]
	LowConfidence  bool      `json:"low_confidence"`
	CreatedAt      time.Time `json:"created_at"`
}

// Label is one entry of the model's label contract.
type Label struct {
	Index   int    // position in the model output vector
	Name    string // e.g. "Potato___healthy"
	Plant   string
	Status  string
	Disease string
}

func fromModel(d model.Diagnosis) Diagnosis {
	return Diagnosis{
		ID:             d.ID,
		Label:          d.Label,
		Plant:          d.Record.Plant,
		Taxonomy:       d.Record.Taxonomy,
		Status:         string(d.Record.Status),
		Disease:        d.Record.Disease,
		Cause:          d.Record.Cause,
		DeficiencyNote: d.Record.DeficiencyNote,
		Description:    d.Record.Description,
		Confidence:     d.Confidence,
		LowConfidence:  d.LowConfidence,
		CreatedAt:      d.CreatedAt,
	}
}

func (d Diagnosis) record() model.DiagnosisRecord {
	return model.DiagnosisRecord{
		Plant:          d.Plant,
		Taxonomy:       d.Taxonomy,
		Status:         model.Status(d.Status),
		Disease:        d.Disease,
		Cause:          d.Cause,
		DeficiencyNote: d.DeficiencyNote,
		Description:    d.Description,
	}
}

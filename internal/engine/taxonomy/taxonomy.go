package taxonomy

import (
	"errors"
	"fmt"

	"github.com/crimson-sun/leafdoc/internal/model"
)

// ErrInvalidTable is returned by New when the diagnosis table does not cover
// the label set exactly.
var ErrInvalidTable = errors.New("taxonomy: invalid diagnosis table")

// Entry pairs a classifier label with its diagnosis record.
type Entry struct {
	Label                 string `yaml:"label"`
	model.DiagnosisRecord `yaml:",inline"`
}

// Taxonomy maps classifier output indices to diagnosis records. It is built
// once at startup and read-only afterwards, so it is safe for concurrent use.
type Taxonomy struct {
	labels  []string
	records map[string]model.DiagnosisRecord
}

// New validates entries against the ordered label set and builds the lookup
// table. Every label must have exactly one entry with all fields populated,
// and no entry may name a label outside the set. All problems are reported
// together.
func New(labels []string, entries []Entry) (*Taxonomy, error) {
	var errs []error

	known := make(map[string]bool, len(labels))
	for i, l := range labels {
		if l == "" {
			errs = append(errs, fmt.Errorf("label %d is empty", i))
			continue
		}
		if known[l] {
			errs = append(errs, fmt.Errorf("label %q appears more than once in the label set", l))
		}
		known[l] = true
	}

	records := make(map[string]model.DiagnosisRecord, len(entries))
	for _, e := range entries {
		if !known[e.Label] {
			errs = append(errs, fmt.Errorf("entry %q does not match any model label", e.Label))
			continue
		}
		if _, dup := records[e.Label]; dup {
			errs = append(errs, fmt.Errorf("duplicate entry for %q", e.Label))
			continue
		}
		if err := validateRecord(e.DiagnosisRecord); err != nil {
			errs = append(errs, fmt.Errorf("entry %q: %w", e.Label, err))
			continue
		}
		records[e.Label] = e.DiagnosisRecord
	}

	for _, l := range labels {
		if _, ok := records[l]; !ok && known[l] {
			errs = append(errs, fmt.Errorf("no entry for label %q", l))
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTable, errors.Join(errs...))
	}

	t := &Taxonomy{
		labels:  make([]string, len(labels)),
		records: records,
	}
	copy(t.labels, labels)
	return t, nil
}

// Default builds the taxonomy from the model label set and built-in entries.
func Default() (*Taxonomy, error) {
	return New(model.Labels(), DefaultEntries())
}

func validateRecord(r model.DiagnosisRecord) error {
	fields := []struct{ name, val string }{
		{"plant", r.Plant},
		{"taxonomy", r.Taxonomy},
		{"disease", r.Disease},
		{"cause", r.Cause},
		{"deficiency", r.DeficiencyNote},
		{"diagnosis", r.Description},
	}
	var errs []error
	for _, f := range fields {
		if f.val == "" {
			errs = append(errs, fmt.Errorf("field %q is empty", f.name))
		}
	}
	if r.Status != model.StatusHealthy && r.Status != model.StatusDiseased {
		errs = append(errs, fmt.Errorf("status %q must be %q or %q", r.Status, model.StatusHealthy, model.StatusDiseased))
	}
	return errors.Join(errs...)
}

// Lookup resolves a classification result. ok is false when the index is
// outside the label set or the label has no record; rec is then the Unknown
// record. label is empty only when the index is out of range.
func (t *Taxonomy) Lookup(res model.ClassificationResult) (label string, rec model.DiagnosisRecord, ok bool) {
	if res.LabelIndex < 0 || res.LabelIndex >= len(t.labels) {
		return "", model.UnknownRecord(), false
	}
	label = t.labels[res.LabelIndex]
	rec, ok = t.records[label]
	if !ok {
		return label, model.UnknownRecord(), false
	}
	return label, rec, true
}

// Resolve returns the record for a classification result, or the Unknown
// record when it cannot be resolved.
func (t *Taxonomy) Resolve(res model.ClassificationResult) model.DiagnosisRecord {
	_, rec, _ := t.Lookup(res)
	return rec
}

// Record returns the record registered for label.
func (t *Taxonomy) Record(label string) (model.DiagnosisRecord, bool) {
	rec, ok := t.records[label]
	return rec, ok
}

// Labels returns a copy of the ordered label set.
func (t *Taxonomy) Labels() []string {
	out := make([]string, len(t.labels))
	copy(out, t.labels)
	return out
}

// Len returns the number of labels, which must equal the classifier's output
// dimension.
func (t *Taxonomy) Len() int {
	return len(t.labels)
}

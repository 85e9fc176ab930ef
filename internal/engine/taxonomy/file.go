package taxonomy

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/crimson-sun/leafdoc/internal/model"
)

// tableFile is the on-disk layout of a diagnosis table.
//
//	entries:
//	  - label: Potato___healthy
//	    plant: Potato
//	    taxonomy: Solanum tuberosum
//	    status: Healthy
//	    disease: None
//	    cause: N/A
//	    deficiency: N/A
//	    diagnosis: No symptoms observed
type tableFile struct {
	Entries []Entry `yaml:"entries"`
}

// LoadFile reads a YAML diagnosis table. String fields are trimmed and
// NFC-normalized so labels written with composed or decomposed accents match
// the model's label set byte for byte. The result still needs New to be
// validated.
func LoadFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("taxonomy: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML diagnosis table from memory.
func Parse(data []byte) ([]Entry, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("taxonomy: parse table: %w", err)
	}
	for i := range f.Entries {
		f.Entries[i] = normalizeEntry(f.Entries[i])
	}
	return f.Entries, nil
}

func normalizeEntry(e Entry) Entry {
	e.Label = clean(e.Label)
	e.Plant = clean(e.Plant)
	e.Taxonomy = clean(e.Taxonomy)
	e.Status = model.Status(clean(string(e.Status)))
	e.Disease = clean(e.Disease)
	e.Cause = clean(e.Cause)
	e.DeficiencyNote = clean(e.DeficiencyNote)
	e.Description = clean(e.Description)
	return e
}

func clean(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// Load builds a validated taxonomy from the YAML table at path, or from the
// built-in table when path is empty.
func Load(path string) (*Taxonomy, error) {
	if path == "" {
		return Default()
	}
	entries, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return New(model.Labels(), entries)
}

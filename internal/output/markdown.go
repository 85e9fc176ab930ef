package output

import (
	"fmt"
	"strings"

	"github.com/crimson-sun/leafdoc/internal/model"
)

// LowConfidenceWarning is shown next to results below the threshold.
const LowConfidenceWarning = "⚠️ Low confidence: please consider manual verification."

// Markdown renders a diagnosis for on-screen display. Low-confidence results
// carry the warning instead of the success line.
func Markdown(d model.Diagnosis) string {
	r := d.Record
	var b strings.Builder
	fmt.Fprintf(&b, "### 🪴 Plant: **%s**  _(Taxonomy: *%s*)_\n\n", r.Plant, r.Taxonomy)
	fmt.Fprintf(&b, "### 🌿 Status: **%s**\n\n", r.Status)
	fmt.Fprintf(&b, "### 🦠 Disease: **%s**\n\n", r.Disease)
	fmt.Fprintf(&b, "### 📌 Cause: %s\n\n", r.Cause)
	fmt.Fprintf(&b, "### 🥕 Nutrient Deficiency: %s\n\n", r.DeficiencyNote)
	fmt.Fprintf(&b, "### 🧪 Diagnosis: %s\n\n", r.Description)
	fmt.Fprintf(&b, "### 🧠 Confidence: **%s**\n\n", Percent(d.Confidence))
	if d.LowConfidence {
		fmt.Fprintf(&b, "> %s\n", LowConfidenceWarning)
	} else {
		fmt.Fprintf(&b, "> ✅ Identified as **%s** with **%s** certainty.\n", r.Disease, Percent(d.Confidence))
	}
	return b.String()
}

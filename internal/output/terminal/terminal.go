// Package terminal renders diagnoses for humans: a coloured status badge
// followed by the diagnosis markdown rendered with glamour.
package terminal

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/crimson-sun/leafdoc/internal/model"
	"github.com/crimson-sun/leafdoc/internal/output"
)

var (
	badgeBase = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Foreground(lipgloss.Color("#ffffff"))

	healthyBadge  = badgeBase.Background(lipgloss.Color("#2e7d32"))
	diseasedBadge = badgeBase.Background(lipgloss.Color("#c62828"))
	unknownBadge  = badgeBase.Background(lipgloss.Color("#616161"))
	lowBadge      = badgeBase.Background(lipgloss.Color("#f9a825")).Foreground(lipgloss.Color("#000000"))

	sourceStyle = lipgloss.NewStyle().Faint(true)
)

// Output writes rendered diagnoses to w.
type Output struct {
	mu       sync.Mutex
	w        io.Writer
	renderer *glamour.TermRenderer
}

// New creates an Output. style is a glamour standard style ("dark",
// "light", "notty", ...) or "auto" to detect from the terminal.
func New(w io.Writer, style string, width int) (*Output, error) {
	styleOpt := glamour.WithAutoStyle()
	if style != "" && style != "auto" {
		styleOpt = glamour.WithStandardStyle(style)
	}
	r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		return nil, fmt.Errorf("terminal output: %w", err)
	}
	return &Output{w: w, renderer: r}, nil
}

func (o *Output) Write(_ context.Context, d model.Diagnosis) error {
	md, err := o.renderer.Render(output.Markdown(d))
	if err != nil {
		return fmt.Errorf("terminal output: render: %w", err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	header := Badge(d)
	if d.Source != "" {
		header += " " + sourceStyle.Render(d.Source)
	}
	if _, err := fmt.Fprintf(o.w, "%s\n%s", header, md); err != nil {
		return fmt.Errorf("terminal output: write: %w", err)
	}
	return nil
}

func (o *Output) Close() error {
	return nil
}

// Badge returns the coloured status badge for d, with a second badge when
// confidence is below the threshold.
func Badge(d model.Diagnosis) string {
	var style lipgloss.Style
	switch d.Record.Status {
	case model.StatusHealthy:
		style = healthyBadge
	case model.StatusDiseased:
		style = diseasedBadge
	default:
		style = unknownBadge
	}
	badge := style.Render(string(d.Record.Status))
	if d.LowConfidence {
		badge += " " + lowBadge.Render("low confidence "+output.Percent(d.Confidence))
	}
	return badge
}

package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorPrimary = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7571F9"}
	colorDim     = lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#626262"}
	colorHigh    = lipgloss.AdaptiveColor{Light: "#D7263D", Dark: "#FF5F6D"}
	colorMedium  = lipgloss.AdaptiveColor{Light: "#C88B00", Dark: "#FFC857"}
	colorLow     = lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#25D366"}

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	companyStyle = lipgloss.NewStyle().
			Bold(true)

	metaStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	placeholderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorDim).
				Padding(0, 1)

	impactStyles = map[string]lipgloss.Style{
		"high":   lipgloss.NewStyle().Foreground(colorHigh),
		"medium": lipgloss.NewStyle().Foreground(colorMedium),
		"low":    lipgloss.NewStyle().Foreground(colorLow),
	}
)

// Terminal prints the ticker as a styled list.
type Terminal struct {
	W     io.Writer
	Width int
}

func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{W: w, Width: 100}
}

func (t *Terminal) Render(v View) error {
	var b strings.Builder

	b.WriteString(titleStyle.Render(v.Title))
	if v.UpdatedAgo != "" {
		b.WriteString(" " + metaStyle.Render("Last updated: "+v.UpdatedAgo))
	}
	b.WriteString("\n")

	if v.Placeholder != "" {
		b.WriteString(placeholderStyle.Render(v.Placeholder))
		b.WriteString("\n")
		_, err := io.WriteString(t.W, b.String())
		return err
	}
	if len(v.Items) == 0 {
		b.WriteString(metaStyle.Render("No news yet."))
		b.WriteString("\n")
	}

	for _, e := range v.Items {
		marker := impactStyles[e.ImpactClass].Render("●")
		headline := truncate(e.Headline, t.Width-8)
		fmt.Fprintf(&b, "%2d %s %s  %s\n", e.Index, marker, companyStyle.Render(e.Company), headline)
		fmt.Fprintf(&b, "      %s\n", metaStyle.Render(fmt.Sprintf("%s • %s • impact %.1f", e.Ago, e.Source, e.ImpactScore)))
	}

	_, err := io.WriteString(t.W, b.String())
	return err
}

func truncate(s string, max int) string {
	if max <= 3 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

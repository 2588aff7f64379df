package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/gingfrederik/docx"
)

// Report writes the ticker as a Word scores report.
type Report struct {
	Path string
}

func NewReport(path string) *Report {
	return &Report{Path: path}
}

func (r *Report) Render(v View) error {
	f := docx.NewFile()

	// Header
	p := f.AddParagraph()
	run := p.AddText(fmt.Sprintf("%s News Ticker Report", v.Title))
	run.Size(18)

	if !v.UpdatedAt.IsZero() {
		p = f.AddParagraph()
		run = p.AddText("Last updated: " + v.UpdatedAt.Format(time.RFC1123))
		run.Size(10)
		run.Color("808080")
	}

	// Explanations
	p = f.AddParagraph()
	p.AddText("Understanding the Scores:")

	p = f.AddParagraph()
	p.AddText("- Impact Score (1-10): Keyword signals for funding, launches and leadership news, boosted for leaders and visionaries. Higher is more significant.")

	p = f.AddParagraph()
	p.AddText("- Age: Items lose weight exponentially as they get older, so a fresh medium-impact story can outrank an old high-impact one.")

	f.AddParagraph() // Spacer
	f.AddParagraph().AddText("--------------------------------------------------")
	f.AddParagraph() // Spacer

	if v.Placeholder != "" {
		f.AddParagraph().AddText(v.Placeholder)
	}

	for _, e := range v.Items {
		p = f.AddParagraph()
		run = p.AddText(fmt.Sprintf("%d. %s: %s", e.Index, e.Company, e.Headline))
		run.Size(14)

		p = f.AddParagraph()
		run = p.AddText(fmt.Sprintf("Source: %s | %s", e.Source, e.Ago))
		run.Size(10)
		run.Color("808080")

		p = f.AddParagraph()
		run = p.AddText(e.URL)
		run.Size(10)
		run.Color("0000FF")

		if s := strings.TrimSpace(e.Snippet); s != "" {
			f.AddParagraph().AddText(s)
		}

		p = f.AddParagraph()
		run = p.AddText(fmt.Sprintf("Impact: %.1f (%s)", e.ImpactScore, impactLabel(e.ImpactClass)))
		run.Color(impactColor(e.ImpactClass))

		f.AddParagraph() // Spacer
	}

	if err := f.Save(r.Path); err != nil {
		return fmt.Errorf("saving report %s: %w", r.Path, err)
	}
	return nil
}

func impactLabel(class string) string {
	switch class {
	case "high":
		return "High"
	case "medium":
		return "Medium"
	default:
		return "Low"
	}
}

func impactColor(class string) string {
	switch class {
	case "high":
		return "C00000"
	case "medium":
		return "C88B00"
	default:
		return "008000"
	}
}

package render

import (
	"fmt"
	"html/template"
	"io"
)

// Every item link opens in a new browsing context with no opener and no
// referrer.
var tickerTemplate = template.Must(template.New("ticker").Parse(`<div class="news-ticker" data-analysis-type="{{.AnalysisType}}">
<div class="ticker-header"><span class="ticker-title">{{.Title}}</span>{{if .UpdatedAgo}} <span id="news-last-update">Last updated: {{.UpdatedAgo}}</span>{{end}}</div>
<div class="ticker-content">
{{- if .Placeholder}}
<div class="api-key-error">{{.Placeholder}}</div>
{{- else}}
{{- range .Items}}
<a class="news-item" href="{{.URL}}" target="_blank" rel="noopener noreferrer" data-id="{{.ID}}">
<div class="impact-indicator {{.ImpactClass}}"></div>
<div class="company-info"><span class="company-name">{{.Company}}</span></div>
<div class="news-content"><span class="headline">{{.Headline}}</span><span class="meta">{{.Ago}} • {{.Source}}</span></div>
</a>
{{- end}}
{{- end}}
</div>
</div>
`))

// HTML writes the ticker as an embeddable HTML fragment.
type HTML struct {
	W io.Writer
}

func NewHTML(w io.Writer) *HTML {
	return &HTML{W: w}
}

func (h *HTML) Render(v View) error {
	if err := tickerTemplate.Execute(h.W, v); err != nil {
		return fmt.Errorf("rendering html ticker: %w", err)
	}
	return nil
}

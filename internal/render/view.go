// Package render projects cached ticker records into views and draws them.
// Renderers only format; ranking and filtering happen before a View exists.
package render

import (
	"fmt"
	"time"

	"newsticker/internal/news"
)

// Entry is one rendered ticker line.
type Entry struct {
	Index       int       `json:"index"`
	ID          string    `json:"id"`
	Company     string    `json:"company"`
	Headline    string    `json:"headline"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	Snippet     string    `json:"snippet,omitempty"`
	PublishedAt time.Time `json:"publishedAt"`
	Ago         string    `json:"ago"`
	ImpactScore float64   `json:"impactScore"`
	ImpactClass string    `json:"impactClass"`
	HasContent  bool      `json:"hasContent"`
}

type View struct {
	AnalysisType string    `json:"analysisType"`
	Title        string    `json:"title"`
	Items        []Entry   `json:"items"`
	UpdatedAt    time.Time `json:"updatedAt"`
	UpdatedAgo   string    `json:"updatedAgo,omitempty"`
	Placeholder  string    `json:"placeholder,omitempty"`
}

// NewView keeps items at or above minImpact, in their ranked order.
func NewView(analysisType, title string, items []news.Item, updatedAt time.Time, minImpact float64, now time.Time) View {
	v := View{
		AnalysisType: analysisType,
		Title:        title,
		Items:        []Entry{},
		UpdatedAt:    updatedAt,
	}
	if !updatedAt.IsZero() {
		v.UpdatedAgo = FormatTimeAgo(updatedAt, now)
	}
	for _, it := range items {
		if it.ImpactScore < minImpact {
			continue
		}
		v.Items = append(v.Items, Entry{
			Index:       len(v.Items) + 1,
			ID:          it.ID,
			Company:     it.Company.DisplayName(),
			Headline:    it.Headline,
			URL:         it.URL,
			Source:      it.Source,
			Snippet:     it.Snippet,
			PublishedAt: it.PublishedAt,
			Ago:         FormatTimeAgo(it.PublishedAt, now),
			ImpactScore: it.ImpactScore,
			ImpactClass: it.ImpactClass(),
			HasContent:  it.FullContent != "",
		})
	}
	return v
}

// PlaceholderView is drawn instead of news, e.g. when credentials are missing.
func PlaceholderView(analysisType, title, message string) View {
	return View{
		AnalysisType: analysisType,
		Title:        title,
		Items:        []Entry{},
		Placeholder:  message,
	}
}

// Find returns the entry with the given id.
func (v View) Find(id string) (Entry, bool) {
	for _, e := range v.Items {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// FormatTimeAgo renders whole days, else whole hours, else "Just now".
func FormatTimeAgo(t, now time.Time) string {
	hours := int(now.Sub(t).Hours())
	days := hours / 24
	switch {
	case days > 0:
		return fmt.Sprintf("%dd ago", days)
	case hours > 0:
		return fmt.Sprintf("%dh ago", hours)
	default:
		return "Just now"
	}
}

package discovery

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

const googleNewsRSSBase = "https://news.google.com/rss/search"

// GoogleNewsRSS searches the public Google News RSS endpoint. It needs no
// credential and is the fallback when no search key is configured.
type GoogleNewsRSS struct {
	Client  *http.Client
	BaseURL string
	Profile LanguageProfile
}

func NewGoogleNewsRSS(lang string, timeout time.Duration) *GoogleNewsRSS {
	return &GoogleNewsRSS{
		Client:  &http.Client{Timeout: timeout},
		BaseURL: googleNewsRSSBase,
		Profile: ProfileFor(lang),
	}
}

func (g *GoogleNewsRSS) Name() string { return "google-news-rss" }

func (g *GoogleNewsRSS) Search(ctx context.Context, q Query) ([]Result, error) {
	params := url.Values{}
	params.Set("q", q.Text)
	params.Set("hl", g.Profile.HL)
	params.Set("gl", g.Profile.GL)
	params.Set("ceid", g.Profile.CEID)
	u := g.BaseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "newsticker/1.0 (+rss)")

	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("google news rss http %d", resp.StatusCode)
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing google news rss: %w", err)
	}

	out := make([]Result, 0, len(feed.Items))
	for _, it := range feed.Items {
		link := strings.TrimSpace(it.Link)
		if link == "" {
			continue
		}
		title, source := splitPublisher(strings.TrimSpace(it.Title))

		var pub time.Time
		if it.PublishedParsed != nil {
			pub = *it.PublishedParsed
		} else if it.UpdatedParsed != nil {
			pub = *it.UpdatedParsed
		}

		out = append(out, Result{
			Title:       title,
			Link:        link,
			Source:      source,
			Snippet:     snippetText(it.Description, title, source),
			PublishedAt: pub,
		})
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}

// splitPublisher splits "Headline - Publisher" titles. Titles without the
// separator are returned unchanged with an empty publisher.
func splitPublisher(title string) (string, string) {
	i := strings.LastIndex(title, " - ")
	if i <= 0 {
		return title, ""
	}
	return strings.TrimSpace(title[:i]), strings.TrimSpace(title[i+3:])
}

// snippetText reduces the feed's description HTML to text. Google News
// descriptions often just repeat the headline and publisher; those yield "".
func snippetText(description, title, source string) string {
	if strings.TrimSpace(description) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(description))
	if err != nil {
		return ""
	}
	text := strings.Join(strings.Fields(doc.Text()), " ")

	rest := strings.TrimSpace(strings.TrimPrefix(text, title))
	rest = strings.TrimSpace(strings.TrimSuffix(rest, source))
	if rest == "" {
		return ""
	}
	return text
}

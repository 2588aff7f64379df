package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

// maxPageBytes bounds how much of a page Direct reads.
const maxPageBytes = 4 << 20

// Direct fetches the article itself and converts its main content to
// Markdown. It needs no credential.
type Direct struct {
	Client *http.Client
}

func NewDirect(timeout time.Duration) *Direct {
	return &Direct{Client: &http.Client{Timeout: timeout}}
}

func (d *Direct) Name() string { return "direct" }

func (d *Direct) Extract(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; newsticker/1.0)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := d.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetching %s: http %d", url, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("parsing %s: %w", url, err)
	}

	doc.Find("script, style, noscript, nav, header, footer, aside, form, iframe").Remove()

	content := mainContent(doc)
	html, err := content.Html()
	if err != nil {
		return "", err
	}

	converter := md.NewConverter(resp.Request.URL.String(), true, nil)
	markdown, err := converter.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("converting %s to markdown: %w", url, err)
	}
	return strings.TrimSpace(markdown), nil
}

// mainContent prefers <article>, then <main>, then <body>.
func mainContent(doc *goquery.Document) *goquery.Selection {
	for _, sel := range []string{"article", "main", "[role=main]"} {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			return s
		}
	}
	return doc.Find("body").First()
}

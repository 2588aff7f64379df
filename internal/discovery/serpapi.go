package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// SerpAPI searches Google News through serpapi.com's google_news engine.
type SerpAPI struct {
	Client  *http.Client
	BaseURL string
	APIKey  string
	Now     func() time.Time
}

func NewSerpAPI(baseURL, apiKey string, timeout time.Duration) *SerpAPI {
	return &SerpAPI{
		Client:  &http.Client{Timeout: timeout},
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Now:     time.Now,
	}
}

func (s *SerpAPI) Name() string { return "serpapi" }

type serpResponse struct {
	Error       string       `json:"error"`
	NewsResults []serpResult `json:"news_results"`
}

type serpResult struct {
	Title   string       `json:"title"`
	Link    string       `json:"link"`
	Source  serpSource   `json:"source"`
	Date    string       `json:"date"`
	Snippet string       `json:"snippet"`
	Stories []serpResult `json:"stories"`
}

// serpSource is a plain string in older responses and an object in newer ones.
type serpSource string

func (s *serpSource) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = serpSource(v)
		return nil
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	*s = serpSource(obj.Name)
	return nil
}

func (s *SerpAPI) Search(ctx context.Context, q Query) ([]Result, error) {
	if s.APIKey == "" {
		return nil, errors.New("serpapi: no api key")
	}

	params := url.Values{}
	params.Set("engine", "google_news")
	params.Set("q", q.Text)
	params.Set("api_key", s.APIKey)
	if q.Limit > 0 {
		params.Set("num", strconv.Itoa(q.Limit))
	}
	u := s.BaseURL + "/search.json?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, s.redact(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("serpapi http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload serpResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding serpapi response: %w", err)
	}
	if payload.Error != "" {
		return nil, fmt.Errorf("serpapi: %s", payload.Error)
	}

	now := s.Now()
	out := make([]Result, 0, len(payload.NewsResults))
	for _, r := range flattenStories(payload.NewsResults) {
		link := strings.TrimSpace(r.Link)
		if link == "" {
			continue
		}
		pub, _ := parseResultDate(r.Date, now)
		out = append(out, Result{
			Title:       strings.TrimSpace(r.Title),
			Link:        link,
			Source:      strings.TrimSpace(string(r.Source)),
			Snippet:     strings.TrimSpace(r.Snippet),
			PublishedAt: pub,
		})
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}

// flattenStories replaces story clusters (results with no link of their
// own) by the stories they group.
func flattenStories(in []serpResult) []serpResult {
	out := make([]serpResult, 0, len(in))
	for _, r := range in {
		if r.Link == "" && len(r.Stories) > 0 {
			out = append(out, r.Stories...)
			continue
		}
		out = append(out, r)
	}
	return out
}

// redact keeps the api key out of transport errors, which quote the URL.
func (s *SerpAPI) redact(err error) error {
	var ue *url.Error
	if s.APIKey == "" || !errors.As(err, &ue) {
		return err
	}
	return &url.Error{
		Op:  ue.Op,
		URL: strings.ReplaceAll(ue.URL, url.QueryEscape(s.APIKey), "REDACTED"),
		Err: ue.Err,
	}
}

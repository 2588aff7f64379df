package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Firecrawl scrapes pages through the Firecrawl API.
type Firecrawl struct {
	Client  *http.Client
	BaseURL string
	APIKey  string
}

func NewFirecrawl(baseURL, apiKey string, timeout time.Duration) *Firecrawl {
	return &Firecrawl{
		Client:  &http.Client{Timeout: timeout},
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
	}
}

func (f *Firecrawl) Name() string { return "firecrawl" }

type scrapeRequest struct {
	URL     string   `json:"url"`
	Formats []string `json:"formats"`
}

type scrapeResponse struct {
	Success *bool  `json:"success"`
	Error   string `json:"error"`
	Data    struct {
		Markdown string `json:"markdown"`
	} `json:"data"`
}

func (f *Firecrawl) Extract(ctx context.Context, url string) (string, error) {
	if f.APIKey == "" {
		return "", errors.New("firecrawl: no api key")
	}

	body, err := json.Marshal(scrapeRequest{URL: url, Formats: []string{"markdown"}})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.BaseURL+"/v0/scrape", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+f.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("firecrawl http %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out scrapeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding firecrawl response: %w", err)
	}
	// success is optional; only an explicit false or an error message fails.
	if (out.Success != nil && !*out.Success) || out.Error != "" {
		if out.Error == "" {
			out.Error = "unknown error"
		}
		return "", fmt.Errorf("firecrawl: %s", out.Error)
	}
	return out.Data.Markdown, nil
}

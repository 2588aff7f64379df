package discovery

import (
	"context"
	"errors"
	"time"
)

var ErrRateLimited = errors.New("search rate limit reached")

type Query struct {
	Text  string
	Limit int
}

// Result is one search hit, already mapped out of the provider's format.
// PublishedAt is zero when the provider gave no usable date.
type Result struct {
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	Source      string    `json:"source"`
	Snippet     string    `json:"snippet"`
	PublishedAt time.Time `json:"published_at"`
}

type Searcher interface {
	Name() string
	Search(ctx context.Context, q Query) ([]Result, error)
}

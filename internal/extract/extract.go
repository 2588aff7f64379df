package extract

import (
	"context"
)

// Extractor turns an article URL into its full text as Markdown.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, url string) (string, error)
}

// None is used when enrichment is switched off. It always returns "".
type None struct{}

func (None) Name() string { return "none" }

func (None) Extract(ctx context.Context, url string) (string, error) { return "", nil }

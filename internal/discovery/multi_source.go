package discovery

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// MultiSource tries each searcher in order and returns the first non-empty
// result set.
type MultiSource struct {
	Searchers []Searcher
}

func NewMultiSource(searchers ...Searcher) *MultiSource {
	return &MultiSource{Searchers: searchers}
}

func (m *MultiSource) Name() string {
	names := make([]string, 0, len(m.Searchers))
	for _, s := range m.Searchers {
		names = append(names, s.Name())
	}
	return "multi(" + strings.Join(names, ",") + ")"
}

// Search returns an empty result without error when at least one searcher
// succeeded with nothing. Errors are joined only when every searcher failed.
func (m *MultiSource) Search(ctx context.Context, q Query) ([]Result, error) {
	var errs []error
	succeeded := false

	for _, s := range m.Searchers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := s.Search(ctx, q)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		succeeded = true
		if len(res) > 0 {
			return res, nil
		}
	}

	if succeeded || len(errs) == 0 {
		return nil, nil
	}
	return nil, errors.Join(errs...)
}

package discovery

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limited caps the number of searches per hour. A spent budget fails fast
// with ErrRateLimited instead of waiting.
type Limited struct {
	next    Searcher
	limiter *rate.Limiter
}

func NewLimited(next Searcher, perHour int) *Limited {
	if perHour <= 0 {
		perHour = 1
	}
	return &Limited{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(time.Hour/time.Duration(perHour)), perHour),
	}
}

func (l *Limited) Name() string { return l.next.Name() }

func (l *Limited) Search(ctx context.Context, q Query) ([]Result, error) {
	if !l.limiter.Allow() {
		return nil, ErrRateLimited
	}
	return l.next.Search(ctx, q)
}

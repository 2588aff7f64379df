// Package scoring rates news items for the ticker.
package scoring

import (
	"math"
	"regexp"
	"sort"
	"time"

	"newsticker/internal/news"
)

const (
	baseImpact = 1.0
	maxImpact  = 10.0

	minRecency = 0.1
	decayHours = 24.0
)

var (
	reMoney  = regexp.MustCompile(`(?i)\b(funding|funded|acquisition|acquires|acquired|merger|ipo|series [a-z]|raise|raises|raised)\b|\$\d+(?:\.\d+)?\s?(?:m|b|million|billion)\b`)
	reLaunch = regexp.MustCompile(`(?i)\b(partnership|partners|integration|integrates|launch|launches|launched|release|releases|released|announces|announced|announcement)\b`)
	rePeople = regexp.MustCompile(`(?i)\b(ceo|cto|founder|co-founder|leadership|executive)\b`)
)

// Impact rates newsworthiness on a 1-10 scale from keyword categories
// in the headline and snippet, weighted by the tier of the company the
// text mentions. A nil matcher or no match means no tier bonus.
func Impact(headline, snippet string, m *news.Matcher) float64 {
	text := headline + " " + snippet
	score := baseImpact

	if reMoney.MatchString(text) {
		score += 4
	}
	if reLaunch.MatchString(text) {
		score += 2
	}
	if rePeople.MatchString(text) {
		score++
	}

	if c, ok := m.Find(text); ok {
		score *= c.Quadrant.Multiplier()
	}

	return math.Min(score, maxImpact)
}

// Recency decays exponentially with age: 1.0 at publish, ~0.37 after a
// day, never below 0.1. Future timestamps count as just published.
func Recency(publishedAt, now time.Time) float64 {
	hours := now.Sub(publishedAt).Hours()
	if hours < 0 {
		hours = 0
	}
	return math.Max(minRecency, math.Exp(-hours/decayHours))
}

// Score fills in both scores on an item.
func Score(it *news.Item, m *news.Matcher, now time.Time) {
	it.ImpactScore = Impact(it.Headline, it.Snippet, m)
	it.RecencyScore = Recency(it.PublishedAt, now)
}

// Rank orders items by impact x recency, highest first, keeping input
// order among equals, and returns at most limit items. limit <= 0 keeps all.
func Rank(items []news.Item, limit int) []news.Item {
	out := append([]news.Item(nil), items...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Rank() > out[j].Rank()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

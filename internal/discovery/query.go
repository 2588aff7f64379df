package discovery

import (
	"fmt"
	"strings"

	"newsticker/internal/news"
)

// eventKeywords narrow a company search to business events.
var eventKeywords = []string{"funding", "acquisition", "product", "partnership", "announcement"}

// BuildQuery is the search query for one company, e.g.
// "Anthropic" (funding OR acquisition OR product OR partnership OR announcement)
func BuildQuery(c news.Company) string {
	return fmt.Sprintf("%q (%s)", c.DisplayName(), strings.Join(eventKeywords, " OR "))
}

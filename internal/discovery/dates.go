package discovery

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var reRelative = regexp.MustCompile(`(?i)^(\d+|an?|one)\s+(second|minute|min|hour|day|week|month|year)s?\s+ago$`)

var dateLayouts = []string{
	"01/02/2006, 03:04 PM, -0700 MST",
	"01/02/2006, 03:04 PM, -0700",
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	"Jan 2, 2006",
	"January 2, 2006",
	"2006-01-02",
}

// parseResultDate understands the absolute layouts search providers use
// and relative forms like "3 hours ago".
func parseResultDate(s string, now time.Time) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	m := reRelative.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	n := 1
	if v, err := strconv.Atoi(m[1]); err == nil {
		n = v
	}
	var unit time.Duration
	switch strings.ToLower(m[2]) {
	case "second":
		unit = time.Second
	case "minute", "min":
		unit = time.Minute
	case "hour":
		unit = time.Hour
	case "day":
		unit = 24 * time.Hour
	case "week":
		unit = 7 * 24 * time.Hour
	case "month":
		unit = 30 * 24 * time.Hour
	case "year":
		unit = 365 * 24 * time.Hour
	}
	return now.Add(-time.Duration(n) * unit), true
}

package news

import "strings"

// Matcher finds which company a piece of text is about.
// Matching is best effort: the full name or the first word of the name,
// companies tried in the order they were given.
type Matcher struct {
	companies []Company
	phrases   [][]string // per company: normalized phrases to look for
}

func NewMatcher(companies []Company) *Matcher {
	m := &Matcher{
		companies: append([]Company(nil), companies...),
		phrases:   make([][]string, len(companies)),
	}
	for i, c := range companies {
		seen := map[string]bool{}
		add := func(s string) {
			k := normalizeKey(s)
			if k == "" || seen[k] {
				return
			}
			seen[k] = true
			m.phrases[i] = append(m.phrases[i], k)
		}
		add(c.Name)
		add(c.DisplayName())
		if fields := strings.Fields(c.Name); len(fields) > 0 {
			add(fields[0])
		}
	}
	return m
}

// Find returns the first company mentioned in text.
func (m *Matcher) Find(text string) (Company, bool) {
	if m == nil {
		return Company{}, false
	}
	t := " " + normalizeKey(text) + " "
	for i, phrases := range m.phrases {
		for _, p := range phrases {
			if strings.Contains(t, " "+p+" ") {
				return m.companies[i], true
			}
		}
	}
	return Company{}, false
}

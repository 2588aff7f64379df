package news

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Quadrant string

const (
	Leaders     Quadrant = "leaders"
	Challengers Quadrant = "challengers"
	Visionaries Quadrant = "visionaries"
	Niche       Quadrant = "niche"
)

// ParseQuadrant accepts the quadrant names used in analysis files.
// "niche players" is accepted as an alias of niche.
func ParseQuadrant(s string) (Quadrant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "leaders", "leader":
		return Leaders, nil
	case "challengers", "challenger":
		return Challengers, nil
	case "visionaries", "visionary":
		return Visionaries, nil
	case "niche", "niche players", "niche player":
		return Niche, nil
	}
	return "", fmt.Errorf("unknown quadrant %q (valid: leaders, challengers, visionaries, niche)", s)
}

// Multiplier is the tier bonus applied to impact scores.
func (q Quadrant) Multiplier() float64 {
	switch q {
	case Leaders:
		return 1.5
	case Visionaries:
		return 1.3
	default:
		return 1.0
	}
}

type Company struct {
	Name     string   `json:"name" yaml:"name"`
	Quadrant Quadrant `json:"quadrant" yaml:"quadrant"`
}

// DisplayName is the company name without parenthetical qualifiers,
// e.g. "OpenAI (GPT-4)" -> "OpenAI".
func (c Company) DisplayName() string {
	return stripParentheticals(c.Name)
}

type Item struct {
	ID           string    `json:"id"`
	Company      Company   `json:"company"`
	Headline     string    `json:"headline"`
	URL          string    `json:"url"`
	Source       string    `json:"source"`
	PublishedAt  time.Time `json:"publishedAt"`
	Snippet      string    `json:"snippet"`
	ImpactScore  float64   `json:"impactScore"`
	RecencyScore float64   `json:"recencyScore"`
	FullContent  string    `json:"fullContent,omitempty"`
}

// Rank is the combined sort key.
func (it Item) Rank() float64 {
	return it.ImpactScore * it.RecencyScore
}

func (it Item) ImpactClass() string {
	switch {
	case it.ImpactScore >= 8:
		return "high"
	case it.ImpactScore >= 5:
		return "medium"
	default:
		return "low"
	}
}

// ItemID derives a stable identifier from the article URL.
func ItemID(url string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(strings.TrimSpace(url))).String()
}

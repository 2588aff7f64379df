package discovery

// LanguageProfile selects the Google News edition (HL/GL/CEID) for RSS search.
type LanguageProfile struct {
	Code string // "en", "fr", "es", "pt"
	HL   string // e.g. "en-US"
	GL   string // e.g. "US"
	CEID string // e.g. "US:en"
}

func DefaultLanguageProfiles() map[string]LanguageProfile {
	return map[string]LanguageProfile{
		"en": {Code: "en", HL: "en-US", GL: "US", CEID: "US:en"},
		"fr": {Code: "fr", HL: "fr-CA", GL: "CA", CEID: "CA:fr"},
		"es": {Code: "es", HL: "es-419", GL: "US", CEID: "US:es-419"}, // Latin America Spanish
		"pt": {Code: "pt", HL: "pt-BR", GL: "BR", CEID: "BR:pt-419"},  // Portuguese (Brazil-heavy)
	}
}

// ProfileFor falls back to English for unknown codes.
func ProfileFor(code string) LanguageProfile {
	profiles := DefaultLanguageProfiles()
	if p, ok := profiles[code]; ok {
		return p
	}
	return profiles["en"]
}

package classify

import "strings"

// Validator reconciles free-form model output against a closed category set.
// Three ordered tiers, first match wins: exact case-insensitive equality,
// bidirectional substring containment (only when the shorter string exceeds 3
// characters), and word-set overlap of at least half the category's words.
// Tier order is load-bearing: two category names sharing a long common
// substring can steal each other's matches in the containment tier, which is
// a known precision limitation of this scheme.
type Validator struct {
	categories []string
	unknown    string
	strict     bool
}

// NewValidator creates a response validator. When strict is set, only the
// exact-equality tier applies.
func NewValidator(categories []string, unknown string, strict bool) *Validator {
	return &Validator{
		categories: categories,
		unknown:    unknown,
		strict:     strict,
	}
}

// Validate maps a raw response onto one configured category, or the unknown
// category when no tier matches.
func (v *Validator) Validate(raw string) string {
	response := strings.ToLower(strings.TrimSpace(raw))
	if response == "" {
		return v.unknown
	}

	// Tier 1: exact match
	for _, cat := range v.categories {
		if response == strings.ToLower(cat) {
			return cat
		}
	}

	if v.strict {
		return v.unknown
	}

	// Tier 2: containment in either direction, guarded against spurious
	// matches on very short strings
	for _, cat := range v.categories {
		catLower := strings.ToLower(cat)
		shorter := len(response)
		if len(catLower) < shorter {
			shorter = len(catLower)
		}
		if shorter > 3 && (strings.Contains(response, catLower) || strings.Contains(catLower, response)) {
			return cat
		}
	}

	// Tier 3: word overlap for multi-word categories
	responseWords := make(map[string]bool)
	for _, w := range strings.Fields(response) {
		responseWords[w] = true
	}
	for _, cat := range v.categories {
		catWords := strings.Fields(strings.ToLower(cat))
		overlap := 0
		for _, w := range catWords {
			if responseWords[w] {
				overlap++
			}
		}
		threshold := len(catWords) / 2
		if threshold < 1 {
			threshold = 1
		}
		if overlap >= threshold {
			return cat
		}
	}

	return v.unknown
}

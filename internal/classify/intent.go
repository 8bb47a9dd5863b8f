package classify

import "strings"

// Intent is the candidate's disposition toward answering.
type Intent string

const (
	IntentKnown     Intent = "known"
	IntentPartial   Intent = "partial"
	IntentUnknown   Intent = "unknown"
	IntentRefuse    Intent = "refuse"
	IntentGreeting  Intent = "greeting"
	IntentAmbiguous Intent = "ambiguous"
)

// ParseIntent maps free text onto a knowledge intent. Only the four values a
// secondary classifier may return are accepted.
func ParseIntent(s string) (Intent, bool) {
	switch Intent(strings.ToLower(strings.TrimSpace(s))) {
	case IntentKnown:
		return IntentKnown, true
	case IntentPartial:
		return IntentPartial, true
	case IntentUnknown:
		return IntentUnknown, true
	case IntentRefuse:
		return IntentRefuse, true
	default:
		return "", false
	}
}

// Skips reports whether the intent means the question should be skipped.
func (i Intent) Skips() bool {
	return i == IntentRefuse || i == IntentUnknown
}

// Heuristics is the fast, side-effect free classifier built on phrase tables.
type Heuristics struct {
	patterns *Patterns
}

// NewHeuristics creates a classifier; nil patterns means the built-in tables.
func NewHeuristics(patterns *Patterns) *Heuristics {
	if patterns == nil {
		patterns = DefaultPatterns()
	}
	return &Heuristics{patterns: patterns}
}

// Intent classifies a reply from its text alone. Refusal beats every other
// category; ambiguous means a secondary pass is needed.
func (h *Heuristics) Intent(text string) Intent {
	if strings.TrimSpace(text) == "" {
		return IntentUnknown
	}
	switch {
	case h.patterns.IsRefusal(text):
		return IntentRefuse
	case h.patterns.IsPartial(text):
		return IntentPartial
	case h.patterns.IsGreeting(text):
		return IntentGreeting
	default:
		return IntentAmbiguous
	}
}

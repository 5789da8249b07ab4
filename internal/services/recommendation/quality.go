package recommendationservice

import (
	"strings"
	"unicode/utf8"

	"brandpulse/pkg/text"
)

// MaxResponseLength is the longest reply that fits every social platform
const MaxResponseLength = 280

var (
	warmWords          = []string{"thank", "appreciate", "help", "sorry", "understand", "glad", "happy", "apologize"}
	coldWords          = []string{"no", "can't", "won't", "impossible", "never"}
	unprofessional     = []string{"damn", "hell", "stupid", "ridiculous"}
	nextStepWords      = []string{"contact", "visit", "email", "call", "dm", "message", "support"}
	highUrgencyWords   = []string{"urgent", "emergency", "asap", "immediately", "crisis", "lawsuit", "media", "press", "reporter", "boycott", "viral", "trending"}
	mediumUrgencyWords = []string{"complaint", "problem", "issue", "disappointed", "angry", "frustrated", "refund", "compensation", "manager", "supervisor"}
)

// Quality scores a reply on [0,1]: fitting length, warm tone, professional
// wording, brand mention and a clear next step.
func Quality(reply, brand string) float64 {
	tokens := text.Tokenize(reply)
	count := func(words []string, prefix bool) int {
		n := 0
		for _, t := range tokens {
			for _, w := range words {
				if t == w || (prefix && strings.HasPrefix(t, w)) {
					n++
					break
				}
			}
		}
		return n
	}

	var q float64
	if n := utf8.RuneCountInString(reply); n >= 10 && n <= MaxResponseLength {
		q += 0.2
	}
	if count(warmWords, true) > count(coldWords, false) {
		q += 0.3
	}
	if count(unprofessional, false) == 0 {
		q += 0.2
	}
	if brand != "" && strings.Contains(strings.ToLower(reply), strings.ToLower(brand)) {
		q += 0.1
	}
	if count(nextStepWords, true) > 0 {
		q += 0.2
	}
	return clamp01(q)
}

// Urgency of a mention
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// UrgencyOf classifies a mention by its wording
func UrgencyOf(content string) Urgency {
	switch {
	case text.ContainsAny(content, highUrgencyWords...):
		return UrgencyHigh
	case text.ContainsAny(content, mediumUrgencyWords...):
		return UrgencyMedium
	default:
		return UrgencyLow
	}
}

// Virality estimates reach from urgency; wording that mentions press,
// boycotts or trending topics is likely to spread.
func (u Urgency) Virality() float64 {
	switch u {
	case UrgencyHigh:
		return 0.8
	case UrgencyMedium:
		return 0.4
	default:
		return 0
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

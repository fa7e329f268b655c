// Package sanitizer normalizes free-text fields before they are validated
// and persisted. Reception and the public booking form both feed these
// fields, so whitespace and control characters cannot be trusted.
package sanitizer

import (
	"strings"
	"unicode"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

// TrimAndNormalize trims the string and collapses internal whitespace runs
// into single spaces, dropping control characters along the way.
func TrimAndNormalize(s string) string {
	s = strings.TrimSpace(s)

	if s == "" {
		return ""
	}

	var result strings.Builder
	var lastWasSpace bool

	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		case unicode.IsControl(r):
			// dropped
		default:
			result.WriteRune(r)
			lastWasSpace = false
		}
	}

	return strings.TrimSpace(result.String())
}

// SanitizeLabel normalizes short labels such as service types and holiday
// names: collapsed whitespace, lowercased.
func SanitizeLabel(label string) string {
	p := Pipeline{
		TrimAndNormalize,
		strings.ToLower,
	}
	return p.Apply(label)
}

// SanitizeReason normalizes free-text reasons (cancellations, absences)
// without changing case.
func SanitizeReason(reason string) string {
	return TrimAndNormalize(reason)
}

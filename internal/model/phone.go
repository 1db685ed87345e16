package model

import (
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrInvalidPhone reports a phone number that cannot be normalized to E.164.
// Callers surface this as a validation error; it is never silently defaulted.
var ErrInvalidPhone = eris.New("invalid phone number")

var e164Re = regexp.MustCompile(`^\+[1-9]\d{7,14}$`)

// NormalizePhone strips formatting and returns the E.164 form. Bare 10-digit
// US numbers get a +1 prefix; 11-digit numbers starting with 1 get a plus.
func NormalizePhone(raw string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' || r == '+' {
			return r
		}
		return -1
	}, strings.TrimSpace(raw))

	switch {
	case cleaned == "":
		return "", eris.Wrapf(ErrInvalidPhone, "empty after normalization: %q", raw)
	case strings.HasPrefix(cleaned, "+"):
		// Already prefixed; validate below.
	case len(cleaned) == 10:
		cleaned = "+1" + cleaned
	case len(cleaned) == 11 && strings.HasPrefix(cleaned, "1"):
		cleaned = "+" + cleaned
	default:
		return "", eris.Wrapf(ErrInvalidPhone, "unrecognized format: %q", raw)
	}

	if !e164Re.MatchString(cleaned) {
		return "", eris.Wrapf(ErrInvalidPhone, "not E.164: %q", raw)
	}
	return cleaned, nil
}

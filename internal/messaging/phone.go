package messaging

import (
	"fmt"
	"regexp"
	"strings"
)

// E.164: +[country code][number], max 15 digits after the +.
var e164Pattern = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

// NormalizePhone converts user-entered phone numbers to E.164 so that the
// number a reminder is sent to and the number a confirmation reply arrives
// from compare equal. Bare 10-digit numbers are assumed to be US/Canada.
func NormalizePhone(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	hasPlus := strings.HasPrefix(trimmed, "+")

	var digits strings.Builder
	for _, r := range trimmed {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()

	var candidate string
	switch {
	case hasPlus:
		candidate = "+" + d
	case len(d) == 10:
		candidate = "+1" + d
	case len(d) == 11 && strings.HasPrefix(d, "1"):
		candidate = "+" + d
	default:
		candidate = "+" + d
	}

	if !e164Pattern.MatchString(candidate) {
		return "", fmt.Errorf("invalid phone number: %q", raw)
	}
	return candidate, nil
}

func IsValidPhoneNumber(phone string) bool {
	return e164Pattern.MatchString(phone)
}

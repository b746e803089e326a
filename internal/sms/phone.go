package sms

import (
	"errors"
	"strings"
)

var ErrInvalidPhoneNumber = errors.New("invalid phone number")

// NormalizePhone converts a phone number to international format. Numbers in
// local format (leading 0) have the leading digit replaced with the country
// prefix, e.g. "0700123456" becomes "+254700123456" for prefix "+254".
// Numbers already carrying a "+" pass through with formatting stripped.
func NormalizePhone(raw, countryPrefix string) (string, error) {
	trimmed := strings.TrimSpace(raw)

	var digits strings.Builder
	for _, r := range trimmed {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	cleaned := digits.String()
	if len(cleaned) < 9 || len(cleaned) > 15 {
		return "", ErrInvalidPhoneNumber
	}

	if strings.HasPrefix(trimmed, "+") {
		return "+" + cleaned, nil
	}
	if strings.HasPrefix(cleaned, "0") {
		return countryPrefix + cleaned[1:], nil
	}
	return "+" + cleaned, nil
}

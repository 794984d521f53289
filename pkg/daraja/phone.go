package daraja

import (
	"errors"
	"strings"
)

const (
	countryPrefix = "254"
	// A normalized Kenyan MSISDN is exactly 12 digits: 254 + 9 subscriber digits.
	normalizedPhoneLen = 12
)

var ErrInvalidPhone = errors.New("daraja: invalid phone number")

// NormalizePhone converts user-entered phone numbers to the digits-only
// international form the STK API expects: 2547XXXXXXXX. Accepts local
// ("0712345678"), international ("254712345678"), prefixed ("+254712345678")
// and bare subscriber ("712345678") inputs.
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return "", ErrInvalidPhone
	}
	switch {
	case strings.HasPrefix(digits, "0"):
		digits = countryPrefix + digits[1:]
	case strings.HasPrefix(digits, countryPrefix):
		// already international
	default:
		digits = countryPrefix + digits
	}
	if len(digits) != normalizedPhoneLen {
		return "", ErrInvalidPhone
	}
	return digits, nil
}

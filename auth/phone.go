package auth

import (
	"regexp"
	"strings"
)

// DefaultCountryCode is prepended to numbers given without one.
const DefaultCountryCode = "+92"

var e164 = regexp.MustCompile(`^\+\d{10,15}$`)

var nonDigit = regexp.MustCompile(`[^\d]`)

// NormalizePhone rewrites a phone number into E.164 form: a leading "00"
// becomes "+", separators are dropped, and numbers without a country code get
// countryCode. The result is not validated; see ValidPhone.
func NormalizePhone(phone, countryCode string) string {
	cc := nonDigit.ReplaceAllString(countryCode, "")

	s := strings.TrimSpace(phone)
	if strings.HasPrefix(s, "00") {
		s = "+" + s[2:]
	}
	plus := strings.HasPrefix(s, "+")
	s = nonDigit.ReplaceAllString(s, "")
	if plus {
		return "+" + s
	}

	s = strings.TrimLeft(s, "0")
	if strings.HasPrefix(s, cc) {
		return "+" + s
	}
	return "+" + cc + s
}

// ValidPhone reports whether phone is in E.164 form.
func ValidPhone(phone string) bool {
	return e164.MatchString(phone)
}

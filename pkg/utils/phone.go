package utils

import "strings"

// DefaultCountryCode is the dialing code stripped during normalization when
// no code is configured.
const DefaultCountryCode = "971"

// NormalizePhone reduces a raw phone value to its national significant
// digits so that differently formatted numbers compare equal:
//
//	"+971 50 123 4567" -> "501234567"
//	"0501234567"       -> "501234567"
//	"971501234567"     -> "501234567"
//
// The rule: keep digits only, strip the "00" international prefix, strip the
// given country code, then strip the leading trunk zero. countryCode may be
// empty to fall back to DefaultCountryCode. Returns "" for values with no
// digits; callers treat an empty key as unmatchable.
func NormalizePhone(raw, countryCode string) string {
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}

	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}

	digits = strings.TrimPrefix(digits, "00")
	// Only treat the country code as a prefix when digits remain after it,
	// otherwise a short local number equal to the code would vanish.
	if strings.HasPrefix(digits, countryCode) && len(digits) > len(countryCode) {
		digits = digits[len(countryCode):]
	}
	if len(digits) > 1 && digits[0] == '0' {
		digits = digits[1:]
	}
	return digits
}

package domain

import "strings"

// FormatE164 normalizes a stored phone number to E.164 for the carrier.
// The CRM stores US numbers as bare 10-digit strings; anything that cannot
// be normalized returns "" and must be treated as an invalid destination.
func FormatE164(phone string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	d := digits.String()
	switch {
	case len(d) == 10:
		return "+1" + d
	case len(d) == 11 && strings.HasPrefix(d, "1"):
		return "+" + d
	default:
		return ""
	}
}

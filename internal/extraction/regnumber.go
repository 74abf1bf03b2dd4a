package extraction

import "strings"

const registrationDigits = 13

// NormalizeRegistrationNumber applies the fixed format rule for the
// qualified-invoice issuer registration number: keep the first 13 digits,
// reject anything that does not yield exactly 13, and re-prepend the "T"
// marker when the raw text carried one in either case. ok=false means the
// field must be treated as absent rather than forwarded partially.
func NormalizeRegistrationNumber(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}

	hasMarker := strings.ContainsAny(raw, "Tt")

	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
			if digits.Len() == registrationDigits {
				break
			}
		}
	}
	if digits.Len() != registrationDigits {
		return "", false
	}

	if hasMarker {
		return "T" + digits.String(), true
	}
	return digits.String(), true
}

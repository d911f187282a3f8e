package key

import "strings"

// ValidateFormat checks if a raw API key has valid format.
// Returns (lookup, valid). Lookup is used for database lookup.
// This is a PURE function.
func ValidateFormat(rawKey, expectedPrefix string) (lookup string, valid bool) {
	// Must start with expected prefix
	if expectedPrefix == "" || !strings.HasPrefix(rawKey, expectedPrefix) {
		return "", false
	}

	random := rawKey[len(expectedPrefix):]
	if len(random) != RandomLen || !isLowerHex(random) {
		return "", false
	}

	return rawKey[:len(expectedPrefix)+LookupLen], true
}

func isLowerHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

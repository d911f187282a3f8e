// Package key provides pure functions for user API keys.
// This package has NO dependencies on I/O or external packages.
//
// A raw key is the configured prefix followed by RandomLen lowercase hex
// characters. Keys are stored as a bcrypt hash plus a lookup prefix: the
// configured prefix and the first LookupLen random characters.
package key

import "strings"

const (
	// RandomLen is the number of hex characters after the prefix.
	RandomLen = 48
	// LookupLen is the number of random characters kept in clear for lookup.
	LookupLen = 10
)

// Build assembles a raw key from the prefix and random hex material.
// It returns the raw key and its lookup prefix. This is a PURE function.
func Build(prefix, randomHex string) (rawKey, lookup string) {
	rawKey = prefix + strings.ToLower(randomHex)
	return rawKey, rawKey[:min(len(rawKey), len(prefix)+LookupLen)]
}

// Mask returns a display form of a lookup prefix, e.g. "og_1a2b3c4d5e…".
func Mask(lookup string) string {
	if lookup == "" {
		return ""
	}
	return lookup + "…"
}

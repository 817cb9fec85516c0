// Package textutil normalises user-typed text before it reaches validation
// or storage.
package textutil

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeStringMap prepares a submitted form payload for validation. Keys
// and values are NFC-normalised and trimmed, entries whose key trims to empty
// are dropped, and an empty result collapses to nil.
func NormalizeStringMap(values map[string]string) map[string]string {
	if len(values) == 0 {
		return nil
	}
	result := make(map[string]string, len(values))
	for key, value := range values {
		key = Clean(key)
		if key == "" {
			continue
		}
		result[key] = Clean(value)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

// Clean trims surrounding whitespace and applies NFC normalisation so that
// visually identical input compares equal regardless of the keyboard or
// browser that produced it.
func Clean(value string) string {
	return norm.NFC.String(strings.TrimSpace(value))
}

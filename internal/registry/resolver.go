package registry

import (
	"path/filepath"
	"strings"
)

// ResolveProvider determines which provider identifier a raw file name
// belongs to. It never returns an empty result for a non-empty file name.
//
// Resolution is two-tier: if any registry key occurs as a substring of the
// lowercased file name, the identifier is the first underscore-delimited
// token of the file name with its extension stripped. Otherwise the first
// underscore-delimited token of the raw file name is used. The fallback lets
// unregistered files still carry a stable identifier; the extractor handles
// the missing configuration with default rules.
//
// When several registry keys are substrings of the same file name, the
// longest key wins, so resolution does not depend on map iteration order.
func ResolveProvider(fileName string, reg Registry) string {
	lower := strings.ToLower(fileName)

	match := ""
	for key := range reg {
		if key != "" && strings.Contains(lower, key) && len(key) > len(match) {
			match = key
		}
	}

	if match != "" {
		stem := strings.TrimSuffix(fileName, filepath.Ext(fileName))
		return firstToken(stem)
	}
	return firstToken(fileName)
}

// firstToken returns the text before the first underscore, lowercased.
func firstToken(s string) string {
	return strings.ToLower(strings.SplitN(s, "_", 2)[0])
}

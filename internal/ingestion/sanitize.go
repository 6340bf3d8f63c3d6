package ingestion

import (
	"fmt"
	"regexp"
	"strings"
)

var identifierPattern = regexp.MustCompile(`[^a-z0-9]+`)

// SanitizeIdentifier turns an arbitrary string into a SQL-safe identifier:
// lowercased, every run of characters outside [a-z0-9] replaced by a single
// underscore, leading and trailing underscores trimmed. Total over all
// inputs; the empty string maps to the empty string.
func SanitizeIdentifier(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	value = identifierPattern.ReplaceAllString(value, "_")
	return strings.Trim(value, "_")
}

// SanitizeColumns sanitizes a header row into unique column names. Headers
// that sanitize to nothing become column_<n> (1-based position); repeats get
// a numeric suffix so the resulting names stay unique within the table.
func SanitizeColumns(raw []string) []string {
	names := make([]string, len(raw))
	seen := make(map[string]bool)

	for idx, value := range raw {
		name := SanitizeIdentifier(value)
		if name == "" {
			name = fmt.Sprintf("column_%d", idx+1)
		}

		// Suffix until free: the obvious candidate can itself collide with a
		// later header that already sanitizes to it (a, a, a_2).
		base := name
		for suffix := 2; seen[name]; suffix++ {
			name = fmt.Sprintf("%s_%d", base, suffix)
		}
		seen[name] = true

		names[idx] = name
	}

	return names
}

// File path: internal/searchindex/patterns.go
package searchindex

import "strings"

const separators = ".-_"

// ExpandCourseCode derives the wildcard prefixes used to scope index queries
// to a course family. A code like "NLU.CS101-2" expands to the code as
// stored plus progressively broader variants: the separator-free form, the
// trailing-digit-stripped forms and the segment before the first separator.
// Order is preserved and duplicates are dropped, so callers can build
// filters narrow to broad.
func ExpandCourseCode(code string) []string {
	trimmed := strings.ToUpper(strings.TrimSpace(code))
	if trimmed == "" {
		return nil
	}
	var patterns []string
	seen := make(map[string]struct{}, 4)
	add := func(pattern string) {
		if pattern == "" {
			return
		}
		if _, ok := seen[pattern]; ok {
			return
		}
		seen[pattern] = struct{}{}
		patterns = append(patterns, pattern)
	}
	// The code itself goes in untouched; stored codes keep their
	// separators and the narrowest pattern must still reach them.
	add(trimmed)
	add(sanitizeCode(trimmed))
	add(sanitizeCode(strings.TrimRight(trimmed, "0123456789")))
	if idx := strings.IndexAny(trimmed, separators); idx > 0 {
		head := trimmed[:idx]
		add(sanitizeCode(head))
		add(sanitizeCode(strings.TrimRight(head, "0123456789")))
	}
	return patterns
}

// sanitizeCode keeps only uppercase letters and digits so the patterns stay
// safe inside wildcard clauses.
func sanitizeCode(code string) string {
	var b strings.Builder
	b.Grow(len(code))
	for _, r := range code {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

package tokenware

import "strings"

// AllowList matches request paths that bypass token validation entirely.
// Entries are either exact paths ("/login") or prefixes marked with a
// trailing wildcard ("/public/*"). Matching is case-sensitive, compares the
// path only, and never inspects a token even when one is present. The list
// is immutable once built.
type AllowList struct {
	exact    map[string]struct{}
	prefixes []string
}

// NewAllowList compiles the given patterns into an AllowList. Empty patterns
// are ignored.
func NewAllowList(patterns ...string) *AllowList {
	al := &AllowList{
		exact: make(map[string]struct{}, len(patterns)),
	}

	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}

		if strings.HasSuffix(pattern, "*") {
			al.prefixes = append(al.prefixes, strings.TrimSuffix(pattern, "*"))
			continue
		}

		al.exact[pattern] = struct{}{}
	}

	return al
}

// Match reports whether path is covered by the allow list. A nil AllowList
// matches nothing.
func (al *AllowList) Match(path string) bool {
	if al == nil {
		return false
	}

	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}

	if _, ok := al.exact[path]; ok {
		return true
	}

	for _, prefix := range al.prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}

	return false
}

// Len returns the number of compiled patterns.
func (al *AllowList) Len() int {
	if al == nil {
		return 0
	}
	return len(al.exact) + len(al.prefixes)
}

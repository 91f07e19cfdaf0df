package signal

import (
	"strings"
)

// ExpandBraces expands brace groups in pattern, one variant per alternative.
//
// The first innermost `{...}` group is replaced by each of its trimmed,
// non-empty alternatives in order, and every result is expanded again until
// no groups remain. A pattern with no complete group, or whose group has no
// usable alternatives, is returned unchanged as the only variant.
//
//	ExpandBraces("{a,b}/x")     // [a/x b/x]
//	ExpandBraces("{a,{b,c}}")   // [a b a c]
//	ExpandBraces("{a,b/x")      // [{a,b/x]
func ExpandBraces(pattern string) []string {
	start, end, ok := innermostGroup(pattern)
	if !ok {
		return []string{pattern}
	}

	before, inner, after := pattern[:start], pattern[start+1:end], pattern[end+1:]

	var out []string

	for part := range strings.SplitSeq(inner, ",") {
		alt := strings.TrimSpace(part)
		if alt == "" {
			continue
		}

		out = append(out, ExpandBraces(before+alt+after)...)
	}

	if len(out) == 0 {
		return []string{pattern}
	}

	return out
}

// innermostGroup finds the first `{` that is closed by a `}` with no other
// brace in between. It returns the indexes of both braces.
func innermostGroup(s string) (int, int, bool) {
	open := -1

	for i := range len(s) {
		switch s[i] {
		case '{':
			open = i
		case '}':
			if open >= 0 {
				return open, i, true
			}
		}
	}

	return 0, 0, false
}

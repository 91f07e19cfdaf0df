// Package signal compiles glob patterns from rule metadata into the weak
// lexical signals used for prompt matching.
//
// Two signal kinds exist:
//   - Extensions: lower-cased file extension tokens such as "go" or "tsx",
//     taken from `globs`.
//   - Path hints: lower-cased literal path prefixes such as "src/api",
//     taken from `paths` after brace expansion.
//
// Extraction is permissive: an incidental dot in a pattern may produce an
// extra extension. Consumers treat these signals as heuristics.
package signal

import (
	"maps"
	"regexp"
	"slices"
	"strings"
)

var (
	braceExtRe = regexp.MustCompile(`\.\{([^}]+)\}`)
	dotExtRe   = regexp.MustCompile(`\.([A-Za-z0-9_+-]+)`)
)

// Extensions returns the sorted set of extension tokens found in glob.
//
//	Extensions("*.{ts,tsx}") // [ts tsx]
//	Extensions("**/*.go")    // [go]
func Extensions(glob string) []string {
	set := map[string]struct{}{}

	for _, m := range braceExtRe.FindAllStringSubmatch(glob, -1) {
		for part := range strings.SplitSeq(m[1], ",") {
			if ext := strings.ToLower(strings.TrimSpace(part)); ext != "" {
				set[ext] = struct{}{}
			}
		}
	}

	for _, m := range dotExtRe.FindAllStringSubmatch(glob, -1) {
		set[strings.ToLower(m[1])] = struct{}{}
	}

	return sorted(set)
}

// PathHints returns the sorted set of literal path prefixes for pathGlob.
// Each brace-expanded variant is normalized and truncated at its first
// wildcard; empty and "." prefixes are discarded.
//
//	PathHints("src/**")      // [src]
//	PathHints("{a,b}/x/**")  // [a/x b/x]
//	PathHints("./*.md")      // []
func PathHints(pathGlob string) []string {
	set := map[string]struct{}{}

	for _, variant := range ExpandBraces(pathGlob) {
		if hint := literalPrefix(variant); hint != "" {
			set[hint] = struct{}{}
		}
	}

	return sorted(set)
}

func literalPrefix(pattern string) string {
	s := strings.TrimSpace(pattern)
	s = trimQuotes(s)
	s = strings.ReplaceAll(s, `\`, "/")
	s = strings.TrimPrefix(s, "./")
	s = strings.TrimLeft(s, "/")

	if i := strings.IndexAny(s, "*?["); i >= 0 {
		s = s[:i]
	}

	s = strings.TrimRight(s, "/")
	if s == "" || s == "." {
		return ""
	}

	return strings.ToLower(s)
}

func trimQuotes(s string) string {
	if s != "" && (s[0] == '"' || s[0] == '\'') {
		s = s[1:]
	}
	if s != "" && (s[len(s)-1] == '"' || s[len(s)-1] == '\'') {
		s = s[:len(s)-1]
	}

	return s
}

func sorted(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}

	return slices.Sorted(maps.Keys(set))
}

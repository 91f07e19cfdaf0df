package frontmatter

import (
	"strings"
)

const delimiter = "---"

// Recognized metadata keys.
const (
	KeyAlwaysApply = "alwaysapply"
	KeyGlobs       = "globs"
	KeyPaths       = "paths"
)

// Document is a parsed rule document.
type Document struct {
	// Fields holds every scanned metadata key, including unrecognized ones.
	// It is nil when the document has no frontmatter.
	Fields Fields
	// Content is the body after the closing delimiter, trimmed. Without
	// frontmatter it is the raw input.
	Content string
	// Globs are file patterns from the `globs` key.
	Globs []string
	// Paths are path-scoped patterns from the `paths` key.
	Paths []string
	// AlwaysApply is true when `alwaysApply` is the scalar `true`.
	AlwaysApply bool
}

// Parse splits raw into metadata and body.
//
// Frontmatter is only recognized when the first line is `---` and a later
// line is also `---`, with at least one non-blank line in between. In all
// other cases the whole input is returned as [Document.Content].
func Parse(raw string) Document {
	block, body, ok := split(raw)
	if !ok {
		return Document{Content: raw}
	}

	fields := Scan(block)

	return Document{
		Fields:      fields,
		Content:     strings.TrimSpace(body),
		AlwaysApply: fields.Get(KeyAlwaysApply).IsTrue(),
		Globs:       nonEmpty(fields.Get(KeyGlobs).Items()),
		Paths:       nonEmpty(fields.Get(KeyPaths).Items()),
	}
}

func split(raw string) (string, string, bool) {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	if len(lines) < 2 || !isDelimiter(lines[0]) {
		return "", "", false
	}

	for i := 1; i < len(lines); i++ {
		if !isDelimiter(lines[i]) {
			continue
		}

		block := strings.Join(lines[1:i], "\n")
		if strings.TrimSpace(block) == "" {
			return "", "", false
		}

		return block, strings.Join(lines[i+1:], "\n"), true
	}

	return "", "", false
}

func isDelimiter(line string) bool {
	return strings.TrimRight(line, " \t") == delimiter
}

func nonEmpty(items []string) []string {
	out := items[:0]
	for _, item := range items {
		if item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return nil
	}

	return out
}

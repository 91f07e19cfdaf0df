package frontmatter

import (
	"regexp"
	"strings"
)

// Kind describes how a key's value was written.
type Kind int

const (
	// KindAbsent means the key does not appear in the metadata block.
	KindAbsent Kind = iota
	// KindScalar is a single inline value, e.g. `alwaysApply: true`.
	KindScalar
	// KindList is an inline bracket list or a block of dash-prefixed items.
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindList:
		return "list"
	default:
		return "absent"
	}
}

// Value is the typed value of a metadata key.
// The zero value is an absent value.
type Value struct {
	items []string
	kind  Kind
}

// Scalar creates a scalar [Value].
func Scalar(s string) Value {
	return Value{kind: KindScalar, items: []string{s}}
}

// List creates a list [Value].
func List(items ...string) Value {
	return Value{kind: KindList, items: items}
}

// Kind returns the kind of the value.
func (v Value) Kind() Kind {
	return v.kind
}

// Scalar returns the scalar string and true if v is a [KindScalar] value.
func (v Value) Scalar() (string, bool) {
	if v.kind != KindScalar {
		return "", false
	}

	return v.items[0], true
}

// Items returns the value as a list. Scalars become a single-item list and
// absent values become nil. The returned slice is a copy.
func (v Value) Items() []string {
	if len(v.items) == 0 {
		return nil
	}

	out := make([]string, len(v.items))
	copy(out, v.items)

	return out
}

// IsTrue reports whether v is a scalar equal to "true", ignoring case.
func (v Value) IsTrue() bool {
	s, ok := v.Scalar()

	return ok && strings.EqualFold(s, "true")
}

// merge combines a repeated key. Repetition always yields a list.
func (v Value) merge(other Value) Value {
	if v.kind == KindAbsent {
		return other
	}

	items := make([]string, 0, len(v.items)+len(other.items))
	items = append(items, v.items...)
	items = append(items, other.items...)

	return List(items...)
}

// Fields maps lower-cased metadata keys to their values.
type Fields map[string]Value

// Get returns the value for key, matched case-insensitively.
// Missing keys return an absent [Value].
func (f Fields) Get(key string) Value {
	return f[strings.ToLower(key)]
}

type lineKind int

const (
	lineOther lineKind = iota
	lineBlank
	lineItem
	lineKey
)

type taggedLine struct {
	key   string
	value string
	kind  lineKind
}

var (
	keyLineRe  = regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_-]*):\s*(.*)$`)
	itemLineRe = regexp.MustCompile(`^\s*-\s*(.+?)\s*$`)
)

func tagLine(s string) taggedLine {
	if strings.TrimSpace(s) == "" {
		return taggedLine{kind: lineBlank}
	}

	if m := itemLineRe.FindStringSubmatch(s); m != nil {
		return taggedLine{kind: lineItem, value: m[1]}
	}

	if m := keyLineRe.FindStringSubmatch(s); m != nil {
		return taggedLine{kind: lineKey, key: strings.ToLower(m[1]), value: strings.TrimSpace(m[2])}
	}

	return taggedLine{kind: lineOther}
}

// Scan reads a metadata block (the text between the delimiters) into [Fields].
//
// A key with an inline value yields a scalar, or a list when the value is
// wrapped in brackets. A key with no inline value collects the following
// `- item` lines into a list, skipping blank lines and stopping at the first
// line that is neither. Lines that are not part of a key are ignored.
func Scan(block string) Fields {
	lines := strings.Split(block, "\n")
	tagged := make([]taggedLine, len(lines))

	for i, l := range lines {
		tagged[i] = tagLine(l)
	}

	fields := Fields{}

	for i := 0; i < len(tagged); i++ {
		tl := tagged[i]
		if tl.kind != lineKey {
			continue
		}

		if tl.value != "" {
			fields[tl.key] = fields[tl.key].merge(inlineValue(tl.value))

			continue
		}

		items := []string{}

		for j := i + 1; j < len(tagged); j++ {
			next := tagged[j]
			if next.kind == lineBlank {
				continue
			}
			if next.kind != lineItem {
				break
			}

			if item := unquote(strings.TrimSpace(next.value)); item != "" {
				items = append(items, item)
			}

			i = j
		}

		fields[tl.key] = fields[tl.key].merge(List(items...))
	}

	return fields
}

func inlineValue(s string) Value {
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		items := []string{}

		for _, part := range splitList(s[1 : len(s)-1]) {
			if item := unquote(strings.TrimSpace(part)); item != "" {
				items = append(items, item)
			}
		}

		return List(items...)
	}

	return Scalar(unquote(s))
}

// splitList splits an inline list on commas that are not inside a brace
// group, so `[*.{ts,tsx}, *.go]` yields two items.
func splitList(s string) []string {
	var (
		parts []string
		depth int
		start int
	)

	for i := range len(s) {
		switch s[i] {
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}

	return append(parts, s[start:])
}

// unquote removes one leading and one trailing quote character. It does not
// handle escapes.
func unquote(s string) string {
	if s != "" && isQuote(s[0]) {
		s = s[1:]
	}
	if s != "" && isQuote(s[len(s)-1]) {
		s = s[:len(s)-1]
	}

	return s
}

func isQuote(c byte) bool {
	return c == '"' || c == '\''
}

package rule

import (
	"maps"
	"strings"
	"unicode"
)

// Keywords maps an extension token to natural-language phrases that imply
// it. Phrases are matched as substrings of the lower-cased prompt padded
// with one space on each side, so " go " matches the word "go" anywhere.
type Keywords map[string][]string

// DefaultKeywords is the built-in keyword table.
var DefaultKeywords = Keywords{
	"go":  {" go ", " golang "},
	"py":  {" python ", " pytest ", " ruff "},
	"rs":  {" rust ", " cargo "},
	"ts":  {" typescript ", " ts "},
	"tsx": {" react ", " tsx "},
	"js":  {" javascript ", " node "},
	"jsx": {" react ", " jsx "},
}

const (
	tokenDelimiters = "`'\"(),:;"
	tokenLeading    = "@./"
	tokenTrailing   = ")].,!?;:"
)

// Matcher selects rules for prompts.
type Matcher struct {
	keywords Keywords
}

// NewMatcher creates a [Matcher] using kw as the keyword table. A nil table
// uses [DefaultKeywords]; an empty one disables keyword matching.
func NewMatcher(kw Keywords) *Matcher {
	if kw == nil {
		kw = DefaultKeywords
	}

	norm := make(Keywords, len(kw))
	for ext, phrases := range kw {
		lower := make([]string, 0, len(phrases))
		for _, p := range phrases {
			if p != "" {
				lower = append(lower, strings.ToLower(p))
			}
		}

		norm[strings.ToLower(ext)] = lower
	}

	return &Matcher{keywords: norm}
}

// Keywords returns a copy of the matcher's keyword table.
func (m *Matcher) Keywords() Keywords {
	return maps.Clone(m.keywords)
}

// Selects reports whether r applies to prompt.
func (m *Matcher) Selects(r *Rule, prompt string) bool {
	return m.selects(r, newPromptText(prompt))
}

// Match returns the rules that apply to prompt, in their original order.
func (m *Matcher) Match(rules []*Rule, prompt string) []*Rule {
	p := newPromptText(prompt)

	var out []*Rule
	for _, r := range rules {
		if m.selects(r, p) {
			out = append(out, r)
		}
	}

	return out
}

func (m *Matcher) selects(r *Rule, p *promptText) bool {
	if r.alwaysApply {
		return true
	}

	for _, hint := range r.pathHints {
		if p.mentionsPath(hint) {
			return true
		}
	}

	for _, ext := range r.extensions {
		if p.mentionsExt(ext, m.keywords[ext]) {
			return true
		}
	}

	return false
}

// promptText is a prompt prepared for matching against many rules.
type promptText struct {
	padded string
	tokens []string
}

func newPromptText(prompt string) *promptText {
	lower := strings.ToLower(prompt)

	fields := strings.FieldsFunc(strings.ReplaceAll(lower, `\`, "/"), func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(tokenDelimiters, r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimLeft(f, tokenLeading)
		f = strings.TrimRight(f, tokenTrailing)
		if f != "" {
			tokens = append(tokens, f)
		}
	}

	return &promptText{
		padded: " " + lower + " ",
		tokens: tokens,
	}
}

// mentionsPath reports whether a token is hint or a path below it.
func (p *promptText) mentionsPath(hint string) bool {
	hint = normalizeHint(hint)
	if hint == "" {
		return false
	}

	for _, tok := range p.tokens {
		if tok == hint || strings.HasPrefix(tok, hint+"/") {
			return true
		}
	}

	return false
}

// mentionsExt reports whether the prompt contains ".ext" or a keyword
// phrase for ext.
func (p *promptText) mentionsExt(ext string, phrases []string) bool {
	if strings.Contains(p.padded, "."+ext) {
		return true
	}

	for _, phrase := range phrases {
		if strings.Contains(p.padded, phrase) {
			return true
		}
	}

	return false
}

func normalizeHint(hint string) string {
	h := strings.ReplaceAll(strings.ToLower(hint), `\`, "/")
	if strings.HasPrefix(h, "./") {
		h = h[2:]
	} else {
		h = strings.TrimPrefix(h, "/")
	}

	return strings.TrimRight(h, "/")
}

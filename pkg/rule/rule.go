package rule

import (
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"github.com/macropower/agentrules/pkg/frontmatter"
	"github.com/macropower/agentrules/pkg/signal"
)

// Ext is the file extension of rule documents.
const Ext = ".md"

// Rule is one parsed rule document. It is immutable after construction.
type Rule struct {
	name        string
	path        string
	content     string
	extensions  []string
	pathHints   []string
	alwaysApply bool
}

// New creates a [Rule] for the document at path from its parsed frontmatter.
// Signals are compiled from the document's globs and paths.
func New(path string, doc frontmatter.Document) *Rule {
	exts := map[string]struct{}{}
	for _, glob := range doc.Globs {
		for _, ext := range signal.Extensions(glob) {
			exts[ext] = struct{}{}
		}
	}

	hints := map[string]struct{}{}
	for _, pathGlob := range doc.Paths {
		for _, hint := range signal.PathHints(pathGlob) {
			hints[hint] = struct{}{}
		}
	}

	return &Rule{
		name:        strings.TrimSuffix(filepath.Base(path), Ext),
		path:        path,
		content:     doc.Content,
		alwaysApply: doc.AlwaysApply,
		extensions:  sortedKeys(exts),
		pathHints:   sortedKeys(hints),
	}
}

// Parse parses raw document text and creates a [Rule] for it.
func Parse(path, raw string) *Rule {
	return New(path, frontmatter.Parse(raw))
}

// Name is the document file name without its extension.
func (r *Rule) Name() string { return r.name }

// Path is the location of the source document.
func (r *Rule) Path() string { return r.path }

// Content is the document body without frontmatter.
func (r *Rule) Content() string { return r.content }

// AlwaysApply reports whether the rule applies to every prompt.
func (r *Rule) AlwaysApply() bool { return r.alwaysApply }

// Extensions returns a copy of the rule's sorted extension signals.
func (r *Rule) Extensions() []string { return slices.Clone(r.extensions) }

// PathHints returns a copy of the rule's sorted path-hint signals.
func (r *Rule) PathHints() []string { return slices.Clone(r.pathHints) }

func (r *Rule) String() string {
	switch {
	case r.alwaysApply:
		return fmt.Sprintf("%s: always", r.name)
	case len(r.extensions) == 0 && len(r.pathHints) == 0:
		return fmt.Sprintf("%s: never", r.name)
	}

	var parts []string
	if len(r.extensions) > 0 {
		parts = append(parts, "ext="+strings.Join(r.extensions, ","))
	}
	if len(r.pathHints) > 0 {
		parts = append(parts, "paths="+strings.Join(r.pathHints, ","))
	}

	return fmt.Sprintf("%s: %s", r.name, strings.Join(parts, " "))
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}

	return slices.Sorted(maps.Keys(set))
}

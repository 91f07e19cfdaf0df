package frontmatter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/agentrules/pkg/frontmatter"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		raw             string
		wantContent     string
		wantGlobs       []string
		wantPaths       []string
		wantAlwaysApply bool
	}{
		"no frontmatter": {
			raw:         "# Title\n\nbody\n",
			wantContent: "# Title\n\nbody\n",
		},
		"missing closing delimiter": {
			raw:         "---\nalwaysApply: true\nbody",
			wantContent: "---\nalwaysApply: true\nbody",
		},
		"empty metadata block": {
			raw:         "---\n---\nbody",
			wantContent: "---\n---\nbody",
		},
		"always apply": {
			raw:             "---\nalwaysApply: true\n---\n\n# Rule\n\nDo things.\n\n",
			wantContent:     "# Rule\n\nDo things.",
			wantAlwaysApply: true,
		},
		"always apply is case insensitive and quoted": {
			raw:             "---\nALWAYSAPPLY: \"TRUE\"\n---\nbody",
			wantContent:     "body",
			wantAlwaysApply: true,
		},
		"always apply other value": {
			raw:         "---\nalwaysApply: yes\n---\nbody",
			wantContent: "body",
		},
		"inline bracket list": {
			raw:         "---\nglobs: [*.go, '*.{ts,tsx}', \"*.rs\", ]\n---\nbody",
			wantContent: "body",
			wantGlobs:   []string{"*.go", "*.{ts,tsx}", "*.rs"},
		},
		"inline list splits outside brace groups": {
			raw:         "---\nglobs: [*.{ts,tsx}, src/**/*.{js,jsx}]\n---\nbody",
			wantContent: "body",
			wantGlobs:   []string{"*.{ts,tsx}", "src/**/*.{js,jsx}"},
		},
		"inline scalar": {
			raw:         "---\nglobs: \"**/*.py\"\n---\nbody",
			wantContent: "body",
			wantGlobs:   []string{"**/*.py"},
		},
		"block list with blank lines": {
			raw:         "---\npaths:\n  - \"src/**\"\n\n  - docs/api/**\nalwaysApply: false\n---\nbody",
			wantContent: "body",
			wantPaths:   []string{"src/**", "docs/api/**"},
		},
		"block list stops at non item line": {
			raw:         "---\npaths:\n  - src/**\ndescription: x\n  - ignored/**\n---\nbody",
			wantContent: "body",
			wantPaths:   []string{"src/**"},
		},
		"repeated key accumulates": {
			raw:         "---\nglobs: *.go\nglobs:\n  - *.rs\n---\nbody",
			wantContent: "body",
			wantGlobs:   []string{"*.go", "*.rs"},
		},
		"crlf line endings": {
			raw:             "---\r\nalwaysApply: true\r\nglobs: [*.go]\r\n---\r\nbody\r\n",
			wantContent:     "body",
			wantGlobs:       []string{"*.go"},
			wantAlwaysApply: true,
		},
		"unknown keys ignored": {
			raw:         "---\ndescription: Go style\nglobs: *.go\n---\nbody",
			wantContent: "body",
			wantGlobs:   []string{"*.go"},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got := frontmatter.Parse(tc.raw)

			assert.Equal(t, tc.wantContent, got.Content)
			assert.Equal(t, tc.wantAlwaysApply, got.AlwaysApply)
			assert.Equal(t, tc.wantGlobs, got.Globs)
			assert.Equal(t, tc.wantPaths, got.Paths)
		})
	}
}

func TestParse_BodyRoundTrip(t *testing.T) {
	t.Parallel()

	bodies := []string{
		"# Heading\n\n- item\n- item two",
		"plain text",
		"text with --- inside\n\n---\n\nand a horizontal rule",
		"",
	}

	for _, body := range bodies {
		raw := "---\nglobs: [*.md]\n---\n\n" + body + "\n\n"
		got := frontmatter.Parse(raw)

		assert.Equal(t, body, got.Content)
	}
}

func TestScan(t *testing.T) {
	t.Parallel()

	fields := frontmatter.Scan("alwaysApply: true\nglobs: [a, b]\npaths:\n  - x\n  - 'y'\nempty:\nnote: hello: world")

	alwaysApply := fields.Get("alwaysApply")
	assert.Equal(t, frontmatter.KindScalar, alwaysApply.Kind())
	assert.True(t, alwaysApply.IsTrue())

	globs := fields.Get("GLOBS")
	assert.Equal(t, frontmatter.KindList, globs.Kind())
	assert.Equal(t, []string{"a", "b"}, globs.Items())

	paths := fields.Get("paths")
	assert.Equal(t, []string{"x", "y"}, paths.Items())

	empty := fields.Get("empty")
	assert.Equal(t, frontmatter.KindList, empty.Kind())
	assert.Empty(t, empty.Items())

	note, ok := fields.Get("note").Scalar()
	require.True(t, ok)
	assert.Equal(t, "hello: world", note)

	missing := fields.Get("missing")
	assert.Equal(t, frontmatter.KindAbsent, missing.Kind())
	assert.False(t, missing.IsTrue())
	assert.Nil(t, missing.Items())
}

func TestValue_Items_ReturnsCopy(t *testing.T) {
	t.Parallel()

	v := frontmatter.List("a", "b")
	items := v.Items()
	items[0] = "changed"

	assert.Equal(t, []string{"a", "b"}, v.Items())
}

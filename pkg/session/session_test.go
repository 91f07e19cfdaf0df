package session_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/agentrules/pkg/rule"
	"github.com/macropower/agentrules/pkg/session"
)

type notice struct {
	message string
	level   session.Level
}

type recorder struct {
	notices []notice
}

func (r *recorder) Notify(_ context.Context, message string, level session.Level) {
	r.notices = append(r.notices, notice{message: message, level: level})
}

func newSession(t *testing.T, files map[string]string, opts ...session.Option) (*session.Session, *recorder, string) {
	t.Helper()

	home := t.TempDir()
	dir := filepath.Join(home, ".claude", "rules")

	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}

	rec := &recorder{}
	opts = append([]session.Option{
		session.WithDirectories(dir),
		session.WithHome(home),
		session.WithNotifier(rec),
	}, opts...)

	return session.New(opts...), rec, dir
}

var testRules = map[string]string{
	"always.md": "---\nalwaysApply: true\n---\nBe kind.",
	"go.md":     "---\nglobs: [*.go]\n---\nUse gofmt.",
	"src.md":    "---\npaths:\n  - src/**\n---\nKeep src tidy.",
}

func TestSession_Start(t *testing.T) {
	t.Parallel()

	s, rec, _ := newSession(t, testRules)

	assert.Equal(t, 3, s.Start(t.Context()))
	assert.Equal(t, []string{
		"~/.claude/rules/always.md",
		"~/.claude/rules/go.md",
		"~/.claude/rules/src.md",
	}, s.Sources())
	assert.Equal(t, []notice{{message: "Loaded 3 rule(s)", level: session.LevelInfo}}, rec.notices)
}

func TestSession_Start_Empty(t *testing.T) {
	t.Parallel()

	s, rec, _ := newSession(t, nil)

	assert.Equal(t, 0, s.Start(t.Context()))
	assert.Empty(t, s.Sources())
	assert.Empty(t, rec.notices)
	assert.Nil(t, s.Select(t.Context(), "anything"))

	got, ok := s.BeforePromptSubmit(t.Context(), "anything", "system")
	assert.False(t, ok)
	assert.Equal(t, "system", got)
}

func TestSession_Select_Idempotent(t *testing.T) {
	t.Parallel()

	s, _, _ := newSession(t, testRules)
	s.Start(t.Context())

	got := s.Select(t.Context(), "edit main.go")
	assert.Equal(t, []string{"always", "go"}, names(got))

	// Both prompts satisfy the go rule; it is only surfaced once.
	got = s.Select(t.Context(), "now write more golang")
	assert.Empty(t, got)

	got = s.Select(t.Context(), "fix src/app.go")
	assert.Equal(t, []string{"src"}, names(got))

	assert.Len(t, s.Applied(), 3)
}

func TestSession_Start_Resets(t *testing.T) {
	t.Parallel()

	s, _, dir := newSession(t, testRules)
	s.Start(t.Context())

	require.Len(t, s.Select(t.Context(), "edit main.go"), 2)
	require.Empty(t, s.Select(t.Context(), "edit main.go"))

	// Rules are re-discovered on start.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "py.md"), []byte("---\nglobs: [*.py]\n---\nUse ruff."), 0o600))

	assert.Equal(t, 4, s.Start(t.Context()))
	assert.Empty(t, s.Applied())
	assert.Equal(t, []string{"always", "go"}, names(s.Select(t.Context(), "edit main.go")))
	assert.Equal(t, []string{"py"}, names(s.Select(t.Context(), "run pytest")))
}

func TestSession_Fork(t *testing.T) {
	t.Parallel()

	s, _, _ := newSession(t, testRules)
	s.Start(t.Context())

	require.Len(t, s.Select(t.Context(), "edit main.go"), 2)

	f := s.Fork()
	assert.Empty(t, f.Applied())
	assert.Equal(t, s.Directories(), f.Directories())
	assert.Equal(t, s.Sources(), f.Sources())
	assert.Equal(t, []string{"always", "go"}, names(f.Select(t.Context(), "edit main.go")))

	// The parent keeps its own history.
	assert.Empty(t, s.Select(t.Context(), "edit main.go"))
	assert.Len(t, s.Applied(), 2)
}

func TestSession_BeforePromptSubmit(t *testing.T) {
	t.Parallel()

	s, rec, _ := newSession(t, map[string]string{
		"go.md": "---\nglobs: [*.go]\n---\n\nUse gofmt.\n",
	})
	s.Start(t.Context())

	got, ok := s.BeforePromptSubmit(t.Context(), "edit main.go", "You are helpful.")
	require.True(t, ok)
	assert.Equal(t, "You are helpful.\n\n"+
		"## Task Rules\n"+
		"Follow these rules for this task.\n\n"+
		"### go\n"+
		"Source: ~/.claude/rules/go.md\n\n"+
		"Use gofmt.\n", got)

	assert.Equal(t, []notice{
		{message: "Loaded 1 rule(s)", level: session.LevelInfo},
		{message: "Applied rule(s): go", level: session.LevelInfo},
	}, rec.notices)

	got, ok = s.BeforePromptSubmit(t.Context(), "edit main.go", "You are helpful.")
	assert.False(t, ok)
	assert.Equal(t, "You are helpful.", got)
}

func TestSession_Section(t *testing.T) {
	t.Parallel()

	rules := []*rule.Rule{
		rule.Parse("/srv/rules/a.md", "Alpha."),
		rule.Parse("/home/me/.claude/rules/b.md", "Beta."),
	}

	tcs := map[string]struct {
		opts []session.Option
		want string
	}{
		"defaults": {
			opts: []session.Option{session.WithHome("/home/me")},
			want: "## Task Rules\nFollow these rules for this task.\n\n" +
				"### a\nSource: /srv/rules/a.md\n\nAlpha.\n\n" +
				"### b\nSource: ~/.claude/rules/b.md\n\nBeta.",
		},
		"custom header without instructions": {
			opts: []session.Option{
				session.WithHeader("## Project Rules"),
				session.WithInstructions(""),
			},
			want: "## Project Rules\n\n" +
				"### a\nSource: /srv/rules/a.md\n\nAlpha.\n\n" +
				"### b\nSource: /home/me/.claude/rules/b.md\n\nBeta.",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, session.New(tc.opts...).Section(rules))
		})
	}
}

func TestSession_DisplayPath(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		home string
		path string
		want string
	}{
		"under home":      {home: "/home/me", path: "/home/me/.claude/rules/a.md", want: "~/.claude/rules/a.md"},
		"home with slash": {home: "/home/me/", path: "/home/me/a.md", want: "~/a.md"},
		"sibling of home": {home: "/home/me", path: "/home/meg/a.md", want: "/home/meg/a.md"},
		"home mid path":   {home: "/home/me", path: "/srv/home/me/a.md", want: "/srv/home/me/a.md"},
		"no home":         {path: "/home/me/a.md", want: "/home/me/a.md"},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var opts []session.Option
			if tc.home != "" {
				opts = append(opts, session.WithHome(tc.home))
			}

			assert.Equal(t, tc.want, session.New(opts...).DisplayPath(tc.path))
		})
	}
}

func TestSession_CustomMatcher(t *testing.T) {
	t.Parallel()

	s, _, _ := newSession(t, map[string]string{
		"tf.md": "---\nglobs: [*.tf]\n---\nPin providers.",
	}, session.WithMatcher(rule.NewMatcher(rule.Keywords{"tf": {" terraform "}})))
	s.Start(t.Context())

	assert.Equal(t, []string{"tf"}, names(s.Select(t.Context(), "write terraform")))
}

func names(rules []*rule.Rule) []string {
	var out []string
	for _, r := range rules {
		out = append(out, r.Name())
	}

	return out
}

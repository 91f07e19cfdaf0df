package session

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/macropower/agentrules/pkg/log"
	"github.com/macropower/agentrules/pkg/rule"
	"github.com/macropower/agentrules/pkg/store"
)

const (
	DefaultHeader       = "## Task Rules"
	DefaultInstructions = "Follow these rules for this task."
)

// Loader discovers rules in directories.
type Loader interface {
	Load(ctx context.Context, dirs []string) []*rule.Rule
}

// Session is the rule state of one agent session.
type Session struct {
	tracer       trace.Tracer
	loader       Loader
	notifier     Notifier
	matcher      *rule.Matcher
	applied      map[string]struct{}
	home         string
	header       string
	instructions string
	dirs         []string
	rules        []*rule.Rule
}

// Option configures a [Session].
type Option func(*Session)

// WithDirectories sets the directories searched by [Session.Start], in
// precedence order.
func WithDirectories(dirs ...string) Option {
	return func(s *Session) {
		s.dirs = slices.Clone(dirs)
	}
}

// WithLoader sets the rule loader. Defaults to an unfiltered [store.Store].
func WithLoader(l Loader) Option {
	return func(s *Session) {
		s.loader = l
	}
}

// WithMatcher sets the prompt matcher. Defaults to the built-in keywords.
func WithMatcher(m *rule.Matcher) Option {
	return func(s *Session) {
		s.matcher = m
	}
}

// WithNotifier sets where notices are sent. Defaults to discarding them.
func WithNotifier(n Notifier) Option {
	return func(s *Session) {
		s.notifier = n
	}
}

// WithHome sets the home directory abbreviated to "~" in rendered paths.
func WithHome(home string) Option {
	return func(s *Session) {
		s.home = filepath.Clean(home)
	}
}

// WithHeader sets the heading line of the injected section.
func WithHeader(header string) Option {
	return func(s *Session) {
		s.header = header
	}
}

// WithInstructions sets the line following the heading of the injected
// section. An empty string omits it.
func WithInstructions(instructions string) Option {
	return func(s *Session) {
		s.instructions = instructions
	}
}

// New creates a new [Session]. No rules are loaded until [Session.Start].
func New(opts ...Option) *Session {
	s := &Session{
		tracer:       otel.Tracer("rule-session"),
		loader:       store.New(),
		notifier:     nopNotifier{},
		matcher:      rule.NewMatcher(nil),
		applied:      map[string]struct{}{},
		header:       DefaultHeader,
		instructions: DefaultInstructions,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start discovers and loads rules and clears the already-applied set.
// It returns the number of rules loaded.
func (s *Session) Start(ctx context.Context) int {
	ctx, span := s.tracer.Start(ctx, "start", trace.WithAttributes(
		attribute.StringSlice("dirs", s.dirs),
	))
	defer span.End()

	s.rules = s.loader.Load(ctx, s.dirs)
	s.applied = map[string]struct{}{}

	span.SetAttributes(attribute.Int("rules", len(s.rules)))

	log.WithContext(ctx).Debug("session started",
		slog.Int("rules", len(s.rules)),
	)

	if len(s.rules) > 0 {
		s.notifier.Notify(ctx, fmt.Sprintf("Loaded %d rule(s)", len(s.rules)), LevelInfo)
	}

	return len(s.rules)
}

// Select returns the rules matching prompt that have not been applied yet in
// this session, and marks them applied.
func (s *Session) Select(ctx context.Context, prompt string) []*rule.Rule {
	ctx, span := s.tracer.Start(ctx, "select")
	defer span.End()

	if len(s.rules) == 0 {
		return nil
	}

	var selected []*rule.Rule
	for _, r := range s.matcher.Match(s.rules, prompt) {
		if _, ok := s.applied[r.Path()]; !ok {
			selected = append(selected, r)
		}
	}

	for _, r := range selected {
		s.applied[r.Path()] = struct{}{}
	}

	span.SetAttributes(attribute.Int("selected", len(selected)))

	log.WithContext(ctx).Debug("selected rules",
		slog.Int("selected", len(selected)),
		slog.Int("applied", len(s.applied)),
	)

	return selected
}

// BeforePromptSubmit selects rules for prompt. When any are newly selected,
// it returns systemPrompt with the rendered rule section appended and true.
// Otherwise it returns systemPrompt unchanged and false.
func (s *Session) BeforePromptSubmit(ctx context.Context, prompt, systemPrompt string) (string, bool) {
	selected := s.Select(ctx, prompt)
	if len(selected) == 0 {
		return systemPrompt, false
	}

	names := make([]string, 0, len(selected))
	for _, r := range selected {
		names = append(names, r.Name())
	}

	s.notifier.Notify(ctx, "Applied rule(s): "+strings.Join(names, ", "), LevelInfo)

	return systemPrompt + "\n\n" + s.Section(selected) + "\n", true
}

// Section renders rules under the configured header and instructions.
func (s *Session) Section(rules []*rule.Rule) string {
	var b strings.Builder

	b.WriteString(s.header)
	b.WriteString("\n")

	if s.instructions != "" {
		b.WriteString(s.instructions)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(s.Render(rules))

	return b.String()
}

// Render renders each rule as a heading, a source line and its content,
// separated by blank lines.
func (s *Session) Render(rules []*rule.Rule) string {
	blocks := make([]string, 0, len(rules))
	for _, r := range rules {
		blocks = append(blocks, fmt.Sprintf("### %s\nSource: %s\n\n%s", r.Name(), s.DisplayPath(r.Path()), r.Content()))
	}

	return strings.Join(blocks, "\n\n")
}

// Sources returns the paths of the loaded rules, with the home directory
// abbreviated.
func (s *Session) Sources() []string {
	out := make([]string, 0, len(s.rules))
	for _, r := range s.rules {
		out = append(out, s.DisplayPath(r.Path()))
	}

	return out
}

// Directories returns the discovery roots, in search order.
func (s *Session) Directories() []string {
	return slices.Clone(s.dirs)
}

// Rules returns the loaded rules in load order.
func (s *Session) Rules() []*rule.Rule {
	return slices.Clone(s.rules)
}

// Applied returns the paths of the rules applied so far, sorted.
func (s *Session) Applied() []string {
	out := make([]string, 0, len(s.applied))
	for path := range s.applied {
		out = append(out, path)
	}

	slices.Sort(out)

	return out
}

// Fork returns a session sharing this session's rules and configuration,
// with an empty already-applied set.
func (s *Session) Fork() *Session {
	f := *s
	f.rules = slices.Clone(s.rules)
	f.dirs = slices.Clone(s.dirs)
	f.applied = map[string]struct{}{}

	return &f
}

// DisplayPath abbreviates the home directory prefix of path to "~".
func (s *Session) DisplayPath(path string) string {
	if s.home == "" || s.home == "." {
		return path
	}

	if rest, ok := strings.CutPrefix(path, s.home+string(filepath.Separator)); ok {
		return "~/" + filepath.ToSlash(rest)
	}

	return path
}

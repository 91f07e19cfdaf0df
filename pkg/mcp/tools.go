package mcp

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sahilm/fuzzy"

	"github.com/macropower/agentrules/pkg/rule"
	"github.com/macropower/agentrules/pkg/session"
)

// Notice is a message the session raised for the user.
type Notice struct {
	Message string `json:"message"`
	Level   string `json:"level"`
}

// SessionStartParams defines parameters for the session_start tool.
type SessionStartParams struct{}

// SessionResult is returned by session_start and fork_session.
type SessionResult struct {
	Sources []string `json:"sources"`
	Notices []Notice `json:"notices,omitempty"`
	Loaded  int      `json:"loaded"`
}

// BeforePromptSubmitParams defines parameters for the before_prompt_submit tool.
type BeforePromptSubmitParams struct {
	Prompt       string `json:"prompt"       jsonschema:"the prompt the user submitted"`
	SystemPrompt string `json:"systemPrompt" jsonschema:"the current system prompt"`
}

// BeforePromptSubmitResult contains the result of before_prompt_submit.
type BeforePromptSubmitResult struct {
	SystemPrompt string   `json:"systemPrompt,omitempty"`
	Applied      []string `json:"applied,omitempty"`
	Notices      []Notice `json:"notices,omitempty"`
	Modified     bool     `json:"modified"`
}

// ListRulesParams defines parameters for the list_rules tool.
type ListRulesParams struct {
	Search string `json:"search,omitempty" jsonschema:"optional fuzzy filter over rule sources"`
}

// RuleInfo describes one loaded rule.
type RuleInfo struct {
	Name        string   `json:"name"`
	Source      string   `json:"source"`
	Extensions  []string `json:"extensions,omitempty"`
	PathHints   []string `json:"pathHints,omitempty"`
	AlwaysApply bool     `json:"alwaysApply"`
}

// ListRulesResult contains the result of list_rules.
type ListRulesResult struct {
	Message string     `json:"message"`
	Rules   []RuleInfo `json:"rules"`
}

// registerTools registers all available tools with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "session_start",
		Description: "Start a new agent session. Discovers rule documents and clears the set of rules already applied. Call this once when a session begins.",
	}, WithTracing(s.tracer, s.handleSessionStart))

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "before_prompt_submit",
		Description: "Select the rules relevant to a prompt that were not applied earlier in this session. When any are selected, returns the system prompt with the rules appended.",
	}, WithTracing(s.tracer, s.handleBeforePromptSubmit))

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "fork_session",
		Description: "Start a session derived from the current one. Keeps the loaded rules and clears the set of rules already applied.",
	}, WithTracing(s.tracer, s.handleForkSession))

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_rules",
		Description: "List the loaded rule documents and their match signals.",
	}, WithTracing(s.tracer, s.handleListRules))
}

func (s *Server) handleSessionStart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	_ SessionStartParams,
) (*mcp.CallToolResult, SessionResult, error) {
	c := s.clientFor(req.Session)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.notices = nil

	loaded := c.session.Start(ctx)
	c.started = true

	if loaded == 0 {
		c.Notify(ctx, "No rules loaded", session.LevelWarning)
	}

	result := SessionResult{
		Loaded:  loaded,
		Sources: c.session.Sources(),
		Notices: c.drainNotices(),
	}

	return textResult(fmt.Sprintf("Loaded %d rule(s).", loaded)), result, nil
}

func (s *Server) handleForkSession(
	ctx context.Context,
	req *mcp.CallToolRequest,
	_ SessionStartParams,
) (*mcp.CallToolResult, SessionResult, error) {
	c := s.clientFor(req.Session)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.notices = nil
	c.ensureStarted(ctx)

	c.session = c.session.Fork()

	result := SessionResult{
		Loaded:  len(c.session.Rules()),
		Sources: c.session.Sources(),
		Notices: c.drainNotices(),
	}

	return textResult(fmt.Sprintf("Forked session with %d rule(s).", result.Loaded)), result, nil
}

func (s *Server) handleBeforePromptSubmit(
	ctx context.Context,
	req *mcp.CallToolRequest,
	params BeforePromptSubmitParams,
) (*mcp.CallToolResult, BeforePromptSubmitResult, error) {
	c := s.clientFor(req.Session)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.notices = nil
	c.ensureStarted(ctx)

	before := c.session.Applied()

	systemPrompt, modified := c.session.BeforePromptSubmit(ctx, params.Prompt, params.SystemPrompt)

	result := BeforePromptSubmitResult{
		Modified: modified,
	}

	if !modified {
		result.Notices = c.drainNotices()
		return textResult("No new rules apply."), result, nil
	}

	result.SystemPrompt = systemPrompt
	result.Applied = c.appliedSince(before)
	result.Notices = c.drainNotices()

	return textResult(systemPrompt), result, nil
}

func (s *Server) handleListRules(
	ctx context.Context,
	req *mcp.CallToolRequest,
	params ListRulesParams,
) (*mcp.CallToolResult, ListRulesResult, error) {
	c := s.clientFor(req.Session)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.ensureStarted(ctx)

	// Listing is read-only; the load notice is not reported.
	c.notices = nil

	rules := c.session.Rules()
	if params.Search != "" {
		rules = search(rules, c.session.Sources(), params.Search)
	}

	result := ListRulesResult{
		Rules: make([]RuleInfo, 0, len(rules)),
	}

	for _, r := range rules {
		result.Rules = append(result.Rules, RuleInfo{
			Name:        r.Name(),
			Source:      c.session.DisplayPath(r.Path()),
			AlwaysApply: r.AlwaysApply(),
			Extensions:  r.Extensions(),
			PathHints:   r.PathHints(),
		})
	}

	switch {
	case len(c.session.Rules()) == 0:
		result.Message = "No rules loaded"
	case len(result.Rules) == 0:
		result.Message = fmt.Sprintf("No rules match %q", params.Search)
	default:
		lines := make([]string, 0, len(result.Rules))
		for _, info := range result.Rules {
			lines = append(lines, "- "+info.Source)
		}

		result.Message = "Loaded rules:\n" + strings.Join(lines, "\n")
	}

	return textResult(result.Message), result, nil
}

// ensureStarted starts the session if the host never called session_start.
func (c *client) ensureStarted(ctx context.Context) {
	if !c.started {
		c.session.Start(ctx)
		c.started = true
	}
}

// appliedSince returns the names of the rules applied after before was
// taken, in load order.
func (c *client) appliedSince(before []string) []string {
	applied := map[string]struct{}{}
	for _, path := range c.session.Applied() {
		if !slices.Contains(before, path) {
			applied[path] = struct{}{}
		}
	}

	var names []string
	for _, r := range c.session.Rules() {
		if _, ok := applied[r.Path()]; ok {
			names = append(names, r.Name())
		}
	}

	return names
}

func (c *client) drainNotices() []Notice {
	notices := c.notices
	c.notices = nil

	return notices
}

// search returns the rules whose display source fuzzy-matches pattern,
// best match first.
func search(rules []*rule.Rule, sources []string, pattern string) []*rule.Rule {
	matches := fuzzy.Find(pattern, sources)

	out := make([]*rule.Rule, 0, len(matches))
	for _, m := range matches {
		out = append(out, rules[m.Index])
	}

	return out
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// Notify implements [session.Notifier]. Notices are collected for the
// result of the tool call that raised them.
func (c *client) Notify(_ context.Context, message string, level session.Level) {
	c.notices = append(c.notices, Notice{Message: message, Level: string(level)})
}

// Package mcp exposes a rule [session.Session] to agent hosts over the Model
// Context Protocol.
//
// The host drives the session lifecycle through tools: session_start when a
// session begins, before_prompt_submit for every prompt, fork_session when a
// derived session begins, and list_rules for diagnostics. Notices the session
// raises during a call are returned in that call's result.
package mcp

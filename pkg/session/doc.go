// Package session tracks which rules have been surfaced to an agent during
// one session, and renders newly selected rules into the system prompt.
//
// A [Session] owns a rule snapshot and an already-applied set. [Session.Start]
// rebuilds both; [Session.Select] surfaces each matching rule at most once.
// A Session is not safe for concurrent use; hosts deliver events serially.
package session

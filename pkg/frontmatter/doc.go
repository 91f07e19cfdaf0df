// Package frontmatter splits rule documents into a metadata block and a
// markdown body.
//
// The metadata block is a narrow, YAML-like subset delimited by `---` lines:
//
//	---
//	alwaysApply: false
//	globs: [*.go, "*.{ts,tsx}"]
//	paths:
//	  - src/**
//	  - 'docs/api/**'
//	---
//
// It is intentionally not parsed as YAML. Values such as `[*.go]` are not
// valid YAML (a leading `*` is an alias), but are common in rule files.
// Instead, [Scan] classifies each metadata line and produces [Fields], a
// mapping of lower-cased keys to typed [Value]s, which [Parse] then reads.
package frontmatter

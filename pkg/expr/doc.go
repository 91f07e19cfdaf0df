// Package expr provides CEL (Common Expression Language) expressions for
// filtering loaded rules.
//
// Filter expressions have access to variables:
//   - `name` (string): The rule name (file name without extension)
//   - `path` (string): The rule source path
//   - `alwaysApply` (bool): Whether the rule applies to every prompt
//   - `extensions` (list<string>): Extension signals, e.g. ["go", "ts"]
//   - `pathHints` (list<string>): Path-hint signals, e.g. ["src/api"]
//
// And to the path functions `pathBase`, `pathDir` and `pathExt`, along with
// the CEL strings and lists extensions.
package expr

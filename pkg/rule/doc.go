// Package rule defines the [Rule] entity and the [Matcher] that decides which
// rules apply to a prompt.
//
// A rule is selected for a prompt when any of the following holds:
//   - It is marked `alwaysApply`.
//   - A prompt token names one of its path hints, or a path below one.
//   - The prompt mentions one of its extensions, either as `.ext` or by a
//     keyword phrase such as " golang " for "go".
//
// Matching is lexical. It favors recall over precision, so a prompt that
// mentions "foo.gold" also mentions ".go".
package rule

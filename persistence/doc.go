// Package persistence writes deliberation checkpoints so a session can be
// inspected or resumed after an interruption. Every phase boundary saves a
// full session snapshot: a JSON checkpoint plus a human-readable markdown
// transcript.
package persistence

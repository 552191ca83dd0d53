// Package id synthesizes stable identifiers the core needs but a provider
// response may omit, grounded on the teacher's core/event.go NewID() and on
// original_source/providers/gemini.py's _new_tool_use_id (some providers'
// function-call parts carry no id of their own).
package id

import "github.com/google/uuid"

// NewToolUseID synthesizes a tool-use id when a provider response omits
// one.
func NewToolUseID() string {
	return uuid.NewString()
}

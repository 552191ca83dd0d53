package core

// Part is one element of a provider-neutral transcript. The variant set is
// closed: UserText, ModelText, Thinking, ToolUse, ToolResult — order is
// preserved and parts are replayed verbatim on every follow-up request.
type Part interface {
	isPart()
}

// UserTextPart is literal user-authored text. The agent loop inserts only
// one: the rendered initial user prompt. The tool-results turn is made of
// ToolResultPart values instead.
type UserTextPart struct {
	Text string
}

func (UserTextPart) isPart() {}

// ModelTextPart is the model's final or intermediate natural-language
// output.
type ModelTextPart struct {
	Text string
}

func (ModelTextPart) isPart() {}

// ThinkingPart carries a provider reasoning block and its opaque signature.
// Redacted is true when the provider withheld the reasoning content itself
// while still requiring the signature to be replayed verbatim.
type ThinkingPart struct {
	Text      string
	Signature string
	Redacted  bool
}

func (ThinkingPart) isPart() {}

// ToolUsePart is a model-issued tool call.
type ToolUsePart struct {
	ID   string
	Name string
	Args map[string]any
}

func (ToolUsePart) isPart() {}

// ToolResultPart is the outcome of dispatching a ToolUsePart. IsError marks
// the result as a failure surfaced to the model textually (type + message,
// no stack trace — see core.StringifyException).
type ToolResultPart struct {
	ID      string
	Payload string
	IsError bool
}

func (ToolResultPart) isPart() {}

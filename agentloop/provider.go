package agentloop

import (
	"context"

	"github.com/lwcsrf/netflux/core"
)

// ToolDef is the neutral description of one callable a provider's request
// builder must advertise, derived from a spec's name/description/args.
type ToolDef struct {
	Name        string
	Description string
	Args        []core.FunctionArg
}

// RenderedRequest is an opaque, provider-specific request object produced
// by Render and consumed by Submit. Providers are free to carry whatever
// native state they need (e.g. Gemini's own contents history); the core
// never inspects it.
type RenderedRequest any

// RawResponse is an opaque, provider-specific response object produced by
// Submit and consumed by Ingest.
type RawResponse any

// Provider is the per-model-vendor variant of the agent loop's automaton,
// per spec.md §6: render request, submit (respecting semaphore/retries
// externally), ingest response into transcript, extract tool uses, update
// usage, expose the transcript as neutral parts. A provider owns its own
// SDK-specific request/response storage; conversion is always to neutral
// parts, never from.
type Provider interface {
	Kind() core.ProviderKind

	// Render composes the outgoing request: system prompt plus the full
	// transcript (whose first element is always the rendered initial user
	// turn) replayed verbatim in order. Where and whether a cache-control
	// marker is placed for a policy other than CacheNone is up to the
	// provider: the Anthropic adapter marks the system prompt block and the
	// last tool definition, not the latest message; the OpenAI adapter
	// places no marker at all.
	Render(systemPrompt string, transcript []core.Part, policy core.CachePolicy, tools []ToolDef) (RenderedRequest, error)

	// Submit performs the actual network call. Callers (Loop) are
	// responsible for semaphore acquisition and retrying transient
	// errors; Submit itself makes exactly one attempt.
	Submit(ctx context.Context, req RenderedRequest) (RawResponse, error)

	// Ingest converts a raw response into neutral transcript parts (to be
	// appended in order), the tool uses it contains (if any), the final
	// text (non-nil only when the response contains no tool use), and the
	// usage delta to accumulate.
	Ingest(resp RawResponse) (parts []core.Part, toolUses []core.ToolUsePart, finalText *string, usage core.TokenUsage, err error)

	// IsTransient classifies an error returned by Submit as a retryable
	// SDK-level transient fault (rate limit, overloaded, connection
	// reset) versus one that should escape the loop immediately.
	IsTransient(err error) bool
}

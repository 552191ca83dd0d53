package agentloop

import (
	"context"
	"time"

	"github.com/lwcsrf/netflux/core"
)

// AgentCompletionStats summarizes one completed agent invocation for the
// cache-policy rolling history (spec.md §4.5).
type AgentCompletionStats struct {
	ToolCallCount       int
	AvgToolCallInterval time.Duration
}

// Scheduler is everything Loop needs from the runtime beyond the plain
// core.Scheduler surface: transcript/usage mutation (which must happen
// under the runtime's single view-publication lock, same as
// status/success/exception) and the cache-policy history query.
type Scheduler interface {
	core.Scheduler

	AppendTranscriptParts(node *core.Node, parts ...core.Part)
	AccumulateUsage(node *core.Node, usage core.TokenUsage)
	SetCachePolicy(node *core.Node, policy core.CachePolicy)

	// RecordAgentCompletion pushes stats for a just-terminated invocation
	// of the named agent spec into the rolling history of its last 5
	// completions.
	RecordAgentCompletion(specName string, stats AgentCompletionStats)
	// AgentHistory returns up to the last 5 completed invocations of the
	// named agent spec, oldest first.
	AgentHistory(specName string) []AgentCompletionStats

	// AcquireModelSem/ReleaseModelSem gate outgoing model requests per
	// provider (spec.md §5's model-api semaphore). ReleaseModelSem is the
	// cooperative-release half of the contract; Loop reacquires before
	// its next request whenever it does not already hold the lease.
	AcquireModelSem(ctx context.Context, provider core.ProviderKind) error
	ReleaseModelSem(provider core.ProviderKind)
}

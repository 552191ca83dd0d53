package runtime

import (
	"github.com/lwcsrf/netflux/agentloop"
	"github.com/lwcsrf/netflux/core"
	"github.com/lwcsrf/netflux/logging"
)

// Options configures a Runtime. Functional-options construction, matching
// the teacher's idiom (runner.Options / engine.Options in hupe1980/agentmesh).
type Options struct {
	Logger logging.Logger

	// Providers maps a provider kind to its concrete agentloop.Provider.
	// Invoking an agent spec whose resolved provider has no entry here is
	// rejected by Invoke with an error, and no node is allocated.
	Providers map[core.ProviderKind]agentloop.Provider

	// ModelSemaphoreSize is the per-provider model-api semaphore weight
	// (spec.md §5). Providers with no explicit entry use
	// DefaultModelSemaphoreSize.
	ModelSemaphoreSize        map[core.ProviderKind]int64
	DefaultModelSemaphoreSize int64

	// AgentWorkerPoolSize bounds how many agent invocations run their loop
	// concurrently, process-wide.
	AgentWorkerPoolSize int

	// StepLimit bounds request-cycles per agent invocation (see
	// agentloop.DefaultMaxSteps).
	StepLimit int
}

func defaultOptions() Options {
	return Options{
		Logger:                    logging.NoOpLogger{},
		Providers:                 map[core.ProviderKind]agentloop.Provider{},
		ModelSemaphoreSize:        map[core.ProviderKind]int64{},
		DefaultModelSemaphoreSize: 4,
		AgentWorkerPoolSize:       8,
		StepLimit:                 agentloop.DefaultMaxSteps,
	}
}

func WithLogger(l logging.Logger) func(*Options) {
	return func(o *Options) { o.Logger = l }
}

// WithProvider registers the concrete loop implementation for a provider
// kind. Invoking an agent spec whose (resolved) provider has no registered
// implementation returns an error from Invoke.
func WithProvider(kind core.ProviderKind, p agentloop.Provider) func(*Options) {
	return func(o *Options) { o.Providers[kind] = p }
}

func WithModelSemaphoreSize(kind core.ProviderKind, n int64) func(*Options) {
	return func(o *Options) { o.ModelSemaphoreSize[kind] = n }
}

func WithDefaultModelSemaphoreSize(n int64) func(*Options) {
	return func(o *Options) { o.DefaultModelSemaphoreSize = n }
}

func WithAgentWorkerPoolSize(n int) func(*Options) {
	return func(o *Options) { o.AgentWorkerPoolSize = n }
}

func WithStepLimit(n int) func(*Options) {
	return func(o *Options) { o.StepLimit = n }
}

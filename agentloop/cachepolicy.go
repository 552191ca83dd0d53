package agentloop

import (
	"time"

	"github.com/lwcsrf/netflux/core"
)

// DecideCachePolicy implements spec.md §4.5's cache-watermark decision,
// run exactly once, before the first request of an invocation.
func DecideCachePolicy(spec *core.AgentSpec, history []AgentCompletionStats) core.CachePolicy {
	if len(spec.Uses) == 0 {
		return core.CacheNone
	}

	if allLeafNonHITL(spec.Uses) {
		return core.Cache5m
	}

	if len(history) == 0 {
		return core.CacheNone
	}

	var totalCalls int
	var totalInterval time.Duration
	var intervalSamples int
	for _, h := range history {
		totalCalls += h.ToolCallCount
		if h.AvgToolCallInterval > 0 {
			totalInterval += h.AvgToolCallInterval
			intervalSamples++
		}
	}
	avgCalls := float64(totalCalls) / float64(len(history))
	var avgInterval time.Duration
	if intervalSamples > 0 {
		avgInterval = totalInterval / time.Duration(intervalSamples)
	}

	if avgCalls > 1 && avgInterval < time.Hour {
		return core.Cache1hr
	}
	return core.CacheNone
}

func allLeafNonHITL(specs []core.Spec) bool {
	for _, s := range specs {
		cs, ok := s.(*core.CodeSpec)
		if !ok {
			// An agent-spec tool is not a "leaf" tool.
			return false
		}
		if cs.HumanInLoop {
			return false
		}
		if len(cs.Uses) > 0 {
			return false
		}
	}
	return true
}

package agentloop

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lwcsrf/netflux/core"
)

func leafTool(name string, humanInLoop bool) *core.CodeSpec {
	return &core.CodeSpec{Name: name, HumanInLoop: humanInLoop}
}

func TestDecideCachePolicyNoToolsIsNone(t *testing.T) {
	spec := &core.AgentSpec{Name: "a"}
	assert.Equal(t, core.CacheNone, DecideCachePolicy(spec, nil))
}

func TestDecideCachePolicyAllLeafNonHITLToolsIs5m(t *testing.T) {
	spec := &core.AgentSpec{Name: "a", Uses: []core.Spec{leafTool("echo", false), leafTool("sum", false)}}
	assert.Equal(t, core.Cache5m, DecideCachePolicy(spec, nil))
}

func TestDecideCachePolicyHumanInLoopToolExcludesLeafCheck(t *testing.T) {
	spec := &core.AgentSpec{Name: "a", Uses: []core.Spec{leafTool("ask_human", true)}}
	assert.Equal(t, core.CacheNone, DecideCachePolicy(spec, nil))
}

func TestDecideCachePolicyAgentToolIsNotLeaf(t *testing.T) {
	spec := &core.AgentSpec{Name: "a", Uses: []core.Spec{&core.AgentSpec{Name: "sub"}}}
	assert.Equal(t, core.CacheNone, DecideCachePolicy(spec, nil))
}

func TestDecideCachePolicyNestedToolIsNotLeaf(t *testing.T) {
	nested := leafTool("inner", false)
	outer := &core.CodeSpec{Name: "outer", Uses: []core.Spec{nested}}
	spec := &core.AgentSpec{Name: "a", Uses: []core.Spec{outer}}
	assert.Equal(t, core.CacheNone, DecideCachePolicy(spec, nil))
}

func TestDecideCachePolicyHistoryDrivesHourWatermark(t *testing.T) {
	// Not all-leaf tools (an agent delegate) so the rolling-history branch
	// is reached; frequent, close-together tool calls warrant the 1hr
	// watermark.
	spec := &core.AgentSpec{Name: "a", Uses: []core.Spec{&core.AgentSpec{Name: "sub"}}}
	history := []AgentCompletionStats{
		{ToolCallCount: 3, AvgToolCallInterval: 2 * time.Minute},
		{ToolCallCount: 4, AvgToolCallInterval: 3 * time.Minute},
	}
	assert.Equal(t, core.Cache1hr, DecideCachePolicy(spec, history))
}

func TestDecideCachePolicyHistorySparseCallsStaysNone(t *testing.T) {
	spec := &core.AgentSpec{Name: "a", Uses: []core.Spec{&core.AgentSpec{Name: "sub"}}}
	history := []AgentCompletionStats{
		{ToolCallCount: 1, AvgToolCallInterval: 2 * time.Hour},
	}
	assert.Equal(t, core.CacheNone, DecideCachePolicy(spec, history))
}

func TestDecideCachePolicyNoHistoryStaysNone(t *testing.T) {
	spec := &core.AgentSpec{Name: "a", Uses: []core.Spec{&core.AgentSpec{Name: "sub"}}}
	assert.Equal(t, core.CacheNone, DecideCachePolicy(spec, nil))
}

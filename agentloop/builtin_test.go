package agentloop

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lwcsrf/netflux/core"
)

func TestRaiseExceptionAlwaysFails(t *testing.T) {
	var mu sync.Mutex
	node := core.NewNode(7, RaiseException, core.Args{}, false, 0, core.NewSessionBag(), core.NewSessionBag(), nil, &mu)
	ctx := core.NewRunContext(nil, node, core.NewSessionBag(), false, nil, core.NewSessionBag())

	args, err := core.CoerceArgs(RaiseException.Args, map[string]any{"msg": "cannot proceed"})
	require.NoError(t, err)

	out, err := RaiseException.Callable(ctx, args)
	assert.Nil(t, out)
	require.Error(t, err)

	agentErr, ok := err.(*core.AgentException)
	require.True(t, ok)
	assert.Equal(t, "raise-exception", agentErr.SpecName)
	assert.Equal(t, core.NodeID(7), agentErr.NodeID)
	assert.Equal(t, "cannot proceed", agentErr.Message)
}

package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lwcsrf/netflux/agentloop"
	"github.com/lwcsrf/netflux/core"
)

// stubProvider is a minimal agentloop.Provider used only to satisfy the
// registry's "an implementation exists" check; its methods are never
// reached by tests that never let a request leave dispatchAgent.
type stubProvider struct{}

func (stubProvider) Kind() core.ProviderKind { return core.ProviderAnthropic }
func (stubProvider) Render(string, []core.Part, core.CachePolicy, []agentloop.ToolDef) (agentloop.RenderedRequest, error) {
	return nil, nil
}
func (stubProvider) Submit(context.Context, agentloop.RenderedRequest) (agentloop.RawResponse, error) {
	return nil, nil
}
func (stubProvider) Ingest(agentloop.RawResponse) ([]core.Part, []core.ToolUsePart, *string, core.TokenUsage, error) {
	return nil, nil, nil, core.TokenUsage{}, nil
}
func (stubProvider) IsTransient(error) bool { return false }

func echoSpec() *core.CodeSpec {
	return &core.CodeSpec{
		Name:        "echo",
		Description: "echoes its input",
		Args:        []core.FunctionArg{{Name: "text", Type: core.ArgString}},
		Callable: func(ctx *core.RunContext, args core.Args) (any, error) {
			return args.String("text"), nil
		},
	}
}

func failingSpec() *core.CodeSpec {
	return &core.CodeSpec{
		Name: "fail",
		Args: []core.FunctionArg{},
		Callable: func(ctx *core.RunContext, args core.Args) (any, error) {
			return nil, assert.AnError
		},
	}
}

func TestNewRejectsDuplicateSpecName(t *testing.T) {
	a := &core.CodeSpec{Name: "dup", Callable: func(*core.RunContext, core.Args) (any, error) { return nil, nil }}
	b := &core.CodeSpec{Name: "dup", Callable: func(*core.RunContext, core.Args) (any, error) { return nil, nil }}

	_, err := New([]core.Spec{a, b})
	assert.ErrorIs(t, err, core.ErrDuplicateFunctionName)
}

func TestNewRegistersTransitiveUses(t *testing.T) {
	leaf := echoSpec()
	parent := &core.CodeSpec{
		Name: "caller",
		Uses: []core.Spec{leaf},
		Callable: func(*core.RunContext, core.Args) (any, error) {
			return nil, nil
		},
	}

	rt, err := New([]core.Spec{parent})
	require.NoError(t, err)

	_, ok := rt.registry["echo"]
	assert.True(t, ok)
	_, ok = rt.registry["caller"]
	assert.True(t, ok)
}

func TestInvokeRejectsUnregisteredSpec(t *testing.T) {
	rt, err := New(nil)
	require.NoError(t, err)

	ctx := rt.GetCtx()
	_, err = ctx.Invoke(echoSpec(), map[string]any{"text": "hi"}, core.ProviderUnspecified)
	assert.ErrorIs(t, err, core.ErrUnregisteredFunction)
}

func TestInvokeRejectedValidationAllocatesNoNode(t *testing.T) {
	spec := echoSpec()
	rt, err := New([]core.Spec{spec})
	require.NoError(t, err)

	ctx := rt.GetCtx()
	_, err = ctx.Invoke(spec, map[string]any{"wrong_key": "hi"}, core.ProviderUnspecified)
	assert.Error(t, err)

	assert.Empty(t, rt.nodes)
	assert.Empty(t, rt.roots)
}

func TestInvokeCodeSpecRunsSynchronouslyToSuccess(t *testing.T) {
	spec := echoSpec()
	rt, err := New([]core.Spec{spec})
	require.NoError(t, err)

	ctx := rt.GetCtx()
	node, err := ctx.Invoke(spec, map[string]any{"text": "hello"}, core.ProviderUnspecified)
	require.NoError(t, err)

	// runCode is called inline by Invoke before it returns, so the node is
	// already terminal by the time we get the *core.Node back.
	assert.Equal(t, core.StateSuccess, node.State)
	assert.Equal(t, "hello", node.Outputs)

	out, err := node.Result()
	require.NoError(t, err)
	assert.Equal(t, "hello", out)

	// A single code invocation settles at global version 2: creation then
	// success, with no separate Running bump in between (spec.md §8
	// scenario 1).
	view, ok := rt.GetView(node.ID)
	require.True(t, ok)
	assert.EqualValues(t, 2, view.UpdateSeqNum)
}

func TestInvokeCodeSpecFailurePropagatesError(t *testing.T) {
	spec := failingSpec()
	rt, err := New([]core.Spec{spec})
	require.NoError(t, err)

	ctx := rt.GetCtx()
	node, err := ctx.Invoke(spec, map[string]any{}, core.ProviderUnspecified)
	require.NoError(t, err)

	assert.Equal(t, core.StateError, node.State)
	_, resultErr := node.Result()
	assert.Same(t, assert.AnError, resultErr)
}

func TestInvokeRejectsProviderOverrideForCodeSpec(t *testing.T) {
	spec := echoSpec()
	rt, err := New([]core.Spec{spec})
	require.NoError(t, err)

	ctx := rt.GetCtx()
	_, err = ctx.Invoke(spec, map[string]any{"text": "hi"}, core.ProviderAnthropic)
	assert.Error(t, err)
}

func TestInvokeAgentSpecRejectsMissingProviderImpl(t *testing.T) {
	agentSpec := &core.AgentSpec{
		Name:                 "reviewer",
		SystemPromptTemplate: "sys",
		UserPromptTemplate:   "usr",
		DefaultProvider:      core.ProviderAnthropic,
	}
	rt, err := New([]core.Spec{agentSpec})
	require.NoError(t, err)

	ctx := rt.GetCtx()
	_, err = ctx.Invoke(agentSpec, map[string]any{}, core.ProviderUnspecified)
	assert.Error(t, err)
}

func TestTouchRepublishesAncestorViews(t *testing.T) {
	child := echoSpec()
	parent := &core.CodeSpec{
		Name: "parent",
		Uses: []core.Spec{child},
		Callable: func(rc *core.RunContext, args core.Args) (any, error) {
			node, err := rc.Invoke(child, map[string]any{"text": "from child"}, core.ProviderUnspecified)
			if err != nil {
				return nil, err
			}
			return node.Result()
		},
	}

	rt, err := New([]core.Spec{parent})
	require.NoError(t, err)

	ctx := rt.GetCtx()
	parentNode, err := ctx.Invoke(parent, map[string]any{}, core.ProviderUnspecified)
	require.NoError(t, err)
	require.Equal(t, core.StateSuccess, parentNode.State)

	view, ok := rt.GetView(parentNode.ID)
	require.True(t, ok)
	require.Len(t, view.Children, 1)
	assert.Equal(t, "echo", view.Children[0].SpecName)
	assert.Equal(t, core.StateSuccess, view.Children[0].State)

	// The parent's view has been republished since creation and embeds the
	// child's latest (Success) view checked above.
	assert.Greater(t, view.UpdateSeqNum, int64(0))
}

func TestListToplevelViewsOnlyIncludesRoots(t *testing.T) {
	child := echoSpec()
	parent := &core.CodeSpec{
		Name: "parent2",
		Uses: []core.Spec{child},
		Callable: func(rc *core.RunContext, args core.Args) (any, error) {
			node, err := rc.Invoke(child, map[string]any{"text": "x"}, core.ProviderUnspecified)
			if err != nil {
				return nil, err
			}
			return node.Result()
		},
	}
	rt, err := New([]core.Spec{parent})
	require.NoError(t, err)

	ctx := rt.GetCtx()
	_, err = ctx.Invoke(parent, map[string]any{}, core.ProviderUnspecified)
	require.NoError(t, err)

	views := rt.ListToplevelViews()
	require.Len(t, views, 1)
	assert.Equal(t, "parent2", views[0].SpecName)
}

func TestWatchBlocksThenWakesOnUpdate(t *testing.T) {
	// A spec whose system prompt references a placeholder it never
	// declares as an argument fails template rendering inside
	// dispatchAgent, which runs asynchronously (its own goroutine) after
	// Invoke has already returned — giving Watch a real, later update to
	// wait for rather than one that already happened before Invoke returned.
	agentSpec := &core.AgentSpec{
		Name:                 "async-agent",
		SystemPromptTemplate: "sys {undeclared}",
		UserPromptTemplate:   "usr",
		DefaultProvider:      core.ProviderAnthropic,
	}
	rt, err := New([]core.Spec{agentSpec}, WithProvider(core.ProviderAnthropic, stubProvider{}))
	require.NoError(t, err)

	ctx := rt.GetCtx()
	node, err := ctx.Invoke(agentSpec, map[string]any{}, core.ProviderUnspecified)
	require.NoError(t, err)

	initial, ok := rt.GetView(node.ID)
	require.True(t, ok)
	require.Equal(t, core.StateWaiting, initial.State)

	done := make(chan *core.View)
	go func() {
		done <- rt.Watch(node, initial.UpdateSeqNum)
	}()

	select {
	case v := <-done:
		// dispatchAgent posts Running before it fails rendering the
		// prompts, so Watch may wake on either transition; either way it
		// must be a real update past the Waiting snapshot we started from.
		assert.Greater(t, v.UpdateSeqNum, initial.UpdateSeqNum)
		assert.NotEqual(t, core.StateWaiting, v.State)
	case <-time.After(time.Second):
		t.Fatal("Watch never woke after dispatchAgent's failure")
	}
}

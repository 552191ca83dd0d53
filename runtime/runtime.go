// Package runtime implements the scheduler: registration, id allocation,
// tree wiring, session-bag propagation, the model-api semaphore, the agent
// worker pool, and the view/watch layer. Grounded directly on
// original_source/runtime.py's Runtime class.
package runtime

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/lwcsrf/netflux/agentloop"
	"github.com/lwcsrf/netflux/core"
	"github.com/lwcsrf/netflux/internal/schema"
	"github.com/lwcsrf/netflux/internal/template"
	"github.com/lwcsrf/netflux/logging"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

type registryEntry struct {
	spec   core.Spec
	schema *jsonschema.Schema
}

// Runtime is the scheduler/runtime component: it owns the node arena, the
// global version counter, and the view cache exclusively (spec.md §3,
// "Ownership").
type Runtime struct {
	opts Options

	// mu is the single global version/snapshot lock (spec.md §5): it
	// guards the registry, node arena, view cache, version counter, and
	// doubles as the lock every Node's sync.Cond is bound to.
	mu            sync.Mutex
	nextID        core.NodeID
	globalVersion int64
	registry      map[string]registryEntry
	nodes         map[core.NodeID]*core.Node
	roots         []core.NodeID
	viewCache     map[core.NodeID]*core.View

	historyMu   sync.Mutex
	specHistory map[string][]agentloop.AgentCompletionStats

	semMu sync.Mutex
	sems  map[core.ProviderKind]*semaphore.Weighted

	workerSem *semaphore.Weighted
}

// New registers the BFS closure of specs and returns a ready Runtime.
func New(specs []core.Spec, optFns ...func(*Options)) (*Runtime, error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	r := &Runtime{
		opts:        opts,
		registry:    make(map[string]registryEntry),
		nodes:       make(map[core.NodeID]*core.Node),
		viewCache:   make(map[core.NodeID]*core.View),
		specHistory: make(map[string][]agentloop.AgentCompletionStats),
		sems:        make(map[core.ProviderKind]*semaphore.Weighted),
		workerSem:   semaphore.NewWeighted(int64(maxInt(opts.AgentWorkerPoolSize, 1))),
	}

	if err := r.register(specs); err != nil {
		return nil, err
	}

	return r, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// register performs the breadth-first closure over every spec's Uses list,
// rejecting two distinct instances sharing a name (spec.md §4.1).
func (r *Runtime) register(seed []core.Spec) error {
	queue := append([]core.Spec{}, seed...)
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]

		if existing, ok := r.registry[s.SpecName()]; ok {
			if existing.spec != s {
				return fmt.Errorf("%w: %q", core.ErrDuplicateFunctionName, s.SpecName())
			}
			continue
		}

		if err := core.ValidateSpecArgs(s.SpecArgs()); err != nil {
			return fmt.Errorf("runtime: registering %q: %w", s.SpecName(), err)
		}

		sch, err := schema.Compile(s.SpecName(), s.SpecArgs())
		if err != nil {
			return fmt.Errorf("runtime: registering %q: %w", s.SpecName(), err)
		}

		r.registry[s.SpecName()] = registryEntry{spec: s, schema: sch}
		queue = append(queue, s.SpecUses()...)
	}
	return nil
}

// nodeLogger scopes r.opts.Logger to n's id and spec name when it is a
// *logging.NodeLogger; any other Logger implementation is returned
// unchanged (it simply won't carry per-node context).
func (r *Runtime) nodeLogger(n *core.Node) logging.Logger {
	if nl, ok := logging.AsNodeLogger(r.opts.Logger); ok {
		return nl.WithNode(fmt.Sprintf("%d", n.ID), n.Spec.SpecName())
	}
	return r.opts.Logger
}

func (r *Runtime) semFor(kind core.ProviderKind) *semaphore.Weighted {
	r.semMu.Lock()
	defer r.semMu.Unlock()
	if s, ok := r.sems[kind]; ok {
		return s
	}
	weight := r.opts.DefaultModelSemaphoreSize
	if w, ok := r.opts.ModelSemaphoreSize[kind]; ok {
		weight = w
	}
	if weight < 1 {
		weight = 1
	}
	s := semaphore.NewWeighted(weight)
	r.sems[kind] = s
	return s
}

// GetCtx returns the neutral, unbound context used to invoke top-level
// tasks.
func (r *Runtime) GetCtx() *core.RunContext {
	return core.NewRunContext(r, nil, nil, false, nil, nil)
}

// Invoke implements core.Scheduler. caller is nil for a top-level
// invocation. Argument validation happens before any lock is taken or node
// allocated, per SPEC_FULL.md's "a rejected invocation allocates nothing."
func (r *Runtime) Invoke(caller *core.Node, spec core.Spec, rawArgs map[string]any, provider core.ProviderKind) (*core.Node, error) {
	entry, ok := r.registry[spec.SpecName()]
	if !ok || entry.spec != spec {
		return nil, fmt.Errorf("runtime: %w: %q", core.ErrUnregisteredFunction, spec.SpecName())
	}

	resolvedProvider := core.ProviderUnspecified
	switch s := spec.(type) {
	case *core.CodeSpec:
		if provider != core.ProviderUnspecified {
			return nil, fmt.Errorf("runtime: provider override given for code spec %q", spec.SpecName())
		}
	case *core.AgentSpec:
		resolvedProvider = s.DefaultProvider
		if provider != core.ProviderUnspecified {
			resolvedProvider = provider
		}
		if _, ok := r.opts.Providers[resolvedProvider]; !ok {
			return nil, fmt.Errorf("runtime: no provider implementation registered for %s", resolvedProvider)
		}
	}

	if rawArgs == nil {
		rawArgs = map[string]any{}
	}
	if err := schema.Validate(entry.schema, rawArgs); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrValidation, err)
	}
	args, err := core.CoerceArgs(spec.SpecArgs(), rawArgs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrValidation, err)
	}

	r.mu.Lock()
	id := r.nextID
	r.nextID++

	selfBag := core.NewSessionBag()
	hasParent := caller != nil
	var parentBag, topLevelBag *core.SessionBag
	if hasParent {
		parentBag = caller.Bag
		topLevelBag = caller.TopLevelBag
	} else {
		topLevelBag = selfBag
	}

	var agentState *core.AgentState
	if spec.SpecKind() == core.KindAgent {
		agentState = &core.AgentState{Provider: resolvedProvider}
	}

	parentID := core.NodeID(-1)
	if hasParent {
		parentID = caller.ID
	}
	node := core.NewNode(id, spec, args, hasParent, parentID, selfBag, topLevelBag, agentState, &r.mu)
	r.nodes[id] = node
	if hasParent {
		caller.ChildIDs = append(caller.ChildIDs, id)
	} else {
		r.roots = append(r.roots, id)
	}
	r.touch(node)
	r.mu.Unlock()

	r.nodeLogger(node).Debug("node created", "kind", spec.SpecKind().String())

	rc := core.NewRunContext(r, node, selfBag, hasParent, parentBag, topLevelBag)

	switch s := spec.(type) {
	case *core.CodeSpec:
		r.runCode(rc, s, args)
	case *core.AgentSpec:
		go r.dispatchAgent(rc, s, args)
	}

	return node, nil
}

// runCode executes a code callable synchronously inline, exactly as
// original_source/runtime.py's invoke does for non-coroutine callables.
// It does not publish a separate Running transition: a code invocation
// never blocks an external observer in that state, so CanTransitionTo's
// Waiting->{Success|Error} edge is taken directly and a single code
// invocation settles at global version 2 (creation + success/error), not 3.
func (r *Runtime) runCode(rc *core.RunContext, spec *core.CodeSpec, args core.Args) {
	out, err := spec.Callable(rc, args)
	if err != nil {
		r.PostException(rc.Node, err)
		return
	}
	r.PostSuccess(rc.Node, out)
}

// dispatchAgent acquires a worker-pool slot and drives one agent invocation
// to completion via agentloop.Loop.
func (r *Runtime) dispatchAgent(rc *core.RunContext, spec *core.AgentSpec, args core.Args) {
	ctx := context.Background()
	if err := r.workerSem.Acquire(ctx, 1); err != nil {
		r.PostException(rc.Node, fmt.Errorf("runtime: acquire worker slot: %w", err))
		return
	}
	r.nodeLogger(rc.Node).Debug("worker pool slot acquired")
	defer func() {
		r.workerSem.Release(1)
		r.nodeLogger(rc.Node).Debug("worker pool slot released")
	}()

	r.PostStatusUpdate(rc.Node, core.StateRunning)

	provider, ok := r.opts.Providers[rc.Node.Agent.Provider]
	if !ok {
		r.PostException(rc.Node, fmt.Errorf("runtime: no provider implementation for %s", rc.Node.Agent.Provider))
		return
	}

	systemPrompt, userPrompt, err := template.RenderAgentPrompts(spec, args)
	if err != nil {
		r.PostException(rc.Node, fmt.Errorf("runtime: rendering prompts: %w", err))
		return
	}

	loop := agentloop.New(r, provider, spec, func(o *agentloop.Options) {
		o.MaxSteps = r.opts.StepLimit
		o.Logger = r.opts.Logger
	})
	loop.Run(ctx, rc, systemPrompt, userPrompt)
}

// touch bumps the global version and republishes the view of n and every
// ancestor up to its tree's root, then broadcasts each touched node. Callers
// must hold r.mu.
func (r *Runtime) touch(n *core.Node) {
	r.globalVersion++
	seq := r.globalVersion

	cur := n
	for {
		r.viewCache[cur.ID] = r.rebuildView(cur, seq)
		cur.Broadcast()
		if !cur.HasParent {
			break
		}
		parent, ok := r.nodes[cur.ParentID]
		if !ok {
			break
		}
		cur = parent
	}
}

// rebuildView snapshots one node's observable state as an immutable View.
// Callers must hold r.mu.
func (r *Runtime) rebuildView(n *core.Node, seq int64) *core.View {
	v := &core.View{
		ID:           n.ID,
		SpecName:     n.Spec.SpecName(),
		Kind:         n.Spec.SpecKind(),
		State:        n.State,
		Inputs:       argsToMap(n.Inputs),
		Outputs:      n.Outputs,
		UpdateSeqNum: seq,
	}
	if n.State == core.StateError && n.Err != nil {
		v.ExceptionSummary = core.StringifyException(n.Err)
	}
	if n.Agent != nil {
		v.Usage = n.Agent.Usage
		v.Transcript = append([]core.Part(nil), n.Agent.Transcript...)
		v.CachePolicy = n.Agent.CachePolicy
	}
	for _, cid := range n.ChildIDs {
		if cv, ok := r.viewCache[cid]; ok {
			v.Children = append(v.Children, cv)
		}
	}
	return v
}

func argsToMap(args core.Args) map[string]any {
	raw := args.Raw()
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		out[k] = v.Any()
	}
	return out
}

// PostStatusUpdate implements core.Scheduler.
func (r *Runtime) PostStatusUpdate(node *core.Node, state core.NodeState) {
	r.mu.Lock()
	if err := node.Transition(state); err != nil {
		r.mu.Unlock()
		return
	}
	r.touch(node)
	r.mu.Unlock()

	r.nodeLogger(node).Debug("node state transition", "state", state.String())
}

// PostSuccess implements core.Scheduler.
func (r *Runtime) PostSuccess(node *core.Node, outputs any) {
	r.mu.Lock()
	if err := node.Transition(core.StateSuccess); err != nil {
		r.mu.Unlock()
		return
	}
	node.Outputs = outputs
	r.touch(node)
	r.mu.Unlock()

	r.nodeLogger(node).Info("node succeeded")
}

// PostException implements core.Scheduler.
func (r *Runtime) PostException(node *core.Node, err error) {
	r.mu.Lock()
	if terr := node.Transition(core.StateError); terr != nil {
		r.mu.Unlock()
		return
	}
	node.Err = err
	r.touch(node)
	r.mu.Unlock()

	r.nodeLogger(node).Error("node failed", "error", err)
}

// AppendTranscriptParts implements agentloop.Scheduler.
func (r *Runtime) AppendTranscriptParts(node *core.Node, parts ...core.Part) {
	r.mu.Lock()
	defer r.mu.Unlock()
	node.Agent.Transcript = append(node.Agent.Transcript, parts...)
	r.touch(node)
}

// AccumulateUsage implements agentloop.Scheduler.
func (r *Runtime) AccumulateUsage(node *core.Node, usage core.TokenUsage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	node.Agent.Usage = node.Agent.Usage.Add(usage)
	r.touch(node)
}

// SetCachePolicy implements agentloop.Scheduler.
func (r *Runtime) SetCachePolicy(node *core.Node, policy core.CachePolicy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	node.Agent.CachePolicy = policy
	r.touch(node)
}

// RecordAgentCompletion implements agentloop.Scheduler, keeping the last 5
// completions per spec name (spec.md §4.5's rolling history).
func (r *Runtime) RecordAgentCompletion(specName string, stats agentloop.AgentCompletionStats) {
	r.historyMu.Lock()
	defer r.historyMu.Unlock()
	hist := append(r.specHistory[specName], stats)
	if len(hist) > 5 {
		hist = hist[len(hist)-5:]
	}
	r.specHistory[specName] = hist
}

// AgentHistory implements agentloop.Scheduler.
func (r *Runtime) AgentHistory(specName string) []agentloop.AgentCompletionStats {
	r.historyMu.Lock()
	defer r.historyMu.Unlock()
	return append([]agentloop.AgentCompletionStats(nil), r.specHistory[specName]...)
}

// AcquireModelSem implements agentloop.Scheduler.
func (r *Runtime) AcquireModelSem(ctx context.Context, provider core.ProviderKind) error {
	if err := r.semFor(provider).Acquire(ctx, 1); err != nil {
		return err
	}
	r.opts.Logger.Debug("model semaphore acquired", "provider", provider.String())
	return nil
}

// ReleaseModelSem implements agentloop.Scheduler.
func (r *Runtime) ReleaseModelSem(provider core.ProviderKind) {
	r.semFor(provider).Release(1)
	r.opts.Logger.Debug("model semaphore released", "provider", provider.String())
}

// GetView returns the latest cached view for id without blocking.
func (r *Runtime) GetView(id core.NodeID) (*core.View, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.viewCache[id]
	return v, ok
}

// ListToplevelViews returns the cached current view of every top-level
// tree (SPEC_FULL.md, SUPPLEMENTED BEHAVIOR #3). It reads them under r.mu,
// the lock every view publication holds, so the list reflects a single
// global version; each root's UpdateSeqNum is the version at which that
// tree last changed. The runtime has no tree deletion, so every root
// invoked so far is listed.
func (r *Runtime) ListToplevelViews() []*core.View {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*core.View, 0, len(r.roots))
	for _, id := range r.roots {
		if v, ok := r.viewCache[id]; ok {
			out = append(out, v)
		}
	}
	return out
}

// Watch blocks until node's cached view advances past asOfSeq, then returns
// the new view. It parks on the same cond/lock every mutation broadcasts on
// (SPEC_FULL.md, SUPPLEMENTED BEHAVIOR #2 and #4).
func (r *Runtime) Watch(node *core.Node, asOfSeq int64) *core.View {
	// node's cond shares the runtime's single mutex, so Lock/Wait here and
	// the unguarded viewCache read below are already inside that one
	// critical section — a second r.mu.Lock() would deadlock.
	node.Lock()
	defer node.Unlock()
	for {
		if v, ok := r.viewCache[node.ID]; ok && v.UpdateSeqNum > asOfSeq {
			return v
		}
		node.Wait()
	}
}

package core

// Scheduler is the subset of runtime.Runtime that a RunContext calls back
// into. Defined here (rather than imported from the runtime package) to
// avoid an import cycle: core has no dependency on runtime, runtime depends
// on core.
type Scheduler interface {
	// Invoke creates a child node of caller (or a new top-level node if
	// caller is nil), validating and coercing rawArgs against spec's
	// schema first — a rejected invocation allocates no node. provider
	// overrides spec's default model choice for agent specs; it must be
	// ProviderUnspecified for code specs.
	Invoke(caller *Node, spec Spec, rawArgs map[string]any, provider ProviderKind) (*Node, error)

	// PostStatusUpdate, PostSuccess and PostException report state from
	// the invocation owning node; each bumps the global version and
	// refreshes views along the root path.
	PostStatusUpdate(node *Node, state NodeState)
	PostSuccess(node *Node, outputs any)
	PostException(node *Node, err error)
}

// RunContext is the facade handed to every invocation body. It is the only
// channel by which one invocation creates another through the scheduler;
// code callables may also call other code callables directly, outside the
// scheduler, by passing their context along — those direct calls never
// appear in the tree.
type RunContext struct {
	sched Scheduler
	// Node is nil for the neutral, unbound context returned by
	// runtime.GetCtx() used to invoke top-level tasks; non-nil for the
	// context bound to a running invocation.
	Node *Node

	self, parent, topLevel *SessionBag
	hasParent              bool
}

// NewRunContext builds a context bound to node (nil for the top-level
// entry point) with its three session-bag scope aliases already resolved.
func NewRunContext(sched Scheduler, node *Node, self *SessionBag, hasParent bool, parent *SessionBag, topLevel *SessionBag) *RunContext {
	return &RunContext{sched: sched, Node: node, self: self, hasParent: hasParent, parent: parent, topLevel: topLevel}
}

// Invoke creates a child of the bound node (or a new top-level node if
// unbound) and returns it immediately; the node may still be Waiting or
// Running. providerOverride is optional — pass ProviderUnspecified to use
// the spec's default.
func (c *RunContext) Invoke(spec Spec, args map[string]any, providerOverride ProviderKind) (*Node, error) {
	return c.sched.Invoke(c.Node, spec, args, providerOverride)
}

// PostStatusUpdate reports an intermediate, non-terminal state change for
// the bound node (e.g. Waiting -> Running).
func (c *RunContext) PostStatusUpdate(state NodeState) {
	c.sched.PostStatusUpdate(c.Node, state)
}

// PostSuccess reports terminal success with the given outputs.
func (c *RunContext) PostSuccess(outputs any) {
	c.sched.PostSuccess(c.Node, outputs)
}

// PostException reports a terminal failure.
func (c *RunContext) PostException(err error) {
	c.sched.PostException(c.Node, err)
}

// Bag resolves one of the three scope aliases. ScopeParent on a top-level
// context returns ErrNoParentSession.
func (c *RunContext) Bag(scope Scope) (*SessionBag, error) {
	switch scope {
	case ScopeSelf:
		return c.self, nil
	case ScopeTopLevel:
		return c.topLevel, nil
	case ScopeParent:
		if !c.hasParent {
			return nil, ErrNoParentSession
		}
		return c.parent, nil
	default:
		return nil, ErrNoParentSession
	}
}

// GetOrPut is a convenience wrapper resolving scope then delegating to the
// bag's GetOrPut.
func (c *RunContext) GetOrPut(scope Scope, namespace, key string, factory func() (any, error)) (any, error) {
	bag, err := c.Bag(scope)
	if err != nil {
		return nil, err
	}
	return bag.GetOrPut(namespace, key, factory)
}

package core

import (
	"errors"
	"fmt"
)

// ErrNoParentSession is returned by a RunContext's Parent scope accessor
// when the bound node is top-level (no parent node exists).
var ErrNoParentSession = errors.New("core: top-level invocation has no parent session scope")

// ErrUnregisteredFunction is returned by invoke when the spec passed was
// not part of the runtime's registered closure, or a different instance
// than the one registered under that name.
var ErrUnregisteredFunction = errors.New("core: spec not registered with this runtime")

// ErrDuplicateFunctionName is returned at registration time when two
// distinct spec instances declare the same name.
var ErrDuplicateFunctionName = errors.New("core: duplicate function name among distinct spec instances")

// ErrValidation wraps an argument coercion/validation failure, kept
// distinct from AgentException/ProviderException since it occurs before a
// node exists and never terminates an in-flight invocation.
var ErrValidation = errors.New("core: argument validation failed")

// AgentException is the first fault kind: the model declared a task-level
// failure by invoking the built-in raise-exception spec.
type AgentException struct {
	SpecName string
	NodeID   NodeID
	Message  string
}

func (e *AgentException) Error() string {
	return fmt.Sprintf("agent exception in %s (node %d): %s", e.SpecName, e.NodeID, e.Message)
}

// ProviderException is the second fault kind: anything else originating
// from an agent node's loop — SDK malfunction, auth, rate limit, socket, or
// a framework bug encountered during invoke.
type ProviderException struct {
	Provider ProviderKind
	SpecName string
	NodeID   NodeID
	Inner    error
}

func (e *ProviderException) Error() string {
	return fmt.Sprintf("provider exception (%s) in %s (node %d): %v", e.Provider, e.SpecName, e.NodeID, e.Inner)
}

func (e *ProviderException) Unwrap() error { return e.Inner }

// StringifyException renders an error as "type: message" with no stack
// trace, the exact shape the agent loop inserts into a failed tool result
// (SPEC_FULL.md, SUPPLEMENTED BEHAVIOR #7).
func StringifyException(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("%T: %s", err, err.Error())
}

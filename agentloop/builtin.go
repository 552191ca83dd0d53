package agentloop

import "github.com/lwcsrf/netflux/core"

// RaiseException is the built-in function spec.md §6 requires every agent
// be able to include in its Uses list. Its callable never succeeds: it
// always returns a *core.AgentException, which runtime.Invoke records as
// the owning node's terminal Error. The loop recognizes this sentinel
// among a batch of tool results and, after the whole batch has been
// attempted, transitions the whole invocation to Error (spec.md §4.5 step
// 6, Design Notes' "sentinel result variant").
var RaiseException = &core.CodeSpec{
	Name:        "raise-exception",
	Description: "Declare a task-level failure with the given message. Use this when the task cannot be completed as requested.",
	Args: []core.FunctionArg{
		{Name: "msg", Type: core.ArgString, Description: "A concise description of why the task is failing."},
	},
	Callable: func(ctx *core.RunContext, args core.Args) (any, error) {
		return nil, &core.AgentException{
			SpecName: ctx.Node.Spec.SpecName(),
			NodeID:   ctx.Node.ID,
			Message:  args.String("msg"),
		}
	},
}

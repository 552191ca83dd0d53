package agentloop

import (
	"context"
	"fmt"
	"time"

	"github.com/lwcsrf/netflux/core"
	"github.com/lwcsrf/netflux/logging"
)

// Options configures a Loop. Functional options, matching the teacher's
// construction idiom.
type Options struct {
	MaxSteps int
	Logger   logging.Logger
}

// Loop is the reusable, provider-neutral core every Provider variant
// shares: semaphore discipline, retry/backoff, token-usage accumulation,
// parallel tool-call batching with deferred raise-exception handling, and
// the cache-policy decision. One Loop instance drives exactly one agent
// invocation.
type Loop struct {
	sched    Scheduler
	provider Provider
	spec     *core.AgentSpec
	toolSpecs map[string]core.Spec

	steps  *StepLimiter
	logger logging.Logger

	hasSem             bool
	toolCallTimestamps []time.Time
}

// New builds a Loop for one invocation of spec, driven by provider.
func New(sched Scheduler, provider Provider, spec *core.AgentSpec, optFns ...func(*Options)) *Loop {
	opts := Options{MaxSteps: DefaultMaxSteps, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	tools := make(map[string]core.Spec, len(spec.Uses))
	for _, u := range spec.Uses {
		tools[u.SpecName()] = u
	}

	return &Loop{
		sched:     sched,
		provider:  provider,
		spec:      spec,
		toolSpecs: tools,
		steps:     NewStepLimiter(opts.MaxSteps),
		logger:    opts.Logger,
	}
}

// Run drives ctx's bound node (an agent invocation of l.spec) to
// completion, posting success or an exception via ctx before returning.
// systemPrompt and userSeed are the already-rendered (template-substituted)
// initial prompts.
func (l *Loop) Run(ctx context.Context, rc *core.RunContext, systemPrompt, userSeed string) {
	node := rc.Node

	history := l.sched.AgentHistory(l.spec.Name)
	policy := DecideCachePolicy(l.spec, history)
	l.sched.SetCachePolicy(node, policy)

	l.sched.AppendTranscriptParts(node, core.UserTextPart{Text: userSeed})

	toolDefs := make([]ToolDef, 0, len(l.spec.Uses))
	for _, u := range l.spec.Uses {
		toolDefs = append(toolDefs, ToolDef{Name: u.SpecName(), Description: u.SpecDescription(), Args: u.SpecArgs()})
	}

	for {
		if err := l.steps.Increment(); err != nil {
			l.fail(rc, err)
			return
		}

		req, err := l.provider.Render(systemPrompt, node.Agent.Transcript, policy, toolDefs)
		if err != nil {
			l.fail(rc, fmt.Errorf("render request: %w", err))
			return
		}

		reqStart := time.Now()
		resp, err := l.submitWithRetry(ctx, req)
		if err != nil {
			l.logModelRequest(l.steps.Count(), core.TokenUsage{}, time.Since(reqStart), err)
			l.fail(rc, err)
			return
		}

		parts, toolUses, finalText, usage, err := l.provider.Ingest(resp)
		if err != nil {
			l.fail(rc, fmt.Errorf("ingest response: %w", err))
			return
		}
		l.logModelRequest(l.steps.Count(), usage, time.Since(reqStart), nil)
		l.sched.AppendTranscriptParts(node, parts...)
		l.sched.AccumulateUsage(node, usage)

		if len(toolUses) == 0 {
			text := ""
			if finalText != nil {
				text = *finalText
			}
			rc.PostSuccess(text)
			l.logger.Info("agent loop terminated", "outcome", "success", "steps", l.steps.Count())
			l.recordCompletion()
			l.releaseSem()
			return
		}

		agentEx, exitErr := l.dispatchToolBatch(rc, toolUses)
		if exitErr != nil {
			l.fail(rc, exitErr)
			return
		}
		if agentEx != nil {
			rc.PostException(agentEx)
			l.logger.Warn("agent loop terminated", "outcome", "agent_exception", "steps", l.steps.Count())
			l.recordCompletion()
			l.releaseSem()
			return
		}
		// loop back to step 1 with the aggregated tool-result turn now
		// part of node.Agent.Transcript.
	}
}

// dispatchToolBatch invokes every tool call in the batch, joins on each
// result, and appends a single aggregated tool-result turn. Per spec.md
// §4.5 step 6, a raise-exception sentinel is noted but the rest of the
// batch is still fully attempted before it is returned to the caller.
func (l *Loop) dispatchToolBatch(rc *core.RunContext, toolUses []core.ToolUsePart) (agentEx *core.AgentException, err error) {
	l.toolCallTimestamps = append(l.toolCallTimestamps, time.Now())

	type outcome struct {
		id    string
		name  string
		node  *core.Node
		err   error
		start time.Time
	}
	outcomes := make([]outcome, len(toolUses))

	for i, tu := range toolUses {
		outcomes[i].start = time.Now()

		spec, ok := l.toolSpecs[tu.Name]
		if !ok {
			outcomes[i].id, outcomes[i].name = tu.ID, tu.Name
			outcomes[i].err = fmt.Errorf("agentloop: model invoked undeclared tool %q", tu.Name)
			continue
		}

		if cs, ok := spec.(*core.CodeSpec); ok && cs.HumanInLoop {
			l.releaseSem()
		}

		child, ierr := rc.Invoke(spec, tu.Args, core.ProviderUnspecified)
		outcomes[i].id, outcomes[i].name, outcomes[i].node, outcomes[i].err = tu.ID, tu.Name, child, ierr
	}

	resultParts := make([]core.Part, 0, len(outcomes))
	for _, oc := range outcomes {
		var payload string
		isErr := false
		var resultErr error

		switch {
		case oc.err != nil:
			payload, isErr, resultErr = core.StringifyException(oc.err), true, oc.err
		default:
			out, rerr := oc.node.Result()
			if rerr != nil {
				if aex, ok := rerr.(*core.AgentException); ok && oc.name == RaiseException.Name {
					agentEx = aex
				}
				payload, isErr, resultErr = core.StringifyException(rerr), true, rerr
			} else {
				payload = fmt.Sprintf("%v", out)
			}
		}
		l.logToolCall(oc.name, time.Since(oc.start), !isErr, resultErr)
		resultParts = append(resultParts, core.ToolResultPart{ID: oc.id, Payload: payload, IsError: isErr})
	}

	l.sched.AppendTranscriptParts(rc.Node, resultParts...)
	return agentEx, nil
}

// submitWithRetry acquires the semaphore (if not already held) and
// submits the request, retrying only on errors the provider classifies as
// transient, once after each delay of the literal RetrySchedule (at most
// len(RetrySchedule)+1 attempts in all).
func (l *Loop) submitWithRetry(ctx context.Context, req RenderedRequest) (RawResponse, error) {
	if !l.hasSem {
		if err := l.sched.AcquireModelSem(ctx, l.provider.Kind()); err != nil {
			return nil, fmt.Errorf("acquire model semaphore: %w", err)
		}
		l.hasSem = true
	}

	var lastErr error
	resp, err := l.provider.Submit(ctx, req)
	if err == nil {
		return resp, nil
	}
	lastErr = err

	for attempt, delay := range RetrySchedule {
		if !l.provider.IsTransient(lastErr) {
			return nil, lastErr
		}
		l.logRetry(attempt+1, delay, lastErr)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		resp, err = l.provider.Submit(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// logToolCall reports one dispatched tool's outcome via LogToolCall when
// l.logger is a *logging.NodeLogger, falling back to a plain Info/Warn line
// for any other Logger implementation.
func (l *Loop) logToolCall(specName string, dur time.Duration, success bool, err error) {
	if nl, ok := logging.AsNodeLogger(l.logger); ok {
		nl.LogToolCall(specName, dur, success, err)
		return
	}
	if success {
		l.logger.Info("tool invocation completed", "tool_name", specName, "duration", dur)
	} else {
		l.logger.Warn("tool invocation failed", "tool_name", specName, "duration", dur, "error", err)
	}
}

// logModelRequest reports one provider request/response cycle.
func (l *Loop) logModelRequest(step int, usage core.TokenUsage, dur time.Duration, err error) {
	if nl, ok := logging.AsNodeLogger(l.logger); ok {
		nl.LogModelRequest(l.provider.Kind().String(), step, usage.Total(), dur, err)
		return
	}
	if err != nil {
		l.logger.Warn("model request failed", "provider", l.provider.Kind().String(), "step", step, "error", err)
		return
	}
	l.logger.Debug("model request completed", "provider", l.provider.Kind().String(), "step", step, "total_tokens", usage.Total(), "duration", dur)
}

// logRetry reports one transient-error retry before the loop sleeps.
func (l *Loop) logRetry(attempt int, delay time.Duration, err error) {
	if nl, ok := logging.AsNodeLogger(l.logger); ok {
		nl.LogRetry(attempt, delay, err)
		return
	}
	l.logger.Warn("agentloop: retrying transient provider error", "attempt", attempt, "delay", delay, "error", err)
}

func (l *Loop) releaseSem() {
	if l.hasSem {
		l.sched.ReleaseModelSem(l.provider.Kind())
		l.hasSem = false
	}
}

func (l *Loop) fail(rc *core.RunContext, err error) {
	wrapped := &core.ProviderException{
		Provider: l.provider.Kind(),
		SpecName: l.spec.Name,
		NodeID:   rc.Node.ID,
		Inner:    err,
	}
	rc.PostException(wrapped)
	l.logger.Warn("agent loop terminated", "outcome", "error", "steps", l.steps.Count(), "error", err)
	l.recordCompletion()
	l.releaseSem()
}

func (l *Loop) recordCompletion() {
	var avg time.Duration
	if n := len(l.toolCallTimestamps); n > 1 {
		total := l.toolCallTimestamps[n-1].Sub(l.toolCallTimestamps[0])
		avg = total / time.Duration(n-1)
	}
	l.sched.RecordAgentCompletion(l.spec.Name, AgentCompletionStats{
		ToolCallCount:       len(l.toolCallTimestamps),
		AvgToolCallInterval: avg,
	})
}

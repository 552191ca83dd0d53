package agentloop

import "fmt"

// DefaultMaxSteps bounds the number of request-cycles (spec.md §4.5's loop
// steps 1-7) a single agent invocation may run before it is considered
// runaway. Grounded on original_source/providers/gemini.py's literal
// MAX_STEPS = 64; promoted here into a configurable StepLimiter rather than
// a hardcoded constant (see SPEC_FULL.md, SUPPLEMENTED BEHAVIOR #5).
const DefaultMaxSteps = 64

// StepLimiter counts request-cycles within one agent invocation and errors
// once the configured ceiling is exceeded. It is not shared across
// invocations — one limiter per Loop.
type StepLimiter struct {
	max   int
	count int
}

// NewStepLimiter constructs a limiter; max <= 0 means unlimited.
func NewStepLimiter(max int) *StepLimiter {
	return &StepLimiter{max: max}
}

// Increment records one more step, returning an error once max is exceeded.
func (l *StepLimiter) Increment() error {
	l.count++
	if l.max > 0 && l.count > l.max {
		return fmt.Errorf("agentloop: exceeded max steps (%d) without a final answer", l.max)
	}
	return nil
}

// Count returns the number of steps taken so far.
func (l *StepLimiter) Count() int { return l.count }

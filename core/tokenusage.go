package core

// TokenUsage accumulates per-invocation token counters across a model
// provider's usage metadata. The runtime's AccumulateUsage adds each
// response's usage to the running total with Add.
type TokenUsage struct {
	CacheRead      int64
	CacheWrite     int64
	InputRegular   int64
	ReasoningOutput int64
	TextOutput     int64
}

// Total sums every counter.
func (u TokenUsage) Total() int64 {
	return u.CacheRead + u.CacheWrite + u.InputRegular + u.ReasoningOutput + u.TextOutput
}

// Add returns the element-wise sum of two usage snapshots, leaving both
// inputs unmodified.
func (u TokenUsage) Add(o TokenUsage) TokenUsage {
	return TokenUsage{
		CacheRead:       u.CacheRead + o.CacheRead,
		CacheWrite:      u.CacheWrite + o.CacheWrite,
		InputRegular:    u.InputRegular + o.InputRegular,
		ReasoningOutput: u.ReasoningOutput + o.ReasoningOutput,
		TextOutput:      u.TextOutput + o.TextOutput,
	}
}

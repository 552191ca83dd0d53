package core

// View is an immutable, versioned snapshot of one node and its subtree.
// Once published, a View and its descendant Views are never mutated — a
// new View replaces the cached latest on the next observable event.
type View struct {
	ID               NodeID
	SpecName         string
	Kind             Kind
	State            NodeState
	Inputs           map[string]any
	Outputs          any
	ExceptionSummary string
	Children         []*View
	UpdateSeqNum     int64

	// Agent-only fields; zero values on a code invocation's view.
	Usage       TokenUsage
	Transcript  []Part
	CachePolicy CachePolicy
}

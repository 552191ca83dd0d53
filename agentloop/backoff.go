package agentloop

import "time"

// RetrySchedule is the literal, finite backoff sequence spec.md §7
// prescribes for SDK errors a provider classifies as transient: "sequential
// delays 5s, 10s, 15s, 20s, then give up." This is deliberately a plain
// slice, not an exponential-backoff library's policy object — no library
// in the retrieval pack expresses a fixed literal sequence of this shape
// more directly than four lines of Go (see DESIGN.md).
var RetrySchedule = []time.Duration{5 * time.Second, 10 * time.Second, 15 * time.Second, 20 * time.Second}

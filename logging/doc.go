// Package logging provides a minimal logging interface and adapters used
// across the runtime and agent loop.
//
// The Logger interface defines the standard logging methods (Debug, Info,
// Warn, Error) that the runtime, worker pool, and agent loop use for
// observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping an existing *slog.Logger
//   - NodeLogger, a richer implementation with node/spec-scoped context
//     (WithNode) and domain helpers (LogToolCall, LogModelRequest, LogRetry)
//     that runtime.Runtime and agentloop.Loop use opportunistically via
//     AsNodeLogger when the configured Logger is one
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	rt, _ := runtime.New(specs, runtime.WithLogger(logger))
//
// The design intentionally keeps the interface minimal to avoid vendor lock-in
// while supporting structured logging where available.
package logging

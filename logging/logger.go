// Package logging provides a tiny abstraction over slog so downstream code
// can depend on a minimal interface (Logger) while allowing callers to plug
// any structured logger. It also offers a richer NodeLogger with contextual
// cloning helpers (component, node) and domain convenience methods for the
// scheduler and agent loop.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"
)

// LogLevel is a thin enum for user friendly level configuration decoupled
// from slog.
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger defines the minimal logging interface used throughout this
// module. Callers may provide their own implementation or one of the
// built-in adapters.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogAdapter wraps *slog.Logger to implement Logger.
type SlogAdapter struct {
	*slog.Logger
}

func (s *SlogAdapter) Debug(msg string, args ...any) { s.Logger.Debug(msg, args...) }
func (s *SlogAdapter) Info(msg string, args ...any)  { s.Logger.Info(msg, args...) }
func (s *SlogAdapter) Warn(msg string, args ...any)  { s.Logger.Warn(msg, args...) }
func (s *SlogAdapter) Error(msg string, args ...any) { s.Logger.Error(msg, args...) }

// NewSlogAdapter creates a Logger from *slog.Logger.
func NewSlogAdapter(logger *slog.Logger) Logger {
	return &SlogAdapter{Logger: logger}
}

// AsNodeLogger reports whether l is a *NodeLogger, the richer
// domain-helper-bearing implementation, so callers can opt into
// LogToolCall/LogModelRequest/LogRetry/WithNode while still accepting any
// plain Logger.
func AsNodeLogger(l Logger) (*NodeLogger, bool) {
	nl, ok := l.(*NodeLogger)
	return nl, ok
}

// NewDefaultSlogLogger creates a Logger using slog.Default().
func NewDefaultSlogLogger() Logger {
	return NewSlogAdapter(slog.Default())
}

// NodeLogger wraps slog.Logger adding contextual cloning helpers and
// domain convenience methods for the scheduler and agent loop. It is cheap
// to copy via the With* methods.
type NodeLogger struct {
	logger    *slog.Logger
	level     LogLevel
	context   map[string]interface{}
	component string
	nodeID    string
	specName  string
}

// LoggerConfig configures construction of a NodeLogger.
type LoggerConfig struct {
	Level       LogLevel
	Format      string // json or text
	Output      io.Writer
	AddSource   bool
	Component   string
	CustomAttrs map[string]interface{}
}

// DefaultLoggerConfig returns a baseline JSON info level configuration.
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{Level: LogLevelInfo, Format: "json", Output: os.Stdout, AddSource: true, CustomAttrs: map[string]interface{}{}}
}

// NewLogger builds a NodeLogger from a config (or defaults if nil).
func NewLogger(cfg *LoggerConfig) *NodeLogger {
	if cfg == nil {
		cfg = DefaultLoggerConfig()
	}
	opts := &slog.HandlerOptions{Level: slogLevel(cfg.Level), AddSource: cfg.AddSource}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(cfg.Output, opts)
	} else {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	}
	return &NodeLogger{logger: slog.New(handler), level: cfg.Level, context: map[string]interface{}{}, component: cfg.Component}
}

func slogLevel(l LogLevel) slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *NodeLogger) clone() *NodeLogger {
	nl := *l
	nl.context = make(map[string]interface{}, len(l.context))
	for k, v := range l.context {
		nl.context[k] = v
	}
	return &nl
}

// WithContext adds a key/value attribute attached to every subsequent log
// entry from the clone.
func (l *NodeLogger) WithContext(key string, value interface{}) *NodeLogger {
	nl := l.clone()
	nl.context[key] = value
	return nl
}

// WithComponent sets the logical component (scheduler, agentloop, provider).
func (l *NodeLogger) WithComponent(c string) *NodeLogger {
	nl := l.clone()
	nl.component = c
	return nl
}

// WithNode attaches the node id and spec name an invocation's log lines
// should be tagged with.
func (l *NodeLogger) WithNode(nodeID string, specName string) *NodeLogger {
	nl := l.clone()
	nl.nodeID = nodeID
	nl.specName = specName
	return nl
}

func (l *NodeLogger) buildAttrs() []slog.Attr {
	attrs := make([]slog.Attr, 0, len(l.context)+4)
	if l.component != "" {
		attrs = append(attrs, slog.String("component", l.component))
	}
	if l.nodeID != "" {
		attrs = append(attrs, slog.String("node_id", l.nodeID))
	}
	if l.specName != "" {
		attrs = append(attrs, slog.String("spec_name", l.specName))
	}
	attrs = append(attrs, slog.Time("timestamp", time.Now()))
	for k, v := range l.context {
		attrs = append(attrs, slog.Any(k, v))
	}
	return attrs
}

func (l *NodeLogger) log(level slog.Level, allowed bool, msg string, args ...interface{}) {
	if !allowed {
		return
	}
	attrs := l.buildAttrs()
	all := make([]any, 0, len(attrs)+len(args))
	for _, a := range attrs {
		all = append(all, a)
	}
	// args are slog-style key/value pairs, as every Logger caller passes them.
	all = append(all, args...)
	l.logger.Log(context.Background(), level, msg, all...)
}

func (l *NodeLogger) Debug(msg string, args ...interface{}) { l.log(slog.LevelDebug, l.level <= LogLevelDebug, msg, args...) }
func (l *NodeLogger) Info(msg string, args ...interface{})  { l.log(slog.LevelInfo, l.level <= LogLevelInfo, msg, args...) }
func (l *NodeLogger) Warn(msg string, args ...interface{})  { l.log(slog.LevelWarn, l.level <= LogLevelWarn, msg, args...) }
func (l *NodeLogger) Error(msg string, args ...interface{}) { l.log(slog.LevelError, l.level <= LogLevelError, msg, args...) }

// ErrorWithStack logs an error plus a runtime stack snapshot.
func (l *NodeLogger) ErrorWithStack(err error, msg string, args ...interface{}) {
	if l.level > LogLevelError {
		return
	}
	attrs := l.buildAttrs()
	attrs = append(attrs, slog.String("error", err.Error()), slog.String("error_type", fmt.Sprintf("%T", err)))
	stack := make([]byte, 4096)
	n := runtime.Stack(stack, false)
	attrs = append(attrs, slog.String("stack_trace", string(stack[:n])))
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	l.logger.LogAttrs(context.Background(), slog.LevelError, msg, attrs...)
}

// LogToolCall records execution details for a code or agent invocation.
func (l *NodeLogger) LogToolCall(specName string, dur time.Duration, success bool, err error) {
	attrs := l.buildAttrs()
	attrs = append(attrs, slog.String("tool_name", specName), slog.Duration("duration", dur), slog.Bool("success", success))
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	level, msg := slog.LevelInfo, "tool invocation completed"
	if !success {
		level, msg = slog.LevelError, "tool invocation failed"
	}
	l.logger.LogAttrs(context.Background(), level, msg, attrs...)
}

// LogModelRequest records one provider request/response cycle within an
// agent loop step.
func (l *NodeLogger) LogModelRequest(provider string, step int, usage int64, dur time.Duration, err error) {
	attrs := l.buildAttrs()
	attrs = append(attrs, slog.String("provider", provider), slog.Int("step", step), slog.Int64("total_tokens", usage), slog.Duration("duration", dur))
	level, msg := slog.LevelInfo, "model request completed"
	if err != nil {
		level, msg = slog.LevelWarn, "model request failed"
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	l.logger.LogAttrs(context.Background(), level, msg, attrs...)
}

// LogRetry records a transient-error retry before the loop sleeps.
func (l *NodeLogger) LogRetry(attempt int, delay time.Duration, err error) {
	attrs := l.buildAttrs()
	attrs = append(attrs, slog.Int("attempt", attempt), slog.Duration("delay", delay), slog.String("error", err.Error()))
	l.logger.LogAttrs(context.Background(), slog.LevelWarn, "retrying transient provider error", attrs...)
}

// StartTimer returns a closure that logs the elapsed duration when invoked.
func (l *NodeLogger) StartTimer(op string) func() {
	start := time.Now()
	return func() { l.Info("operation completed", "operation", op, "duration", time.Since(start)) }
}

// NoOpLogger discards all log messages. Useful for testing or when logging
// is disabled.
type NoOpLogger struct{}

func (NoOpLogger) Debug(string, ...any) {}
func (NoOpLogger) Info(string, ...any)  {}
func (NoOpLogger) Warn(string, ...any)  {}
func (NoOpLogger) Error(string, ...any) {}

// NewSlogLogger creates a new NodeLogger with the specified configuration.
func NewSlogLogger(level LogLevel, format string, addSource bool) *NodeLogger {
	cfg := DefaultLoggerConfig()
	cfg.Level = level
	if format != "" {
		cfg.Format = format
	}
	cfg.AddSource = addSource
	return NewLogger(cfg)
}

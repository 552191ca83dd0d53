// Package agentloop implements the provider-neutral automaton that drives
// one agent invocation: composing requests, dispatching tool calls,
// replaying the transcript verbatim, and deciding the cache-watermark
// policy. Concrete providers (package provider/anthropic,
// provider/openai) implement the Provider interface; Loop is the reusable
// core every provider variant shares, grounded on
// original_source/providers/gemini.py's run() method.
package agentloop

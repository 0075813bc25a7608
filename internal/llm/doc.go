// Package llm defines the provider-neutral chat-completion contract used by the
// generation pipeline: messages, call options, a JSON-schema response format,
// typed provider errors and validation of structured output.
//
// Concrete providers live under internal/platform.
package llm

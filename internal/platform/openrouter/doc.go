// Package openrouter implements llm.ChatClient against the OpenRouter
// chat-completions API, or any endpoint compatible with it.
package openrouter

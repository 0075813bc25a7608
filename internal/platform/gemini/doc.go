// Package gemini implements llm.ChatClient on top of Google's Gemini API
// using the google.golang.org/genai client.
//
// System messages become the request's SystemInstruction, assistant messages
// are sent with the "model" role, and structured output is requested through
// ResponseMIMEType "application/json" plus a genai.Schema converted from the
// caller's JSON schema. Transient provider failures (5xx, network) are retried
// with exponential backoff and jitter; everything else is returned as an
// *llm.Error on the first attempt.
package gemini

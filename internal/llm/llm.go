package llm

import "context"

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a chat conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ResponseFormat requests structured JSON output matching Schema.
//
// When Into is a non-nil pointer the reply is decoded into it and validated
// with its `validate` struct tags; otherwise it is decoded into a generic value.
type ResponseFormat struct {
	Name   string
	Strict bool
	Schema map[string]any
	Into   any
}

// ChatResponse is the outcome of a successful chat call.
type ChatResponse struct {
	// Content is the assistant message text.
	Content string
	// Structured is the decoded reply when a ResponseFormat was requested.
	Structured any
	// Model is the model that served the request.
	Model string
}

// ChatOptions holds per-call overrides.
type ChatOptions struct {
	Model          string
	Params         map[string]any
	ResponseFormat *ResponseFormat
}

// ChatOption customizes a single SendChat call.
type ChatOption func(*ChatOptions)

// WithModel overrides the client's default model.
func WithModel(model string) ChatOption {
	return func(o *ChatOptions) { o.Model = model }
}

// WithParams merges params over the client's default parameters.
func WithParams(params map[string]any) ChatOption {
	return func(o *ChatOptions) {
		if o.Params == nil {
			o.Params = make(map[string]any, len(params))
		}
		for k, v := range params {
			o.Params[k] = v
		}
	}
}

// WithResponseFormat requests structured output.
func WithResponseFormat(format ResponseFormat) ChatOption {
	return func(o *ChatOptions) { o.ResponseFormat = &format }
}

// ApplyOptions folds opts into a ChatOptions value.
func ApplyOptions(opts ...ChatOption) ChatOptions {
	var o ChatOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// ChatClient sends a conversation to a model and returns its reply.
// Implementations enforce their own request timeout and report failures as *Error.
type ChatClient interface {
	SendChat(ctx context.Context, messages []Message, opts ...ChatOption) (*ChatResponse, error)
}

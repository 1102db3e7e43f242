package schemas

import "context"

// -- Oracle Schemas & Interface --

// MessageRole is the speaker of a conversational message.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is a single turn in an oracle conversation.
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// InvokeOptions tunes a single oracle call.
type InvokeOptions struct {
	// Structured asks the backend to constrain its reply to the action
	// schema. Replies are still run through the response parser.
	Structured  bool    `json:"structured"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"maxTokens"`
}

// Oracle is the language-model capability used for planning and acting.
type Oracle interface {
	Invoke(ctx context.Context, messages []Message, opts InvokeOptions) (string, error)
}

package domain

import "context"

// Role is the author of a chat message sent to the generation provider.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat message in a completion request.
type Message struct {
	Role    Role
	Content string
}

// CompletionRequest is a provider-neutral chat completion call.
type CompletionRequest struct {
	Messages []Message
	// JSON asks the provider for a JSON object response.
	JSON bool
}

// PromptChars returns the total rune count of all messages. Логируем размер, не текст.
func (r CompletionRequest) PromptChars() int {
	n := 0
	for _, m := range r.Messages {
		n += len([]rune(m.Content))
	}
	return n
}

// Completion is the provider's answer.
type Completion struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// Generator produces text from a chat prompt.
type Generator interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
}

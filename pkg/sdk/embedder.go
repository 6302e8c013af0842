package tourassist

import "context"

// Embedder converts text to vector embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbeddingResult carries the embedding vector and token counts.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Role is the author of a chat message.
type Role string

// Chat roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat message sent to the Generator.
type Message struct {
	Role    Role
	Content string
}

// Generator produces the answer text for chat messages.
// JSON asks for a JSON object response (used by structured slot extraction).
type Generator interface {
	Complete(ctx context.Context, messages []Message, json bool) (string, error)
}

// HandoffSink receives the contact request once name and phone are collected.
type HandoffSink interface {
	Submit(ctx context.Context, h Handoff) error
}

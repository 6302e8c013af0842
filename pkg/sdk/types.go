package tourassist

// Sender identifies who wrote a turn.
type Sender string

// Turn senders.
const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Turn is one message of the conversation, oldest first in a history slice.
type Turn struct {
	Sender Sender
	Text   string
}

// CorpusEntry is one tour of the retrieval corpus with its precomputed embedding.
type CorpusEntry struct {
	ID          string
	Title       string
	Description string
	Vector      []float32
}

// Answer is the assistant reply with its routing decision.
type Answer struct {
	Text           string
	Intent         string // greeting, company_info, private_tour_handoff, contact_collection, none
	Branch         string // canned, dialogue, rag
	State          string // contact dialogue state, empty outside the dialogue
	ConversationID string
	Sources        []string // corpus IDs used as context
}

// Handoff is the contact request forwarded to human support.
type Handoff struct {
	Name           string
	Phone          string
	ConversationID string
}

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status string            // "ok", "degraded", "error"
	Checks map[string]string // component → "ok"/"error"
}

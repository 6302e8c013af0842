// Package conversation holds the per-request conversation model.
// Nothing here is persisted: history arrives with every request.
package conversation

import (
	"fmt"
	"strings"
)

// Sender identifies who wrote a turn.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Valid reports whether s is a known sender.
func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderAssistant
}

// Turn is one message of the conversation.
type Turn struct {
	Sender Sender
	Text   string
}

// History is the ordered turn list supplied by the caller, oldest first.
type History []Turn

// Validate checks every sender.
func (h History) Validate() error {
	for i, t := range h {
		if !t.Sender.Valid() {
			return fmt.Errorf("turn [%d]: unknown sender %q", i, t.Sender)
		}
	}
	return nil
}

// LastAssistant returns the most recent assistant text and whether one exists.
func (h History) LastAssistant() (string, bool) {
	for i := len(h) - 1; i >= 0; i-- {
		if h[i].Sender == SenderAssistant {
			return h[i].Text, true
		}
	}
	return "", false
}

// Tail returns at most n most recent turns. n <= 0 means no limit.
func (h History) Tail(n int) History {
	if n <= 0 || len(h) <= n {
		return h
	}
	return h[len(h)-n:]
}

// With returns a copy of h with the user question appended.
func (h History) With(question string) History {
	out := make(History, 0, len(h)+1)
	out = append(out, h...)
	return append(out, Turn{Sender: SenderUser, Text: question})
}

// SlotSet is the contact information collected so far. Empty string means absent.
// Always recomputed from history, never cached between requests.
type SlotSet struct {
	Name  string
	Phone string
}

// HasName reports whether a name was captured.
func (s SlotSet) HasName() bool { return strings.TrimSpace(s.Name) != "" }

// HasPhone reports whether a phone was captured.
func (s SlotSet) HasPhone() bool { return strings.TrimSpace(s.Phone) != "" }

// Complete reports whether both slots are filled.
func (s SlotSet) Complete() bool { return s.HasName() && s.HasPhone() }

// Handoff is the record forwarded to human support once both slots are filled.
type Handoff struct {
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	ConversationID string `json:"conversationId"`
}

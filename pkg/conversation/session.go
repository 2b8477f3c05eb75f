package conversation

import (
	"time"

	"mercator-hq/parley/pkg/providers"
)

// Session is one conversation.
type Session struct {
	// ID is the client-generated session identifier.
	ID string

	// UserID is the owner, set on the first authenticated turn.
	UserID string

	// Model is the last model the session used.
	Model string

	// Messages is the canonical history. Messages[0] is always the system message.
	Messages []providers.Message

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSession creates a session whose history holds only the system prompt.
func NewSession(id, userID, systemPrompt string) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		UserID:    userID,
		Messages:  []providers.Message{{Role: providers.RoleSystem, Content: systemPrompt}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Hydrate rebuilds a session from durable turns. System messages in turns
// are skipped so the result still has exactly one, at index 0.
func Hydrate(id, userID, systemPrompt string, turns []providers.Message) *Session {
	s := NewSession(id, userID, systemPrompt)
	for _, m := range turns {
		if m.Role == providers.RoleSystem {
			continue
		}
		s.Messages = append(s.Messages, m)
	}
	return s
}

// Len returns the number of messages, system message included.
func (s *Session) Len() int {
	return len(s.Messages)
}

// AppendUser appends a plain user message.
func (s *Session) AppendUser(text string) {
	s.append(providers.Message{Role: providers.RoleUser, Content: text})
}

// AppendAssistant appends an assistant message.
func (s *Session) AppendAssistant(text string) {
	s.append(providers.Message{Role: providers.RoleAssistant, Content: text})
}

// ReplaceLastUser swaps the most recent user message for msg. If the session
// has no user message yet, msg is appended.
func (s *Session) ReplaceLastUser(msg providers.Message) {
	for i := len(s.Messages) - 1; i > 0; i-- {
		if s.Messages[i].Role == providers.RoleUser {
			s.Messages[i] = msg
			s.UpdatedAt = time.Now()
			return
		}
	}
	s.append(msg)
}

// Truncate drops every message after the first n. The system message is
// always kept.
func (s *Session) Truncate(n int) {
	if n < 1 {
		n = 1
	}
	if n < len(s.Messages) {
		s.Messages = s.Messages[:n]
		s.UpdatedAt = time.Now()
	}
}

// Turns returns the history without the system message.
func (s *Session) Turns() []providers.Message {
	if len(s.Messages) <= 1 {
		return nil
	}
	out := make([]providers.Message, len(s.Messages)-1)
	copy(out, s.Messages[1:])
	return out
}

// Clone returns a deep copy of the session. Image bytes are shared; they are
// never mutated after a part is built.
func (s *Session) Clone() *Session {
	out := *s
	out.Messages = make([]providers.Message, len(s.Messages))
	for i, m := range s.Messages {
		out.Messages[i] = m
		if m.Parts != nil {
			out.Messages[i].Parts = append([]providers.ContentPart(nil), m.Parts...)
		}
	}
	return &out
}

func (s *Session) append(msg providers.Message) {
	s.Messages = append(s.Messages, msg)
	s.UpdatedAt = time.Now()
}

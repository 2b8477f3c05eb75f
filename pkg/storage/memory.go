package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"mercator-hq/parley/pkg/providers"
)

// MemoryStore implements Store in process memory.
// All data is lost when the process exits.
type MemoryStore struct {
	mu    sync.RWMutex
	chats map[string]*ChatRecord
	users map[string]*UserRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		chats: make(map[string]*ChatRecord),
		users: make(map[string]*UserRecord),
	}
}

func cloneChat(c *ChatRecord) *ChatRecord {
	out := *c
	out.Messages = append([]providers.Message(nil), c.Messages...)
	return &out
}

// GetChat returns a copy of the chat.
func (m *MemoryStore) GetChat(_ context.Context, id string) (*ChatRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.chats[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneChat(c), nil
}

// SaveTurn inserts or appends.
func (m *MemoryStore) SaveTurn(_ context.Context, id, userID, model string, turn []providers.Message) (*ChatRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	c, ok := m.chats[id]
	if !ok {
		c = &ChatRecord{ID: id, UserID: userID, CreatedAt: now}
		m.chats[id] = c
	}
	c.Model = model
	c.Messages = append(c.Messages, turn...)
	c.MessageCount++
	c.UpdatedAt = now
	return cloneChat(c), nil
}

// CountChats counts the user's chats.
func (m *MemoryStore) CountChats(_ context.Context, userID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, c := range m.chats {
		if c.UserID == userID {
			n++
		}
	}
	return n, nil
}

// ListChats returns the user's chats, most recently updated first.
func (m *MemoryStore) ListChats(_ context.Context, userID string) ([]*ChatRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*ChatRecord
	for _, c := range m.chats {
		if c.UserID == userID {
			out = append(out, cloneChat(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// DeleteChat removes the chat.
func (m *MemoryStore) DeleteChat(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.chats[id]; !ok {
		return ErrNotFound
	}
	delete(m.chats, id)
	return nil
}

// GetUser returns a copy of the user.
func (m *MemoryStore) GetUser(_ context.Context, id string) (*UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *u
	return &out, nil
}

// SaveUser inserts or replaces the user.
func (m *MemoryStore) SaveUser(_ context.Context, u *UserRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := *u
	out.UpdatedAt = time.Now().UTC()
	m.users[u.ID] = &out
	return nil
}

// SetSubscribed updates the cached subscription flag.
func (m *MemoryStore) SetSubscribed(_ context.Context, id string, subscribed bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		u = &UserRecord{ID: id}
		m.users[id] = u
	}
	u.IsSubscribed = subscribed
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// Ping always succeeds.
func (m *MemoryStore) Ping(context.Context) error {
	return nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}

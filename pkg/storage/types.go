package storage

import (
	"context"
	"errors"
	"time"

	"mercator-hq/parley/pkg/providers"
)

// ErrNotFound is returned when a chat or user row does not exist.
var ErrNotFound = errors.New("storage: not found")

// ChatRecord is the durable copy of one session.
type ChatRecord struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`

	// Model is the model requested by the latest turn.
	Model string `json:"model,omitempty"`

	// Messages holds the user and assistant turns in order.
	Messages []providers.Message `json:"messages"`

	// MessageCount is the number of persisted exchanges.
	MessageCount int `json:"messageCount"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UserRecord is the durable subscription state of one user.
type UserRecord struct {
	ID string `json:"id"`

	// IsSubscribed caches the billing provider's answer.
	IsSubscribed bool `json:"isSubscribed"`

	// SubscriptionID is the billing subscription on file, if any.
	SubscriptionID string `json:"subscriptionId,omitempty"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// ChatStore persists conversations.
type ChatStore interface {
	// GetChat returns the chat, or ErrNotFound.
	GetChat(ctx context.Context, id string) (*ChatRecord, error)

	// SaveTurn inserts the chat with turn as its messages and a count of one
	// if it does not exist, else appends turn and increments the count.
	// model replaces the recorded model either way.
	SaveTurn(ctx context.Context, id, userID, model string, turn []providers.Message) (*ChatRecord, error)

	// CountChats returns the number of chats owned by userID.
	CountChats(ctx context.Context, userID string) (int, error)

	// ListChats returns the chats owned by userID, most recently updated first.
	ListChats(ctx context.Context, userID string) ([]*ChatRecord, error)

	// DeleteChat removes the chat. Returns ErrNotFound if it did not exist.
	DeleteChat(ctx context.Context, id string) error
}

// UserStore persists subscription state.
type UserStore interface {
	// GetUser returns the user, or ErrNotFound.
	GetUser(ctx context.Context, id string) (*UserRecord, error)

	// SaveUser inserts or replaces the user row.
	SaveUser(ctx context.Context, u *UserRecord) error

	// SetSubscribed updates the cached flag, creating the row if needed.
	SetSubscribed(ctx context.Context, id string, subscribed bool) error
}

// Store is the full durable store.
type Store interface {
	ChatStore
	UserStore

	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the backend's resources.
	Close() error
}

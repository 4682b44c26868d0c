package store

import (
	"context"
	"time"

	"chatline/module/chat/model"
)

// ConversationStore is the persistence boundary for conversation
// documents. Implementations provide per-document atomicity only; no
// multi-document transactions are assumed anywhere above this line.
type ConversationStore interface {
	Get(ctx context.Context, id string) (*model.Conversation, error)
	FindDirect(ctx context.Context, userA, userB string) (*model.Conversation, error)
	ListByParticipant(ctx context.Context, userID string) ([]*model.Conversation, error)
	ListGroupsByParticipant(ctx context.Context, userID string) ([]*model.Conversation, error)
	Create(ctx context.Context, c *model.Conversation) error
	SetParticipants(ctx context.Context, id string, participants []string) error
	SetLastSeen(ctx context.Context, id, userID string, at time.Time) error
	SetLastMessage(ctx context.Context, id, messageID string, at time.Time) error
	Delete(ctx context.Context, id string) error
}

// MessageStore is the persistence boundary for message documents.
type MessageStore interface {
	Get(ctx context.Context, id string) (*model.Message, error)
	ListByConversation(ctx context.Context, conversationID string) ([]*model.Message, error)
	Insert(ctx context.Context, m *model.Message) error
	// CountUnread counts messages in the conversation authored by someone
	// other than userID with status != read, created strictly after the
	// watermark. A zero watermark counts everything qualifying.
	CountUnread(ctx context.Context, conversationID, userID string, after time.Time) (int64, error)
	// MarkRead flips sent/delivered messages from other senders to read
	// and reports how many changed.
	MarkRead(ctx context.Context, conversationID, readerID string) (int64, error)
	DeleteByConversation(ctx context.Context, conversationID string) (int64, error)
}

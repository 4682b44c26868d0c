package storage

import (
	"context"
	"encoding/json"
	"time"

	"chatline/logger"
	"chatline/module/chat/model"

	"github.com/redis/go-redis/v9"
)

// MessageCache is a read-through cache in front of the message store
// for the conversation history endpoint. It is strictly an optimization:
// every miss or error falls back to Mongo, and writers invalidate the
// conversation key rather than patching cached entries.
type MessageCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewMessageCache returns a cache over rdb; a nil client yields a
// disabled cache whose methods are all no-ops.
func NewMessageCache(rdb *redis.Client, ttl time.Duration) *MessageCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &MessageCache{rdb: rdb, ttl: ttl}
}

func messagesKey(conversationID string) string { return "chat:msgs:" + conversationID }

func (c *MessageCache) Enabled() bool { return c != nil && c.rdb != nil }

func (c *MessageCache) GetMessages(ctx context.Context, conversationID string) ([]*model.Message, bool) {
	if !c.Enabled() {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, messagesKey(conversationID)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		logger.Warnf("[cache] get messages conv=%s err=%v", conversationID, err)
		return nil, false
	}
	var out []*model.Message
	if err := json.Unmarshal(raw, &out); err != nil {
		logger.Warnf("[cache] decode messages conv=%s err=%v", conversationID, err)
		return nil, false
	}
	return out, true
}

func (c *MessageCache) SetMessages(ctx context.Context, conversationID string, msgs []*model.Message) {
	if !c.Enabled() {
		return
	}
	raw, err := json.Marshal(msgs)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, messagesKey(conversationID), raw, c.ttl).Err(); err != nil {
		logger.Warnf("[cache] set messages conv=%s err=%v", conversationID, err)
	}
}

// Invalidate drops the cached history; called after any write touching
// the conversation's messages (send, mark-read, cascade delete).
func (c *MessageCache) Invalidate(ctx context.Context, conversationID string) {
	if !c.Enabled() {
		return
	}
	if err := c.rdb.Del(ctx, messagesKey(conversationID)).Err(); err != nil {
		logger.Warnf("[cache] invalidate conv=%s err=%v", conversationID, err)
	}
}

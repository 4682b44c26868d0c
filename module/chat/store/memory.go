package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"chatline/module/chat/model"
	"chatline/tools/errs"
)

// MemoryConversationStore mirrors the mongo store's semantics over a
// map. It backs the test suites and small single-node deployments that
// do not want a database.
type MemoryConversationStore struct {
	mu    sync.RWMutex
	byID  map[string]*model.Conversation
	rooms map[string]string // room_name -> id, enforces uniqueness
}

func NewMemoryConversationStore() *MemoryConversationStore {
	return &MemoryConversationStore{
		byID:  make(map[string]*model.Conversation),
		rooms: make(map[string]string),
	}
}

func cloneConv(c *model.Conversation) *model.Conversation {
	out := *c
	out.Participants = append([]string(nil), c.Participants...)
	if c.LastSeenBy != nil {
		out.LastSeenBy = make(map[string]time.Time, len(c.LastSeenBy))
		for k, v := range c.LastSeenBy {
			out.LastSeenBy[k] = v
		}
	}
	return &out
}

func (s *MemoryConversationStore) Get(_ context.Context, id string) (*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byID[id]
	if !ok {
		return nil, errs.ErrNotFound.WrapMsg("conversation", "id", id)
	}
	return cloneConv(c), nil
}

func (s *MemoryConversationStore) FindDirect(_ context.Context, userA, userB string) (*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.byID {
		if !c.IsGroup && c.HasParticipant(userA) && c.HasParticipant(userB) {
			return cloneConv(c), nil
		}
	}
	return nil, errs.ErrNotFound.WrapMsg("direct conversation", "users", userA+","+userB)
}

func (s *MemoryConversationStore) ListByParticipant(_ context.Context, userID string) ([]*model.Conversation, error) {
	return s.list(userID, false)
}

func (s *MemoryConversationStore) ListGroupsByParticipant(_ context.Context, userID string) ([]*model.Conversation, error) {
	return s.list(userID, true)
}

func (s *MemoryConversationStore) list(userID string, groupsOnly bool) ([]*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Conversation
	for _, c := range s.byID {
		if !c.HasParticipant(userID) {
			continue
		}
		if groupsOnly && !c.IsGroup {
			continue
		}
		out = append(out, cloneConv(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *MemoryConversationStore) Create(_ context.Context, c *model.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.byID[c.ID]; dup {
		return errs.ErrConflict.WrapMsg("conversation exists", "id", c.ID)
	}
	if _, dup := s.rooms[c.RoomName]; dup {
		return errs.ErrConflict.WrapMsg("conversation exists", "room", c.RoomName)
	}
	s.byID[c.ID] = cloneConv(c)
	s.rooms[c.RoomName] = c.ID
	return nil
}

func (s *MemoryConversationStore) SetParticipants(_ context.Context, id string, participants []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[id]
	if !ok {
		return errs.ErrNotFound.WrapMsg("conversation", "id", id)
	}
	c.Participants = append([]string(nil), participants...)
	c.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryConversationStore) SetLastSeen(_ context.Context, id, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[id]
	if !ok {
		return errs.ErrNotFound.WrapMsg("conversation", "id", id)
	}
	if c.LastSeenBy == nil {
		c.LastSeenBy = make(map[string]time.Time)
	}
	c.LastSeenBy[userID] = at
	return nil
}

func (s *MemoryConversationStore) SetLastMessage(_ context.Context, id, messageID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[id]
	if !ok {
		return errs.ErrNotFound.WrapMsg("conversation", "id", id)
	}
	c.LastMessageID = messageID
	c.UpdatedAt = at
	return nil
}

func (s *MemoryConversationStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[id]
	if !ok {
		return errs.ErrNotFound.WrapMsg("conversation", "id", id)
	}
	delete(s.rooms, c.RoomName)
	delete(s.byID, id)
	return nil
}

// MemoryMessageStore is the message-side counterpart.
type MemoryMessageStore struct {
	mu   sync.RWMutex
	byID map[string]*model.Message
}

func NewMemoryMessageStore() *MemoryMessageStore {
	return &MemoryMessageStore{byID: make(map[string]*model.Message)}
}

func cloneMsg(m *model.Message) *model.Message {
	out := *m
	out.Attachments = append([]model.Attachment(nil), m.Attachments...)
	return &out
}

func (s *MemoryMessageStore) Get(_ context.Context, id string) (*model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.byID[id]
	if !ok {
		return nil, errs.ErrNotFound.WrapMsg("message", "id", id)
	}
	return cloneMsg(m), nil
}

func (s *MemoryMessageStore) ListByConversation(_ context.Context, conversationID string) ([]*model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Message
	for _, m := range s.byID {
		if m.ConversationID == conversationID {
			out = append(out, cloneMsg(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryMessageStore) Insert(_ context.Context, m *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.byID[m.ID]; dup {
		return errs.ErrConflict.WrapMsg("message exists", "id", m.ID)
	}
	s.byID[m.ID] = cloneMsg(m)
	return nil
}

func (s *MemoryMessageStore) CountUnread(_ context.Context, conversationID, userID string, after time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, m := range s.byID {
		if m.ConversationID != conversationID || m.SenderID == userID || m.Status == model.StatusRead {
			continue
		}
		if !after.IsZero() && !m.CreatedAt.After(after) {
			continue
		}
		n++
	}
	return n, nil
}

func (s *MemoryMessageStore) MarkRead(_ context.Context, conversationID, readerID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, m := range s.byID {
		if m.ConversationID != conversationID || m.SenderID == readerID {
			continue
		}
		if m.Status == model.StatusSent || m.Status == model.StatusDelivered {
			m.Status = model.StatusRead
			n++
		}
	}
	return n, nil
}

func (s *MemoryMessageStore) DeleteByConversation(_ context.Context, conversationID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, m := range s.byID {
		if m.ConversationID == conversationID {
			delete(s.byID, id)
			n++
		}
	}
	return n, nil
}

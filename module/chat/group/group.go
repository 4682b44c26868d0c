package group

import (
	"context"
	"time"

	"chatline/logger"
	"chatline/module/chat/model"
	"chatline/module/chat/store"
	"chatline/module/chat/unread"
	"chatline/tools/errs"
	"chatline/tools/ids"

	"github.com/google/uuid"
)

// MinMembers is the smallest allowed group: the admin plus two others.
// The two-person case is what direct conversations are for.
const MinMembers = 3

// Manager owns group conversation membership and deletion.
type Manager struct {
	convs store.ConversationStore
	msgs  store.MessageStore
	cache unread.Invalidator
	clock func() time.Time
}

func NewManager(convs store.ConversationStore, msgs store.MessageStore, cache unread.Invalidator) *Manager {
	return &Manager{convs: convs, msgs: msgs, cache: cache, clock: time.Now}
}

// CreateGroup allocates a group conversation with a fresh unique room
// name. The admin is always a participant, listed or not.
func (m *Manager) CreateGroup(ctx context.Context, name string, participantIDs []string, adminID string) (*model.Conversation, error) {
	if name == "" {
		return nil, errs.ErrValidation.WithDetail("group name is required")
	}
	if adminID == "" {
		return nil, errs.ErrValidation.WithDetail("group admin is required")
	}

	members := dedupe(append(participantIDs, adminID))
	if len(members) < MinMembers {
		return nil, errs.ErrValidation.WrapMsg("group too small", "members", len(members), "min", MinMembers)
	}

	now := m.clock()
	conv := &model.Conversation{
		ID:           ids.GenerateString(),
		Participants: members,
		RoomName:     "group_" + uuid.NewString(),
		IsGroup:      true,
		GroupName:    name,
		GroupAdmin:   adminID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := m.convs.Create(ctx, conv); err != nil {
		return nil, err
	}
	logger.Infof("[group] created id=%s name=%q members=%d", conv.ID, name, len(members))
	return conv, nil
}

// AddParticipant is idempotent: adding a present member returns the
// current state unchanged.
func (m *Manager) AddParticipant(ctx context.Context, conversationID, userID string) (*model.Conversation, error) {
	if userID == "" {
		return nil, errs.ErrValidation.WithDetail("user id is required")
	}
	conv, err := m.getGroup(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.HasParticipant(userID) {
		return conv, nil
	}
	conv.Participants = append(conv.Participants, userID)
	if err := m.convs.SetParticipants(ctx, conversationID, conv.Participants); err != nil {
		return nil, err
	}
	return conv, nil
}

// RemoveParticipant drops the user from the participant set. Removing a
// non-member is a no-op. The user's live room subscription is not
// evicted here; until their connection re-establishes, they may keep
// receiving room broadcasts. Known limitation, kept deliberately.
func (m *Manager) RemoveParticipant(ctx context.Context, conversationID, userID string) (*model.Conversation, error) {
	conv, err := m.getGroup(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	kept := conv.Participants[:0]
	for _, p := range conv.Participants {
		if p != userID {
			kept = append(kept, p)
		}
	}
	if len(kept) == len(conv.Participants) {
		return conv, nil
	}
	conv.Participants = kept
	if err := m.convs.SetParticipants(ctx, conversationID, kept); err != nil {
		return nil, err
	}
	return conv, nil
}

// DeleteGroup removes the conversation and cascades deletion of every
// message referencing it. Direct conversations refuse this operation.
func (m *Manager) DeleteGroup(ctx context.Context, conversationID string) error {
	conv, err := m.convs.Get(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conv.IsGroup {
		return errs.ErrValidation.WrapMsg("not a group conversation", "id", conversationID)
	}

	if err := m.convs.Delete(ctx, conversationID); err != nil {
		return err
	}
	n, err := m.msgs.DeleteByConversation(ctx, conversationID)
	if err != nil {
		// The conversation is gone; orphaned messages are unreachable
		// through the API but still on disk. Surface it.
		return errs.WrapMsg(err, "cascade delete messages", "conversation", conversationID)
	}
	if m.cache != nil {
		m.cache.Invalidate(ctx, conversationID)
	}
	logger.Infof("[group] deleted id=%s messages=%d", conversationID, n)
	return nil
}

func (m *Manager) getGroup(ctx context.Context, conversationID string) (*model.Conversation, error) {
	conv, err := m.convs.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.IsGroup {
		return nil, errs.ErrNotFound.WrapMsg("group", "id", conversationID)
	}
	return conv, nil
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

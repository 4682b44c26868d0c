package msg

import (
	"context"
	"time"

	"chatline/logger"
	"chatline/module/chat/model"
	"chatline/module/chat/store"
	"chatline/module/chat/unread"
	"chatline/tools/errs"
	"chatline/tools/ids"
)

// Cache is the read-through history cache; nil-safe via Enabled.
type Cache interface {
	GetMessages(ctx context.Context, conversationID string) ([]*model.Message, bool)
	SetMessages(ctx context.Context, conversationID string, msgs []*model.Message)
	Invalidate(ctx context.Context, conversationID string)
	Enabled() bool
}

// Service persists messages and keeps the owning conversation's
// last-activity fields in step.
type Service struct {
	convs  store.ConversationStore
	msgs   store.MessageStore
	cache  Cache
	unread *unread.Accountant
	clock  func() time.Time
}

func NewService(convs store.ConversationStore, msgs store.MessageStore, cache Cache, acct *unread.Accountant) *Service {
	return &Service{convs: convs, msgs: msgs, cache: cache, unread: acct, clock: time.Now}
}

// Send stores a message and bumps the conversation. The sender must be
// a participant. Fan-out happens separately over the realtime channel;
// this is the persistence half.
func (s *Service) Send(ctx context.Context, conversationID, senderID, text string, att *model.Attachment) (*model.Message, error) {
	if text == "" && att == nil {
		return nil, errs.ErrValidation.WithDetail("message needs text or an attachment")
	}
	conv, err := s.convs.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(senderID) {
		return nil, errs.ErrAuthorization.WrapMsg("send", "conversation", conversationID, "sender", senderID)
	}

	m := &model.Message{
		ID:             ids.GenerateString(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Text:           text,
		MessageType:    model.TypeText,
		Status:         model.StatusSent,
		CreatedAt:      s.clock(),
	}
	if att != nil {
		// Callers pass the stored blob name in FileURL; the download
		// path needs the message id, which only exists here.
		a := *att
		a.FileURL = "/api/messages/file/" + m.ID + "/" + a.FileURL
		m.Attachments = []model.Attachment{a}
		m.MessageType = model.TypeForMime(a.FileType)
	}
	if err := s.msgs.Insert(ctx, m); err != nil {
		return nil, err
	}
	if err := s.convs.SetLastMessage(ctx, conversationID, m.ID, m.CreatedAt); err != nil {
		// The message is durable; the activity bump is cosmetic ordering
		// for list views. Log and return the message.
		logger.Warnf("[msg] bump conversation %s: %v", conversationID, err)
	}
	if s.cache != nil && s.cache.Enabled() {
		s.cache.Invalidate(ctx, conversationID)
	}
	return m, nil
}

// List returns the conversation history oldest-first. When readerID is
// set the conversation is marked read for them first, matching the
// client expectation that opening a chat clears its badge.
func (s *Service) List(ctx context.Context, conversationID, readerID string) ([]*model.Message, error) {
	if readerID != "" {
		if err := s.unread.MarkRead(ctx, conversationID, readerID); err != nil {
			return nil, err
		}
	} else if _, err := s.convs.Get(ctx, conversationID); err != nil {
		return nil, err
	}

	if s.cache != nil && s.cache.Enabled() && readerID == "" {
		if cached, ok := s.cache.GetMessages(ctx, conversationID); ok {
			return cached, nil
		}
	}

	out, err := s.msgs.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil && s.cache.Enabled() && readerID == "" {
		s.cache.SetMessages(ctx, conversationID, out)
	}
	return out, nil
}

// Get fetches one message, participant-gated for the given user.
func (s *Service) Get(ctx context.Context, messageID, userID string) (*model.Message, error) {
	m, err := s.msgs.Get(ctx, messageID)
	if err != nil {
		return nil, err
	}
	conv, err := s.convs.Get(ctx, m.ConversationID)
	if err != nil {
		return nil, err
	}
	if userID != "" && !conv.HasParticipant(userID) {
		return nil, errs.ErrAuthorization.WrapMsg("get message", "message", messageID, "user", userID)
	}
	return m, nil
}

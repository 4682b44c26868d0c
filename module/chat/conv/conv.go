package conv

import (
	"context"
	"errors"
	"time"

	"chatline/logger"
	"chatline/module/chat/model"
	"chatline/module/chat/store"
	"chatline/tools/errs"
	"chatline/tools/ids"
)

// Service owns direct (1:1) conversations.
type Service struct {
	convs store.ConversationStore
	clock func() time.Time
}

func NewService(convs store.ConversationStore) *Service {
	return &Service{convs: convs, clock: time.Now}
}

// roomName is deterministic for a user pair regardless of argument
// order, so the unique index on room_name turns a concurrent double
// create into a conflict we can recover from.
func roomName(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return "chat_" + a + "_" + b
}

// GetOrCreate returns the direct conversation between the two users,
// creating it on first contact. Losing a create race falls back to the
// winner's document.
func (s *Service) GetOrCreate(ctx context.Context, userA, userB string) (*model.Conversation, error) {
	if userA == "" || userB == "" {
		return nil, errs.ErrValidation.WithDetail("both participant ids are required")
	}
	if userA == userB {
		return nil, errs.ErrValidation.WithDetail("participants must differ")
	}

	conv, err := s.convs.FindDirect(ctx, userA, userB)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return nil, err
	}

	now := s.clock()
	conv = &model.Conversation{
		ID:           ids.GenerateString(),
		Participants: []string{userA, userB},
		RoomName:     roomName(userA, userB),
		IsGroup:      false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err = s.convs.Create(ctx, conv)
	if err == nil {
		logger.Infof("[conv] created direct id=%s room=%s", conv.ID, conv.RoomName)
		return conv, nil
	}
	if errors.Is(err, errs.ErrConflict) {
		return s.convs.FindDirect(ctx, userA, userB)
	}
	return nil, err
}

// Find looks up the direct conversation without creating it.
func (s *Service) Find(ctx context.Context, userA, userB string) (*model.Conversation, error) {
	if userA == "" || userB == "" {
		return nil, errs.ErrValidation.WithDetail("both participant ids are required")
	}
	return s.convs.FindDirect(ctx, userA, userB)
}

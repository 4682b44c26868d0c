package conv

import (
	"context"
	"errors"
	"testing"
	"time"

	"chatline/module/chat/model"
	"chatline/module/chat/store"
	"chatline/tools/errs"

	"github.com/stretchr/testify/require"
)

// racingStore reports NotFound on the first lookup even though the
// document exists, simulating losing a concurrent create.
type racingStore struct {
	*store.MemoryConversationStore
	missed bool
}

func (r *racingStore) FindDirect(ctx context.Context, a, b string) (*model.Conversation, error) {
	if !r.missed {
		r.missed = true
		return nil, errs.ErrNotFound.WithDetail("racing")
	}
	return r.MemoryConversationStore.FindDirect(ctx, a, b)
}

func TestGetOrCreateIsStable(t *testing.T) {
	ctx := context.Background()
	svc := NewService(store.NewMemoryConversationStore())

	first, err := svc.GetOrCreate(ctx, "alice", "bob")
	require.NoError(t, err)
	require.Len(t, first.Participants, 2)
	require.Equal(t, "chat_alice_bob", first.RoomName)

	// Argument order must not matter.
	second, err := svc.GetOrCreate(ctx, "bob", "alice")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
}

func TestGetOrCreateValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewService(store.NewMemoryConversationStore())

	_, err := svc.GetOrCreate(ctx, "", "bob")
	require.True(t, errors.Is(err, errs.ErrValidation))
	_, err = svc.GetOrCreate(ctx, "alice", "alice")
	require.True(t, errors.Is(err, errs.ErrValidation))
}

func TestGetOrCreateRecoversFromLostRace(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryConversationStore()
	now := time.Now()
	require.NoError(t, mem.Create(ctx, &model.Conversation{
		ID: "winner", Participants: []string{"alice", "bob"},
		RoomName: "chat_alice_bob", CreatedAt: now, UpdatedAt: now,
	}))

	svc := NewService(&racingStore{MemoryConversationStore: mem})
	got, err := svc.GetOrCreate(ctx, "alice", "bob")
	require.NoError(t, err)
	require.Equal(t, "winner", got.ID)
}

func TestFindDoesNotCreate(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryConversationStore()
	svc := NewService(mem)

	_, err := svc.Find(ctx, "alice", "bob")
	require.True(t, errors.Is(err, errs.ErrNotFound))

	list, err := mem.ListByParticipant(ctx, "alice")
	require.NoError(t, err)
	require.Empty(t, list)
}

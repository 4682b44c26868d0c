package group

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

func fixture() (*store.MemoryConversationStore, *store.MemoryMessageStore, *Manager) {
	convs := store.NewMemoryConversationStore()
	msgs := store.NewMemoryMessageStore()
	return convs, msgs, NewManager(convs, msgs, nil)
}

func TestCreateGroup(t *testing.T) {
	ctx := context.Background()
	_, _, mgr := fixture()

	conv, err := mgr.CreateGroup(ctx, "team", []string{"alice", "bob"}, "carol")
	require.NoError(t, err)
	require.True(t, conv.IsGroup)
	require.Equal(t, "carol", conv.GroupAdmin)
	require.ElementsMatch(t, []string{"alice", "bob", "carol"}, conv.Participants)
	require.Contains(t, conv.RoomName, "group_")
}

func TestCreateGroupValidation(t *testing.T) {
	ctx := context.Background()
	_, _, mgr := fixture()

	_, err := mgr.CreateGroup(ctx, "", []string{"a", "b"}, "c")
	require.True(t, errors.Is(err, errs.ErrValidation))

	// Admin plus one other is below the minimum.
	_, err = mgr.CreateGroup(ctx, "tiny", []string{"a"}, "b")
	require.True(t, errors.Is(err, errs.ErrValidation))

	// Duplicates collapse before the size check.
	_, err = mgr.CreateGroup(ctx, "dups", []string{"a", "a", "b"}, "b")
	require.True(t, errors.Is(err, errs.ErrValidation))
}

func TestAddParticipantIdempotent(t *testing.T) {
	ctx := context.Background()
	_, _, mgr := fixture()
	conv, err := mgr.CreateGroup(ctx, "team", []string{"alice", "bob"}, "carol")
	require.NoError(t, err)

	got, err := mgr.AddParticipant(ctx, conv.ID, "dave")
	require.NoError(t, err)
	require.Len(t, got.Participants, 4)

	got, err = mgr.AddParticipant(ctx, conv.ID, "dave")
	require.NoError(t, err)
	require.Len(t, got.Participants, 4)
}

func TestRemoveParticipantIdempotent(t *testing.T) {
	ctx := context.Background()
	_, _, mgr := fixture()
	conv, err := mgr.CreateGroup(ctx, "team", []string{"alice", "bob"}, "carol")
	require.NoError(t, err)

	got, err := mgr.RemoveParticipant(ctx, conv.ID, "alice")
	require.NoError(t, err)
	require.NotContains(t, got.Participants, "alice")

	// Removing again, or removing a stranger, changes nothing.
	got, err = mgr.RemoveParticipant(ctx, conv.ID, "alice")
	require.NoError(t, err)
	require.Len(t, got.Participants, 2)
}

func TestDeleteGroupCascades(t *testing.T) {
	ctx := context.Background()
	convs, msgs, mgr := fixture()
	conv, err := mgr.CreateGroup(ctx, "team", []string{"alice", "bob"}, "carol")
	require.NoError(t, err)

	for _, id := range []string{"m1", "m2"} {
		require.NoError(t, msgs.Insert(ctx, &model.Message{
			ID: id, ConversationID: conv.ID, SenderID: "alice",
			Status: model.StatusSent, CreatedAt: time.Now(),
		}))
	}

	require.NoError(t, mgr.DeleteGroup(ctx, conv.ID))

	_, err = convs.Get(ctx, conv.ID)
	require.True(t, errors.Is(err, errs.ErrNotFound))
	left, err := msgs.ListByConversation(ctx, conv.ID)
	require.NoError(t, err)
	require.Empty(t, left)
}

func TestDeleteRejectsDirectConversation(t *testing.T) {
	ctx := context.Background()
	convs, _, mgr := fixture()
	require.NoError(t, convs.Create(ctx, &model.Conversation{
		ID: "d1", Participants: []string{"a", "b"}, RoomName: "chat_a_b",
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}))

	err := mgr.DeleteGroup(ctx, "d1")
	require.True(t, errors.Is(err, errs.ErrValidation))
}

func TestGroupOpsRejectDirectConversation(t *testing.T) {
	ctx := context.Background()
	convs, _, mgr := fixture()
	require.NoError(t, convs.Create(ctx, &model.Conversation{
		ID: "d1", Participants: []string{"a", "b"}, RoomName: "chat_a_b",
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}))

	_, err := mgr.AddParticipant(ctx, "d1", "c")
	require.True(t, errors.Is(err, errs.ErrNotFound))
}

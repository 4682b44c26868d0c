package msg

import (
	"context"
	"errors"
	"testing"
	"time"

	"chatline/module/chat/model"
	"chatline/module/chat/store"
	"chatline/module/chat/unread"
	"chatline/tools/errs"

	"github.com/stretchr/testify/require"
)

func fixture(t *testing.T) (*store.MemoryConversationStore, *store.MemoryMessageStore, *Service) {
	t.Helper()
	convs := store.NewMemoryConversationStore()
	msgs := store.NewMemoryMessageStore()
	acct := unread.NewAccountant(convs, msgs, nil)
	return convs, msgs, NewService(convs, msgs, nil, acct)
}

func seed(t *testing.T, convs *store.MemoryConversationStore, id string, users ...string) {
	t.Helper()
	now := time.Now()
	require.NoError(t, convs.Create(context.Background(), &model.Conversation{
		ID: id, Participants: users, RoomName: "room-" + id, CreatedAt: now, UpdatedAt: now,
	}))
}

func TestSendPersistsAndBumpsConversation(t *testing.T) {
	ctx := context.Background()
	convs, msgs, svc := fixture(t)
	seed(t, convs, "c1", "alice", "bob")

	m, err := svc.Send(ctx, "c1", "alice", "hello", nil)
	require.NoError(t, err)
	require.Equal(t, model.StatusSent, m.Status)
	require.Equal(t, model.TypeText, m.MessageType)

	stored, err := msgs.Get(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, "hello", stored.Text)

	conv, err := convs.Get(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, m.ID, conv.LastMessageID)
}

func TestSendRejectsOutsiders(t *testing.T) {
	ctx := context.Background()
	convs, _, svc := fixture(t)
	seed(t, convs, "c1", "alice", "bob")

	_, err := svc.Send(ctx, "c1", "mallory", "hi", nil)
	require.True(t, errors.Is(err, errs.ErrAuthorization))
}

func TestSendRequiresContent(t *testing.T) {
	ctx := context.Background()
	convs, _, svc := fixture(t)
	seed(t, convs, "c1", "alice", "bob")

	_, err := svc.Send(ctx, "c1", "alice", "", nil)
	require.True(t, errors.Is(err, errs.ErrValidation))
}

func TestSendAttachmentSetsTypeAndURL(t *testing.T) {
	ctx := context.Background()
	convs, _, svc := fixture(t)
	seed(t, convs, "c1", "alice", "bob")

	m, err := svc.Send(ctx, "c1", "alice", "", &model.Attachment{
		FileName: "cat.png", FileURL: "stored-cat.png", FileType: "image/png", FileSize: 123,
	})
	require.NoError(t, err)
	require.Equal(t, model.TypeImage, m.MessageType)
	require.Len(t, m.Attachments, 1)
	require.Equal(t, "/api/messages/file/"+m.ID+"/stored-cat.png", m.Attachments[0].FileURL)
}

func TestListWithReaderMarksRead(t *testing.T) {
	ctx := context.Background()
	convs, msgs, svc := fixture(t)
	seed(t, convs, "c1", "alice", "bob")

	sent, err := svc.Send(ctx, "c1", "alice", "hi", nil)
	require.NoError(t, err)

	list, err := svc.List(ctx, "c1", "bob")
	require.NoError(t, err)
	require.Len(t, list, 1)

	stored, err := msgs.Get(ctx, sent.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusRead, stored.Status)
}

func TestListWithoutReaderLeavesStatus(t *testing.T) {
	ctx := context.Background()
	convs, msgs, svc := fixture(t)
	seed(t, convs, "c1", "alice", "bob")
	sent, err := svc.Send(ctx, "c1", "alice", "hi", nil)
	require.NoError(t, err)

	_, err = svc.List(ctx, "c1", "")
	require.NoError(t, err)

	stored, err := msgs.Get(ctx, sent.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusSent, stored.Status)
}

func TestGetGatesOnMembership(t *testing.T) {
	ctx := context.Background()
	convs, _, svc := fixture(t)
	seed(t, convs, "c1", "alice", "bob")
	sent, err := svc.Send(ctx, "c1", "alice", "hi", nil)
	require.NoError(t, err)

	_, err = svc.Get(ctx, sent.ID, "bob")
	require.NoError(t, err)
	_, err = svc.Get(ctx, sent.ID, "mallory")
	require.True(t, errors.Is(err, errs.ErrAuthorization))
}

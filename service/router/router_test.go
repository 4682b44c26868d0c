package router

import (
	"context"
	"testing"
	"time"

	"chatline/module/chat/model"
	"chatline/module/chat/store"
	"chatline/service/notify"
	"chatline/service/ws"

	"github.com/stretchr/testify/require"
)

type capturePub struct {
	events []notify.DeliveredEvent
}

func (p *capturePub) PublishDelivered(_ context.Context, e notify.DeliveredEvent) error {
	p.events = append(p.events, e)
	return nil
}

func seedConversation(t *testing.T, s *store.MemoryConversationStore, id, room string, participants ...string) {
	t.Helper()
	require.NoError(t, s.Create(context.Background(), &model.Conversation{
		ID:           id,
		Participants: participants,
		RoomName:     room,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}))
}

func online(reg *ws.Registry, userID, connID string) *ws.Client {
	c := ws.NewClient(connID, nil, 64)
	reg.Register(c)
	reg.Authenticate(userID, userID, c)
	return c
}

func recv(t *testing.T, c *ws.Client) []byte {
	t.Helper()
	select {
	case p := <-c.Send:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for payload")
		return nil
	}
}

func expectSilent(t *testing.T, c *ws.Client) {
	t.Helper()
	select {
	case p := <-c.Send:
		t.Fatalf("unexpected payload: %s", p)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDeliverOncePerConnectionWhenRoomAndPresenceOverlap(t *testing.T) {
	reg := ws.NewRegistry()
	convs := store.NewMemoryConversationStore()
	fan := ws.NewFanout(2, 64)
	defer fan.Close()
	seedConversation(t, convs, "c1", "room-1", "alice", "bob")

	alice := online(reg, "alice", "conn-a")
	bob := online(reg, "bob", "conn-b")
	reg.Join("room-1", alice)
	reg.Join("room-1", bob)

	r := New(reg, convs, fan, nil)
	rep := r.DeliverReport(context.Background(), ws.ChatPayload{
		ConversationID: "c1", MessageID: "m1", SenderID: "alice", Message: "hi",
	})

	require.False(t, rep.Degraded)
	require.Equal(t, 2, rep.RoomConns)
	require.Empty(t, rep.Direct) // bob already reached via the room

	recv(t, alice)
	recv(t, bob)
	expectSilent(t, bob)
}

func TestDeliverDirectToOnlineNonSubscriber(t *testing.T) {
	reg := ws.NewRegistry()
	convs := store.NewMemoryConversationStore()
	fan := ws.NewFanout(2, 64)
	defer fan.Close()
	seedConversation(t, convs, "c1", "room-1", "alice", "bob", "carol")

	alice := online(reg, "alice", "conn-a")
	reg.Join("room-1", alice)
	bob := online(reg, "bob", "conn-b") // online, not in the room
	// carol is offline

	r := New(reg, convs, fan, nil)
	rep := r.DeliverReport(context.Background(), ws.ChatPayload{
		ConversationID: "c1", MessageID: "m1", SenderID: "alice", Message: "hi",
	})

	require.Equal(t, 1, rep.RoomConns)
	require.Equal(t, []string{"bob"}, rep.Direct)

	env, err := ws.ParseEnvelope(recv(t, bob))
	require.NoError(t, err)
	require.Equal(t, ws.EvChatRoom, env.Event)
	var msg ws.RoomMessage
	require.NoError(t, ws.DecodeData(env, &msg))
	require.Equal(t, "m1", msg.MessageID)
	require.Equal(t, "room-1", msg.Room)
}

func TestDeliverDegradesToRoomOnlyOnStoreFailure(t *testing.T) {
	reg := ws.NewRegistry()
	convs := store.NewMemoryConversationStore() // conversation never created
	fan := ws.NewFanout(2, 64)
	defer fan.Close()

	watcher := online(reg, "alice", "conn-a")
	reg.Join("client-room", watcher)

	pub := &capturePub{}
	r := New(reg, convs, fan, pub)
	rep := r.DeliverReport(context.Background(), ws.ChatPayload{
		Room: "client-room", ConversationID: "missing", MessageID: "m1", SenderID: "bob", Message: "hi",
	})

	require.True(t, rep.Degraded)
	require.Equal(t, 1, rep.RoomConns)
	require.Empty(t, rep.Direct)
	recv(t, watcher)

	require.Len(t, pub.events, 1)
	require.True(t, pub.events[0].Degraded)
}

func TestSenderNotNotifiedOutOfBand(t *testing.T) {
	reg := ws.NewRegistry()
	convs := store.NewMemoryConversationStore()
	fan := ws.NewFanout(2, 64)
	defer fan.Close()
	seedConversation(t, convs, "c1", "room-1", "alice", "bob")

	alice := online(reg, "alice", "conn-a") // sender online, not subscribed

	r := New(reg, convs, fan, nil)
	rep := r.DeliverReport(context.Background(), ws.ChatPayload{
		ConversationID: "c1", MessageID: "m1", SenderID: "alice", Message: "hi",
	})

	require.Zero(t, rep.RoomConns)
	require.Empty(t, rep.Direct)
	expectSilent(t, alice)
}

func TestPublishListsRecipientsExcludingSender(t *testing.T) {
	reg := ws.NewRegistry()
	convs := store.NewMemoryConversationStore()
	fan := ws.NewFanout(2, 64)
	defer fan.Close()
	seedConversation(t, convs, "c1", "room-1", "alice", "bob", "carol")

	pub := &capturePub{}
	r := New(reg, convs, fan, pub)
	r.DeliverReport(context.Background(), ws.ChatPayload{
		ConversationID: "c1", MessageID: "m1", SenderID: "alice", Message: "hi",
	})

	require.Len(t, pub.events, 1)
	require.ElementsMatch(t, []string{"bob", "carol"}, pub.events[0].Recipients)
	require.Equal(t, "m1", pub.events[0].MessageID)
}

package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type captureDeliverer struct {
	got []ChatPayload
}

func (d *captureDeliverer) Deliver(_ context.Context, p ChatPayload) error {
	d.got = append(d.got, p)
	return nil
}

func newTestServer(t *testing.T) (*Server, *captureDeliverer, func()) {
	t.Helper()
	fan := NewFanout(2, 64)
	del := &captureDeliverer{}
	srv := NewServer(NewRegistry(), fan, del)
	return srv, del, fan.Close
}

func dispatch(t *testing.T, srv *Server, c *Client, raw string) error {
	t.Helper()
	env, err := ParseEnvelope([]byte(raw))
	require.NoError(t, err)
	h, ok := srv.disp.Get(env.Event)
	require.True(t, ok, "no handler for %s", env.Event)
	return h.Handle(&Context{Srv: srv}, env, c)
}

func waitPayload(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case p := <-c.Send:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for payload")
		return nil
	}
}

func TestAuthenticateBroadcastsSnapshot(t *testing.T) {
	srv, _, done := newTestServer(t)
	defer done()

	c := NewClient("conn-1", nil, 64)
	srv.reg.Register(c)
	err := dispatch(t, srv, c, `{"event":"authenticate","data":{"userId":"alice","displayName":"Alice"}}`)
	require.NoError(t, err)

	env, perr := ParseEnvelope(waitPayload(t, c))
	require.NoError(t, perr)
	require.Equal(t, EvUserList, env.Event)
	require.Equal(t, "alice", c.UserID)

	// The snapshot frame carries an array, not an object.
	var entries []PresenceEntry
	require.NoError(t, json.Unmarshal(env.Data, &entries))
	require.Len(t, entries, 1)
	require.Equal(t, "alice", entries[0].UserID)
}

func TestSnapshotFeedIsMonotonic(t *testing.T) {
	fan := NewFanout(4, 1024)
	defer fan.Close()
	srv := NewServer(NewRegistry(), fan, &captureDeliverer{})

	obs := NewClient("conn-obs", nil, 1024)
	srv.reg.Register(obs)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := NewClient(fmt.Sprintf("conn-%d", i), nil, 1024)
			srv.reg.Register(c)
			srv.reg.Authenticate(fmt.Sprintf("user-%d", i), "", c)
			srv.BroadcastSnapshot()
		}(i)
	}
	wg.Wait()
	srv.BroadcastSnapshot()

	// Presence only grows here, so snapshot-order enqueueing means the
	// last frame the observer sees must be the complete set.
	var last []byte
	for {
		select {
		case p := <-obs.Send:
			last = p
			continue
		case <-time.After(300 * time.Millisecond):
		}
		break
	}
	require.NotNil(t, last)

	env, err := ParseEnvelope(last)
	require.NoError(t, err)
	require.Equal(t, EvUserList, env.Event)
	var entries []PresenceEntry
	require.NoError(t, json.Unmarshal(env.Data, &entries))
	require.Len(t, entries, n)
}

func TestAuthenticateRequiresUserID(t *testing.T) {
	srv, _, done := newTestServer(t)
	defer done()
	c := NewClient("conn-1", nil, 64)
	srv.reg.Register(c)
	err := dispatch(t, srv, c, `{"event":"authenticate","data":{"displayName":"X"}}`)
	require.Error(t, err)
}

func TestChatRoomForwardsToDeliverer(t *testing.T) {
	srv, del, done := newTestServer(t)
	defer done()
	c := NewClient("conn-1", nil, 64)
	srv.reg.Register(c)

	err := dispatch(t, srv, c,
		`{"event":"chatRoom","data":{"room":"r1","conversationId":"c1","messageId":"m1","senderId":"alice","message":"hi"}}`)
	require.NoError(t, err)
	require.Len(t, del.got, 1)
	require.Equal(t, "c1", del.got[0].ConversationID)

	err = dispatch(t, srv, c, `{"event":"chatRoom","data":{"message":"hi"}}`)
	require.Error(t, err)
	require.Len(t, del.got, 1)
}

func TestTypingReachesPeersNotSender(t *testing.T) {
	srv, _, done := newTestServer(t)
	defer done()

	sender := NewClient("conn-1", nil, 64)
	peer := NewClient("conn-2", nil, 64)
	srv.reg.Register(sender)
	srv.reg.Register(peer)
	srv.reg.Join("r1", sender)
	srv.reg.Join("r1", peer)

	err := dispatch(t, srv, sender,
		`{"event":"typing","data":{"room":"r1","username":"alice","isTyping":true}}`)
	require.NoError(t, err)

	env, perr := ParseEnvelope(waitPayload(t, peer))
	require.NoError(t, perr)
	require.Equal(t, EvUserTyping, env.Event)

	select {
	case p := <-sender.Send:
		t.Fatalf("sender received own typing event: %s", p)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestLogoutFallsBackToConnectionUser(t *testing.T) {
	srv, _, done := newTestServer(t)
	defer done()

	c := NewClient("conn-1", nil, 64)
	srv.reg.Register(c)
	srv.reg.Authenticate("alice", "Alice", c)

	err := dispatch(t, srv, c, `{"event":"userLogout","data":{}}`)
	require.NoError(t, err)
	require.Empty(t, srv.reg.Snapshot())
}

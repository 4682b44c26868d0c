package ws

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func recv(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case p := <-c.Send:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for payload")
		return nil
	}
}

func TestBroadcastPreservesPerKeyOrder(t *testing.T) {
	f := NewFanout(4, 64)
	defer f.Close()
	c := NewClient("conn-1", nil, 256)

	const n = 50
	for i := 0; i < n; i++ {
		f.Broadcast("conv-1", []*Client{c}, []byte(fmt.Sprintf("m%03d", i)))
	}
	for i := 0; i < n; i++ {
		require.Equal(t, fmt.Sprintf("m%03d", i), string(recv(t, c)))
	}
}

func TestBroadcastDropsWhenClientQueueFull(t *testing.T) {
	f := NewFanout(1, 16)
	defer f.Close()
	c := NewClient("conn-1", nil, 1)

	f.Broadcast("k", []*Client{c}, []byte("first"))
	f.Broadcast("k", []*Client{c}, []byte("second"))

	require.Equal(t, "first", string(recv(t, c)))
	select {
	case p := <-c.Send:
		// Worker scheduling may have delivered both before the queue
		// filled; order is still guaranteed.
		require.Equal(t, "second", string(p))
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBroadcastNoopOnEmptyInput(t *testing.T) {
	f := NewFanout(2, 8)
	defer f.Close()
	f.Broadcast("k", nil, []byte("x"))
	f.Broadcast("k", []*Client{NewClient("c", nil, 1)}, nil)
}

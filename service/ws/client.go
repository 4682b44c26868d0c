package ws

import (
	"time"

	"chatline/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 5 * time.Second
	pingPeriod = 30 * time.Second
)

// Client is one live websocket connection. UserID stays empty until the
// connection authenticates. All writes go through Send and are drained
// by a single writer goroutine; nothing else may call WriteMessage.
type Client struct {
	ConnID      string
	UserID      string
	DisplayName string

	ws   *websocket.Conn
	Send chan []byte
	done chan struct{}
}

func NewClient(connID string, ws *websocket.Conn, sendQueueSize int) *Client {
	return &Client{
		ConnID: connID,
		ws:     ws,
		Send:   make(chan []byte, sendQueueSize),
		done:   make(chan struct{}),
	}
}

// Enqueue queues a payload for the writer goroutine. A full queue drops
// the payload instead of blocking the caller; slow consumers never stall
// fan-out for everyone else.
func (c *Client) Enqueue(payload []byte) bool {
	select {
	case c.Send <- payload:
		return true
	case <-c.done:
		return false
	default:
		logger.Warnf("[ws] send queue full, drop conn=%s user=%s", c.ConnID, c.UserID)
		return false
	}
}

// WritePump is the single writer for the connection. It exits when
// Close is called or the peer stops responding to pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case payload := <-c.Send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.Infof("[ws] write failed conn=%s err=%v", c.ConnID, err)
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Client) Close() {
	select {
	case <-c.done:
	default:
		close(c.done)
	}
}

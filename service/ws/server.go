package ws

import (
	"context"
	"net"
	"net/http"
	"sync"

	"chatline/logger"
	"chatline/tools/ids"
	"chatline/tools/safe"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Deliverer fans a persisted message out to live connections. Satisfied
// by the message router; injected so tests can observe deliveries.
type Deliverer interface {
	Deliver(ctx context.Context, p ChatPayload) error
}

const defaultSendQueue = 256

// Server owns the websocket side: it upgrades connections, runs one
// read loop per connection, and dispatches inbound events. All presence
// mutation funnels through the registry; the server never touches the
// persistent store while holding registry state.
type Server struct {
	reg       *Registry
	fan       *Fanout
	disp      *Dispatcher
	deliverer Deliverer

	// snapMu makes snapshot-read and fanout-enqueue one atomic step, so
	// the presence feed is enqueued in snapshot order and never goes
	// backwards for any client.
	snapMu sync.Mutex
}

func NewServer(reg *Registry, fan *Fanout, deliverer Deliverer) *Server {
	s := &Server{reg: reg, fan: fan, disp: NewDispatcher(), deliverer: deliverer}
	s.disp.Register(authenticateHandler{})
	s.disp.Register(joinRoomHandler{})
	s.disp.Register(chatRoomHandler{})
	s.disp.Register(typingHandler{})
	s.disp.Register(groupTypingHandler{})
	s.disp.Register(logoutHandler{})
	return s
}

func (s *Server) Registry() *Registry { return s.reg }

// HandleWS upgrades the request and serves the connection until the
// peer goes away. Handler errors are logged and the loop continues; a
// bad frame from one client must never take down the worker serving it.
func (s *Server) HandleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[ws] upgrade failed: %v", err)
		return
	}

	client := NewClient(ids.GenerateString(), conn, defaultSendQueue)
	s.reg.Register(client)
	safe.Go(client.WritePump)

	// The presence snapshot goes out immediately, before the client
	// authenticates, so the user list renders without waiting.
	s.sendSnapshotTo(client)

	for {
		mt, raw, rerr := conn.ReadMessage()
		if rerr != nil {
			if websocket.IsCloseError(rerr,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[ws] peer closed conn=%s", client.ConnID)
			} else if ne, ok := rerr.(net.Error); ok && ne.Timeout() {
				logger.Infof("[ws] read timeout conn=%s err=%v", client.ConnID, rerr)
			} else {
				logger.Infof("[ws] read err conn=%s err=%v", client.ConnID, rerr)
			}
			break
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		env, perr := ParseEnvelope(raw)
		if perr != nil {
			sample := raw
			if len(sample) > 256 {
				sample = sample[:256]
			}
			logger.Infof("[ws] bad frame conn=%s err=%v sample=%q", client.ConnID, perr, sample)
			continue
		}

		h, ok := s.disp.Get(env.Event)
		if !ok {
			logger.Infof("[ws] no handler for event=%s conn=%s", env.Event, client.ConnID)
			continue
		}
		if err := h.Handle(&Context{Srv: s}, env, client); err != nil {
			logger.Infof("[ws] handler event=%s conn=%s err=%v", env.Event, client.ConnID, err)
		}
	}

	if s.reg.Disconnect(client.ConnID) {
		logger.Infof("[ws] user offline user=%s conn=%s", client.UserID, client.ConnID)
		s.BroadcastSnapshot()
	}
	client.Close()
}

// BroadcastSnapshot pushes the full presence list to every connection.
// Full snapshots instead of deltas: every client converges without
// merge logic, and the keyed fanout keeps them monotonic per client.
func (s *Server) BroadcastSnapshot() {
	s.snapMu.Lock()
	defer s.snapMu.Unlock()

	payload, err := Encode(EvUserList, s.reg.Snapshot())
	if err != nil {
		logger.Errorf("[ws] encode snapshot: %v", err)
		return
	}
	s.fan.Broadcast(EvUserList, s.reg.AllClients(), payload)
}

func (s *Server) sendSnapshotTo(c *Client) {
	payload, err := Encode(EvUserList, s.reg.Snapshot())
	if err != nil {
		logger.Errorf("[ws] encode snapshot: %v", err)
		return
	}
	c.Enqueue(payload)
}

package router

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"chatline/logger"
	"chatline/module/chat/store"
	"chatline/service/notify"
	"chatline/service/ws"
)

// DeliveryReport describes how one message reached live connections.
type DeliveryReport struct {
	RoomConns int      // connections reached via the room subscription
	Direct    []string // participants notified out-of-band
	Degraded  bool     // conversation lookup failed; room-only delivery
}

const lockShards = 64

// Router fans a persisted message out: once to every connection
// subscribed to the conversation's room, then directly to online
// participants the room did not cover. Persistence always happens
// before Deliver is called, so a failure here delays notification but
// never loses data.
type Router struct {
	reg   *ws.Registry
	convs store.ConversationStore
	fan   *ws.Fanout
	pub   notify.Publisher

	// Sends within one conversation are serialized so delivery order
	// matches the order persistence acknowledged them.
	locks [lockShards]sync.Mutex
}

func New(reg *ws.Registry, convs store.ConversationStore, fan *ws.Fanout, pub notify.Publisher) *Router {
	if pub == nil {
		pub = notify.Noop{}
	}
	return &Router{reg: reg, convs: convs, fan: fan, pub: pub}
}

// Deliver satisfies ws.Deliverer. Fan-out problems are deliberately not
// surfaced to the sending connection: the message is already persisted.
func (r *Router) Deliver(ctx context.Context, p ws.ChatPayload) error {
	rep := r.DeliverReport(ctx, p)
	if rep.Degraded {
		logger.Warnf("[router] degraded delivery conv=%s room-only=%d", p.ConversationID, rep.RoomConns)
	}
	return nil
}

// DeliverReport runs the fan-out and reports what happened.
func (r *Router) DeliverReport(ctx context.Context, p ws.ChatPayload) DeliveryReport {
	mu := r.lockFor(p.ConversationID)
	mu.Lock()
	defer mu.Unlock()

	var rep DeliveryReport

	room := p.Room
	var participants []string
	conv, err := r.convs.Get(ctx, p.ConversationID)
	if err != nil {
		// Degrade to room-only delivery off the room name the client
		// supplied; participants we cannot resolve go without the
		// out-of-band notification until they next sync.
		rep.Degraded = true
		logger.Errorf("[router] conversation lookup conv=%s err=%v", p.ConversationID, err)
	} else {
		room = conv.RoomName
		participants = conv.Participants
	}

	msg := ws.RoomMessage{
		Room:           room,
		ConversationID: p.ConversationID,
		MessageID:      p.MessageID,
		SenderID:       p.SenderID,
		Message:        p.Message,
		CreatedAt:      time.Now(),
	}
	payload, encErr := ws.Encode(ws.EvChatRoom, msg)
	if encErr != nil {
		logger.Errorf("[router] encode conv=%s err=%v", p.ConversationID, encErr)
		return rep
	}

	// Step 1: everyone watching the room, whoever they are.
	roomConns := r.reg.RoomClients(room)
	seen := make(map[string]struct{}, len(roomConns))
	for _, c := range roomConns {
		seen[c.ConnID] = struct{}{}
	}
	r.fan.Broadcast(p.ConversationID, roomConns, payload)
	rep.RoomConns = len(roomConns)

	// Step 2: online participants the room didn't reach. The seen set
	// keyed by connection id is what prevents double delivery when a
	// participant is both a subscriber and presence-reachable.
	var direct []*ws.Client
	for _, uid := range participants {
		if uid == p.SenderID {
			continue
		}
		c, online := r.reg.Online(uid)
		if !online {
			continue
		}
		if _, dup := seen[c.ConnID]; dup {
			continue
		}
		seen[c.ConnID] = struct{}{}
		direct = append(direct, c)
		rep.Direct = append(rep.Direct, uid)
	}
	r.fan.Broadcast(p.ConversationID, direct, payload)

	r.publish(ctx, p, participants, rep)
	return rep
}

func (r *Router) publish(ctx context.Context, p ws.ChatPayload, participants []string, rep DeliveryReport) {
	recipients := make([]string, 0, len(participants))
	for _, uid := range participants {
		if uid != p.SenderID {
			recipients = append(recipients, uid)
		}
	}
	err := r.pub.PublishDelivered(ctx, notify.DeliveredEvent{
		MessageID:      p.MessageID,
		ConversationID: p.ConversationID,
		SenderID:       p.SenderID,
		Recipients:     recipients,
		Degraded:       rep.Degraded,
		CreatedAt:      time.Now(),
	})
	if err != nil {
		logger.Warnf("[router] publish delivered conv=%s err=%v", p.ConversationID, err)
	}
}

func (r *Router) lockFor(conversationID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(conversationID))
	return &r.locks[int(h.Sum32())%lockShards]
}

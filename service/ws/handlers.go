package ws

import (
	"context"

	"chatline/logger"
	"chatline/tools/errs"
)

type authenticateHandler struct{}

func (authenticateHandler) Event() string { return EvAuthenticate }

func (authenticateHandler) Handle(ctx *Context, env *Envelope, c *Client) error {
	var p AuthenticatePayload
	if err := DecodeData(env, &p); err != nil {
		return err
	}
	if p.UserID == "" {
		return errs.ErrValidation.WithDetail("authenticate requires userId")
	}
	ctx.Srv.reg.Authenticate(p.UserID, p.DisplayName, c)
	logger.Infof("[ws] authenticated user=%s conn=%s", p.UserID, c.ConnID)
	ctx.Srv.BroadcastSnapshot()
	return nil
}

type joinRoomHandler struct{}

func (joinRoomHandler) Event() string { return EvJoinRoom }

func (joinRoomHandler) Handle(ctx *Context, env *Envelope, c *Client) error {
	var p JoinRoomPayload
	if err := DecodeData(env, &p); err != nil {
		return err
	}
	if p.RoomName == "" {
		return errs.ErrValidation.WithDetail("joinRoom requires roomName")
	}
	ctx.Srv.reg.Join(p.RoomName, c)
	logger.Infof("[ws] join room=%s user=%s conn=%s", p.RoomName, c.UserID, c.ConnID)
	return nil
}

type chatRoomHandler struct{}

func (chatRoomHandler) Event() string { return EvChatRoom }

// Handle runs the fan-out synchronously on the connection's read loop:
// a client's sends reach the router in the order it issued them, and
// the router serializes per conversation from there.
func (chatRoomHandler) Handle(ctx *Context, env *Envelope, c *Client) error {
	var p ChatPayload
	if err := DecodeData(env, &p); err != nil {
		return err
	}
	if p.ConversationID == "" || p.SenderID == "" {
		return errs.ErrValidation.WithDetail("chatRoom requires conversationId and senderId")
	}
	return ctx.Srv.deliverer.Deliver(context.Background(), p)
}

type typingHandler struct{}

func (typingHandler) Event() string { return EvTyping }

// Typing state is fire and forget: no persistence, no retry, the client
// clears its own indicator after the idle window.
func (typingHandler) Handle(ctx *Context, env *Envelope, c *Client) error {
	var p TypingPayload
	if err := DecodeData(env, &p); err != nil {
		return err
	}
	payload, err := Encode(EvUserTyping, p)
	if err != nil {
		return errs.Wrap(err)
	}
	ctx.Srv.fan.Broadcast(p.Room, roomPeers(ctx.Srv.reg, p.Room, c.ConnID), payload)
	return nil
}

type groupTypingHandler struct{}

func (groupTypingHandler) Event() string { return EvGroupTyping }

func (groupTypingHandler) Handle(ctx *Context, env *Envelope, c *Client) error {
	var p GroupTypingPayload
	if err := DecodeData(env, &p); err != nil {
		return err
	}
	payload, err := Encode(EvGroupTyping, p)
	if err != nil {
		return errs.Wrap(err)
	}
	ctx.Srv.fan.Broadcast(p.Room, roomPeers(ctx.Srv.reg, p.Room, c.ConnID), payload)
	return nil
}

type logoutHandler struct{}

func (logoutHandler) Event() string { return EvLogout }

func (logoutHandler) Handle(ctx *Context, env *Envelope, c *Client) error {
	var p LogoutPayload
	if err := DecodeData(env, &p); err != nil {
		return err
	}
	if p.UserID == "" {
		p.UserID = c.UserID
	}
	if ctx.Srv.reg.Logout(p.UserID) {
		logger.Infof("[ws] logout user=%s", p.UserID)
		ctx.Srv.BroadcastSnapshot()
	}
	return nil
}

// roomPeers returns the room's connections minus the sender.
func roomPeers(reg *Registry, room, senderConnID string) []*Client {
	conns := reg.RoomClients(room)
	out := conns[:0]
	for _, rc := range conns {
		if rc.ConnID != senderConnID {
			out = append(out, rc)
		}
	}
	return out
}

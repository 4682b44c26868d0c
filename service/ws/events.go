package ws

import (
	"encoding/json"
	"time"

	"chatline/tools/errs"

	"github.com/mitchellh/mapstructure"
)

// Client -> server events.
const (
	EvAuthenticate = "authenticate"
	EvJoinRoom     = "joinRoom"
	EvChatRoom     = "chatRoom" // also server -> client
	EvTyping       = "typing"
	EvGroupTyping  = "groupTyping" // also server -> client
	EvLogout       = "userLogout"
)

// Server -> client events.
const (
	EvUserList   = "userListUpdate"
	EvUserTyping = "userTyping"
)

// Envelope is the wire frame: an event name plus raw data that each
// handler decodes into its own payload. Data stays raw here because
// outbound frames carry arrays (the presence snapshot) as well as
// objects.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func ParseEnvelope(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, errs.ErrValidation.WrapMsg("malformed frame", "err", err)
	}
	if env.Event == "" {
		return nil, errs.ErrValidation.WithDetail("frame missing event")
	}
	return &env, nil
}

// DecodeData fills a typed payload from the envelope's data object,
// honoring the payload's json tags. Array payloads (the presence
// snapshot) are unmarshaled by the caller directly from env.Data.
func DecodeData(env *Envelope, out any) error {
	var fields map[string]any
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &fields); err != nil {
			return errs.ErrValidation.WrapMsg("bad payload", "event", env.Event, "err", err)
		}
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    "json",
		Result:     out,
		DecodeHook: mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
	})
	if err != nil {
		return errs.Wrap(err)
	}
	if err := dec.Decode(fields); err != nil {
		return errs.ErrValidation.WrapMsg("bad payload", "event", env.Event, "err", err)
	}
	return nil
}

// Encode builds an outbound frame.
func Encode(event string, data any) ([]byte, error) {
	return json.Marshal(map[string]any{"event": event, "data": data})
}

type AuthenticatePayload struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type JoinRoomPayload struct {
	RoomName    string `json:"roomName"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

// ChatPayload triggers fan-out of an already persisted message.
type ChatPayload struct {
	Room           string `json:"room"`
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
	SenderID       string `json:"senderId"`
	Message        string `json:"message"`
}

// RoomMessage is the delivered form, stamped with the persistence time.
type RoomMessage struct {
	Room           string    `json:"room"`
	ConversationID string    `json:"conversationId"`
	MessageID      string    `json:"messageId,omitempty"`
	SenderID       string    `json:"senderId"`
	Message        string    `json:"message"`
	CreatedAt      time.Time `json:"createdAt"`
}

type TypingPayload struct {
	Room     string `json:"room"`
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

type GroupTypingPayload struct {
	Room     string `json:"room"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

type LogoutPayload struct {
	UserID string `json:"userId"`
}

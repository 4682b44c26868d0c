package notify

import (
	"context"
	"encoding/json"
	"time"

	"chatline/global/config"
	"chatline/tools/errs"

	"github.com/nats-io/nats.go"
)

// DeliveredEvent is published after a message has been persisted and
// fanned out, for external consumers (push notification senders,
// archival). Delivery of the event itself is best effort.
type DeliveredEvent struct {
	MessageID      string    `json:"messageId"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	Recipients     []string  `json:"recipients"`
	Degraded       bool      `json:"degraded"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Publisher is what the router sees; the zero-value Noop keeps call
// sites unconditional.
type Publisher interface {
	PublishDelivered(ctx context.Context, e DeliveredEvent) error
}

type Noop struct{}

func (Noop) PublishDelivered(context.Context, DeliveredEvent) error { return nil }

type NatsPublisher struct {
	nc      *nats.Conn
	subject string
}

func NewNatsPublisher(cfg config.NatsConfig) (*NatsPublisher, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name("chatline"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, errs.WrapMsg(err, "nats connect", "url", cfg.URL)
	}
	return &NatsPublisher{nc: nc, subject: cfg.Subject}, nil
}

func (p *NatsPublisher) PublishDelivered(_ context.Context, e DeliveredEvent) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return errs.WrapMsg(err, "marshal delivered event")
	}
	return errs.WrapMsg(p.nc.Publish(p.subject, raw), "publish delivered event")
}

func (p *NatsPublisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}

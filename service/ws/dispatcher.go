package ws

// Handler processes one inbound event type.
type Handler interface {
	Event() string
	Handle(ctx *Context, env *Envelope, c *Client) error
}

// Context hands handlers the server without exposing its internals.
type Context struct {
	Srv *Server
}

type Dispatcher struct {
	handlers map[string]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]Handler)}
}

func (d *Dispatcher) Register(h Handler) { d.handlers[h.Event()] = h }

func (d *Dispatcher) Get(event string) (Handler, bool) {
	h, ok := d.handlers[event]
	return h, ok
}

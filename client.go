package sioclient

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/buger/jsonparser"

	"github.com/ramory-l/sioclient/transport"
)

// Reserved event names raised by the client itself
const (
	// EventOpen fires when the server completes the protocol handshake
	EventOpen = "open"

	// EventClose fires when the server sends an engine-level close
	EventClose = "close"

	// EventConnect fires when Drain observes the transport coming up
	EventConnect = "connect"

	// EventDisconnect fires when Drain observes the transport going down
	EventDisconnect = "disconnect"
)

// Client is a Socket.IO client. It owns the transport lifecycle, keeps
// the connection alive with a heartbeat, and hands inbound events and
// acknowledgments to the host through Drain.
//
// All user handlers run inside Drain, on whichever goroutine the host
// calls it from. The host is expected to call Drain at a regular
// cadence (for example once per frame or tick).
type Client struct {
	cfg Config
	log *slog.Logger
	tr  transport.Transport

	handlers handlerRegistry
	acks     ackRegistry
	events   *dispatchQueue
	ackQueue *dispatchQueue
	metrics  *clientMetrics

	// connected is the user-intended state; the background loops run
	// while it is true. transportConnected is the state last observed
	// by Drain. The heartbeat flags have a single writer each, so
	// atomics are enough.
	connected          atomic.Bool
	transportConnected atomic.Bool
	pingInFlight       atomic.Bool
	pongReceived       atomic.Bool

	retryActive     atomic.Bool
	heartbeatActive atomic.Bool

	sidMu sync.RWMutex
	sid   string
}

// New creates a client for the given configuration. A nil config uses
// defaults, but either Config.URL or Config.Transport must be set.
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	conf := cfg.withDefaults()

	tr := conf.Transport
	if tr == nil {
		if conf.URL == "" {
			return nil, fmt.Errorf("sioclient: either URL or Transport must be set")
		}
		ws, err := transport.NewWebSocket(conf.URL, conf.Logger)
		if err != nil {
			return nil, err
		}
		tr = ws
	}

	c := &Client{
		cfg:      conf,
		log:      conf.Logger,
		tr:       tr,
		events:   newDispatchQueue(),
		ackQueue: newDispatchQueue(),
		metrics:  newClientMetrics(conf.Metrics),
	}

	tr.OnMessage(c.handleMessage)
	tr.OnError(func(err error) {
		c.log.Warn("transport error", "err", err)
	})

	if conf.AutoConnect {
		c.Connect()
	}

	return c, nil
}

// Connect marks the client as wanting a connection and starts the
// retry and heartbeat loops if they are not already running. It does
// not block; connection progress is observable through the "connect"
// event and IsConnected.
func (c *Client) Connect() {
	c.connected.Store(true)

	if c.retryActive.CompareAndSwap(false, true) {
		go func() {
			defer c.retryActive.Store(false)
			c.retryLoop()
		}()
	}
	if c.heartbeatActive.CompareAndSwap(false, true) {
		go func() {
			defer c.heartbeatActive.Store(false)
			c.heartbeatLoop()
		}()
	}
}

// Close says goodbye to the server (best effort) and stops the
// background loops. The loops observe the intent flag on their next
// wake-up and the retry loop closes the transport on its way out.
func (c *Client) Close() {
	c.send(Packet{Engine: EngineMessage, Socket: SocketDisconnect, Namespace: "/", ID: -1})
	c.send(Packet{Engine: EngineClose, ID: -1})

	c.connected.Store(false)
}

// On registers a handler for the named event. Handlers are additive:
// every registered handler for a name runs on each matching event, in
// registration order.
func (c *Client) On(name string, fn EventHandler) Subscription {
	return c.handlers.on(name, fn)
}

// Off removes exactly the registration identified by sub. Removing an
// unknown subscription is a no-op.
func (c *Client) Off(sub Subscription) {
	if !c.handlers.off(sub) {
		c.log.Debug("off: no such subscription", "event", sub.name)
	}
}

// Emit sends an event to the server, fire and forget
func (c *Client) Emit(name string, args ...interface{}) error {
	return c.emit(name, -1, args)
}

// EmitWithAck sends an event and registers ack to receive the server's
// reply. The reply is delivered during a later Drain; if none arrives
// within AckExpiration the registration is dropped and ack is never
// invoked.
func (c *Client) EmitWithAck(name string, ack AckFunc, args ...interface{}) error {
	id := c.acks.next()
	c.acks.register(id, ack)
	return c.emit(name, id, args)
}

// IsConnected reports whether the transport currently holds a
// connection
func (c *Client) IsConnected() bool {
	return c.tr.IsConnected()
}

// Sid returns the last session id assigned by the server, or "" before
// the first handshake
func (c *Client) Sid() string {
	c.sidMu.RLock()
	defer c.sidMu.RUnlock()
	return c.sid
}

// Drain dispatches everything queued since the previous call: inbound
// events, acknowledgment replies, and synthesized connectivity events.
// It also sweeps expired acknowledgments. Drain is the only place user
// handlers are invoked and must be called from a single goroutine.
func (c *Client) Drain() {
	for _, v := range c.events.drain() {
		c.dispatch(v.(Event))
	}

	for _, v := range c.ackQueue.drain() {
		p := v.(Packet)
		fn, ok := c.acks.take(p.ID)
		if !ok {
			// Expired between enqueue and drain. Not an error.
			continue
		}
		args, _ := p.Payload.([]interface{})
		c.invoke("ack", fn, args)
	}

	if now := c.tr.IsConnected(); now != c.transportConnected.Load() {
		c.transportConnected.Store(now)
		if now {
			c.dispatch(Event{Name: EventConnect})
		} else {
			c.dispatch(Event{Name: EventDisconnect})
		}
	}

	if n := c.acks.sweep(time.Now(), c.cfg.AckExpiration); n > 0 {
		c.metrics.addAcksExpired(n)
		c.log.Debug("swept expired acks", "count", n)
	}
}

func (c *Client) emit(name string, id int, args []interface{}) error {
	payload := make([]interface{}, 0, len(args)+1)
	payload = append(payload, name)
	payload = append(payload, args...)

	return c.send(Packet{
		Engine:    EngineMessage,
		Socket:    SocketEvent,
		Namespace: "/",
		ID:        id,
		Payload:   payload,
	})
}

// send encodes and writes one packet. Failures are logged and returned;
// the protocol engine itself never retries a failed send.
func (c *Client) send(p Packet) error {
	encoded, err := p.Encode()
	if err != nil {
		c.log.Warn("dropping unencodable packet", "packet", p.String(), "err", err)
		return err
	}

	if err := c.tr.Send(encoded); err != nil {
		c.log.Warn("send failed", "packet", p.String(), "err", err)
		return err
	}

	c.metrics.incSent()
	return nil
}

// handleMessage runs on the transport's callback goroutine. It decodes
// the frame and routes it; user handlers are never invoked here.
func (c *Client) handleMessage(raw string) {
	c.metrics.incReceived()

	p, err := Decode(raw)
	if err != nil {
		c.metrics.incDecodeErrors()
		c.log.Warn("dropping malformed frame", "err", err)
		return
	}

	switch p.Engine {
	case EngineOpen:
		c.handleOpen(raw, p)
	case EngineClose:
		c.events.push(Event{Name: EventClose})
	case EnginePing:
		// Server-initiated heartbeat, distinct from our own ping loop
		c.send(Packet{Engine: EnginePong, ID: -1})
	case EnginePong:
		c.pongReceived.Store(true)
		c.pingInFlight.Store(false)
	case EngineMessage:
		c.handleMessagePacket(p)
	}
}

func (c *Client) handleOpen(raw string, p Packet) {
	if len(raw) > 1 {
		sid, err := jsonparser.GetString([]byte(raw[1:]), "sid")
		if err != nil {
			c.log.Warn("handshake without sid", "payload", raw[1:], "err", err)
		} else {
			c.sidMu.Lock()
			c.sid = sid
			c.sidMu.Unlock()
			c.log.Debug("session opened", "sid", sid)
		}
	}

	c.events.push(Event{Name: EventOpen, Args: []interface{}{p.Payload}})
}

func (c *Client) handleMessagePacket(p Packet) {
	if p.Payload == nil {
		return
	}

	switch p.Socket {
	case SocketAck:
		if !c.acks.has(p.ID) {
			// An ack for an unknown or expired id is dropped, not an
			// error.
			c.log.Debug("ack for unknown id", "id", p.ID)
			return
		}
		c.ackQueue.push(p)
	case SocketEvent:
		ev, err := eventFromPayload(p.Payload)
		if err != nil {
			c.log.Warn("dropping malformed event", "packet", p.String(), "err", err)
			return
		}
		c.events.push(ev)
	}
}

func eventFromPayload(payload interface{}) (Event, error) {
	arr, ok := payload.([]interface{})
	if !ok || len(arr) == 0 {
		return Event{}, fmt.Errorf("event payload is not a non-empty array")
	}

	name, ok := arr[0].(string)
	if !ok {
		return Event{}, fmt.Errorf("event name is not a string")
	}

	return Event{Name: name, Args: arr[1:]}, nil
}

func (c *Client) dispatch(ev Event) {
	for _, fn := range c.handlers.get(ev.Name) {
		c.invoke(ev.Name, fn, ev.Args)
	}
}

// invoke runs one handler, containing panics so a failing handler
// cannot block the rest of the drain.
func (c *Client) invoke(name string, fn func(args ...interface{}), args []interface{}) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("handler panicked", "event", name, "panic", r)
		}
	}()
	fn(args...)
}

// retryLoop keeps the transport connected while the client wants to
// be. Level-triggered: a fixed delay between attempts, no backoff, no
// attempt cap. It is the only goroutine that calls Connect on the
// transport.
func (c *Client) retryLoop() {
	for c.connected.Load() {
		if c.tr.IsConnected() {
			time.Sleep(c.cfg.ReconnectDelay)
			continue
		}

		c.metrics.incConnectAttempts()
		if err := c.tr.Connect(); err != nil {
			c.log.Warn("connect failed, will retry", "err", err, "delay", c.cfg.ReconnectDelay)
			time.Sleep(c.cfg.ReconnectDelay)
		}
	}

	if err := c.tr.Close(); err != nil {
		c.log.Debug("close on shutdown", "err", err)
	}
}

// heartbeatLoop probes the connection with engine pings. A missing
// pong within PingTimeout closes the transport, which the retry loop
// then picks up as a reconnect.
func (c *Client) heartbeatLoop() {
	for c.connected.Load() {
		if !c.tr.IsConnected() {
			time.Sleep(c.cfg.PollInterval)
			continue
		}

		c.pingInFlight.Store(true)
		c.pongReceived.Store(false)
		c.send(Packet{Engine: EnginePing, ID: -1})
		sent := time.Now()

		for c.tr.IsConnected() && c.pingInFlight.Load() && time.Since(sent) < c.cfg.PingTimeout {
			time.Sleep(c.cfg.PollInterval)
		}

		if !c.pongReceived.Load() {
			c.log.Warn("ping timeout, closing transport", "timeout", c.cfg.PingTimeout)
			c.tr.Close()
		}

		time.Sleep(c.cfg.PingInterval)
	}
}

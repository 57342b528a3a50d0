// Package sioclient provides a Socket.IO v2 client implementation in Go.
//
// This library implements the Engine.IO 3 / Socket.IO v2 text protocol
// over WebSocket transport. It is built for host applications that run
// their own update loop (game engines, simulation frameworks, terminal
// UIs): inbound traffic is queued on the network goroutine and all user
// handlers run inside Drain, on the host's own goroutine.
//
// # Features
//
//   - Socket.IO v2 protocol over WebSocket (Engine.IO 3)
//   - Event emission with acknowledgment callbacks
//   - Automatic reconnection at a fixed interval
//   - Client-driven heartbeat with dead-connection detection
//   - Single-goroutine handler dispatch via Drain
//   - Optional Prometheus metrics
//
// # Quick Start
//
//	client, err := sioclient.New(&sioclient.Config{
//	    URL:         "http://localhost:3000",
//	    AutoConnect: true,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	client.On("news", func(args ...interface{}) {
//	    log.Printf("news: %v", args)
//	})
//
//	for range time.Tick(50 * time.Millisecond) {
//	    client.Drain()
//	}
//
// # Events
//
// Handlers are additive: every handler registered for a name runs on
// each matching event, in registration order. On returns a Subscription
// used to remove that one registration:
//
//	sub := client.On("chat", onChat)
//	client.Off(sub)
//
// Besides server events, the client raises "open" and "close" for the
// protocol handshake, and "connect"/"disconnect" whenever Drain
// observes the transport state change.
//
// # Acknowledgments
//
// Request a reply from the server:
//
//	client.EmitWithAck("question", func(args ...interface{}) {
//	    log.Printf("server answered: %v", args)
//	}, "What's your name?")
//
// The reply callback runs inside a later Drain. Replies that do not
// arrive within Config.AckExpiration are dropped and the callback is
// never invoked.
//
// # Connection lifecycle
//
// Connect is a statement of intent, not a blocking dial: a background
// loop connects the transport and keeps reconnecting at
// Config.ReconnectDelay for as long as the client stays open. A second
// loop sends heartbeat pings every Config.PingInterval and closes a
// connection whose pong does not arrive within Config.PingTimeout,
// handing it back to the retry loop.
//
// # Thread Safety
//
// Emit, EmitWithAck, On and Off are goroutine-safe. Drain must be
// called from a single goroutine; it is the only place handlers are
// invoked, so handler code never needs its own locking against the
// network goroutine.
package sioclient

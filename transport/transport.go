// Package transport provides the byte-stream transport boundary for the
// sioclient protocol engine: an abstract Transport capability plus a
// WebSocket implementation.
package transport

import "errors"

// ErrNotConnected is returned by Send when the transport is down
var ErrNotConnected = errors.New("transport not connected")

// Transport is an abstract bidirectional byte-stream channel. Connect
// and Close are owned by the client's background loops; the four
// notification callbacks fire asynchronously on the transport's own
// goroutine.
type Transport interface {
	// Connect establishes the underlying connection. Connecting an
	// already-connected transport is a no-op.
	Connect() error

	// Close tears the connection down. Closing twice is a no-op.
	Close() error

	// Send writes a single text frame. Fails with ErrNotConnected when
	// the transport is down.
	Send(msg string) error

	// IsConnected reports the last observed connection state
	IsConnected() bool

	// OnOpen registers the connection-established callback
	OnOpen(fn func())

	// OnMessage registers the frame-arrival callback
	OnMessage(fn func(msg string))

	// OnError registers the error callback
	OnError(fn func(err error))

	// OnClose registers the connection-lost callback
	OnClose(fn func())
}

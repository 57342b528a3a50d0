package transport

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// WebSocket is the Transport implementation over a WebSocket
// connection, speaking Engine.IO 3 (Socket.IO v2) text framing.
type WebSocket struct {
	url    string
	log    *slog.Logger
	dialer *websocket.Dialer

	conn      *websocket.Conn
	connMu    sync.Mutex
	connected atomic.Bool

	cbMu      sync.RWMutex
	onOpen    func()
	onMessage func(string)
	onError   func(error)
	onClose   func()
}

// NewWebSocket creates a WebSocket transport for the given server
// address. http/https schemes are rewritten to ws/wss and the standard
// /socket.io/ path and Engine.IO query parameters are applied.
func NewWebSocket(addr string, logger *slog.Logger) (*WebSocket, error) {
	if addr == "" {
		return nil, fmt.Errorf("empty addr")
	}
	if logger == nil {
		logger = slog.Default()
	}

	u, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("parse addr: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}

	if u.Path == "" || u.Path == "/" {
		u.Path = "/socket.io/"
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	query := u.Query()
	query.Set("EIO", "3")
	query.Set("transport", "websocket")
	u.RawQuery = query.Encode()

	return &WebSocket{
		url:    u.String(),
		log:    logger,
		dialer: websocket.DefaultDialer,
	}, nil
}

// URL returns the fully qualified dial target
func (w *WebSocket) URL() string {
	return w.url
}

// Connect dials the server and starts the read pump. Connecting an
// already-connected transport is a no-op.
func (w *WebSocket) Connect() error {
	w.connMu.Lock()
	defer w.connMu.Unlock()

	if w.connected.Load() {
		return nil
	}

	conn, _, err := w.dialer.Dial(w.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", w.url, err)
	}

	w.conn = conn
	w.connected.Store(true)
	w.log.Debug("websocket connected", "url", w.url)

	go w.readPump(conn)

	if fn := w.openCallback(); fn != nil {
		fn()
	}

	return nil
}

// Close tears the connection down. Closing twice is a no-op.
func (w *WebSocket) Close() error {
	w.connMu.Lock()
	defer w.connMu.Unlock()
	return w.closeLocked()
}

func (w *WebSocket) closeLocked() error {
	if !w.connected.Swap(false) {
		return nil
	}

	err := w.conn.Close()
	w.conn = nil

	if fn := w.closeCallback(); fn != nil {
		fn()
	}
	return err
}

// Send writes a single text frame
func (w *WebSocket) Send(msg string) error {
	w.connMu.Lock()
	defer w.connMu.Unlock()

	if !w.connected.Load() || w.conn == nil {
		return ErrNotConnected
	}
	return w.conn.WriteMessage(websocket.TextMessage, []byte(msg))
}

// IsConnected reports the last observed connection state
func (w *WebSocket) IsConnected() bool {
	return w.connected.Load()
}

// OnOpen registers the connection-established callback
func (w *WebSocket) OnOpen(fn func()) {
	w.cbMu.Lock()
	w.onOpen = fn
	w.cbMu.Unlock()
}

// OnMessage registers the frame-arrival callback
func (w *WebSocket) OnMessage(fn func(string)) {
	w.cbMu.Lock()
	w.onMessage = fn
	w.cbMu.Unlock()
}

// OnError registers the error callback
func (w *WebSocket) OnError(fn func(error)) {
	w.cbMu.Lock()
	w.onError = fn
	w.cbMu.Unlock()
}

// OnClose registers the connection-lost callback
func (w *WebSocket) OnClose(fn func()) {
	w.cbMu.Lock()
	w.onClose = fn
	w.cbMu.Unlock()
}

func (w *WebSocket) readPump(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			w.connMu.Lock()
			// A stale pump for an already-replaced conn must not tear
			// down the current one.
			if w.conn == conn {
				if !w.isExpectedClose(err) {
					w.log.Debug("websocket read failed", "err", err)
					if fn := w.errorCallback(); fn != nil {
						fn(err)
					}
				}
				w.closeLocked()
			}
			w.connMu.Unlock()
			return
		}

		if fn := w.messageCallback(); fn != nil {
			fn(string(data))
		}
	}
}

func (w *WebSocket) isExpectedClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}

func (w *WebSocket) openCallback() func() {
	w.cbMu.RLock()
	defer w.cbMu.RUnlock()
	return w.onOpen
}

func (w *WebSocket) messageCallback() func(string) {
	w.cbMu.RLock()
	defer w.cbMu.RUnlock()
	return w.onMessage
}

func (w *WebSocket) errorCallback() func(error) {
	w.cbMu.RLock()
	defer w.cbMu.RUnlock()
	return w.onError
}

func (w *WebSocket) closeCallback() func() {
	w.cbMu.RLock()
	defer w.cbMu.RUnlock()
	return w.onClose
}

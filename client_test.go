package sioclient

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ramory-l/sioclient/transport"
)

// fakeTransport is an in-memory Transport for driving the client
// without a network
type fakeTransport struct {
	mu           sync.Mutex
	connected    bool
	sent         []string
	connectCalls int
	closeCalls   int
	connectErr   error

	onOpen    func()
	onMessage func(string)
	onError   func(error)
	onClose   func()
}

var _ transport.Transport = (*fakeTransport)(nil)

func (f *fakeTransport) Connect() error {
	f.mu.Lock()
	f.connectCalls++
	if f.connectErr != nil {
		err := f.connectErr
		f.mu.Unlock()
		return err
	}
	f.connected = true
	fn := f.onOpen
	f.mu.Unlock()

	if fn != nil {
		fn()
	}
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	f.closeCalls++
	wasConnected := f.connected
	f.connected = false
	fn := f.onClose
	f.mu.Unlock()

	if wasConnected && fn != nil {
		fn()
	}
	return nil
}

func (f *fakeTransport) Send(msg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.connected {
		return transport.ErrNotConnected
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeTransport) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeTransport) OnOpen(fn func()) {
	f.mu.Lock()
	f.onOpen = fn
	f.mu.Unlock()
}

func (f *fakeTransport) OnMessage(fn func(string)) {
	f.mu.Lock()
	f.onMessage = fn
	f.mu.Unlock()
}

func (f *fakeTransport) OnError(fn func(error)) {
	f.mu.Lock()
	f.onError = fn
	f.mu.Unlock()
}

func (f *fakeTransport) OnClose(fn func()) {
	f.mu.Lock()
	f.onClose = fn
	f.mu.Unlock()
}

// receive simulates a frame arriving from the server
func (f *fakeTransport) receive(raw string) {
	f.mu.Lock()
	fn := f.onMessage
	f.mu.Unlock()
	fn(raw)
}

func (f *fakeTransport) sentFrames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func (f *fakeTransport) setConnected(v bool) {
	f.mu.Lock()
	f.connected = v
	f.mu.Unlock()
}

func (f *fakeTransport) closes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeCalls
}

func (f *fakeTransport) connects() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connectCalls
}

func newTestClient(t *testing.T, tr *fakeTransport, mutate func(*Config)) *Client {
	t.Helper()

	cfg := &Config{
		Transport:      tr,
		ReconnectDelay: 10 * time.Millisecond,
		AckExpiration:  time.Second,
		PingInterval:   20 * time.Millisecond,
		PingTimeout:    40 * time.Millisecond,
		PollInterval:   time.Millisecond,
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if mutate != nil {
		mutate(cfg)
	}

	c, err := New(cfg)
	assert.NoError(t, err)
	return c
}

func TestNewRequiresTarget(t *testing.T) {
	_, err := New(&Config{})
	assert.Error(t, err)
}

func TestEmitEncodesEventFrame(t *testing.T) {
	tr := &fakeTransport{connected: true}
	c := newTestClient(t, tr, nil)

	assert.NoError(t, c.Emit("ping"))
	assert.NoError(t, c.Emit("msg", "hello", float64(2)))

	assert.Equal(t, []string{`42["ping"]`, `42["msg","hello",2]`}, tr.sentFrames())
}

func TestEmitWhileDisconnected(t *testing.T) {
	tr := &fakeTransport{}
	c := newTestClient(t, tr, nil)

	err := c.Emit("ping")
	assert.ErrorIs(t, err, transport.ErrNotConnected)
	assert.Empty(t, tr.sentFrames())
}

func TestEmitWithAckInvokesCallbackOnce(t *testing.T) {
	tr := &fakeTransport{connected: true}
	c := newTestClient(t, tr, nil)

	var got [][]interface{}
	assert.NoError(t, c.EmitWithAck("hello", func(args ...interface{}) {
		got = append(got, args)
	}))

	// Ids start at 1 and ride on the event frame
	assert.Equal(t, []string{`421["hello"]`}, tr.sentFrames())
	assert.Equal(t, 1, c.acks.len())

	tr.receive(`431["world"]`)
	c.Drain()

	assert.Equal(t, [][]interface{}{{"world"}}, got)
	assert.Equal(t, 0, c.acks.len())

	// A second ack with the same id is dropped silently
	tr.receive(`431["again"]`)
	c.Drain()
	assert.Equal(t, [][]interface{}{{"world"}}, got)
}

func TestAckForUnknownIDDropped(t *testing.T) {
	tr := &fakeTransport{connected: true}
	c := newTestClient(t, tr, nil)

	tr.receive(`43999["orphan"]`)
	assert.Equal(t, 0, c.ackQueue.len())
	c.Drain()
}

func TestAckExpiredBetweenQueueAndDrain(t *testing.T) {
	tr := &fakeTransport{connected: true}
	c := newTestClient(t, tr, nil)

	invoked := false
	assert.NoError(t, c.EmitWithAck("hello", func(args ...interface{}) { invoked = true }))

	// The reply is queued while the registration still exists...
	tr.receive(`431["world"]`)
	assert.Equal(t, 1, c.ackQueue.len())

	// ...but expires before the host drains
	c.acks.sweep(time.Now().Add(time.Hour), c.cfg.AckExpiration)

	c.Drain()
	assert.False(t, invoked)
}

func TestAckExpirySweep(t *testing.T) {
	tr := &fakeTransport{connected: true}
	c := newTestClient(t, tr, func(cfg *Config) {
		cfg.AckExpiration = 5 * time.Millisecond
	})

	invoked := false
	assert.NoError(t, c.EmitWithAck("hello", func(args ...interface{}) { invoked = true }))
	assert.Equal(t, 1, c.acks.len())

	time.Sleep(10 * time.Millisecond)
	c.Drain()

	assert.Equal(t, 0, c.acks.len())
	assert.False(t, invoked)

	// A late reply after the sweep is dropped at the queuing step
	tr.receive(`431["late"]`)
	assert.Equal(t, 0, c.ackQueue.len())
}

func TestServerPingAnsweredWithPong(t *testing.T) {
	tr := &fakeTransport{connected: true}
	c := newTestClient(t, tr, nil)

	tr.receive("2")
	assert.Equal(t, []string{"3"}, tr.sentFrames())

	// Nothing is queued for the host by a heartbeat exchange
	c.Drain()
	assert.Equal(t, 0, c.events.len())
}

func TestPongClearsHeartbeatFlags(t *testing.T) {
	tr := &fakeTransport{connected: true}
	c := newTestClient(t, tr, nil)

	c.pingInFlight.Store(true)
	c.pongReceived.Store(false)

	tr.receive("3")
	assert.False(t, c.pingInFlight.Load())
	assert.True(t, c.pongReceived.Load())
}

func TestOpenHandshake(t *testing.T) {
	tr := &fakeTransport{connected: true}
	c := newTestClient(t, tr, nil)

	opened := 0
	c.On(EventOpen, func(args ...interface{}) { opened++ })

	tr.receive(`0{"sid":"abc123","pingInterval":25000}`)
	assert.Equal(t, "abc123", c.Sid())

	c.Drain()
	assert.Equal(t, 1, opened)
}

func TestEventDispatchOrder(t *testing.T) {
	tr := &fakeTransport{connected: true}
	c := newTestClient(t, tr, nil)

	var seen []string
	c.On("step", func(args ...interface{}) {
		seen = append(seen, args[0].(string))
	})

	tr.receive(`42["step","one"]`)
	tr.receive(`42["step","two"]`)
	tr.receive(`42["step","three"]`)
	c.Drain()

	assert.Equal(t, []string{"one", "two", "three"}, seen)
}

func TestOnOffAdditive(t *testing.T) {
	tr := &fakeTransport{connected: true}
	c := newTestClient(t, tr, nil)

	a, b := 0, 0
	subA := c.On("news", func(args ...interface{}) { a++ })
	c.On("news", func(args ...interface{}) { b++ })

	tr.receive(`42["news"]`)
	c.Drain()
	assert.Equal(t, 1, a)
	assert.Equal(t, 1, b)

	c.Off(subA)
	tr.receive(`42["news"]`)
	c.Drain()
	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
}

func TestHandlerPanicDoesNotBlockOthers(t *testing.T) {
	tr := &fakeTransport{connected: true}
	c := newTestClient(t, tr, nil)

	ran := false
	c.On("boom", func(args ...interface{}) { panic("handler bug") })
	c.On("boom", func(args ...interface{}) { ran = true })

	tr.receive(`42["boom"]`)
	assert.NotPanics(t, func() { c.Drain() })
	assert.True(t, ran)
}

func TestMalformedFramesDropped(t *testing.T) {
	tr := &fakeTransport{connected: true}
	c := newTestClient(t, tr, nil)

	got := 0
	c.On("ok", func(args ...interface{}) { got++ })

	tr.receive(`42[`)           // truncated payload
	tr.receive(`4x`)            // bad socket digit
	tr.receive(`42`)            // event with no payload
	tr.receive(`42[123]`)       // event name is not a string
	tr.receive(`42["ok"]`)      // still processed after the garbage
	c.Drain()

	assert.Equal(t, 1, got)
}

func TestConnectivityEdgeEvents(t *testing.T) {
	tr := &fakeTransport{}
	c := newTestClient(t, tr, nil)

	var seen []string
	c.On(EventConnect, func(args ...interface{}) { seen = append(seen, "connect") })
	c.On(EventDisconnect, func(args ...interface{}) { seen = append(seen, "disconnect") })

	// No edge yet
	c.Drain()
	assert.Empty(t, seen)

	tr.setConnected(true)
	c.Drain()
	c.Drain() // level, not edge: no duplicate
	tr.setConnected(false)
	c.Drain()

	assert.Equal(t, []string{"connect", "disconnect"}, seen)
}

func TestCloseSendsGoodbye(t *testing.T) {
	tr := &fakeTransport{connected: true}
	c := newTestClient(t, tr, nil)
	c.connected.Store(true)

	c.Close()

	assert.Equal(t, []string{"41", "1"}, tr.sentFrames())
	assert.False(t, c.connected.Load())
}

func TestRetryLoopConnectsAndReconnects(t *testing.T) {
	tr := &fakeTransport{}
	c := newTestClient(t, tr, nil)

	c.Connect()
	defer c.Close()

	assert.Eventually(t, func() bool {
		return tr.IsConnected()
	}, time.Second, time.Millisecond)

	// Simulate the connection dropping; the retry loop brings it back
	tr.setConnected(false)
	assert.Eventually(t, func() bool {
		return tr.IsConnected() && tr.connects() >= 2
	}, time.Second, time.Millisecond)
}

func TestHeartbeatTimeoutClosesTransport(t *testing.T) {
	tr := &fakeTransport{connected: true}
	c := newTestClient(t, tr, func(cfg *Config) {
		// Keep the retry loop quiet so the close is attributable to the
		// heartbeat
		cfg.ReconnectDelay = time.Hour
		cfg.PingInterval = time.Hour
		cfg.PingTimeout = 20 * time.Millisecond
	})

	c.Connect()
	defer c.connected.Store(false)

	// A ping goes out and no pong ever arrives
	assert.Eventually(t, func() bool {
		for _, f := range tr.sentFrames() {
			if f == "2" {
				return true
			}
		}
		return false
	}, time.Second, time.Millisecond)

	assert.Eventually(t, func() bool {
		return tr.closes() > 0
	}, time.Second, time.Millisecond)
}

func TestHeartbeatPongKeepsConnectionAlive(t *testing.T) {
	tr := &fakeTransport{connected: true}
	c := newTestClient(t, tr, func(cfg *Config) {
		cfg.ReconnectDelay = time.Hour
		cfg.PingInterval = 5 * time.Millisecond
		cfg.PingTimeout = 50 * time.Millisecond
	})

	// Answer every ping like a live server would
	done := make(chan struct{})
	defer close(done)
	go func() {
		seen := 0
		for {
			select {
			case <-done:
				return
			default:
			}
			frames := tr.sentFrames()
			for ; seen < len(frames); seen++ {
				if frames[seen] == "2" {
					tr.receive("3")
				}
			}
			time.Sleep(time.Millisecond)
		}
	}()

	c.Connect()
	defer c.connected.Store(false)

	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, tr.closes())
	assert.True(t, tr.IsConnected())
}

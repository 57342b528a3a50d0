package sioclient

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ramory-l/sioclient/transport"
)

// Config represents client configuration
type Config struct {
	// URL is the server address (http, https, ws or wss scheme).
	// Required unless a Transport is supplied.
	URL string

	// AutoConnect starts the connection as part of New
	AutoConnect bool

	// ReconnectDelay is the fixed interval between reconnection
	// attempts. There is no backoff growth and no attempt cap.
	ReconnectDelay time.Duration

	// AckExpiration is how long a pending acknowledgment is kept before
	// being swept without invoking its callback
	AckExpiration time.Duration

	// PingInterval is the pause between heartbeat probes
	PingInterval time.Duration

	// PingTimeout is how long to wait for a pong before the transport
	// is considered dead and closed
	PingTimeout time.Duration

	// PollInterval is the granularity of the background loops' naps.
	// Tests shrink this to keep heartbeat scenarios fast.
	PollInterval time.Duration

	// Logger is the structured logger for the client.
	// If nil, slog.Default() is used.
	Logger *slog.Logger

	// Metrics is the Prometheus registerer for client counters.
	// If nil, no metrics are collected.
	Metrics prometheus.Registerer

	// Transport overrides the WebSocket transport built from URL.
	// Mainly useful for testing.
	Transport transport.Transport
}

// DefaultConfig returns the default client configuration
func DefaultConfig() *Config {
	return &Config{
		ReconnectDelay: 5 * time.Second,
		AckExpiration:  30 * time.Second,
		PingInterval:   25 * time.Second,
		PingTimeout:    60 * time.Second,
		PollInterval:   100 * time.Millisecond,
	}
}

func (c *Config) withDefaults() Config {
	def := DefaultConfig()

	out := *c
	if out.ReconnectDelay <= 0 {
		out.ReconnectDelay = def.ReconnectDelay
	}
	if out.AckExpiration <= 0 {
		out.AckExpiration = def.AckExpiration
	}
	if out.PingInterval <= 0 {
		out.PingInterval = def.PingInterval
	}
	if out.PingTimeout <= 0 {
		out.PingTimeout = def.PingTimeout
	}
	if out.PollInterval <= 0 {
		out.PollInterval = def.PollInterval
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	return out
}

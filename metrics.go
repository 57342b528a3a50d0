package sioclient

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "sioclient"

// clientMetrics holds the optional Prometheus counters. A nil receiver
// is a no-op so the hot paths never branch on configuration.
type clientMetrics struct {
	packetsSent     prometheus.Counter
	packetsReceived prometheus.Counter
	decodeErrors    prometheus.Counter
	connectAttempts prometheus.Counter
	acksExpired     prometheus.Counter
}

func newClientMetrics(reg prometheus.Registerer) *clientMetrics {
	if reg == nil {
		return nil
	}

	factory := promauto.With(reg)
	return &clientMetrics{
		packetsSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "packets_sent_total",
			Help:      "Frames written to the transport.",
		}),
		packetsReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "packets_received_total",
			Help:      "Frames received from the transport.",
		}),
		decodeErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "decode_errors_total",
			Help:      "Inbound frames dropped as malformed.",
		}),
		connectAttempts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "connect_attempts_total",
			Help:      "Transport connection attempts by the retry loop.",
		}),
		acksExpired: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "acks_expired_total",
			Help:      "Pending acknowledgments swept without a reply.",
		}),
	}
}

func (m *clientMetrics) incSent() {
	if m != nil {
		m.packetsSent.Inc()
	}
}

func (m *clientMetrics) incReceived() {
	if m != nil {
		m.packetsReceived.Inc()
	}
}

func (m *clientMetrics) incDecodeErrors() {
	if m != nil {
		m.decodeErrors.Inc()
	}
}

func (m *clientMetrics) incConnectAttempts() {
	if m != nil {
		m.connectAttempts.Inc()
	}
}

func (m *clientMetrics) addAcksExpired(n int) {
	if m != nil {
		m.acksExpired.Add(float64(n))
	}
}

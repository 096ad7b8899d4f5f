package socks5

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "socks5"

// Metrics holds the Prometheus instruments this package populates. A nil
// *Metrics is always safe to use: every call site checks for nil before
// touching it, so metrics are opt-in.
type Metrics struct {
	Connections      prometheus.Gauge
	ConnectionsTotal prometheus.Counter
	AuthFailures     prometheus.Counter
	ConnectLatency   prometheus.Histogram
	Replies          *prometheus.CounterVec
	BytesSent        prometheus.Counter
	BytesReceived    prometheus.Counter
}

// NewMetrics registers a fresh set of SOCKS5 instruments against reg. Pass
// prometheus.DefaultRegisterer to use the global registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Connections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "connections_active",
			Help:      "Number of SOCKS5 connections currently established to a target.",
		}),
		ConnectionsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "connections_total",
			Help:      "Total number of SOCKS5 CONNECT requests that reached a target.",
		}),
		AuthFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "auth_failures_total",
			Help:      "Total number of rejected username/password sub-negotiations.",
		}),
		ConnectLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "connect_latency_seconds",
			Help:      "Latency of the outbound dial in the Request Engine.",
			Buckets:   prometheus.DefBuckets,
		}),
		Replies: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "replies_total",
			Help:      "SOCKS5 replies sent, labeled by reply code.",
		}, []string{"code"}),
		BytesSent: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "bytes_sent_total",
			Help:      "Bytes relayed from client to target.",
		}),
		BytesReceived: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "bytes_received_total",
			Help:      "Bytes relayed from target to client.",
		}),
	}
}

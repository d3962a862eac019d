package observability

import (
	"chat-presence/domain/event"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeDelivered = "delivered"
	OutcomeDropped   = "dropped"
	OutcomeFailed    = "failed"

	ConnectionOpened   = "connect"
	ConnectionReplaced = "replace"
	ConnectionClosed   = "disconnect"
	ConnectionStale    = "stale"
)

// Metrics owns a private registry so tests can build as many as they need.
type Metrics struct {
	registry    *prometheus.Registry
	onlineUsers prometheus.Gauge
	connections *prometheus.CounterVec
	broadcasts  prometheus.Counter
	deliveries  *prometheus.CounterVec
	httpReqCnt  *prometheus.CounterVec
	queueLength prometheus.Gauge
	queueCap    prometheus.Gauge
	processRSS  prometheus.Gauge
	processCPU  prometheus.Gauge
}

func NewMetrics(namespace string) *Metrics {
	r := prometheus.NewRegistry()
	r.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	r.MustRegister(collectors.NewGoCollector())

	onlineUsers := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "online_users"})
	connections := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "connection_events_total"}, []string{"event"})
	broadcasts := prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "roster_broadcasts_total"})
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "event_deliveries_total"}, []string{"kind", "outcome"})
	httpReqCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total"}, []string{"method", "route", "status"})
	queueLength := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "hub_queue_length"})
	queueCap := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "hub_queue_capacity"})
	processRSS := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "process_rss_bytes"})
	processCPU := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "process_cpu_percent"})
	r.MustRegister(onlineUsers, connections, broadcasts, deliveries, httpReqCnt,
		queueLength, queueCap, processRSS, processCPU)

	return &Metrics{
		registry:    r,
		onlineUsers: onlineUsers,
		connections: connections,
		broadcasts:  broadcasts,
		deliveries:  deliveries,
		httpReqCnt:  httpReqCnt,
		queueLength: queueLength,
		queueCap:    queueCap,
		processRSS:  processRSS,
		processCPU:  processCPU,
	}
}

func (m *Metrics) SetOnline(n int) {
	m.onlineUsers.Set(float64(n))
}

func (m *Metrics) ConnectionEvent(name string) {
	m.connections.WithLabelValues(name).Inc()
}

func (m *Metrics) RosterBroadcast() {
	m.broadcasts.Inc()
}

func (m *Metrics) Delivery(kind event.Kind, outcome string) {
	m.deliveries.WithLabelValues(string(kind), outcome).Inc()
}

func (m *Metrics) HTTPRequest(method, route, status string) {
	m.httpReqCnt.WithLabelValues(method, route, status).Inc()
}

func (m *Metrics) SetHubQueue(length, capacity int) {
	m.queueLength.Set(float64(length))
	m.queueCap.Set(float64(capacity))
}

func (m *Metrics) SetProcessUsage(rss uint64, cpuPercent float64) {
	m.processRSS.Set(float64(rss))
	m.processCPU.Set(cpuPercent)
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

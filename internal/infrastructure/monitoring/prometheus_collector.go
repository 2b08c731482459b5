package monitoring

import (
	"meetsignal/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusCollector implements ports.MetricsRecorder on top of
// prometheus/client_golang.
type PrometheusCollector struct {
	sessionsActive    prometheus.Gauge
	connectionsActive prometheus.Gauge
	waitingUsers      prometheus.Gauge

	joinsTotal        *prometheus.CounterVec
	eventsPushedTotal *prometheus.CounterVec
	sendFailuresTotal prometheus.Counter
	actionsTotal      *prometheus.CounterVec
}

func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		sessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "meetsignal_sessions_active",
			Help: "Number of live meeting sessions",
		}),

		connectionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "meetsignal_connections_active",
			Help: "Number of registered push channels",
		}),

		waitingUsers: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "meetsignal_waiting_users",
			Help: "Number of users in waiting rooms across all sessions",
		}),

		joinsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "meetsignal_joins_total",
			Help: "Join attempts by resolved role",
		}, []string{"role"}),

		eventsPushedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "meetsignal_events_pushed_total",
			Help: "Events delivered to push channels, by event type",
		}, []string{"type"}),

		sendFailuresTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "meetsignal_send_failures_total",
			Help: "Push-channel write failures",
		}),

		actionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "meetsignal_actions_dispatched_total",
			Help: "Actions dispatched through the router, by action tag",
		}, []string{"action"}),
	}
}

func (p *PrometheusCollector) RecordSessionStarted(domain.MeetingID) {
	p.sessionsActive.Inc()
}

func (p *PrometheusCollector) RecordSessionEnded(domain.MeetingID) {
	p.sessionsActive.Dec()
}

func (p *PrometheusCollector) RecordConnectionOpened() {
	p.connectionsActive.Inc()
}

func (p *PrometheusCollector) RecordConnectionClosed() {
	p.connectionsActive.Dec()
}

func (p *PrometheusCollector) RecordJoin(isHost bool) {
	role := "participant"
	if isHost {
		role = "host"
	}
	p.joinsTotal.WithLabelValues(role).Inc()
}

func (p *PrometheusCollector) RecordWaiting(delta int) {
	p.waitingUsers.Add(float64(delta))
}

func (p *PrometheusCollector) RecordEventPushed(eventType domain.EventType) {
	p.eventsPushedTotal.WithLabelValues(string(eventType)).Inc()
}

func (p *PrometheusCollector) RecordSendFailure() {
	p.sendFailuresTotal.Inc()
}

func (p *PrometheusCollector) RecordActionDispatched(action string) {
	p.actionsTotal.WithLabelValues(action).Inc()
}

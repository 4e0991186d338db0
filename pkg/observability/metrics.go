package observability

import (
	"context"
	"time"

	"github.com/albertviilik/pipecat-flows/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "flows"

// Metrics holds the collectors fed by the flow engine and the conversation driver.
type Metrics struct {
	nodeVisits       *prometheus.CounterVec
	actionsTotal     *prometheus.CounterVec
	actionDuration   *prometheus.HistogramVec
	directivesTotal  *prometheus.CounterVec
	conversationsEnd *prometheus.CounterVec
	providerRequests *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered, which is handy in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		nodeVisits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "node_visits_total",
				Help:      "Total number of node visits",
			},
			[]string{"node"},
		),
		actionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "actions_total",
				Help:      "Total number of dispatched actions",
			},
			[]string{"action", "kind", "status"}, // status: success, error
		),
		actionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "action_duration_seconds",
				Help:      "Duration of action handlers in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"action"},
		),
		directivesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "directives_total",
				Help:      "Total number of executed directives",
			},
			[]string{"directive", "phase", "status"},
		),
		conversationsEnd: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "conversations_ended_total",
				Help:      "Total number of ended conversations by final node",
			},
			[]string{"node"},
		),
		providerRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_requests_total",
				Help:      "Total number of LLM provider calls",
			},
			[]string{"provider", "status"},
		),
		providerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_request_duration_seconds",
				Help:      "Duration of LLM provider calls in seconds",
				Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"provider"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Collectors()...)
	}
	return m
}

// Collectors lists every collector for manual registration.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.nodeVisits,
		m.actionsTotal,
		m.actionDuration,
		m.directivesTotal,
		m.conversationsEnd,
		m.providerRequests,
		m.providerDuration,
	}
}

// Hooks returns lifecycle hooks recording into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) {
			m.nodeVisits.WithLabelValues(e.NodeID).Inc()
		},
		OnActionReturn: func(_ context.Context, e *domain.ActionEvent) {
			m.actionsTotal.WithLabelValues(e.Action, string(e.Kind), status(e.IsError)).Inc()
			m.actionDuration.WithLabelValues(e.Action).Observe(e.Duration.Seconds())
		},
		OnDirective: func(_ context.Context, e *domain.DirectiveEvent) {
			m.directivesTotal.WithLabelValues(e.Directive, e.Phase, status(e.Err != nil)).Inc()
		},
		OnConversationEnd: func(_ context.Context, e *domain.NodeEvent) {
			m.conversationsEnd.WithLabelValues(e.NodeID).Inc()
		},
	}
}

// ObserveProvider records one LLM provider round trip.
func (m *Metrics) ObserveProvider(provider string, d time.Duration, err error) {
	m.providerRequests.WithLabelValues(provider, status(err != nil)).Inc()
	m.providerDuration.WithLabelValues(provider).Observe(d.Seconds())
}

func status(failed bool) string {
	if failed {
		return "error"
	}
	return "success"
}

package observability

import (
	"context"
	"errors"

	"github.com/aretw0/huddle/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the runtime collectors.
type Metrics struct {
	Dispatched *prometheus.CounterVec
	Duration   *prometheus.HistogramVec
	Starts     *prometheus.CounterVec
	Ends       *prometheus.CounterVec
	Reactions  *prometheus.CounterVec
	Errors     *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Dispatched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "huddle_events_dispatched_total",
				Help: "Total number of events applied to a room",
			},
			[]string{"namespace", "action"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "huddle_dispatch_duration_seconds",
				Help:    "Time spent applying one event",
				Buckets: prometheus.ExponentialBuckets(0.00005, 4, 8),
			},
			[]string{"namespace"},
		),
		Starts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "huddle_activity_starts_total",
				Help: "Total number of activity starts",
			},
			[]string{"slug"},
		),
		Ends: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "huddle_activity_ends_total",
				Help: "Total number of activity ends",
			},
			[]string{"slug"},
		),
		Reactions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "huddle_reactions_total",
				Help: "Total number of reactions shown",
			},
			[]string{"symbol"},
		),
		Errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "huddle_errors_total",
				Help: "Total number of controller errors by kind",
			},
			[]string{"kind"},
		),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.Dispatched, m.Duration, m.Starts, m.Ends, m.Reactions, m.Errors} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnDispatch: func(_ context.Context, e *domain.DispatchEvent) {
			m.Dispatched.WithLabelValues(e.Namespace, e.Action).Inc()
			m.Duration.WithLabelValues(e.Namespace).Observe(e.Duration.Seconds())
		},
		OnActivityStart: func(_ context.Context, e *domain.ActivityEvent) {
			m.Starts.WithLabelValues(e.Slug).Inc()
		},
		OnActivityEnd: func(_ context.Context, e *domain.ActivityEvent) {
			m.Ends.WithLabelValues(e.Slug).Inc()
		},
		OnReaction: func(_ context.Context, r domain.Reaction) {
			m.Reactions.WithLabelValues(r.Symbol).Inc()
		},
		OnError: func(_ context.Context, err error) {
			m.Errors.WithLabelValues(ErrorKind(err)).Inc()
		},
	}
}

// ErrorKind classifies err into a low-cardinality label.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrMalformedTag):
		return "protocol"
	case errors.Is(err, domain.ErrSlugConflict):
		return "conflict"
	case errors.Is(err, domain.ErrNotActive):
		return "not_active"
	case errors.Is(err, domain.ErrUnknownActivity):
		return "lookup"
	case errors.Is(err, domain.ErrHandlerFailed):
		return "handler"
	default:
		return "transport"
	}
}

package imposter

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventsMatched = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "imposterwatch_events_matched_total",
	Help: "Number of actionable events by verdict",
}, []string{"verdict"})

var actionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "imposterwatch_actions_total",
	Help: "Number of block actions by result",
}, []string{"result"})

var actionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "imposterwatch_action_duration_sec",
	Help:    "Duration of block action requests",
	Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
})

var eventPanics = promauto.NewCounter(prometheus.CounterOpts{
	Name: "imposterwatch_event_panics_total",
	Help: "Number of recovered panics during event processing",
})

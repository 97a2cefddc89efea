package jetstream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var framesReceivedCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "imposterwatch_stream_frames_received_total",
	Help: "Total number of frames received from the stream",
}, []string{"remote_addr"})

var bytesReceivedCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "imposterwatch_stream_bytes_total",
	Help: "Total bytes received from the stream",
}, []string{"remote_addr"})

var decodeErrorsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "imposterwatch_stream_decode_errors_total",
	Help: "Total number of frames dropped because they could not be decoded",
}, []string{"remote_addr"})

var eventsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "imposterwatch_stream_events_total",
	Help: "Total number of decoded events, by kind and whether they were passed on for matching",
}, []string{"kind", "actionable"})

var handlerErrorsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "imposterwatch_stream_handler_errors_total",
	Help: "Total number of events whose handler returned an error",
}, []string{"remote_addr"})

var lastEventTimeGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "imposterwatch_stream_last_event_time_us",
	Help: "time_us of the most recently decoded event",
})

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the event counters for one saga participant.
type Metrics struct {
	Consumed       *prometheus.CounterVec
	Published      *prometheus.CounterVec
	HandlerSeconds *prometheus.HistogramVec
}

// New registers the participant's metrics on the default registry.
func New(service string) *Metrics {
	consumed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "saga",
		Subsystem: service,
		Name:      "events_consumed_total",
		Help:      "Total events consumed, by routing key and result.",
	}, []string{"queue", "routing_key", "result"})
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "saga",
		Subsystem: service,
		Name:      "events_published_total",
		Help:      "Total events published, by exchange and routing key.",
	}, []string{"exchange", "routing_key"})
	handlerSeconds := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "saga",
		Subsystem: service,
		Name:      "handler_duration_seconds",
		Help:      "Event handler latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"queue", "routing_key"})

	prometheus.MustRegister(consumed, published, handlerSeconds)
	return &Metrics{Consumed: consumed, Published: published, HandlerSeconds: handlerSeconds}
}

func Handler() http.Handler {
	return promhttp.Handler()
}

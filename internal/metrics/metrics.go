package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	ChatRequests     prometheus.Counter
	ChatFailures     prometheus.Counter
	StreamsFinalized prometheus.Counter
	StreamsAbandoned prometheus.Counter
}

var (
	once   sync.Once
	global *Metrics
)

func Global() *Metrics {
	once.Do(func() {
		global = &Metrics{
			ChatRequests: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "pandachat",
				Name:      "chat_requests_total",
				Help:      "Total chat requests accepted",
			}),
			ChatFailures: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "pandachat",
				Name:      "chat_failures_total",
				Help:      "Total chat requests that failed before or during streaming",
			}),
			StreamsFinalized: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "pandachat",
				Name:      "chat_streams_finalized_total",
				Help:      "Total assistant messages finalized after a full stream drain",
			}),
			StreamsAbandoned: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "pandachat",
				Name:      "chat_streams_abandoned_total",
				Help:      "Total streams abandoned before finalization, e.g. client disconnects",
			}),
		}
		prometheus.MustRegister(global.ChatRequests, global.ChatFailures, global.StreamsFinalized, global.StreamsAbandoned)
	})
	return global
}

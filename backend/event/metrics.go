package event

import (
	"github.com/prometheus/client_golang/prometheus"
)

// busMetricsProvider holds the bus Prometheus counters. Constructed with a
// nil registry every method is a no-op, so tests and tools that do not
// export metrics run the bus as-is.
type busMetricsProvider struct {
	published *prometheus.CounterVec
	delivered *prometheus.CounterVec
	dropped   *prometheus.CounterVec
}

func newBusMetricsProvider(registry *prometheus.Registry) *busMetricsProvider {
	if registry == nil {
		return &busMetricsProvider{}
	}

	provider := &busMetricsProvider{
		published: busCounter("eventbus_events_published_total", "Total number of events published to the bus"),
		delivered: busCounter("eventbus_events_delivered_total", "Total number of events delivered to subscribers"),
		dropped:   busCounter("eventbus_events_dropped_total", "Total number of events dropped due to full buffers"),
	}
	registry.MustRegister(provider.published, provider.delivered, provider.dropped)

	return provider
}

func busCounter(name, help string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: name, Help: help},
		[]string{"event_type"},
	)
}

func (p *busMetricsProvider) IncrementPublished(eventType string) {
	inc(p.published, eventType)
}

func (p *busMetricsProvider) IncrementDelivered(eventType string) {
	inc(p.delivered, eventType)
}

func (p *busMetricsProvider) IncrementDropped(eventType string) {
	inc(p.dropped, eventType)
}

func inc(counter *prometheus.CounterVec, eventType string) {
	if counter != nil {
		counter.WithLabelValues(eventType).Inc()
	}
}

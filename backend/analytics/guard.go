package analytics

import (
	"github.com/posthog/posthog-go"

	"github.com/tractionhq/traction/shared/resilience"
)

// Guarded wraps a client with a circuit breaker. When the telemetry
// endpoint misbehaves, events are dropped instead of piling up behind a
// dead connection; capture is best effort by contract.
func Guarded(client Client, breaker *resilience.CircuitBreaker) Client {
	return &guardedClient{client: client, breaker: breaker}
}

type guardedClient struct {
	client  Client
	breaker *resilience.CircuitBreaker
}

func (g *guardedClient) Enqueue(msg posthog.Message) error {
	if !g.breaker.Allow() {
		return nil
	}

	err := g.client.Enqueue(msg)
	g.breaker.RecordResult(err)
	return err
}

func (g *guardedClient) Close() error {
	return g.client.Close()
}

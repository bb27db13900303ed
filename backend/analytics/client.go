// Package analytics captures product telemetry through PostHog. Capture is
// opt-in; the default client swallows every event.
package analytics

import (
	"github.com/posthog/posthog-go"

	"github.com/tractionhq/traction/shared"
)

const defaultEndpoint = "https://eu.i.posthog.com"

// Client is the slice of posthog.Client the emitters need.
type Client interface {
	Enqueue(posthog.Message) error
	Close() error
}

// Config selects the capture backend.
type Config struct {
	Enabled  bool
	APIKey   string
	Endpoint string
}

// New builds a PostHog-backed client, or a no-op one when capture is
// disabled or no API key is configured.
func New(cfg Config) (Client, error) {
	if !cfg.Enabled || cfg.APIKey == "" {
		return Noop(), nil
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}

	client, err := posthog.NewWithConfig(cfg.APIKey, posthog.Config{Endpoint: endpoint})
	if err != nil {
		return nil, shared.Wrap(shared.ErrorSourceSystem, err, "initialize analytics client")
	}
	return client, nil
}

type noopClient struct{}

// Noop returns a client that drops every event.
func Noop() Client {
	return noopClient{}
}

func (noopClient) Enqueue(posthog.Message) error { return nil }

func (noopClient) Close() error { return nil }

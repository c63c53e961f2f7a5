package provider

import (
	"context"
	"net/http"
	"time"
)

// Client wraps one external metadata source. Search returns the provider's
// raw record for the best match, a NotFound error when the provider has no
// match, or an Unavailable/RateLimited error when the provider could not
// answer. Required query parameters beyond the title are provider-specific
// configuration.
type Client interface {
	Name() string
	Search(ctx context.Context, query string) (RawRecord, error)
}

// Option configures a provider client.
type Option func(*http.Client)

// WithHTTPClient overrides the default HTTP client, mainly for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *http.Client) {
		if client != nil {
			*c = *client
		}
	}
}

func newHTTPClient(timeout time.Duration, opts ...Option) *http.Client {
	client := &http.Client{Timeout: timeout}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

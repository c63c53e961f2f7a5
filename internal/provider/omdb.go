package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "go-media-identifier/internal/errors"
)

// TagOMDB identifies the OMDB provider in source IDs and logs.
const TagOMDB = "omdb"

// OMDBClient searches the OMDB API by title. OMDB indexes IMDb data and is
// the primary provider: it answers exact-title lookups well and its payload
// carries rating and full plot in one call.
type OMDBClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewOMDB creates an OMDB client.
func NewOMDB(apiKey, baseURL string, timeout time.Duration, opts ...Option) (*OMDBClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("omdb api key required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("omdb base url required")
	}
	return &OMDBClient{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: newHTTPClient(timeout, opts...),
	}, nil
}

func (c *OMDBClient) Name() string { return TagOMDB }

// Search implements Client.
func (c *OMDBClient) Search(ctx context.Context, query string) (RawRecord, error) {
	query = strings.TrimSpace(query)
	if len(query) < 2 {
		return nil, apperrors.NewNotFoundError("query too short for OMDB", nil)
	}

	endpoint, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, apperrors.NewProviderUnavailableError("invalid OMDB base url", err)
	}
	params := url.Values{}
	params.Set("apikey", c.apiKey)
	params.Set("t", query)
	params.Set("plot", "full")
	params.Set("r", "json")
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, apperrors.NewProviderUnavailableError("build OMDB request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewProviderUnavailableError("OMDB request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, apperrors.NewRateLimitedError("OMDB rate limit hit", nil)
	case resp.StatusCode != http.StatusOK:
		return nil, apperrors.NewProviderUnavailableError(
			fmt.Sprintf("OMDB returned status %d", resp.StatusCode), nil)
	}

	var payload map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, apperrors.NewProviderUnavailableError("decode OMDB response", err)
	}

	// OMDB reports misses inside a 200 body.
	if response, _ := payload["Response"].(string); response != "True" {
		return nil, apperrors.NewNotFoundError("OMDB has no match", nil)
	}
	return RawRecord(payload), nil
}

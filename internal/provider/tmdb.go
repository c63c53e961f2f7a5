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

// TagTMDB identifies the TMDB provider in source IDs and logs.
const TagTMDB = "tmdb"

// tmdbResult is one TMDB multi-search match.
type tmdbResult struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	Overview     string  `json:"overview"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	MediaType    string  `json:"media_type"`
	PosterPath   string  `json:"poster_path"`
	VoteAverage  float64 `json:"vote_average"`
	VoteCount    int64   `json:"vote_count"`
}

// tmdbResponse models the TMDB paginated search response.
type tmdbResponse struct {
	Page         int          `json:"page"`
	Results      []tmdbResult `json:"results"`
	TotalResults int          `json:"total_results"`
}

// TMDBClient searches the TMDB multi-search endpoint. It is the fallback
// provider: TMDB indexes localized and alternative title variants that OMDB
// misses, which matters for OCR output that is a substring or superset of
// the canonical title.
type TMDBClient struct {
	apiKey     string
	baseURL    string
	language   string
	httpClient *http.Client
}

// NewTMDB creates a TMDB client.
func NewTMDB(apiKey, baseURL, language string, timeout time.Duration, opts ...Option) (*TMDBClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("tmdb api key required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("tmdb base url required")
	}
	return &TMDBClient{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		language:   strings.TrimSpace(language),
		httpClient: newHTTPClient(timeout, opts...),
	}, nil
}

func (c *TMDBClient) Name() string { return TagTMDB }

// Search implements Client.
func (c *TMDBClient) Search(ctx context.Context, query string) (RawRecord, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.NewNotFoundError("empty TMDB query", nil)
	}

	endpoint, err := url.Parse(c.baseURL + "/search/multi")
	if err != nil {
		return nil, apperrors.NewProviderUnavailableError("parse TMDB url", err)
	}
	params := url.Values{}
	params.Set("query", query)
	params.Set("api_key", c.apiKey)
	if c.language != "" {
		params.Set("language", c.language)
	}
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, apperrors.NewProviderUnavailableError("build TMDB request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewProviderUnavailableError("TMDB request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, apperrors.NewRateLimitedError("TMDB rate limit hit", nil)
	case resp.StatusCode != http.StatusOK:
		return nil, apperrors.NewProviderUnavailableError(
			fmt.Sprintf("TMDB search returned %d", resp.StatusCode), nil)
	}

	var payload tmdbResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, apperrors.NewProviderUnavailableError("decode TMDB response", err)
	}

	// Multi-search mixes in person entries; the first movie or tv hit wins.
	for _, result := range payload.Results {
		if result.MediaType != "movie" && result.MediaType != "tv" {
			continue
		}
		return RawRecord{
			"id":             result.ID,
			"title":          result.Title,
			"name":           result.Name,
			"overview":       result.Overview,
			"release_date":   result.ReleaseDate,
			"first_air_date": result.FirstAirDate,
			"media_type":     result.MediaType,
			"poster_path":    result.PosterPath,
			"vote_average":   result.VoteAverage,
		}, nil
	}
	return nil, apperrors.NewNotFoundError("TMDB has no match", nil)
}

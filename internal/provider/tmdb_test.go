package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "go-media-identifier/internal/errors"
)

func TestTMDBSearch_SkipsPersonEntries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/multi" {
			t.Errorf("Expected /search/multi, got %s", r.URL.Path)
		}
		if r.URL.Query().Get("language") != "en-US" {
			t.Errorf("Expected language=en-US, got %q", r.URL.Query().Get("language"))
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"page": 1,
			"results": [
				{"id": 6384, "name": "Keanu Reeves", "media_type": "person"},
				{"id": 603, "title": "The Matrix", "media_type": "movie",
				 "release_date": "1999-03-30", "vote_average": 8.2},
				{"id": 604, "title": "The Matrix Reloaded", "media_type": "movie"}
			],
			"total_results": 3
		}`)
	}))
	defer server.Close()

	client, err := NewTMDB("test-key", server.URL, "en-US", time.Second)
	if err != nil {
		t.Fatalf("NewTMDB failed: %v", err)
	}

	raw, err := client.Search(context.Background(), "The Matrix")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if raw.String("title") != "The Matrix" {
		t.Errorf("Expected first movie hit, got %q", raw.String("title"))
	}
	if id, _ := raw.Float("id"); id != 603 {
		t.Errorf("Expected id 603, got %v", id)
	}
}

func TestTMDBSearch_TVHit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"page": 1,
			"results": [
				{"id": 1396, "name": "Breaking Bad", "media_type": "tv",
				 "first_air_date": "2008-01-20", "vote_average": 8.9}
			],
			"total_results": 1
		}`)
	}))
	defer server.Close()

	client, err := NewTMDB("test-key", server.URL, "", time.Second)
	if err != nil {
		t.Fatalf("NewTMDB failed: %v", err)
	}

	raw, err := client.Search(context.Background(), "Breaking Bad")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if raw.String("media_type") != "tv" {
		t.Errorf("media_type = %q, want 'tv'", raw.String("media_type"))
	}
	if raw.String("name") != "Breaking Bad" {
		t.Errorf("name = %q, want 'Breaking Bad'", raw.String("name"))
	}
}

func TestTMDBSearch_NoUsableResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"page": 1, "results": [
			{"id": 6384, "name": "Keanu Reeves", "media_type": "person"}
		], "total_results": 1}`)
	}))
	defer server.Close()

	client, err := NewTMDB("test-key", server.URL, "", time.Second)
	if err != nil {
		t.Fatalf("NewTMDB failed: %v", err)
	}

	_, err = client.Search(context.Background(), "Keanu Reeves")
	if !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		t.Errorf("Expected not_found when only person entries match, got: %v", err)
	}
}

func TestTMDBSearch_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, err := NewTMDB("test-key", server.URL, "", time.Second)
	if err != nil {
		t.Fatalf("NewTMDB failed: %v", err)
	}

	_, err = client.Search(context.Background(), "Anything")
	if !apperrors.IsType(err, apperrors.ErrorTypeRateLimited) {
		t.Errorf("Expected rate_limited error, got: %v", err)
	}
}

func TestTMDBSearch_EmptyQuery(t *testing.T) {
	client, err := NewTMDB("test-key", "http://tmdb.invalid", "", time.Second)
	if err != nil {
		t.Fatalf("NewTMDB failed: %v", err)
	}

	_, err = client.Search(context.Background(), "   ")
	if !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		t.Errorf("Expected not_found for empty query, got: %v", err)
	}
}

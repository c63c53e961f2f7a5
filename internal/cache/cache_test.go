package cache

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apperrors "go-media-identifier/internal/errors"
	"go-media-identifier/pkg/models"
)

func testRecord(title string) *models.MediaRecord {
	return &models.MediaRecord{
		Title:      title,
		Kind:       models.KindMovie,
		SourceKind: "omdb",
		SourceID:   "omdb:tt0000001",
	}
}

func TestGetOrCompute_ComputesOnceThenHits(t *testing.T) {
	c := New("", time.Hour)
	var calls int32

	compute := func(ctx context.Context) (*models.MediaRecord, error) {
		atomic.AddInt32(&calls, 1)
		return testRecord("The Matrix"), nil
	}

	for i := 0; i < 3; i++ {
		record, err := c.GetOrCompute(context.Background(), "fp1", compute)
		if err != nil {
			t.Fatalf("GetOrCompute failed: %v", err)
		}
		if record.Title != "The Matrix" {
			t.Errorf("Title = %q, want 'The Matrix'", record.Title)
		}
	}

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("Expected compute to run once, ran %d times", got)
	}
}

func TestGetOrCompute_ConcurrentSingleComputation(t *testing.T) {
	c := New("", time.Hour)
	var calls int32
	release := make(chan struct{})

	compute := func(ctx context.Context) (*models.MediaRecord, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return testRecord("Inception"), nil
	}

	const workers = 16
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.GetOrCompute(context.Background(), "shared", compute)
		}(i)
	}

	// Give all workers time to queue on the same fingerprint.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("worker %d failed: %v", i, err)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("Expected a single shared computation, ran %d times", got)
	}
}

func TestGetOrCompute_NotFoundCached(t *testing.T) {
	c := New("", time.Hour)
	var calls int32

	compute := func(ctx context.Context) (*models.MediaRecord, error) {
		atomic.AddInt32(&calls, 1)
		return nil, apperrors.NewNotFoundError("no match", nil)
	}

	for i := 0; i < 2; i++ {
		_, err := c.GetOrCompute(context.Background(), "miss", compute)
		if !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			t.Fatalf("Expected not_found, got: %v", err)
		}
	}

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("Expected terminal not-found to be cached, compute ran %d times", got)
	}
}

func TestGetOrCompute_TransientErrorNotCached(t *testing.T) {
	c := New("", time.Hour)
	var calls int32

	compute := func(ctx context.Context) (*models.MediaRecord, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, apperrors.NewProviderUnavailableError("down", nil)
		}
		return testRecord("Alien"), nil
	}

	if _, err := c.GetOrCompute(context.Background(), "flaky", compute); err == nil {
		t.Fatal("Expected first call to fail")
	}

	record, err := c.GetOrCompute(context.Background(), "flaky", compute)
	if err != nil {
		t.Fatalf("Expected retry after transient failure, got: %v", err)
	}
	if record.Title != "Alien" {
		t.Errorf("Title = %q, want 'Alien'", record.Title)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("Expected 2 compute runs, got %d", got)
	}
}

func TestGetOrCompute_TTLExpiry(t *testing.T) {
	c := New("", 10*time.Millisecond)
	var calls int32

	compute := func(ctx context.Context) (*models.MediaRecord, error) {
		atomic.AddInt32(&calls, 1)
		return testRecord("Heat"), nil
	}

	if _, err := c.GetOrCompute(context.Background(), "ttl", compute); err != nil {
		t.Fatalf("GetOrCompute failed: %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	if _, err := c.GetOrCompute(context.Background(), "ttl", compute); err != nil {
		t.Fatalf("GetOrCompute failed: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("Expected recompute after TTL expiry, compute ran %d times", got)
	}
}

func TestGetOrCompute_NilCachePassthrough(t *testing.T) {
	var c *Cache
	var calls int32

	compute := func(ctx context.Context) (*models.MediaRecord, error) {
		atomic.AddInt32(&calls, 1)
		return testRecord("Tenet"), nil
	}

	for i := 0; i < 2; i++ {
		record, err := c.GetOrCompute(context.Background(), "fp", compute)
		if err != nil {
			t.Fatalf("GetOrCompute failed: %v", err)
		}
		if record.Title != "Tenet" {
			t.Errorf("Title = %q, want 'Tenet'", record.Title)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("Expected nil cache to always compute, ran %d times", got)
	}
}

func TestCache_PersistsAcrossRestarts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")

	first := New(path, time.Hour)
	record, err := first.GetOrCompute(context.Background(), "persist", func(ctx context.Context) (*models.MediaRecord, error) {
		return testRecord("Parasite"), nil
	})
	if err != nil {
		t.Fatalf("GetOrCompute failed: %v", err)
	}
	if record.Title != "Parasite" {
		t.Fatalf("Title = %q, want 'Parasite'", record.Title)
	}

	second := New(path, time.Hour)
	if second.Len() != 1 {
		t.Fatalf("Expected reloaded cache to hold 1 entry, got %d", second.Len())
	}

	loaded, err := second.GetOrCompute(context.Background(), "persist", func(ctx context.Context) (*models.MediaRecord, error) {
		t.Fatal("Expected reload hit, compute should not run")
		return nil, nil
	})
	if err != nil {
		t.Fatalf("GetOrCompute failed: %v", err)
	}
	if loaded.Title != "Parasite" {
		t.Errorf("Title = %q, want 'Parasite'", loaded.Title)
	}
}

func TestFingerprints(t *testing.T) {
	if FingerprintBytes([]byte("a")) == FingerprintBytes([]byte("b")) {
		t.Error("Expected distinct byte fingerprints")
	}
	if FingerprintBytes([]byte("a")) != FingerprintBytes([]byte("a")) {
		t.Error("Expected stable byte fingerprints")
	}

	// Text fingerprints normalize case and whitespace.
	if FingerprintText("The  Matrix") != FingerprintText("the matrix") {
		t.Error("Expected normalized text fingerprints to match")
	}
	if FingerprintText("The Matrix") == FingerprintText("Inception") {
		t.Error("Expected distinct text fingerprints")
	}
}

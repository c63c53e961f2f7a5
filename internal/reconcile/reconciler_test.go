package reconcile

import (
	"context"
	"testing"
	"time"

	apperrors "go-media-identifier/internal/errors"
	"go-media-identifier/internal/provider"
)

// fakeProvider records the queries it receives and answers from a canned map.
type fakeProvider struct {
	name    string
	hits    map[string]provider.RawRecord
	err     error
	queries []string
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Search(ctx context.Context, query string) (provider.RawRecord, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	if raw, ok := f.hits[query]; ok {
		return raw, nil
	}
	return nil, apperrors.NewNotFoundError("no match", nil)
}

func omdbHit(title string) provider.RawRecord {
	return provider.RawRecord{
		"Title":  title,
		"Type":   "movie",
		"imdbID": "tt0000001",
	}
}

// literalOnly keeps call-order tests readable: one query per title.
func literalOnly() []RewriteStrategy {
	return []RewriteStrategy{LiteralStrategy{}}
}

func TestReconcile_FirstHitWins(t *testing.T) {
	primary := &fakeProvider{
		name: provider.TagOMDB,
		hits: map[string]provider.RawRecord{"The Matrix": omdbHit("The Matrix")},
	}
	secondary := &fakeProvider{name: provider.TagOMDB}

	r := New([]provider.Client{primary, secondary}, literalOnly(), time.Second)
	record, err := r.Reconcile(context.Background(), []string{"The Matrix"})
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if record.Title != "The Matrix" {
		t.Errorf("Title = %q, want 'The Matrix'", record.Title)
	}
	if len(secondary.queries) != 0 {
		t.Errorf("Expected secondary provider untouched after primary hit, got queries %v", secondary.queries)
	}
}

func TestReconcile_ExhaustsProvidersBeforeNextTitle(t *testing.T) {
	p1 := &fakeProvider{name: provider.TagOMDB}
	p2 := &fakeProvider{
		name: provider.TagOMDB,
		hits: map[string]provider.RawRecord{"Second Title": omdbHit("Second Title")},
	}

	r := New([]provider.Client{p1, p2}, literalOnly(), time.Second)
	record, err := r.Reconcile(context.Background(), []string{"First Title", "Second Title"})
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if record.Title != "Second Title" {
		t.Errorf("Title = %q, want 'Second Title'", record.Title)
	}

	// Order: (T1,P1), (T1,P2), (T2,P1), (T2,P2).
	wantP1 := []string{"First Title", "Second Title"}
	wantP2 := []string{"First Title", "Second Title"}
	if len(p1.queries) != 2 || p1.queries[0] != wantP1[0] || p1.queries[1] != wantP1[1] {
		t.Errorf("p1 queries = %v, want %v", p1.queries, wantP1)
	}
	if len(p2.queries) != 2 || p2.queries[0] != wantP2[0] || p2.queries[1] != wantP2[1] {
		t.Errorf("p2 queries = %v, want %v", p2.queries, wantP2)
	}
}

func TestReconcile_ProviderOutageSkipped(t *testing.T) {
	down := &fakeProvider{
		name: provider.TagOMDB,
		err:  apperrors.NewProviderUnavailableError("connection refused", nil),
	}
	up := &fakeProvider{
		name: provider.TagOMDB,
		hits: map[string]provider.RawRecord{"Alien": omdbHit("Alien")},
	}

	r := New([]provider.Client{down, up}, literalOnly(), time.Second)
	record, err := r.Reconcile(context.Background(), []string{"Alien"})
	if err != nil {
		t.Fatalf("Expected outage to be skipped, got: %v", err)
	}
	if record.Title != "Alien" {
		t.Errorf("Title = %q, want 'Alien'", record.Title)
	}
	if record.SourceKind != provider.TagOMDB {
		t.Errorf("SourceKind = %q, want the provider that answered", record.SourceKind)
	}
}

func TestReconcile_Exhausted(t *testing.T) {
	p := &fakeProvider{name: provider.TagOMDB}

	r := New([]provider.Client{p}, literalOnly(), time.Second)
	_, err := r.Reconcile(context.Background(), []string{"Unknown Movie"})
	if err == nil {
		t.Fatal("Expected NotFound after exhaustion")
	}
	if !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		t.Errorf("Expected not_found error type, got: %v", err)
	}
}

func TestReconcile_RewriteFallback(t *testing.T) {
	// Provider only knows the stripped form of the title.
	p := &fakeProvider{
		name: provider.TagOMDB,
		hits: map[string]provider.RawRecord{"Mad Max Fury Road": omdbHit("Mad Max: Fury Road")},
	}

	r := New([]provider.Client{p}, DefaultStrategies(), time.Second)
	record, err := r.Reconcile(context.Background(), []string{"Mad Max: Fury Road"})
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if record.Title != "Mad Max: Fury Road" {
		t.Errorf("Title = %q, want provider's canonical title", record.Title)
	}
	if len(p.queries) < 2 || p.queries[0] != "Mad Max: Fury Road" || p.queries[1] != "Mad Max Fury Road" {
		t.Errorf("Expected literal query before stripped rewrite, got %v", p.queries)
	}
}

func TestReconcile_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &fakeProvider{name: provider.TagOMDB}
	r := New([]provider.Client{p}, literalOnly(), time.Second)

	_, err := r.Reconcile(ctx, []string{"Anything"})
	if err == nil {
		t.Fatal("Expected error on cancelled context")
	}
	if len(p.queries) != 0 {
		t.Errorf("Expected no provider calls after cancellation, got %v", p.queries)
	}
}

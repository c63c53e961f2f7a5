package extract

import (
	"context"
	"fmt"
	"testing"
	"time"

	apperrors "go-media-identifier/internal/errors"
	"go-media-identifier/internal/preprocess"
	"go-media-identifier/internal/recognize"
	"go-media-identifier/pkg/validation"
)

// fakeEngine returns canned candidates, or an error, without touching the image.
type fakeEngine struct {
	name       string
	candidates []recognize.Candidate
	err        error
}

func (f *fakeEngine) Name() string { return f.name }

func (f *fakeEngine) Recognize(ctx context.Context, img *preprocess.Prepared) ([]recognize.Candidate, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.candidates, nil
}

func newTestExtractor(engines ...recognize.Engine) *Extractor {
	return New(engines, validation.NewTitleValidator(), 2*time.Second, 4)
}

func TestExtract_CleansAndFilters(t *testing.T) {
	engine := &fakeEngine{
		name: "fake",
		candidates: []recognize.Candidate{
			{Text: "The  Matrix", Source: recognize.SourceOCR},
			{Text: "01:23:45", Source: recognize.SourceOCR},
			{Text: "www.streamsite.tv", Source: recognize.SourceOCR},
		},
	}

	titles, err := newTestExtractor(engine).Extract(context.Background(), &preprocess.Prepared{})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(titles) != 1 {
		t.Fatalf("Expected 1 title, got %d: %v", len(titles), titles)
	}
	if titles[0] != "The Matrix" {
		t.Errorf("Expected 'The Matrix', got %q", titles[0])
	}
}

func TestExtract_EngineOrderPreserved(t *testing.T) {
	vision := &fakeEngine{
		name:       "vision",
		candidates: []recognize.Candidate{{Text: "Blade Runner", Source: recognize.SourceVision}},
	}
	ocr := &fakeEngine{
		name:       "ocr",
		candidates: []recognize.Candidate{{Text: "Directors Cut", Source: recognize.SourceOCR}},
	}

	titles, err := newTestExtractor(vision, ocr).Extract(context.Background(), &preprocess.Prepared{})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(titles) != 2 {
		t.Fatalf("Expected 2 titles, got %d: %v", len(titles), titles)
	}
	if titles[0] != "Blade Runner" || titles[1] != "Directors Cut" {
		t.Errorf("Expected engine priority order preserved, got %v", titles)
	}
}

func TestExtract_NearDuplicatesDropped(t *testing.T) {
	engine := &fakeEngine{
		name: "fake",
		candidates: []recognize.Candidate{
			{Text: "Inception", Source: recognize.SourceOCR},
			{Text: "INCEPTION", Source: recognize.SourceOCR},
			{Text: "Inceptian", Source: recognize.SourceOCR}, // one char of OCR jitter
			{Text: "Tenet", Source: recognize.SourceOCR},
		},
	}

	titles, err := newTestExtractor(engine).Extract(context.Background(), &preprocess.Prepared{})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(titles) != 2 {
		t.Fatalf("Expected 2 titles after dedup, got %d: %v", len(titles), titles)
	}
	if titles[0] != "Inception" || titles[1] != "Tenet" {
		t.Errorf("Expected [Inception Tenet], got %v", titles)
	}
}

func TestExtract_EngineFailureSkipped(t *testing.T) {
	broken := &fakeEngine{
		name: "broken",
		err:  fmt.Errorf("engine exploded"),
	}
	working := &fakeEngine{
		name:       "working",
		candidates: []recognize.Candidate{{Text: "Parasite", Source: recognize.SourceOCR}},
	}

	titles, err := newTestExtractor(broken, working).Extract(context.Background(), &preprocess.Prepared{})
	if err != nil {
		t.Fatalf("Expected engine failure to be skipped, got: %v", err)
	}
	if len(titles) != 1 || titles[0] != "Parasite" {
		t.Errorf("Expected [Parasite], got %v", titles)
	}
}

func TestExtract_NoPlausibleTitle(t *testing.T) {
	engine := &fakeEngine{
		name: "fake",
		candidates: []recognize.Candidate{
			{Text: "01:23", Source: recognize.SourceOCR},
			{Text: "12345", Source: recognize.SourceOCR},
		},
	}

	_, err := newTestExtractor(engine).Extract(context.Background(), &preprocess.Prepared{})
	if err == nil {
		t.Fatal("Expected NoPlausibleTitle error")
	}
	if !apperrors.IsType(err, apperrors.ErrorTypeNoPlausibleTitle) {
		t.Errorf("Expected no_plausible_title error type, got: %v", err)
	}
}

func TestExtract_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := &fakeEngine{
		name:       "fake",
		candidates: []recognize.Candidate{{Text: "Alien", Source: recognize.SourceOCR}},
	}

	_, err := newTestExtractor(engine).Extract(ctx, &preprocess.Prepared{})
	if err == nil {
		t.Fatal("Expected error on cancelled context")
	}
	if !apperrors.IsType(err, apperrors.ErrorTypeEngineTimeout) {
		t.Errorf("Expected engine_timeout error type, got: %v", err)
	}
}

func TestCleanTitle(t *testing.T) {
	extractor := newTestExtractor()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "Collapses whitespace",
			raw:  "The   Shining",
			want: "The Shining",
		},
		{
			name: "Strips disallowed characters",
			raw:  "The* Shining~",
			want: "The Shining",
		},
		{
			name: "Keeps allowed punctuation",
			raw:  "Don't Look Up",
			want: "Don't Look Up",
		},
		{
			name: "Picks line with most letters",
			raw:  "12:45\nThe Godfather\nHD",
			want: "The Godfather",
		},
		{
			name: "Truncates to word budget",
			raw:  "The Lord of the Rings Extended Edition",
			want: "The Lord of the",
		},
		{
			name: "Empty input",
			raw:  "",
			want: "",
		},
		{
			name: "Only noise",
			raw:  "*** ~~~ %%%",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractor.CleanTitle(tt.raw)
			if got != tt.want {
				t.Errorf("CleanTitle(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

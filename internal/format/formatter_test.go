package format

import (
	"strings"
	"testing"
	"unicode/utf8"

	"go-media-identifier/pkg/models"
)

func ratingPtr(v float64) *float64 { return &v }

func TestRender_FullRecord(t *testing.T) {
	record := &models.MediaRecord{
		Title:      "The Matrix",
		Year:       "1999",
		Kind:       models.KindMovie,
		Rating:     ratingPtr(8.7),
		Plot:       "A computer hacker learns the truth about reality.",
		PosterURL:  "https://example.com/matrix.jpg",
		SourceKind: "omdb",
		SourceID:   "omdb:tt0133093",
	}

	out := NewFormatter().Render(record)

	for _, want := range []string{
		"The Matrix (1999)",
		"Type: movie",
		"Rating: 8.7/10",
		"A computer hacker learns the truth about reality.",
		"More: https://www.imdb.com/title/tt0133093/",
		"Poster: https://example.com/matrix.jpg",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestRender_SparseRecordOmitsAbsentFields(t *testing.T) {
	record := &models.MediaRecord{
		Title:      "Obscure Short",
		Kind:       models.KindUnknown,
		SourceKind: "omdb",
		SourceID:   "omdb:",
	}

	out := NewFormatter().Render(record)

	if !strings.HasPrefix(out, "Obscure Short\n") {
		t.Errorf("Expected bare title without year, got:\n%s", out)
	}
	for _, absent := range []string{"Rating:", "More:", "Poster:", "(", ")"} {
		if strings.Contains(out, absent) {
			t.Errorf("Expected no %q in sparse output, got:\n%s", absent, out)
		}
	}
}

func TestRender_TMDBSeriesLink(t *testing.T) {
	record := &models.MediaRecord{
		Title:      "Breaking Bad",
		Kind:       models.KindSeries,
		SourceKind: "tmdb",
		SourceID:   "tmdb:1396",
	}

	out := NewFormatter().Render(record)
	if !strings.Contains(out, "https://www.themoviedb.org/tv/1396") {
		t.Errorf("Expected tv link for series, got:\n%s", out)
	}
}

func TestRender_TMDBMovieLink(t *testing.T) {
	record := &models.MediaRecord{
		Title:      "The Matrix",
		Kind:       models.KindMovie,
		SourceKind: "tmdb",
		SourceID:   "tmdb:603",
	}

	out := NewFormatter().Render(record)
	if !strings.Contains(out, "https://www.themoviedb.org/movie/603") {
		t.Errorf("Expected movie link, got:\n%s", out)
	}
}

func TestRender_LongPlotTruncatedAtWordBoundary(t *testing.T) {
	record := &models.MediaRecord{
		Title:      "Epic",
		Kind:       models.KindMovie,
		Plot:       strings.Repeat("verylongword ", 60),
		SourceKind: "omdb",
		SourceID:   "omdb:tt0000001",
	}

	out := NewFormatter().Render(record)
	if len(out) > 700 {
		t.Errorf("Expected plot truncation to bound output, got %d bytes", len(out))
	}
	if !strings.Contains(out, "…") {
		t.Errorf("Expected truncation marker, got:\n%s", out)
	}
	if strings.Contains(out, "verylongwor…") {
		t.Errorf("Expected truncation at a word boundary, got:\n%s", out)
	}
}

func TestTruncateAtWord_RuneBoundary(t *testing.T) {
	// A spaceless plot of three-byte runes forces the byte cut mid-rune.
	text := strings.Repeat("界", 300)

	got := truncateAtWord(text, plotLimit)
	if !utf8.ValidString(got) {
		t.Fatalf("Expected valid UTF-8 after truncation, got %q", got)
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("Expected ellipsis suffix, got %q", got)
	}
	if len(got) > plotLimit+len("…") {
		t.Errorf("Expected at most %d bytes plus ellipsis, got %d", plotLimit, len(got))
	}
}

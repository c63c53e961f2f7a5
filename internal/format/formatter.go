package format

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"go-media-identifier/internal/provider"
	"go-media-identifier/pkg/models"
)

// plotLimit bounds the plot excerpt; truncation happens at a word boundary.
const plotLimit = 400

// NotFoundMessage is the user-facing guidance when no provider matched.
const NotFoundMessage = "Could not identify the movie or series. " +
	"Try a frame showing the title card, a well-known actor, or a poster or logo."

// NoTitleMessage is the user-facing guidance when extraction found nothing.
const NoTitleMessage = "No readable title found in the frame. " +
	"Try a clearer frame, or type the title manually."

// Formatter renders canonical records into human-readable summaries.
type Formatter struct{}

// NewFormatter creates a formatter.
func NewFormatter() *Formatter {
	return &Formatter{}
}

// Render produces the user-facing summary for a record.
func (f *Formatter) Render(record *models.MediaRecord) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s", record.Title)
	if record.Year != "" {
		fmt.Fprintf(&b, " (%s)", record.Year)
	}
	fmt.Fprintf(&b, "\nType: %s", record.Kind)

	if record.HasRating() {
		fmt.Fprintf(&b, "\nRating: %.1f/10", *record.Rating)
	}

	if record.Plot != "" {
		fmt.Fprintf(&b, "\n\n%s", truncateAtWord(record.Plot, plotLimit))
	}

	if link := sourceLink(record); link != "" {
		fmt.Fprintf(&b, "\n\nMore: %s", link)
	}
	if record.PosterURL != "" {
		fmt.Fprintf(&b, "\nPoster: %s", record.PosterURL)
	}
	return b.String()
}

// sourceLink resolves the provenance ID to the provider's public page.
func sourceLink(record *models.MediaRecord) string {
	rawID := strings.TrimPrefix(record.SourceID, record.SourceKind+":")
	if rawID == "" {
		return ""
	}
	switch record.SourceKind {
	case provider.TagOMDB:
		// OMDB IDs are IMDb IDs.
		return fmt.Sprintf("https://www.imdb.com/title/%s/", rawID)
	case provider.TagTMDB:
		if record.Kind == models.KindSeries {
			return fmt.Sprintf("https://www.themoviedb.org/tv/%s", rawID)
		}
		return fmt.Sprintf("https://www.themoviedb.org/movie/%s", rawID)
	}
	return ""
}

func truncateAtWord(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := text[:limit]
	if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
		cut = cut[:idx]
	}
	// Without a space in range the byte cut can land mid-rune.
	for len(cut) > 0 {
		r, size := utf8.DecodeLastRuneInString(cut)
		if r != utf8.RuneError || size != 1 {
			break
		}
		cut = cut[:len(cut)-1]
	}
	return cut + "…"
}

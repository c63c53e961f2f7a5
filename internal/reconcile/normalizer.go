package reconcile

import (
	"fmt"
	"strconv"
	"strings"

	apperrors "go-media-identifier/internal/errors"
	"go-media-identifier/internal/provider"
	"go-media-identifier/pkg/models"
)

// tmdbPosterBase is where TMDB poster paths resolve to full URLs.
const tmdbPosterBase = "https://image.tmdb.org/t/p/w500"

// Normalize maps one provider's raw schema into the canonical media record.
// Adding a provider means adding one case here and one Client; nothing else
// in the pipeline changes. Absent fields and "N/A" placeholders map to
// absent, never to literal strings; SourceID is provider-tagged so raw
// numeric IDs from different providers never collide.
func Normalize(raw provider.RawRecord, providerTag string) (*models.MediaRecord, error) {
	switch providerTag {
	case provider.TagOMDB:
		return normalizeOMDB(raw)
	case provider.TagTMDB:
		return normalizeTMDB(raw)
	}
	return nil, apperrors.NewInternalError(fmt.Sprintf("unknown provider tag %q", providerTag), nil)
}

func normalizeOMDB(raw provider.RawRecord) (*models.MediaRecord, error) {
	title := cleanNA(raw.String("Title"))
	if title == "" {
		return nil, apperrors.NewInternalError("OMDB record has no title", nil)
	}

	year := cleanNA(raw.String("Year"))
	sourceID := cleanNA(raw.String("imdbID"))
	if sourceID == "" {
		// Rare OMDB records omit imdbID; a title-based key keeps the
		// provenance tag unique instead of collapsing to "omdb:".
		sourceID = compositeID(title, year)
	}

	record := &models.MediaRecord{
		Title:      title,
		Year:       year,
		Kind:       omdbKind(raw.String("Type")),
		Plot:       cleanNA(raw.String("Plot")),
		PosterURL:  cleanNA(raw.String("Poster")),
		SourceKind: provider.TagOMDB,
		SourceID:   provider.TagOMDB + ":" + sourceID,
	}

	if rating := cleanNA(raw.String("imdbRating")); rating != "" {
		if value, err := strconv.ParseFloat(rating, 64); err == nil && value >= 0 && value <= 10 {
			record.Rating = &value
		}
	}
	return record, nil
}

func normalizeTMDB(raw provider.RawRecord) (*models.MediaRecord, error) {
	// Movies carry "title", TV shows carry "name".
	title := raw.String("title")
	if title == "" {
		title = raw.String("name")
	}
	if title == "" {
		return nil, apperrors.NewInternalError("TMDB record has no title", nil)
	}

	id, _ := raw.Float("id")
	record := &models.MediaRecord{
		Title:      title,
		Year:       yearOf(raw.String("release_date"), raw.String("first_air_date")),
		Kind:       tmdbKind(raw.String("media_type")),
		Plot:       raw.String("overview"),
		SourceKind: provider.TagTMDB,
		SourceID:   fmt.Sprintf("%s:%d", provider.TagTMDB, int64(id)),
	}

	if posterPath := raw.String("poster_path"); posterPath != "" {
		record.PosterURL = tmdbPosterBase + posterPath
	}
	if rating, ok := raw.Float("vote_average"); ok && rating > 0 && rating <= 10 {
		record.Rating = &rating
	}
	return record, nil
}

func compositeID(title, year string) string {
	id := strings.ToLower(strings.Join(strings.Fields(title), "-"))
	if year != "" {
		id += "-" + year
	}
	return id
}

func omdbKind(value string) models.MediaKind {
	switch strings.ToLower(cleanNA(value)) {
	case "movie":
		return models.KindMovie
	case "series":
		return models.KindSeries
	case "episode":
		return models.KindEpisode
	}
	return models.KindUnknown
}

func tmdbKind(value string) models.MediaKind {
	switch value {
	case "movie":
		return models.KindMovie
	case "tv":
		return models.KindSeries
	}
	return models.KindUnknown
}

// cleanNA converts OMDB's "N/A" placeholder into an absent value.
func cleanNA(value string) string {
	value = strings.TrimSpace(value)
	if strings.EqualFold(value, "N/A") {
		return ""
	}
	return value
}

func yearOf(dates ...string) string {
	for _, date := range dates {
		if len(date) >= 4 {
			return date[:4]
		}
	}
	return ""
}

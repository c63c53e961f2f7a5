package models

// MediaKind classifies what a provider record describes.
type MediaKind string

const (
	KindMovie   MediaKind = "movie"
	KindSeries  MediaKind = "series"
	KindEpisode MediaKind = "episode"
	KindUnknown MediaKind = "unknown"
)

// MediaRecord is the canonical record every provider schema is mapped into.
// SourceKind and SourceID together identify the provenance; SourceID is always
// prefixed with the provider tag so raw numeric IDs from different providers
// never collide.
type MediaRecord struct {
	Title      string    `json:"title"`
	Year       string    `json:"year,omitempty"`
	Kind       MediaKind `json:"kind"`
	Rating     *float64  `json:"rating,omitempty"`
	Plot       string    `json:"plot,omitempty"`
	PosterURL  string    `json:"poster_url,omitempty"`
	SourceID   string    `json:"source_id"`
	SourceKind string    `json:"source_kind"`
}

// HasRating reports whether a rating is present and within the valid range.
func (r *MediaRecord) HasRating() bool {
	return r.Rating != nil && *r.Rating >= 0 && *r.Rating <= 10
}

package recognize

import (
	"context"

	"go-media-identifier/internal/preprocess"
)

// Source tags identify which engine produced a candidate.
const (
	SourceOCR       = "ocr"
	SourceVision    = "vision"
	SourceEmbedding = "embedding"
)

// ConfidenceUnset marks candidates whose engine reports no score.
const ConfidenceUnset = -1.0

// Candidate is one raw text/label suggestion from an engine.
type Candidate struct {
	Text       string  `json:"text"`
	Source     string  `json:"source"`
	Confidence float64 `json:"confidence"`
}

// Engine is a pluggable recognition capability. An engine yields zero or
// more candidates or fails; a failed engine is skipped, never fatal.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, img *preprocess.Prepared) ([]Candidate, error)
}

package extract

import (
	"context"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/arbovm/levenshtein"
	"github.com/sirupsen/logrus"

	apperrors "go-media-identifier/internal/errors"
	"go-media-identifier/internal/logger"
	"go-media-identifier/internal/preprocess"
	"go-media-identifier/internal/recognize"
	"go-media-identifier/pkg/validation"
)

// disallowedChars keeps word characters, whitespace and a small punctuation
// allowlist that appears in real titles; everything else is OCR noise.
var disallowedChars = regexp.MustCompile(`[^\w\s'":&.,!?-]`)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Extractor turns raw recognition output into an ordered list of plausible
// title candidates. Engines run in priority order: semantic sources (vision
// labels, embedding matches) come before literal OCR text because they
// survive frames where the visible text is not the title.
type Extractor struct {
	engines       []recognize.Engine
	validator     *validation.TitleValidator
	engineTimeout time.Duration
	maxWords      int
}

// New creates an extractor over the given engines, kept in the given order.
func New(engines []recognize.Engine, validator *validation.TitleValidator, engineTimeout time.Duration, maxWords int) *Extractor {
	if maxWords < 1 {
		maxWords = 4
	}
	return &Extractor{
		engines:       engines,
		validator:     validator,
		engineTimeout: engineTimeout,
		maxWords:      maxWords,
	}
}

// Extract runs every engine against the prepared frame and returns cleaned,
// de-duplicated title candidates, most reliable first. Engine failures are
// logged and skipped; they never abort extraction. When nothing passes the
// plausibility gate the result is a NoPlausibleTitle error.
func (e *Extractor) Extract(ctx context.Context, img *preprocess.Prepared) ([]string, error) {
	var titles []string

	for _, engine := range e.engines {
		if ctx.Err() != nil {
			return nil, apperrors.NewEngineTimeoutError("extraction cancelled", ctx.Err())
		}

		engineCtx, cancel := context.WithTimeout(ctx, e.engineTimeout)
		candidates, err := engine.Recognize(engineCtx, img)
		cancel()
		if err != nil {
			// Fallback coverage is the point: a dead engine costs us one
			// source, not the request.
			logger.WithStage("extract").WithError(err).WithField("engine", engine.Name()).Warn("recognition engine skipped")
			continue
		}

		for _, candidate := range candidates {
			title := e.CleanTitle(candidate.Text)
			if title == "" || !e.validator.IsPlausibleTitle(title) {
				continue
			}
			if containsNearDuplicate(titles, title) {
				continue
			}
			titles = append(titles, title)
			logger.WithStage("extract").WithFields(logrus.Fields{
				"engine": engine.Name(),
				"title":  title,
			}).Debug("title candidate accepted")
		}
	}

	if len(titles) == 0 {
		return nil, apperrors.NewNoPlausibleTitleError("no plausible title candidates extracted", nil)
	}
	return titles, nil
}

// CleanTitle normalizes one piece of raw recognition output into a title
// candidate: strip disallowed characters, collapse whitespace, keep the line
// with the most alphabetic characters, and truncate to the first few words.
// Titles are short; long OCR runs are usually noise or unrelated text.
func (e *Extractor) CleanTitle(raw string) string {
	raw = disallowedChars.ReplaceAllString(raw, " ")

	best := ""
	bestAlpha := 0
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(whitespaceRun.ReplaceAllString(line, " "))
		if line == "" {
			continue
		}
		alpha := countAlphabetic(line)
		if alpha > bestAlpha {
			best = line
			bestAlpha = alpha
		}
	}
	if best == "" {
		return ""
	}

	words := strings.Fields(best)
	if len(words) > e.maxWords {
		words = words[:e.maxWords]
	}
	return strings.Join(words, " ")
}

// containsNearDuplicate reports whether title is already present, comparing
// case/whitespace-insensitively and tolerating one character of OCR jitter.
func containsNearDuplicate(titles []string, title string) bool {
	normalized := normalizeForDedup(title)
	for _, existing := range titles {
		other := normalizeForDedup(existing)
		if other == normalized {
			return true
		}
		if levenshtein.Distance(other, normalized) <= 1 {
			return true
		}
	}
	return false
}

func normalizeForDedup(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func countAlphabetic(s string) int {
	count := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			count++
		}
	}
	return count
}

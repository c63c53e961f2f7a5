package validation

import (
	"regexp"
	"strings"
	"unicode"
)

// TitleValidator gates extracted text before it is allowed to reach a
// metadata provider. OCR on video frames produces a lot of timestamps,
// watermarks and channel URLs; rejecting those here saves provider quota.
type TitleValidator struct {
	minLength   int
	maxNoiseRun int
}

var (
	digitsSymbolsOnly = regexp.MustCompile(`^[\d\s[:punct:]]+$`)
	timestampPattern  = regexp.MustCompile(`^\d{1,2}[:.]\d{2}([:.]\d{2})?$`)
	datePattern       = regexp.MustCompile(`^\d{1,4}[-/.]\d{1,2}[-/.]\d{1,4}$`)
	urlPattern        = regexp.MustCompile(`(?i)(https?://|www\.|\.(com|net|org|tv|io)(\b|$))`)
	noiseRunPattern   = regexp.MustCompile(`[^a-zA-Z0-9\s]{4,}`)
)

// NewTitleValidator creates a validator with default thresholds.
func NewTitleValidator() *TitleValidator {
	return &TitleValidator{
		minLength:   3,
		maxNoiseRun: 4,
	}
}

// IsPlausibleTitle reports whether text could be a movie or series title.
func (v *TitleValidator) IsPlausibleTitle(text string) bool {
	text = strings.TrimSpace(text)
	if len(text) < v.minLength {
		return false
	}
	if !containsAlphabetic(text) {
		return false
	}
	if digitsSymbolsOnly.MatchString(text) {
		return false
	}
	if timestampPattern.MatchString(text) || datePattern.MatchString(text) {
		return false
	}
	if urlPattern.MatchString(text) {
		return false
	}
	if noiseRunPattern.MatchString(text) {
		return false
	}
	return true
}

func containsAlphabetic(text string) bool {
	for _, r := range text {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

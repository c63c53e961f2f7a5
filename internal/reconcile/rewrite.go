package reconcile

import (
	"regexp"
	"strings"
)

// RewriteStrategy derives one query variant from a candidate title. OCR and
// vision output is noisy: the literal string is often a strict substring or
// superset of the true title, so each candidate is tried under several
// rewrites before moving on.
type RewriteStrategy interface {
	Rewrite(title string) string
	GetStrategyName() string
}

var punctuation = regexp.MustCompile(`[[:punct:]]`)

// LiteralStrategy passes the candidate through unchanged.
type LiteralStrategy struct{}

func (LiteralStrategy) Rewrite(title string) string { return title }

func (LiteralStrategy) GetStrategyName() string { return "literal" }

// StripPunctuationStrategy removes punctuation; providers index "Dont Look
// Up" and "Don't Look Up" differently.
type StripPunctuationStrategy struct{}

func (StripPunctuationStrategy) Rewrite(title string) string {
	stripped := punctuation.ReplaceAllString(title, " ")
	return strings.Join(strings.Fields(stripped), " ")
}

func (StripPunctuationStrategy) GetStrategyName() string { return "strip_punctuation" }

// FirstWordsStrategy keeps the leading N words, shedding trailing OCR noise.
type FirstWordsStrategy struct {
	N int
}

func (s FirstWordsStrategy) Rewrite(title string) string {
	words := strings.Fields(title)
	if len(words) <= s.N {
		return title
	}
	return strings.Join(words[:s.N], " ")
}

func (s FirstWordsStrategy) GetStrategyName() string { return "first_words" }

// LastWordsStrategy keeps the trailing N words, shedding leading noise such
// as channel names or episode prefixes.
type LastWordsStrategy struct {
	N int
}

func (s LastWordsStrategy) Rewrite(title string) string {
	words := strings.Fields(title)
	if len(words) <= s.N {
		return title
	}
	return strings.Join(words[len(words)-s.N:], " ")
}

func (s LastWordsStrategy) GetStrategyName() string { return "last_words" }

// DefaultStrategies returns the shipped rewrite ladder, in trial order.
func DefaultStrategies() []RewriteStrategy {
	return []RewriteStrategy{
		LiteralStrategy{},
		StripPunctuationStrategy{},
		FirstWordsStrategy{N: 2},
		LastWordsStrategy{N: 2},
	}
}

// ExpandRewrites applies every strategy to the title and de-duplicates the
// results case-insensitively, preserving strategy order.
func ExpandRewrites(title string, strategies []RewriteStrategy) []string {
	seen := make(map[string]struct{}, len(strategies))
	var rewrites []string
	for _, strategy := range strategies {
		rewrite := strings.TrimSpace(strategy.Rewrite(title))
		if rewrite == "" {
			continue
		}
		key := strings.ToLower(rewrite)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		rewrites = append(rewrites, rewrite)
	}
	return rewrites
}

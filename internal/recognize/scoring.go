package recognize

import "unicode"

// Attempt pairs one OCR configuration's name with the text it produced.
type Attempt struct {
	Config string
	Text   string
}

// ScoreWeights holds the penalty weights for non-alphabetic characters.
// Tunable policy, not a contract.
type ScoreWeights struct {
	Digit float64
	Noise float64
}

// DefaultScoreWeights returns the shipped weights.
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{Digit: 0.5, Noise: 0.3}
}

// ScoreText rates OCR output by how title-like its character mix is:
// alphabetic characters count for, digits and other non-space noise count
// against. Whitespace is neutral.
func ScoreText(text string, w ScoreWeights) float64 {
	var alpha, digits, noise int
	for _, r := range text {
		switch {
		case unicode.IsLetter(r):
			alpha++
		case unicode.IsDigit(r):
			digits++
		case unicode.IsSpace(r):
			// neutral
		default:
			noise++
		}
	}
	return float64(alpha) - w.Digit*float64(digits) - w.Noise*float64(noise)
}

// PickBest selects the highest-scoring non-empty attempt. Ties go to the
// first-listed configuration, so the merge is deterministic regardless of
// which goroutine finished first. Returns -1 when every attempt is empty.
func PickBest(attempts []Attempt, w ScoreWeights) int {
	best := -1
	bestScore := 0.0
	for i, a := range attempts {
		if a.Text == "" {
			continue
		}
		score := ScoreText(a.Text, w)
		if best == -1 || score > bestScore {
			best = i
			bestScore = score
		}
	}
	return best
}

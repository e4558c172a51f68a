package accuracy

import (
	"math"
	"strings"
)

// Report is the word-level comparison of a predicted transcript against ground truth.
type Report struct {
	Accuracy   float64  `json:"accuracy"` // percent, two decimals
	Correct    int      `json:"correct"`
	Total      int      `json:"total"`
	Mismatches []string `json:"mismatches"`
}

// MismatchDisplay joins the mismatched words for display.
func (r Report) MismatchDisplay() string {
	return strings.Join(r.Mismatches, ", ")
}

// Score compares the distinct words of predicted and groundTruth.
// total is the number of distinct ground-truth words and correct the number
// of those also present in predicted. percent is 0 when total is 0.
func Score(predicted, groundTruth string) (percent float64, correct, total int) {
	predSet := NewTokenSet(Normalize(predicted))
	truthSet := NewTokenSet(Normalize(groundTruth))
	return scoreSets(predSet, truthSet)
}

// Mismatches returns the ground-truth words, in order and with repeats,
// that do not appear anywhere in predicted.
func Mismatches(predicted, groundTruth string) []string {
	predSet := NewTokenSet(Normalize(predicted))
	return missing(predSet, Normalize(groundTruth))
}

// Evaluate computes Score and Mismatches with a single normalization pass per input.
func Evaluate(predicted, groundTruth string) Report {
	predSet := NewTokenSet(Normalize(predicted))
	truthSeq := Normalize(groundTruth)

	pct, correct, total := scoreSets(predSet, NewTokenSet(truthSeq))
	return Report{
		Accuracy:   pct,
		Correct:    correct,
		Total:      total,
		Mismatches: missing(predSet, truthSeq),
	}
}

func scoreSets(pred, truth TokenSet) (float64, int, int) {
	total := len(truth)
	if total == 0 {
		return 0, 0, 0
	}
	correct := pred.Intersect(truth)
	return Round2(float64(correct) / float64(total) * 100), correct, total
}

func missing(pred TokenSet, truth []string) []string {
	out := make([]string, 0)
	for _, w := range truth {
		if !pred.Contains(w) {
			out = append(out, w)
		}
	}
	return out
}

// Round2 rounds half to even at two decimals.
func Round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}

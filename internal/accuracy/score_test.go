package accuracy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name        string
		predicted   string
		truth       string
		wantPct     float64
		wantCorrect int
		wantTotal   int
	}{
		{"half right", "hello world", "hello there", 50.0, 1, 2},
		{"empty truth", "anything at all", "", 0.0, 0, 0},
		{"whitespace truth", "anything", "   \n", 0.0, 0, 0},
		{"empty prediction", "", "one two", 0.0, 0, 2},
		{"identical", "The cat sat.", "The cat sat.", 100.0, 3, 3},
		{"case and punctuation ignored", "THE CAT, SAT!", "the cat sat", 100.0, 3, 3},
		{"superset prediction", "a b c d e", "b d", 100.0, 2, 2},
		{"repeats counted once", "dog", "cat cat dog", 50.0, 1, 2},
		{"one third", "a", "a b c", 33.33, 1, 3},
		{"two thirds", "a b", "a b c", 66.67, 2, 3},
		{"one eighth", "a", "a b c d e f g h", 12.5, 1, 8},
		{"order ignored", "fox brown quick the", "the quick brown fox", 100.0, 4, 4},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pct, correct, total := Score(tc.predicted, tc.truth)
			require.Equal(t, tc.wantPct, pct)
			require.Equal(t, tc.wantCorrect, correct)
			require.Equal(t, tc.wantTotal, total)
		})
	}
}

func TestMismatches(t *testing.T) {
	tests := []struct {
		name      string
		predicted string
		truth     string
		want      []string
	}{
		{"order preserved", "the quick fox", "the quick brown fox jumps", []string{"brown", "jumps"}},
		{"repeats reported per occurrence", "dog", "cat cat dog", []string{"cat", "cat"}},
		{"all matched", "a b c", "c b a", []string{}},
		{"empty truth", "a b c", "", []string{}},
		{"empty prediction", "", "One, two; one", []string{"one", "two", "one"}},
		{"error string scores poorly", "❌ LLaMA OCR Error: timeout", "dear diary", []string{"dear", "diary"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Mismatches(tc.predicted, tc.truth))
		})
	}
}

func TestEvaluateMatchesSeparateCalls(t *testing.T) {
	pairs := [][2]string{
		{"hello world", "hello there"},
		{"the quick fox", "the quick brown fox jumps"},
		{"dog", "cat cat dog"},
		{"", ""},
		{"Dear Sir, I write to you.", "Dear sir, I am writing to you!"},
	}
	for _, p := range pairs {
		rep := Evaluate(p[0], p[1])
		pct, correct, total := Score(p[0], p[1])

		require.Equal(t, pct, rep.Accuracy)
		require.Equal(t, correct, rep.Correct)
		require.Equal(t, total, rep.Total)
		require.Equal(t, Mismatches(p[0], p[1]), rep.Mismatches)
	}
}

func TestScoreBounds(t *testing.T) {
	texts := []string{
		"", "a", "a a a", "The cat sat on the mat", "mat the on sat cat The dog",
		"foo@bar.com", "x-ray x_ray xray", "12 12 13", "Ünïcödé",
	}
	for _, p := range texts {
		for _, g := range texts {
			pct, correct, total := Score(p, g)
			require.LessOrEqual(t, correct, total)
			require.GreaterOrEqual(t, pct, 0.0)
			require.LessOrEqual(t, pct, 100.0)
			if g != "" && len(Normalize(g)) > 0 && p == g {
				require.Equal(t, 100.0, pct)
			}
		}
	}
}

func TestMismatchDisplay(t *testing.T) {
	rep := Evaluate("the fox", "the quick brown fox")
	require.Equal(t, "quick, brown", rep.MismatchDisplay())
	require.Equal(t, "", Evaluate("a", "a").MismatchDisplay())
}

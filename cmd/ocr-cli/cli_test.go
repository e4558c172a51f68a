package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/accuracy"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/evaluation"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/manifest"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/ocr"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("OCR_CONFIG_FILE", "")
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestScoreCommand(t *testing.T) {
	dir := t.TempDir()
	pred := writeFile(t, dir, "pred.txt", "the quick fox")
	truth := writeFile(t, dir, "truth.txt", "The quick brown fox jumps")

	out, err := runCLI(t, "score", "--predicted", pred, "--truth", truth)
	require.NoError(t, err)
	assert.Contains(t, out, "Word-Level Accuracy: 60.00% (3/5 correct)")
	assert.Contains(t, out, "Mismatched words: brown, jumps")
}

func TestScoreCommandJSON(t *testing.T) {
	dir := t.TempDir()
	pred := writeFile(t, dir, "pred.txt", "dog")
	truth := writeFile(t, dir, "truth.txt", "cat cat dog")

	out, err := runCLI(t, "score", "--predicted", pred, "--truth", truth, "--json")
	require.NoError(t, err)

	var r accuracy.Report
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.Equal(t, 50.0, r.Accuracy)
	assert.Equal(t, 1, r.Correct)
	assert.Equal(t, 2, r.Total)
	assert.Equal(t, []string{"cat", "cat"}, r.Mismatches)
}

func TestScoreCommandEmptyTruth(t *testing.T) {
	dir := t.TempDir()
	pred := writeFile(t, dir, "pred.txt", "anything")
	truth := writeFile(t, dir, "truth.txt", "   ")

	_, err := runCLI(t, "score", "--predicted", pred, "--truth", truth)
	assert.ErrorIs(t, err, evaluation.ErrGroundTruthRequired)
}

func TestScoreCommandRequiresFlags(t *testing.T) {
	_, err := runCLI(t, "score")
	assert.Error(t, err)
}

func TestExtractRequiresAPIKey(t *testing.T) {
	t.Setenv("TOGETHER_API_KEY", "")
	_, err := runCLI(t, "extract", "missing.png")
	assert.ErrorContains(t, err, "TOGETHER_API_KEY")
}

func TestPrintExtractOutcomes(t *testing.T) {
	var buf bytes.Buffer
	failed := printExtractOutcomes(&buf, []extractOutcome{
		{path: "a.png", result: ocr.Result{Text: "hello"}, pdfPath: "out/a_llama.pdf"},
		{path: "b.png", result: ocr.Result{Text: ocr.ErrorMarker + "boom", Failed: true}},
		{path: "c.gif", err: ocr.ErrUnsupportedFormat},
	})
	assert.Equal(t, 2, failed)

	out := buf.String()
	assert.Contains(t, out, "=== File 1: a.png\nhello\npdf: out/a_llama.pdf")
	assert.Contains(t, out, "=== File 2: b.png\n"+ocr.ErrorMarker+"boom")
	assert.Contains(t, out, "=== File 3: c.gif\nerror: ")
}

func TestPrintEvalSummary(t *testing.T) {
	var buf bytes.Buffer
	rows := printEvalSummary(&buf, []caseOutcome{
		{
			c:      manifest.Case{Title: "one.png"},
			result: ocr.Result{Text: "hello world", Model: "m"},
			report: accuracy.Evaluate("hello world", "hello there"),
		},
		{
			c:      manifest.Case{Title: "two.png"},
			result: ocr.Result{Text: "a b", Model: "m"},
			report: accuracy.Evaluate("a b", "a b"),
		},
		{c: manifest.Case{Title: "three.png"}, err: errors.New("read failed")},
	})

	require.Len(t, rows, 2)
	assert.Equal(t, "one.png", rows[0].Filename)
	assert.Equal(t, "SUCCEEDED", rows[0].Status)
	assert.Equal(t, []string{"there"}, rows[0].Mismatches)
	assert.Equal(t, 100.0, rows[1].Accuracy)

	out := buf.String()
	assert.Contains(t, out, "three.png")
	assert.Contains(t, out, "error: read failed")
	assert.Contains(t, out, "mean accuracy: 75.00% over 2 of 3 cases")
}

package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/common"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "truth.txt"), []byte("hello world\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cases.json"), []byte(`{
		"cases": [
			{"image": "imgs/a.png", "ground_truth": "a b c", "title": "First"},
			{"image": "/abs/b.jpg", "ground_truth_file": "truth.txt"}
		]
	}`), 0o644))

	m, err := Load(filepath.Join(dir, "cases.json"))
	require.NoError(t, err)
	require.Len(t, m.Cases, 2)

	assert.Equal(t, filepath.Join(dir, "imgs", "a.png"), m.Cases[0].Image)
	assert.Equal(t, "First", m.Cases[0].Title)
	assert.Equal(t, "/abs/b.jpg", m.Cases[1].Image)
	assert.Equal(t, "hello world\n", m.Cases[1].GroundTruth)
	assert.Equal(t, "b.jpg", m.Cases[1].Title)
}

func TestParse_Invalid(t *testing.T) {
	cases := map[string]string{
		"not json":      `{`,
		"no cases":      `{}`,
		"empty cases":   `{"cases": []}`,
		"missing image": `{"cases": [{"ground_truth": "x"}]}`,
		"no truth":      `{"cases": [{"image": "a.png"}]}`,
		"both truths":   `{"cases": [{"image": "a.png", "ground_truth": "x", "ground_truth_file": "t"}]}`,
		"unknown field": `{"cases": [{"image": "a.png", "ground_truth": "x", "extra": 1}]}`,
		"blank truth":   `{"cases": [{"image": "a.png", "ground_truth": "   "}]}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(raw), t.TempDir())
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrValidation)
		})
	}
}

func TestParse_MissingTruthFile(t *testing.T) {
	_, err := Parse([]byte(`{"cases": [{"image": "a.png", "ground_truth_file": "nope.txt"}]}`), t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

// Package manifest loads batch evaluation cases from a JSON file.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/common"
)

// Case is one image with the transcript it should produce.
type Case struct {
	Image       string `json:"image"`
	GroundTruth string `json:"ground_truth,omitempty"`
	TruthFile   string `json:"ground_truth_file,omitempty"`
	Title       string `json:"title,omitempty"`
}

// Manifest is the decoded file with every path made absolute and every
// ground truth loaded.
type Manifest struct {
	Dir   string `json:"-"`
	Cases []Case `json:"cases"`
}

var schema = common.NewSchema("manifest.json", map[string]any{
	"type":     "object",
	"required": []string{"cases"},
	"properties": map[string]any{
		"cases": map[string]any{
			"type":     "array",
			"minItems": 1,
			"items": map[string]any{
				"type":     "object",
				"required": []string{"image"},
				"properties": map[string]any{
					"image":             map[string]any{"type": "string", "minLength": 1},
					"ground_truth":      map[string]any{"type": "string"},
					"ground_truth_file": map[string]any{"type": "string", "minLength": 1},
					"title":             map[string]any{"type": "string"},
				},
				"oneOf": []any{
					map[string]any{"required": []string{"ground_truth"}},
					map[string]any{"required": []string{"ground_truth_file"}},
				},
				"additionalProperties": false,
			},
		},
	},
})

// Load reads, validates and resolves the manifest at path.
func Load(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw, filepath.Dir(abs))
}

// Parse validates raw and resolves relative paths against dir.
func Parse(raw []byte, dir string) (*Manifest, error) {
	if err := schema.Validate(raw); err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	m.Dir = dir

	for i := range m.Cases {
		c := &m.Cases[i]
		c.Image = resolve(dir, c.Image)
		if c.TruthFile != "" {
			c.TruthFile = resolve(dir, c.TruthFile)
			b, err := os.ReadFile(c.TruthFile)
			if err != nil {
				return nil, fmt.Errorf("case %d: read ground truth: %w", i, err)
			}
			c.GroundTruth = string(b)
		}
		if strings.TrimSpace(c.GroundTruth) == "" {
			return nil, fmt.Errorf("case %d (%s): %w: empty ground truth", i, c.Image, common.ErrValidation)
		}
		if c.Title == "" {
			c.Title = filepath.Base(c.Image)
		}
	}
	return &m, nil
}

func resolve(dir, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(dir, p)
}

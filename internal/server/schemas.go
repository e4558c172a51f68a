package server

import "github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/common"

type evaluateRequest struct {
	GroundTruth string `json:"ground_truth"`
}

type scoreRequest struct {
	Predicted   string `json:"predicted"`
	GroundTruth string `json:"ground_truth"`
}

var evaluateSchema = common.NewSchema("evaluate-request.json", map[string]any{
	"type":     "object",
	"required": []string{"ground_truth"},
	"properties": map[string]any{
		"ground_truth": map[string]any{"type": "string", "maxLength": 1 << 20},
	},
	"additionalProperties": false,
})

var scoreSchema = common.NewSchema("score-request.json", map[string]any{
	"type":     "object",
	"required": []string{"predicted", "ground_truth"},
	"properties": map[string]any{
		"predicted":    map[string]any{"type": "string", "maxLength": 1 << 20},
		"ground_truth": map[string]any{"type": "string", "maxLength": 1 << 20},
	},
	"additionalProperties": false,
})

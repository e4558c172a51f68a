package llm

import (
	"encoding/json"
	"fmt"

	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/common"
)

// Chunk is one streamed chat/completions delta.
type Chunk struct {
	ID      string `json:"id,omitempty"`
	Model   string `json:"model,omitempty"`
	Choices []struct {
		Index int `json:"index"`
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason,omitempty"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// chunkSchema is the subset of the streaming chunk shape we rely on.
var chunkSchema = common.NewSchema("chat-chunk.json", map[string]any{
	"type": "object",
	"properties": map[string]any{
		"model": map[string]any{"type": "string"},
		"choices": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"delta": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"content": map[string]any{"type": []string{"string", "null"}},
						},
					},
				},
			},
		},
		"error": map[string]any{"type": "object"},
	},
	"anyOf": []any{
		map[string]any{"required": []string{"choices"}},
		map[string]any{"required": []string{"error"}},
	},
})

// DecodeChunk validates a raw stream payload and decodes it.
func DecodeChunk(data []byte) (Chunk, error) {
	var c Chunk
	if err := chunkSchema.Validate(data); err != nil {
		return c, err
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("decode chunk: %w", err)
	}
	return c, nil
}

// Content returns the first choice's delta content, if any.
func (c Chunk) Content() string {
	if len(c.Choices) == 0 {
		return ""
	}
	return c.Choices[0].Delta.Content
}

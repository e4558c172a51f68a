package llm

import (
	"encoding/base64"
	"strings"
)

// DefaultPrompt asks for a verbatim transcription.
const DefaultPrompt = "Extract the exact text from the image without adding any explanation or description. Return only the raw text string."

// Message is one chat turn in the OpenAI-compatible wire format.
type Message struct {
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

// ContentPart is a text or image_url part of a multimodal message.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL holds a remote or data: URL.
type ImageURL struct {
	URL string `json:"url"`
}

// DataURL encodes image bytes as a base64 data: URL.
func DataURL(mime string, data []byte) string {
	if mime == "" {
		mime = "image/jpeg"
	}
	var b strings.Builder
	b.Grow(len("data:;base64,") + len(mime) + base64.StdEncoding.EncodedLen(len(data)))
	b.WriteString("data:")
	b.WriteString(mime)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(data))
	return b.String()
}

// BuildVisionMessages returns a single user turn with the prompt and the image.
func BuildVisionMessages(prompt, mime string, image []byte) []Message {
	if strings.TrimSpace(prompt) == "" {
		prompt = DefaultPrompt
	}
	return []Message{
		{
			Role: "user",
			Content: []ContentPart{
				{Type: "text", Text: prompt},
				{Type: "image_url", ImageURL: &ImageURL{URL: DataURL(mime, image)}},
			},
		},
	}
}

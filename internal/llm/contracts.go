package llm

import "context"

// TranscribeRequest carries one image to a vision model.
type TranscribeRequest struct {
	Image    []byte
	MIMEType string // image/jpeg | image/png
	Prompt   string // empty -> DefaultPrompt
	Filename string // for logs only
}

// TranscribeResult is the assembled model output.
type TranscribeResult struct {
	Text          string
	Model         string
	Chunks        int // stream chunks that carried content
	SkippedChunks int // chunks rejected by ValidateChunk
}

// Transcriber is the interface the OCR extractor depends on.
type Transcriber interface {
	Transcribe(ctx context.Context, req TranscribeRequest) (TranscribeResult, error)
}

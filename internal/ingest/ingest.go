package ingest

import (
	"github.com/google/uuid"

	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/constants"
)

// Result is the per-file ingest outcome.
type Result struct {
	SourcePath   string                   `json:"source_path,omitempty"`
	Filename     string                   `json:"filename"`
	DocumentID   uuid.UUID                `json:"document_id"`
	Status       constants.DocumentStatus `json:"status"`
	Deduplicated bool                     `json:"deduplicated"`
	HashHex      string                   `json:"hash"`
	Queued       bool                     `json:"queued"`
	Err          string                   `json:"error,omitempty"`
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned      uint32 `json:"scanned"`
	Matched      uint32 `json:"matched"`
	Succeeded    uint32 `json:"succeeded"`
	Deduplicated uint32 `json:"deduplicated"`
	Failed       uint32 `json:"failed"`
}

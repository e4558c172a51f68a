package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/constants"
)

// Document is one uploaded image and its OCR outcome.
type Document struct {
	ID            uuid.UUID                `json:"id"`
	Filename      string                   `json:"filename"`
	MIMEType      string                   `json:"mime_type"`
	SizeBytes     int64                    `json:"size_bytes"`
	ContentHash   string                   `json:"content_hash"`
	Image         []byte                   `json:"-"`
	Status        constants.DocumentStatus `json:"status"`
	PredictedText string                   `json:"predicted_text,omitempty"`
	ErrorMessage  string                   `json:"error_message,omitempty"`
	ModelName     string                   `json:"model_name,omitempty"`
	Attempts      int                      `json:"attempts"`
	CreatedAt     time.Time                `json:"created_at"`
	UpdatedAt     time.Time                `json:"updated_at"`
	StartedAt     *time.Time               `json:"started_at,omitempty"`
	FinishedAt    *time.Time               `json:"finished_at,omitempty"`
}

package entity

import (
	"time"

	"github.com/google/uuid"
)

// Evaluation is one scoring of a document's predicted text against a ground truth.
type Evaluation struct {
	ID          uuid.UUID `json:"id"`
	DocumentID  uuid.UUID `json:"document_id"`
	GroundTruth string    `json:"ground_truth"`
	Predicted   string    `json:"predicted"`
	Accuracy    float64   `json:"accuracy"`
	Correct     int       `json:"correct"`
	Total       int       `json:"total"`
	Mismatches  []string  `json:"mismatches"`
	CreatedAt   time.Time `json:"created_at"`
}

package constants

// DocumentStatus is the canonical status for rows in documents.
type DocumentStatus string

// Stable values (store these exact strings in DB).
const (
	DocumentStatusQueued  DocumentStatus = "QUEUED"  // waiting for a worker
	DocumentStatusRunning DocumentStatus = "RUNNING" // model call in progress
	DocumentStatusOCROK   DocumentStatus = "OCR_OK"  // text extracted
	DocumentStatusFailed  DocumentStatus = "FAILED"  // model call failed; text holds the marked error
)

// Terminal reports whether no further OCR work is pending for the status.
func (s DocumentStatus) Terminal() bool {
	return s == DocumentStatusOCROK || s == DocumentStatusFailed
}

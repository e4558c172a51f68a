package export

import "errors"

// ErrNotReady is returned for documents still waiting for OCR.
var ErrNotReady = errors.New("document has no extracted text yet")

package server

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/common"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/evaluation"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/ingest"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/ocr"
)

const (
	maxJSONBody      = 4 << 20
	defaultListLimit = 100
	xlsxContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type handlers struct {
	deps *Deps
}

// uploadDocuments accepts one or more multipart "files" and queues each for OCR.
func (h *handlers) uploadDocuments(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		writeError(c, fmt.Errorf("%w: expected multipart form: %v", common.ErrInvalidInput, err))
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		writeError(c, fmt.Errorf("%w: no files uploaded", common.ErrInvalidInput))
		return
	}
	force, _ := strconv.ParseBool(c.DefaultQuery("force", "false"))

	results := make([]ingest.Result, 0, len(files))
	for _, fh := range files {
		r, err := h.ingestOne(c, fh, force)
		r.Filename = fh.Filename
		if err != nil {
			r.Err = publicMessage(err, httpStatus(err))
		}
		results = append(results, r)
	}
	c.JSON(http.StatusAccepted, gin.H{"results": results})
}

func (h *handlers) ingestOne(c *gin.Context, fh *multipart.FileHeader, force bool) (ingest.Result, error) {
	if fh.Size > h.deps.MaxUploadBytes {
		return ingest.Result{}, ocr.ErrImageTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return ingest.Result{}, err
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, h.deps.MaxUploadBytes+1))
	if err != nil {
		return ingest.Result{}, err
	}
	return h.deps.Ingestor.Ingest(c.Request.Context(), fh.Filename, data, force)
}

func (h *handlers) listDocuments(c *gin.Context) {
	limit := defaultListLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(c, fmt.Errorf("%w: limit must be a non-negative integer", common.ErrInvalidInput))
			return
		}
		limit = n
	}
	docs, err := h.deps.Documents.List(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

func (h *handlers) getDocument(c *gin.Context) {
	id, ok := documentID(c)
	if !ok {
		return
	}
	doc, err := h.deps.Documents.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *handlers) getImage(c *gin.Context) {
	id, ok := documentID(c)
	if !ok {
		return
	}
	doc, err := h.deps.Documents.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, doc.MIMEType, doc.Image)
}

func (h *handlers) evaluateDocument(c *gin.Context) {
	id, ok := documentID(c)
	if !ok {
		return
	}
	var req evaluateRequest
	if !bindJSON(c, evaluateSchema, &req) {
		return
	}
	out, err := h.deps.Evaluations.Evaluate(c.Request.Context(), id, req.GroundTruth)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h *handlers) listDocumentEvaluations(c *gin.Context) {
	id, ok := documentID(c)
	if !ok {
		return
	}
	evs, err := h.deps.Evaluations.History(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"evaluations": evs})
}

func (h *handlers) documentPDF(c *gin.Context) {
	id, ok := documentID(c)
	if !ok {
		return
	}
	name, b, err := h.deps.Export.DocumentPDF(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, "application/pdf", b)
}

func (h *handlers) score(c *gin.Context) {
	var req scoreRequest
	if !bindJSON(c, scoreSchema, &req) {
		return
	}
	report, err := evaluation.Score(req.Predicted, req.GroundTruth)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"accuracy":         report.Accuracy,
		"correct":          report.Correct,
		"total":            report.Total,
		"mismatches":       report.Mismatches,
		"mismatch_display": report.MismatchDisplay(),
	})
}

func (h *handlers) evaluationsXLSX(c *gin.Context) {
	from, err := parseDate(c.Query("from"))
	if err != nil {
		writeError(c, err)
		return
	}
	to, err := parseDate(c.Query("to"))
	if err != nil {
		writeError(c, err)
		return
	}
	if from != nil && to != nil && to.Before(*from) {
		writeError(c, fmt.Errorf("%w: to is before from", common.ErrInvalidInput))
		return
	}
	b, err := h.deps.Export.ExportEvaluationsXLSX(c.Request.Context(), from, to)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="evaluations.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, b)
}

func documentID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeError(c, fmt.Errorf("%w: id must be a UUID", common.ErrInvalidInput))
		return uuid.Nil, false
	}
	return id, true
}

// bindJSON validates the body against schema, then decodes it into dst.
func bindJSON(c *gin.Context, schema *common.Schema, dst any) bool {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxJSONBody))
	if err != nil {
		writeError(c, fmt.Errorf("%w: read body: %v", common.ErrInvalidInput, err))
		return false
	}
	if err := schema.Validate(raw); err != nil {
		writeError(c, err)
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		writeError(c, fmt.Errorf("%w: %v", common.ErrInvalidInput, err))
		return false
	}
	return true
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("%w: dates must be YYYY-MM-DD", common.ErrInvalidInput)
	}
	return &t, nil
}

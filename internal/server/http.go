package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/constants"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/common"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/evaluation"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/export"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/ingest"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/repository"
)

const requestIDHeader = "X-Request-ID"

// Deps are the services the HTTP and gRPC surfaces call into.
type Deps struct {
	Ingestor       *ingest.Ingestor
	Documents      repository.DocumentRepository
	Evaluations    *evaluation.Service
	Export         *export.Service
	MaxUploadBytes int64
	HealthCheck    func(ctx context.Context) error
	Logger         *slog.Logger
}

func (d *Deps) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

// NewRouter builds the gin engine with all API routes.
func NewRouter(d *Deps) *gin.Engine {
	if d.MaxUploadBytes <= 0 {
		d.MaxUploadBytes = constants.MaxImageBytes
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog(d.logger()))

	r.GET("/health", func(c *gin.Context) {
		if d.HealthCheck != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
			defer cancel()
			if err := d.HealthCheck(ctx); err != nil {
				c.String(http.StatusServiceUnavailable, "unhealthy")
				return
			}
		}
		c.String(http.StatusOK, "ok")
	})

	h := &handlers{deps: d}
	v1 := r.Group("/api/v1")
	{
		v1.POST("/documents", h.uploadDocuments)
		v1.GET("/documents", h.listDocuments)
		v1.GET("/documents/:id", h.getDocument)
		v1.GET("/documents/:id/image", h.getImage)
		v1.POST("/documents/:id/evaluations", h.evaluateDocument)
		v1.GET("/documents/:id/evaluations", h.listDocumentEvaluations)
		v1.GET("/documents/:id/pdf", h.documentPDF)
		v1.POST("/score", h.score)
		v1.GET("/evaluations.xlsx", h.evaluationsXLSX)
	}
	return r
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		c.Request = c.Request.WithContext(common.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

func accessLog(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		attrs := []any{
			"req_id", common.RequestIDFromContext(c.Request.Context()),
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"bytes", c.Writer.Size(),
			"client_ip", c.ClientIP(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		}
		switch {
		case c.Writer.Status() >= 500:
			logger.Error("http.request", attrs...)
		case c.Writer.Status() >= 400:
			logger.Warn("http.request", attrs...)
		default:
			logger.Info("http.request", attrs...)
		}
	}
}

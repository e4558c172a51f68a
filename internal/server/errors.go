package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/async"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/common"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/evaluation"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/export"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/ocr"
)

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// httpStatus maps domain errors onto HTTP status codes.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ocr.ErrImageTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ocr.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, evaluation.ErrGroundTruthRequired),
		errors.Is(err, ocr.ErrEmptyImage),
		errors.Is(err, common.ErrValidation),
		errors.Is(err, common.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, evaluation.ErrNotReady), errors.Is(err, export.ErrNotReady):
		return http.StatusConflict
	case errors.Is(err, export.ErrFontMissing), errors.Is(err, async.ErrQueueClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage hides internal details behind a generic message.
func publicMessage(err error, code int) string {
	if code >= 500 && code != http.StatusServiceUnavailable {
		return "internal error"
	}
	switch {
	case errors.Is(err, ocr.ErrImageTooLarge):
		return ocr.ErrImageTooLarge.Error()
	case errors.Is(err, evaluation.ErrGroundTruthRequired):
		return evaluation.ErrGroundTruthRequired.Error()
	}
	return err.Error()
}

func writeError(c *gin.Context, err error) {
	code := httpStatus(err)
	if code >= 500 {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(code, errorBody{
		Error:     publicMessage(err, code),
		RequestID: common.RequestIDFromContext(c.Request.Context()),
	})
}

// grpcError maps domain errors onto gRPC status errors.
func grpcError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch httpStatus(err) {
	case http.StatusNotFound:
		return common.NotFoundError(err.Error())
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType:
		return common.InvalidArgumentError(err.Error())
	case http.StatusConflict:
		return common.FailedPreconditionError(err.Error())
	case http.StatusServiceUnavailable:
		return status.Error(codes.Unavailable, err.Error())
	case http.StatusGatewayTimeout:
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return common.InternalError("internal error")
	}
}

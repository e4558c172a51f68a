package together

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/llm"
)

var _ llm.Transcriber = (*Client)(nil)

// ErrMissingAPIKey is returned before any network call when no key is configured.
var ErrMissingAPIKey = errors.New("together: api key not configured")

// Transcribe sends the image with the prompt and concatenates the streamed deltas.
func (c *Client) Transcribe(ctx context.Context, req llm.TranscribeRequest) (llm.TranscribeResult, error) {
	rid := uuid.New().String()
	start := time.Now()
	out := llm.TranscribeResult{Model: c.cfg.Model}

	if c.cfg.APIKey == "" {
		return out, ErrMissingAPIKey
	}

	c.logger.Info("llm.transcribe.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"filename", req.Filename,
		"mime", req.MIMEType,
		"image_bytes", len(req.Image),
	)

	body := map[string]any{
		"model":    c.cfg.Model,
		"messages": llm.BuildVisionMessages(req.Prompt, req.MIMEType, req.Image),
		"stream":   true,
	}
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"

	stream, err := llm.OpenStream(ctx, c.http, endpoint, body, headers, c.logger)
	if err != nil {
		c.logger.Error("llm.transcribe.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return out, fmt.Errorf("together request: %w", err)
	}
	defer func() {
		if cerr := stream.Close(); cerr != nil {
			c.logger.Warn("llm.transcribe.body_close_error", "req_id", rid, "error", cerr)
		}
	}()

	var sb strings.Builder
	err = llm.ReadSSE(stream, func(data []byte) error {
		chunk, derr := llm.DecodeChunk(data)
		if derr != nil {
			out.SkippedChunks++
			c.logger.Warn("llm.transcribe.chunk_rejected", "req_id", rid, "error", derr)
			return nil
		}
		if chunk.Error != nil {
			return fmt.Errorf("stream error: %s", chunk.Error.Message)
		}
		if chunk.Model != "" {
			out.Model = chunk.Model
		}
		if s := chunk.Content(); s != "" {
			out.Chunks++
			sb.WriteString(s)
		}
		return nil
	})
	if err != nil {
		c.logger.Error("llm.transcribe.stream_error",
			"req_id", rid, "error", err,
			"chunks", out.Chunks,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return out, fmt.Errorf("together stream: %w", err)
	}

	out.Text = strings.TrimSpace(sb.String())
	c.logger.Info("llm.transcribe.ok",
		"req_id", rid,
		"model", out.Model,
		"chunks", out.Chunks,
		"skipped_chunks", out.SkippedChunks,
		"text_len", len(out.Text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

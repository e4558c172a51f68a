package ocr

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/common"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/llm"
)

// ErrorMarker prefixes the text of a failed extraction.
const ErrorMarker = "❌ LLaMA OCR Error: "

type Config struct {
	Prompt string // empty -> llm.DefaultPrompt
}

// Result is what the UI shows. A failed call is still a Result: Text holds the
// marked error string and Failed is set.
type Result struct {
	Text     string
	Model    string
	Failed   bool
	Error    string
	Duration time.Duration
}

type Extractor struct {
	cfg    Config
	llm    llm.Transcriber
	logger *slog.Logger
}

func NewExtractor(cfg Config, t llm.Transcriber, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(cfg.Prompt) == "" {
		cfg.Prompt = llm.DefaultPrompt
	}
	return &Extractor{cfg: cfg, llm: t, logger: logger}
}

// Extract runs one image through the transcriber. It never returns an error:
// transport and model failures are folded into the Result.
func (e *Extractor) Extract(ctx context.Context, img Image) Result {
	start := time.Now()
	log := common.LoggerFromContext(ctx, e.logger)
	log.Info("ocr.extract.start", "filename", img.Filename, "mime", img.MIMEType, "bytes", len(img.Data))

	res, err := e.llm.Transcribe(ctx, llm.TranscribeRequest{
		Image:    img.Data,
		MIMEType: img.MIMEType,
		Prompt:   e.cfg.Prompt,
		Filename: img.Filename,
	})
	elapsed := time.Since(start)
	if err != nil {
		log.Error("ocr.extract.failed", "filename", img.Filename, "error", err, "elapsed_ms", elapsed.Milliseconds())
		return Result{
			Text:     ErrorMarker + err.Error(),
			Model:    res.Model,
			Failed:   true,
			Error:    err.Error(),
			Duration: elapsed,
		}
	}

	log.Info("ocr.extract.ok",
		"filename", img.Filename,
		"model", res.Model,
		"text_len", len(res.Text),
		"elapsed_ms", elapsed.Milliseconds(),
	)
	return Result{Text: res.Text, Model: res.Model, Duration: elapsed}
}

// IsErrorText reports whether text is a marked extraction failure.
func IsErrorText(text string) bool {
	return strings.HasPrefix(text, ErrorMarker)
}

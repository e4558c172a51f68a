package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/async"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/common"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/evaluation"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/export"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/ingest"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/llm/together"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/ocr"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/pipeline"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/repository"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/server"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ocrd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := common.LoadConfig()
	if err != nil {
		return err
	}
	logger := common.NewLogger(cfg.Log, os.Stdout)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		return err
	}

	// Context with signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.Open(ctx, repository.Config{
		DSN:              cfg.Database.DSN,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	}, logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close(logger)

	if err := db.HealthCheck(ctx, 3*time.Second); err != nil {
		return fmt.Errorf("database health: %w", err)
	}
	logger.Info("db.health.ok", "dialect", db.Dialect())

	docs := repository.NewDocumentRepository(db, logger)
	evalRepo := repository.NewEvaluationRepository(db, logger)

	llmClient := together.NewClient(together.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	}, logger)
	extractor := ocr.NewExtractor(ocr.Config{}, llmClient, logger)
	processor := pipeline.NewProcessor(docs, extractor, logger)

	queue := async.NewProcessorQueue(processor, logger,
		async.WithWorkers(cfg.OCR.Workers),
		async.WithQueueSize(cfg.OCR.QueueSize),
		async.WithProcessTimeout(cfg.OCR.JobTimeout),
	)

	ingestor := ingest.NewIngestor(docs, queue, int64(cfg.OCR.MaxImageBytes), logger)
	if n, err := ingestor.ResumePending(ctx); err != nil {
		logger.Warn("ingest.resume.failed", "resumed", n, "error", err)
	}

	pdf := export.NewPDFRenderer(cfg.PDF.FontPath)
	if err := pdf.Available(); err != nil {
		// PDF downloads answer 503 until the font is installed.
		logger.Warn("pdf.font.missing", "path", cfg.PDF.FontPath, "error", err)
	}
	evals := evaluation.NewService(docs, evalRepo, logger)
	exports := export.NewService(docs, evalRepo, pdf, logger)

	gin.SetMode(gin.ReleaseMode)
	router := server.NewRouter(&server.Deps{
		Ingestor:       ingestor,
		Documents:      docs,
		Evaluations:    evals,
		Export:         exports,
		MaxUploadBytes: int64(cfg.OCR.MaxImageBytes),
		HealthCheck: func(ctx context.Context) error {
			return db.HealthCheck(ctx, 3*time.Second)
		},
		Logger: logger,
	})
	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcServer, hs := server.NewGRPCServer(server.NewScoringService(evals, logger), logger)
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("http.serving", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http serve: %w", err)
		}
	}()
	go func() {
		logger.Info("grpc.serving", "addr", cfg.Server.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc serve: %w", err)
		}
	}()

	if cfg.Inbox.Dir != "" {
		go func() {
			err := ingestor.WatchAndIngest(ctx, ingest.WatchConfig{
				Roots:       []string{cfg.Inbox.Dir},
				InitialScan: true,
				Debounce:    cfg.Inbox.Debounce,
				SkipHidden:  true,
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("ingest.watch.stopped", "dir", cfg.Inbox.Dir, "error", err)
			}
		}()
	}

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case serveErr = <-errCh:
		logger.Error("server failed", "error", serveErr)
	}

	hs.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http.shutdown", "error", err)
	}
	grpcServer.GracefulStop()
	queue.Shutdown(shutdownCtx)
	logger.Info("stopped")
	return serveErr
}

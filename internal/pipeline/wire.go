package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/expensebot/mailledger/constants"
	"github.com/expensebot/mailledger/internal/acquire"
	"github.com/expensebot/mailledger/internal/common"
	"github.com/expensebot/mailledger/internal/extract"
	"github.com/expensebot/mailledger/internal/ledger"
	"github.com/expensebot/mailledger/internal/llm/openai"
	"github.com/expensebot/mailledger/internal/normalize"
	"github.com/expensebot/mailledger/internal/ocr"
)

// Build wires a Processor from configuration. The returned cleanup closes the
// ledger backend and must be called on shutdown.
func Build(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*Processor, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}

	engine := ocr.NewExtractor(ocr.Config{
		Tesseract:   cfg.OCR.Tesseract,
		Language:    cfg.OCR.Language,
		TessdataDir: cfg.OCR.TessdataDir,
		TempDir:     cfg.OCR.TempDir,
	}, logger)
	acquirer := acquire.NewAcquirer(ocr.NewAdapter(engine, logger), logger)

	completer := openai.NewClient(openai.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, logger)
	extractor := extract.NewClient(completer, constants.AsStringSlice(), logger)

	normalizer, err := normalize.New(logger)
	if err != nil {
		return nil, nil, err
	}

	writer, err := buildWriter(ctx, cfg.Ledger, logger)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := writer.Close(); err != nil {
			logger.Warn("pipeline.ledger.close_error", "error", err)
		}
	}

	logger.Info("pipeline.ready",
		"ledger_backend", cfg.Ledger.Backend,
		"model", cfg.LLM.Model,
		"dedupe", cfg.Ledger.DedupeBySourceID,
	)
	return NewProcessor(acquirer, extractor, normalizer, writer, cfg.Ledger.DedupeBySourceID, logger), cleanup, nil
}

func buildWriter(ctx context.Context, cfg common.LedgerConfig, logger *slog.Logger) (ledger.Writer, error) {
	switch cfg.Backend {
	case "xlsx":
		return ledger.NewXLSXWriter(cfg.Path, cfg.Sheet, logger), nil
	case "csv":
		return ledger.NewCSVWriter(cfg.Path, logger), nil
	case "sqlite":
		return ledger.NewSQLiteWriter(cfg.Path, logger)
	case "postgres":
		return ledger.NewPostgresWriter(ctx, ledger.PostgresConfig{DSN: cfg.DSN}, logger)
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Backend)
	}
}

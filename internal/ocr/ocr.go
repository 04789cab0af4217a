package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/expensebot/mailledger/constants"
)

type Config struct {
	Tesseract   string // binary name or absolute path; if empty -> "tesseract"
	Language    string // default "eng"
	TessdataDir string
	TempDir     string // staging dir for attachment bytes; default os.TempDir()
}

// Extractor runs tesseract over in-memory image bytes. Attachments arrive as
// byte slices, so each call stages them in a temp file the engine can read.
type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	return &Extractor{cfg: cfg, runner: execRunner{}, logger: logger}
}

// ExtractImage OCRs one image. contentType picks the staged file's extension
// so tesseract detects the format.
func (e *Extractor) ExtractImage(ctx context.Context, data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty image data")
	}

	path := filepath.Join(e.cfg.TempDir, uuid.NewString()+"."+constants.ExtForMIME(contentType))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("stage image: %w", err)
	}
	defer func() {
		if err := os.Remove(path); err != nil {
			e.logger.Warn("ocr.cleanup.failed", "path", path, "error", err)
		}
	}()

	args := []string{path, "stdout", "-l", e.cfg.Language}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}

	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w (stderr: %s)", err, truncate(string(errb), 512))
	}
	return Normalize(string(out)), nil
}

package ocr

import (
	"context"
	"log/slog"
)

// Engine is what the adapter needs from the extractor.
type Engine interface {
	ExtractImage(ctx context.Context, data []byte, contentType string) (string, error)
}

// Adapter wraps the extractor with the degrade-to-nothing policy: engine
// failures (corrupt image, unsupported format, missing binary) yield an empty
// string so one bad attachment never aborts the whole message.
type Adapter struct {
	engine Engine
	logger *slog.Logger
}

func NewAdapter(engine Engine, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{engine: engine, logger: logger}
}

// ExtractText never fails; it returns "" when the engine does.
func (a *Adapter) ExtractText(ctx context.Context, data []byte, contentType string) string {
	text, err := a.engine.ExtractImage(ctx, data, contentType)
	if err != nil {
		a.logger.Warn("ocr.extract.degraded",
			"content_type", contentType,
			"bytes", len(data),
			"error", err,
		)
		return ""
	}
	return text
}

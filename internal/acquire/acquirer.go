// Package acquire turns a raw message into the single text blob the
// extraction client consumes: decoded body text plus OCR output from image
// attachments, in attachment order.
package acquire

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/emersion/go-message/charset"

	"github.com/expensebot/mailledger/constants"
	"github.com/expensebot/mailledger/internal/entity"
)

// OCRText is the degrade-to-nothing OCR boundary.
type OCRText interface {
	ExtractText(ctx context.Context, data []byte, contentType string) string
}

type Acquirer struct {
	ocr    OCRText
	logger *slog.Logger
}

func NewAcquirer(ocr OCRText, logger *slog.Logger) *Acquirer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Acquirer{ocr: ocr, logger: logger}
}

// Acquire produces the combined text for one message. Whitespace-only results
// collapse to ""; an empty return means "nothing extractable" and
// short-circuits the rest of the pipeline downstream.
func (a *Acquirer) Acquire(ctx context.Context, msg *entity.RawMessage) string {
	var parts []string

	if body := strings.TrimSpace(a.decodeBody(msg)); body != "" {
		parts = append(parts, body)
	}

	for _, att := range msg.Attachments {
		if !constants.IsImageMIME(att.ContentType) {
			continue
		}
		text := strings.TrimSpace(a.ocr.ExtractText(ctx, att.Content, att.ContentType))
		if text == "" {
			a.logger.Debug("acquire.attachment.empty",
				"message_id", msg.ID, "filename", att.Filename)
			continue
		}
		parts = append(parts, text)
	}

	combined := strings.Join(parts, "\n")
	if strings.TrimSpace(combined) == "" {
		return ""
	}
	return combined
}

// decodeBody decodes the body using its declared charset; on any decode
// failure it falls back to byte-to-text with replacement characters. Never
// fails.
func (a *Acquirer) decodeBody(msg *entity.RawMessage) string {
	if len(msg.Body) == 0 {
		return ""
	}

	cs := strings.ToLower(strings.TrimSpace(msg.BodyCharset))
	if cs != "" && cs != "utf-8" && cs != "us-ascii" {
		if r, err := charset.Reader(cs, bytes.NewReader(msg.Body)); err == nil {
			if decoded, err := io.ReadAll(r); err == nil {
				return strings.ToValidUTF8(string(decoded), "�")
			}
		}
		a.logger.Warn("acquire.body.charset_fallback",
			"message_id", msg.ID, "charset", cs)
	}
	return strings.ToValidUTF8(string(msg.Body), "�")
}

package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/textproto"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/expensebot/mailledger/internal/entity"
	"github.com/expensebot/mailledger/internal/mail"
	"github.com/expensebot/mailledger/internal/pipeline"
)

const maxAttachmentBytes = 20 << 20 // per-file cap on inbound uploads

// MessageSink is the pipeline boundary the webhook drives.
type MessageSink interface {
	Process(ctx context.Context, msg *entity.RawMessage) (pipeline.Result, error)
}

// WebhookHandler accepts SendGrid-style inbound-parse posts. Each request is
// one email; requests are processed concurrently, one pipeline run each.
type WebhookHandler struct {
	sink   MessageSink
	logger *slog.Logger
}

func NewWebhookHandler(sink MessageSink, logger *slog.Logger) *WebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookHandler{sink: sink, logger: logger}
}

// HandleInbound maps the multipart form onto a RawMessage and runs the
// pipeline. Anything short of a ledger write failure returns 200 — a
// malformed or rejected message must be consumed, not redelivered forever.
// Only a write failure returns 5xx so the provider retries.
func (h *WebhookHandler) HandleInbound(c *gin.Context) {
	msg, err := h.parseForm(c)
	if err != nil {
		h.logger.Warn("webhook.request.malformed", "error", err)
		c.JSON(http.StatusOK, gin.H{
			"status": "received",
			"logged": false,
			"reason": "unparsable payload",
		})
		return
	}

	result, err := h.sink.Process(c.Request.Context(), msg)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ledger write failed"})
		return
	}

	resp := gin.H{"status": "received", "message_id": msg.ID}
	if result.Logged {
		resp["logged"] = true
	} else if result.Drop != nil {
		resp["logged"] = false
		resp["reason"] = result.Drop.Error()
	}
	c.JSON(http.StatusOK, resp)
}

var reMessageID = regexp.MustCompile(`(?im)^Message-ID:\s*<?([^>\r\n]+)>?`)

func (h *WebhookHandler) parseForm(c *gin.Context) (*entity.RawMessage, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, fmt.Errorf("multipart form: %w", err)
	}

	msg := &entity.RawMessage{
		Sender:      firstValue(form.Value, "from"),
		Subject:     firstValue(form.Value, "subject"),
		BodyCharset: "utf-8",
		ReceivedAt:  time.Now().UTC(),
	}

	// inbound-parse ships the original headers verbatim; mine them for the id
	if m := reMessageID.FindStringSubmatch(firstValue(form.Value, "headers")); len(m) == 2 {
		msg.ID = strings.TrimSpace(m[1])
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}

	if text := firstValue(form.Value, "text"); strings.TrimSpace(text) != "" {
		msg.Body = []byte(text)
	} else if html := firstValue(form.Value, "html"); strings.TrimSpace(html) != "" {
		msg.Body = []byte(mail.StripHTML(html))
	}

	count, _ := strconv.Atoi(firstValue(form.Value, "attachments"))
	for i := 1; i <= count; i++ {
		files := form.File["attachment"+strconv.Itoa(i)]
		if len(files) == 0 {
			continue
		}
		fh := files[0]
		if fh.Size > maxAttachmentBytes {
			h.logger.Warn("webhook.attachment.too_large",
				"message_id", msg.ID, "filename", fh.Filename, "bytes", fh.Size)
			continue
		}
		f, err := fh.Open()
		if err != nil {
			h.logger.Warn("webhook.attachment.unreadable",
				"message_id", msg.ID, "filename", fh.Filename, "error", err)
			continue
		}
		content, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			h.logger.Warn("webhook.attachment.unreadable",
				"message_id", msg.ID, "filename", fh.Filename, "error", err)
			continue
		}
		msg.Attachments = append(msg.Attachments, entity.Attachment{
			Filename:    fh.Filename,
			ContentType: contentTypeOf(fh.Header),
			Content:     content,
		})
	}

	return msg, nil
}

func firstValue(values map[string][]string, key string) string {
	if v := values[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

func contentTypeOf(h textproto.MIMEHeader) string {
	if ct := h.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

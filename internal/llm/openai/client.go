package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/expensebot/mailledger/internal/llm"
)

// Complete implements llm.Completer over chat/completions with JSON-object
// response format. It returns the first choice's content verbatim; callers
// parse it defensively.
func (c *Client) Complete(ctx context.Context, system, user string) ([]byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("llm.complete.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"user_len", len(user),
	)

	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}

	raw, _, err := llm.SendJSON(ctx, c.http, endpoint, body, headers, c.logger)
	if err != nil {
		c.logger.Error("llm.complete.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.logger.Error("llm.complete.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw))
		return nil, fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		c.logger.Error("llm.complete.no_choices", "req_id", rid)
		return nil, fmt.Errorf("no choices in openai response")
	}

	content := strings.TrimSpace(cc.Choices[0].Message.Content)
	c.logger.Info("llm.complete.ok",
		"req_id", rid,
		"content_bytes", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return []byte(content), nil
}

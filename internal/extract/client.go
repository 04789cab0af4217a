// Package extract calls the language model with the fixed instruction
// template and hands back the raw payload, unparsed.
package extract

import (
	"context"
	"log/slog"
	"strings"

	"github.com/expensebot/mailledger/internal/llm"
)

// minSignificantChars mirrors the short-input gate of the original pipeline:
// fewer significant characters than this is treated as nothing extractable.
const minSignificantChars = 5

type Client struct {
	completer llm.Completer
	system    string // fixed instruction template, built once
	logger    *slog.Logger
}

func NewClient(completer llm.Completer, categories []string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		completer: completer,
		system:    llm.BuildSystemPrompt(categories),
		logger:    logger,
	}
}

// Extract runs one stateless, single-turn extraction. Empty (or effectively
// empty) input short-circuits with ErrEmptyInput before any provider call;
// provider failures come back as *ProviderError. The returned payload is the
// model's raw text, not guaranteed to be well-formed JSON.
func (c *Client) Extract(ctx context.Context, text string) ([]byte, error) {
	if len(strings.TrimSpace(text)) < minSignificantChars {
		return nil, ErrEmptyInput
	}

	payload, err := c.completer.Complete(ctx, c.system, llm.BuildUserPrompt(text))
	if err != nil {
		return nil, &ProviderError{Err: err}
	}
	return payload, nil
}

// Package pipeline chains text acquisition, field extraction, normalization,
// and the ledger append into a single message-processing unit shared by every
// ingestion adapter.
package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/expensebot/mailledger/internal/entity"
	"github.com/expensebot/mailledger/internal/extract"
	"github.com/expensebot/mailledger/internal/ledger"
	"github.com/expensebot/mailledger/internal/normalize"
)

// ErrDuplicate marks a message skipped by the opt-in dedup check.
var ErrDuplicate = errors.New("source message already logged")

// TextAcquirer produces the combined body+OCR text for a message.
type TextAcquirer interface {
	Acquire(ctx context.Context, msg *entity.RawMessage) string
}

// Extractor turns combined text into a raw provider payload.
type Extractor interface {
	Extract(ctx context.Context, text string) ([]byte, error)
}

// Normalizer validates a provider payload into an expense record.
type Normalizer interface {
	Normalize(payload []byte, upstreamErr error, msg *entity.RawMessage) (entity.ExpenseRecord, error)
}

// Result reports what happened to one message. Exactly one of Logged or Drop
// is meaningful: Logged means a row was appended; Drop carries the reason the
// message was consumed without one.
type Result struct {
	Logged bool
	Record entity.ExpenseRecord
	Drop   error
}

// Processor runs the fixed pipeline stages for one message at a time. It holds
// no per-message state, so one Processor serves concurrent callers.
type Processor struct {
	acquirer   TextAcquirer
	extractor  Extractor
	normalizer Normalizer
	writer     ledger.Writer
	dedupe     bool
	logger     *slog.Logger
}

func NewProcessor(a TextAcquirer, e Extractor, n Normalizer, w ledger.Writer, dedupe bool, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		acquirer:   a,
		extractor:  e,
		normalizer: n,
		writer:     w,
		dedupe:     dedupe,
		logger:     logger,
	}
}

// Process runs one message through the pipeline. The returned error is
// non-nil only for ledger write failures: those are the cases where the
// caller should keep the message for redelivery. Every other outcome, logged
// row or validation drop, consumes the message and is reported in Result.
func (p *Processor) Process(ctx context.Context, msg *entity.RawMessage) (Result, error) {
	log := p.logger.With("message_id", msg.ID)
	log.Info("pipeline.message.start", "sender", msg.Sender, "attachments", len(msg.Attachments))

	if p.dedupe {
		if skip := p.checkDuplicate(ctx, log, msg.ID); skip {
			return Result{Drop: ErrDuplicate}, nil
		}
	}

	text := p.acquirer.Acquire(ctx, msg)
	payload, extractErr := p.extractor.Extract(ctx, text)

	if errors.Is(extractErr, extract.ErrEmptyInput) {
		log.Info("pipeline.message.dropped", "reason", "empty_input")
		return Result{Drop: extractErr}, nil
	}

	rec, err := p.normalizer.Normalize(payload, extractErr, msg)
	if err != nil {
		var verr *normalize.ValidationError
		if errors.As(err, &verr) {
			log.Warn("pipeline.message.dropped",
				"reason", string(verr.Reason),
				"field", verr.Field,
			)
		} else {
			log.Warn("pipeline.message.dropped", "reason", "normalize_failed", "error", err)
		}
		return Result{Drop: err}, nil
	}

	if err := p.writer.Append(ctx, rec); err != nil {
		log.Error("pipeline.ledger.append_failed", "error", err)
		return Result{}, err
	}

	log.Info("pipeline.message.logged",
		"vendor", rec.Vendor,
		"amount", rec.Amount,
		"category", rec.Category,
		"date", rec.Date.Format("2006-01-02"),
	)
	return Result{Logged: true, Record: rec}, nil
}

// checkDuplicate asks the backend whether the source id is already present.
// Backends without lookup support, and lookup errors, fall through to an
// append: at-least-once beats losing a record to a flaky check.
func (p *Processor) checkDuplicate(ctx context.Context, log *slog.Logger, sourceID string) bool {
	checker, ok := p.writer.(ledger.SourceChecker)
	if !ok {
		log.Debug("pipeline.dedup.unsupported")
		return false
	}
	seen, err := checker.HasSource(ctx, sourceID)
	if err != nil {
		log.Warn("pipeline.dedup.lookup_failed", "error", err)
		return false
	}
	if seen {
		log.Info("pipeline.message.dropped", "reason", "duplicate")
	}
	return seen
}

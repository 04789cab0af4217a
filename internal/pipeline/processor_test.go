package pipeline_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expensebot/mailledger/internal/acquire"
	"github.com/expensebot/mailledger/internal/entity"
	"github.com/expensebot/mailledger/internal/extract"
	"github.com/expensebot/mailledger/internal/ledger"
	"github.com/expensebot/mailledger/internal/normalize"
	"github.com/expensebot/mailledger/internal/pipeline"
)

// memWriter records appends; optionally fails or answers dedup lookups.
type memWriter struct {
	records []entity.ExpenseRecord
	fail    error
}

func (w *memWriter) Append(_ context.Context, rec entity.ExpenseRecord) error {
	if w.fail != nil {
		return w.fail
	}
	w.records = append(w.records, rec)
	return nil
}
func (w *memWriter) Close() error { return nil }

type dedupWriter struct {
	memWriter
	seen map[string]bool
}

func (w *dedupWriter) HasSource(_ context.Context, sourceID string) (bool, error) {
	return w.seen[sourceID], nil
}

type fakeCompleter struct {
	payload []byte
	err     error
	calls   int
}

func (f *fakeCompleter) Complete(context.Context, string, string) ([]byte, error) {
	f.calls++
	return f.payload, f.err
}

type fakeOCR struct {
	text string
}

func (f *fakeOCR) ExtractText(context.Context, []byte, string) string { return f.text }

// newProcessor wires real acquire/extract/normalize stages around a fake
// model and a fake OCR engine.
func newProcessor(t *testing.T, completer *fakeCompleter, ocrText string, w ledger.Writer, dedupe bool) *pipeline.Processor {
	t.Helper()
	acquirer := acquire.NewAcquirer(&fakeOCR{text: ocrText}, nil)
	extractor := extract.NewClient(completer, []string{"Food", "Transport", "Other"}, nil)
	normalizer, err := normalize.New(nil)
	require.NoError(t, err)
	return pipeline.NewProcessor(acquirer, extractor, normalizer, w, dedupe, nil)
}

func receiptMessage(body string, atts ...entity.Attachment) *entity.RawMessage {
	return &entity.RawMessage{
		ID:          "<receipt-1@example.com>",
		Sender:      "no-reply@store.example",
		Subject:     "Your receipt",
		Body:        []byte(body),
		BodyCharset: "utf-8",
		ReceivedAt:  time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC),
		Attachments: atts,
	}
}

func TestProcess_BodyReceiptEndToEnd(t *testing.T) {
	completer := &fakeCompleter{payload: []byte(`{"vendor":"Starbucks","amount":"4.75","category":"Food","date":"2025-03-12"}`)}
	w := &memWriter{}
	p := newProcessor(t, completer, "", w, false)

	res, err := p.Process(context.Background(), receiptMessage("Thanks for visiting Starbucks! Total: $4.75 on 2025-03-12"))
	require.NoError(t, err)

	assert.True(t, res.Logged)
	require.Len(t, w.records, 1)
	rec := w.records[0]
	assert.Equal(t, "Starbucks", rec.Vendor)
	assert.InDelta(t, 4.75, rec.Amount, 1e-9)
	assert.Equal(t, "Food", rec.Category)
	assert.Equal(t, time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC), rec.Date)
	assert.Equal(t, "<receipt-1@example.com>", rec.SourceID)
}

func TestProcess_CorruptImageOnlyMessageConsumedWithoutModelCall(t *testing.T) {
	completer := &fakeCompleter{payload: []byte(`{}`)}
	w := &memWriter{}
	// empty body, one image the OCR engine can't read
	p := newProcessor(t, completer, "", w, false)

	msg := receiptMessage("", entity.Attachment{
		Filename: "receipt.jpg", ContentType: "image/jpeg", Content: []byte("garbage"),
	})
	res, err := p.Process(context.Background(), msg)
	require.NoError(t, err)

	assert.False(t, res.Logged)
	assert.ErrorIs(t, res.Drop, extract.ErrEmptyInput)
	assert.Zero(t, completer.calls)
	assert.Empty(t, w.records)
}

func TestProcess_TruncatedModelOutputDropsMessage(t *testing.T) {
	completer := &fakeCompleter{payload: []byte(`{"vendor":"Starbucks","amou`)}
	w := &memWriter{}
	p := newProcessor(t, completer, "", w, false)

	res, err := p.Process(context.Background(), receiptMessage("Starbucks receipt, total $4.75"))
	require.NoError(t, err)

	assert.False(t, res.Logged)
	var verr *normalize.ValidationError
	require.ErrorAs(t, res.Drop, &verr)
	assert.Equal(t, normalize.MalformedResponse, verr.Reason)
	assert.Empty(t, w.records)
}

func TestProcess_ProviderOutageBecomesUpstreamFailureDrop(t *testing.T) {
	completer := &fakeCompleter{err: errors.New("502 bad gateway")}
	w := &memWriter{}
	p := newProcessor(t, completer, "", w, false)

	res, err := p.Process(context.Background(), receiptMessage("Starbucks receipt, total $4.75"))
	require.NoError(t, err)

	var verr *normalize.ValidationError
	require.ErrorAs(t, res.Drop, &verr)
	assert.Equal(t, normalize.UpstreamFailure, verr.Reason)
}

func TestProcess_LedgerFailureIsTheOnlyHardError(t *testing.T) {
	completer := &fakeCompleter{payload: []byte(`{"vendor":"Acme","amount":"10.00","category":"Other"}`)}
	w := &memWriter{fail: &ledger.WriteError{Backend: "xlsx", Err: errors.New("disk full")}}
	p := newProcessor(t, completer, "", w, false)

	_, err := p.Process(context.Background(), receiptMessage("Acme invoice 10.00"))

	var werr *ledger.WriteError
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, "xlsx", werr.Backend)
}

func TestProcess_OCRTextFeedsExtraction(t *testing.T) {
	completer := &fakeCompleter{payload: []byte(`{"vendor":"Shell","amount":"52.10","category":"gas"}`)}
	w := &memWriter{}
	p := newProcessor(t, completer, "SHELL STATION\nTOTAL 52.10", w, false)

	msg := receiptMessage("", entity.Attachment{
		Filename: "pump.png", ContentType: "image/png", Content: []byte("png"),
	})
	res, err := p.Process(context.Background(), msg)
	require.NoError(t, err)

	assert.True(t, res.Logged)
	assert.Equal(t, 1, completer.calls)
	require.Len(t, w.records, 1)
	assert.Equal(t, "Transport", w.records[0].Category)
}

func TestProcess_DedupSkipsSeenSource(t *testing.T) {
	completer := &fakeCompleter{payload: []byte(`{"vendor":"Acme","amount":"10.00","category":"Other"}`)}
	w := &dedupWriter{seen: map[string]bool{"<receipt-1@example.com>": true}}
	p := newProcessor(t, completer, "", w, true)

	res, err := p.Process(context.Background(), receiptMessage("Acme invoice 10.00"))
	require.NoError(t, err)

	assert.ErrorIs(t, res.Drop, pipeline.ErrDuplicate)
	assert.Zero(t, completer.calls)
	assert.Empty(t, w.records)
}

func TestProcess_DedupDisabledAppendsAgain(t *testing.T) {
	completer := &fakeCompleter{payload: []byte(`{"vendor":"Acme","amount":"10.00","category":"Other"}`)}
	w := &dedupWriter{seen: map[string]bool{"<receipt-1@example.com>": true}}
	p := newProcessor(t, completer, "", w, false)

	res, err := p.Process(context.Background(), receiptMessage("Acme invoice 10.00"))
	require.NoError(t, err)

	assert.True(t, res.Logged)
	require.Len(t, w.records, 1)
}

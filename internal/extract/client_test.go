package extract_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expensebot/mailledger/internal/extract"
)

type fakeCompleter struct {
	payload []byte
	err     error
	calls   int
	lastMsg string
}

func (f *fakeCompleter) Complete(_ context.Context, _, user string) ([]byte, error) {
	f.calls++
	f.lastMsg = user
	return f.payload, f.err
}

func TestExtract_EmptyInputShortCircuits(t *testing.T) {
	fc := &fakeCompleter{payload: []byte(`{}`)}
	c := extract.NewClient(fc, nil, nil)

	for _, input := range []string{"", "   \n\t  ", "ab"} {
		_, err := c.Extract(context.Background(), input)
		assert.ErrorIs(t, err, extract.ErrEmptyInput, "input %q", input)
	}
	assert.Zero(t, fc.calls, "provider must not be called for empty input")
}

func TestExtract_ProviderErrorWrapped(t *testing.T) {
	fc := &fakeCompleter{err: errors.New("rate limited")}
	c := extract.NewClient(fc, nil, nil)

	_, err := c.Extract(context.Background(), "Receipt from Starbucks, total $4.75")

	var perr *extract.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.ErrorIs(t, err, fc.err)
	assert.Equal(t, 1, fc.calls)
}

func TestExtract_PassesTextToProvider(t *testing.T) {
	fc := &fakeCompleter{payload: []byte(`{"vendor":"Starbucks"}`)}
	c := extract.NewClient(fc, []string{"Food", "Other"}, nil)

	payload, err := c.Extract(context.Background(), "Receipt from Starbucks, total $4.75")
	require.NoError(t, err)

	assert.Equal(t, []byte(`{"vendor":"Starbucks"}`), payload)
	assert.Contains(t, fc.lastMsg, "Starbucks")
}

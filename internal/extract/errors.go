package extract

import (
	"errors"
	"fmt"
)

// ErrEmptyInput means there was nothing extractable in the message; the
// provider is never called for it.
var ErrEmptyInput = errors.New("empty input")

// ProviderError wraps a language-model provider failure (timeout, HTTP error,
// unusable response envelope). Retry policy, if any, belongs to the ingestion
// adapter, not here.
type ProviderError struct {
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("extraction provider: %v", e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

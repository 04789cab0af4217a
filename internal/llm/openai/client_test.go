package openai_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expensebot/mailledger/internal/llm/openai"
)

func TestComplete_SendsChatRequestAndReturnsContent(t *testing.T) {
	var gotBody map[string]any
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))

		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"vendor\":\"Starbucks\",\"amount\":\"4.75\"}"}}]}`))
	}))
	defer srv.Close()

	c := openai.NewClient(openai.Config{APIKey: "sk-test", BaseURL: srv.URL, Model: "gpt-4o-mini"}, nil)

	payload, err := c.Complete(context.Background(), "you are an assistant", "receipt text")
	require.NoError(t, err)

	assert.JSONEq(t, `{"vendor":"Starbucks","amount":"4.75"}`, string(payload))
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "gpt-4o-mini", gotBody["model"])
	rf, ok := gotBody["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_object", rf["type"])
	msgs, ok := gotBody["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
}

func TestComplete_Non2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer srv.Close()

	c := openai.NewClient(openai.Config{APIKey: "sk-test", BaseURL: srv.URL}, nil)

	_, err := c.Complete(context.Background(), "sys", "user")
	assert.Error(t, err)
}

func TestComplete_EmptyChoicesIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := openai.NewClient(openai.Config{APIKey: "sk-test", BaseURL: srv.URL}, nil)

	_, err := c.Complete(context.Background(), "sys", "user")
	assert.Error(t, err)
}

package judge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewloop/autorev/internal/adapter/httpx"
)

func newMessagesClient(serverURL string) *Client {
	c := NewClient("sk-test", "claude-sonnet-4-20250514")
	c.SetBaseURL(serverURL)
	c.SetRetryConfig(httpx.RetryConfig{
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
	})
	return c
}

func TestComplete(t *testing.T) {
	var gotKey, gotVersion string
	var gotReq messagesRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/messages", r.URL.Path)
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		fmt.Fprint(w, `{"content": [
			{"type": "text", "text": "first "},
			{"type": "tool_use"},
			{"type": "text", "text": "second"}
		]}`)
	}))
	defer server.Close()

	text, err := newMessagesClient(server.URL).Complete(context.Background(), "review", "system prompt", "user prompt", 1024)
	require.NoError(t, err)
	assert.Equal(t, "first second", text, "text blocks are concatenated")
	assert.Equal(t, "sk-test", gotKey)
	assert.Equal(t, "2023-06-01", gotVersion)
	assert.Equal(t, "claude-sonnet-4-20250514", gotReq.Model)
	assert.Equal(t, 1024, gotReq.MaxTokens)
	assert.Equal(t, "system prompt", gotReq.System)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "user", gotReq.Messages[0].Role)
}

func TestComplete_RetriesOverloaded(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(529)
			fmt.Fprint(w, `{"error": {"type": "overloaded_error", "message": "Overloaded"}}`)
			return
		}
		fmt.Fprint(w, `{"content": [{"type": "text", "text": "ok"}]}`)
	}))
	defer server.Close()

	text, err := newMessagesClient(server.URL).Complete(context.Background(), "review", "", "prompt", 64)
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, 2, attempts)
}

func TestComplete_InvalidRequestNotRetried(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error": {"type": "invalid_request_error", "message": "max_tokens required"}}`)
	}))
	defer server.Close()

	_, err := newMessagesClient(server.URL).Complete(context.Background(), "review", "", "prompt", 64)
	var httpErr *httpx.Error
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, httpx.ErrTypeInvalidRequest, httpErr.Type)
	assert.Equal(t, "max_tokens required", httpErr.Message)
	assert.Equal(t, 1, attempts)
}

func TestComplete_NoTextContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"content": []}`)
	}))
	defer server.Close()

	_, err := newMessagesClient(server.URL).Complete(context.Background(), "review", "", "prompt", 64)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no text content")
}

func TestEstimateTokens(t *testing.T) {
	assert.Zero(t, EstimateTokens(""))

	text := "The quick brown fox jumps over the lazy dog."
	tokens := EstimateTokens(text)
	assert.Greater(t, tokens, 0)
	assert.Less(t, tokens, len(text))
}

package summarizer

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhive/api/pkg/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.APIConfig{
		GroqAPIKey: "test-key",
		GroqAPIURL: server.URL,
		GroqModel:  "llama3-8b-8192",
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(cfg, log), server
}

func completionBody(content string) string {
	payload := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	}
	data, _ := json.Marshal(payload)
	return string(data)
}

func TestSummarizeSendsPromptAndTrimsCompletion(t *testing.T) {
	var captured chatRequest
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(completionBody("  Finish the report by Friday.  ")))
	})

	summary, err := client.Summarize(context.Background(), "finish the quarterly report before friday")
	require.NoError(t, err)
	assert.Equal(t, "Finish the report by Friday.", summary)

	assert.Equal(t, "llama3-8b-8192", captured.Model)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Contains(t, captured.Messages[0].Content, "action items and deadlines")
	assert.Contains(t, captured.Messages[1].Content, "finish the quarterly report before friday")
	assert.InDelta(t, 0.3, captured.Temperature, 1e-9)
	assert.Equal(t, 100, captured.MaxTokens)
}

func TestSummarizeFailsOnNonSuccessStatus(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusServiceUnavailable)
	})
	_, err := client.Summarize(context.Background(), "some description")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestSummarizeFailsOnEmptyChoices(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})
	_, err := client.Summarize(context.Background(), "some description")
	require.Error(t, err)
}

func TestSummarizeFailsOnEmptyCompletion(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(completionBody("   ")))
	})
	_, err := client.Summarize(context.Background(), "some description")
	require.Error(t, err)
}

func TestSummarizeRejectsEmptyTextWithoutCalling(t *testing.T) {
	called := false
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	_, err := client.Summarize(context.Background(), "   ")
	require.Error(t, err)
	assert.False(t, called)
}

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michael213532/ai-debate/internal/domain"
)

func TestAnthropicStream(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-ant", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		_ = json.NewDecoder(r.Body).Decode(&got)

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: message_start\ndata: {\"type\":\"message_start\"}\n\n")
		fmt.Fprint(w, "event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"Cats \"}}\n\n")
		fmt.Fprint(w, "event: ping\ndata: {\"type\":\"ping\"}\n\n")
		fmt.Fprint(w, "event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"win.\"}}\n\n")
		fmt.Fprint(w, "event: message_stop\ndata: {\"type\":\"message_stop\"}\n\n")
		fmt.Fprint(w, "event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"ignored\"}}\n\n")
	}))
	defer server.Close()

	stream, err := NewAnthropic(ClientConfig{BaseURL: server.URL}).Stream(context.Background(), &Request{
		Model:        "claude-sonnet-4-20250514",
		APIKey:       "sk-ant",
		SystemPrompt: "persona",
		Messages: []ChatMessage{{
			Role:    RoleUser,
			Content: "cats or dogs?",
			Images:  []domain.Image{{Data: "BBBB", MediaType: "image/jpeg"}},
		}},
	})
	require.NoError(t, err)

	text, err := Collect(stream)
	require.NoError(t, err)
	assert.Equal(t, "Cats win.", text)

	assert.Equal(t, "persona", got["system"])
	assert.EqualValues(t, anthropicMaxTokens, got["max_tokens"])
	blocks := got["messages"].([]any)[0].(map[string]any)["content"].([]any)
	require.Len(t, blocks, 2)
	assert.Equal(t, "image", blocks[0].(map[string]any)["type"])
	assert.Equal(t, "text", blocks[1].(map[string]any)["type"])
}

func TestAnthropicStreamErrorEvent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"Hi\"}}\n\n")
		fmt.Fprint(w, "event: error\ndata: {\"type\":\"error\",\"error\":{\"type\":\"overloaded_error\",\"message\":\"Overloaded\"}}\n\n")
	}))
	defer server.Close()

	stream, err := NewAnthropic(ClientConfig{BaseURL: server.URL}).Stream(context.Background(), &Request{
		Model:    "claude-3-opus-20240229",
		Messages: []ChatMessage{{Role: RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)

	text, err := Collect(stream)
	assert.Equal(t, "Hi", text)
	require.Error(t, err)
	assert.Equal(t, domain.FailureModelUnavailable, Classify(err))
	assert.Equal(t, "Overloaded", Hint(err))
}

func TestAnthropicOverloadedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(529)
		fmt.Fprint(w, `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`)
	}))
	defer server.Close()

	stream, err := NewAnthropic(ClientConfig{BaseURL: server.URL}).Stream(context.Background(), &Request{
		Model:    "claude-3-opus-20240229",
		Messages: []ChatMessage{{Role: RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	_, err = Collect(stream)
	assert.Equal(t, domain.FailureModelUnavailable, Classify(err))
}

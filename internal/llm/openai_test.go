package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOpenAITestServer(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewOpenAIClient(
		WithAPIKey("sk-test"),
		WithBaseURL(server.URL+"/v1/"),
		WithModel(ModelGPT4oMini),
		WithTimeout(5*time.Second),
	)
	require.NoError(t, err)
	return client
}

func TestOpenAIClientChat(t *testing.T) {
	var captured ChatCompletionRequest
	client := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"context\": \"ok\"}"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 3, "completion_tokens": 4, "total_tokens": 7}
		}`))
	})

	resp, err := client.Chat(context.Background(), []Message{
		{Role: RoleSystem, Content: "format the text"},
		{Role: RoleUser, Content: "some text"},
	})
	require.NoError(t, err)

	assert.Equal(t, `{"context": "ok"}`, resp.Text)
	assert.Equal(t, 7, resp.TokenCount)
	assert.Equal(t, ModelGPT4oMini, resp.ModelName)

	assert.Equal(t, ModelGPT4oMini, captured.Model)
	assert.Equal(t, float32(0), captured.Temperature)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, RoleSystem, captured.Messages[0].Role)
	assert.Equal(t, RoleUser, captured.Messages[1].Role)
	assert.Equal(t, "some text", captured.Messages[1].Content)
}

func TestOpenAIClientStatusErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		code   int
	}{
		{"unauthorized", http.StatusUnauthorized, ErrCodeInvalidAPIKey},
		{"rate limited", http.StatusTooManyRequests, ErrCodeRateLimited},
		{"server error", http.StatusInternalServerError, ErrCodeServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error": {"message": "nope"}}`))
			})

			_, err := client.Chat(context.Background(), []Message{{Role: RoleUser, Content: "x"}})
			require.Error(t, err)
			assert.Equal(t, tt.code, ErrorCode(err))
			assert.Contains(t, err.Error(), "nope")
		})
	}
}

func TestOpenAIClientEmptyChoices(t *testing.T) {
	client := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices": []}`))
	})

	_, err := client.Chat(context.Background(), []Message{{Role: RoleUser, Content: "x"}})
	require.Error(t, err)
	assert.Equal(t, ErrCodeEmptyResponse, ErrorCode(err))
}

func TestOpenAIClientValidation(t *testing.T) {
	client := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := client.Chat(context.Background(), nil)
	assert.Equal(t, ErrCodeInvalidRequest, ErrorCode(err))

	_, err = client.Generate(context.Background(), "")
	assert.Equal(t, ErrCodeEmptyPrompt, ErrorCode(err))
}

func TestTongyiClientChat(t *testing.T) {
	var captured TongyiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(`{
			"request_id": "r1",
			"output": {"choices": [{"finish_reason": "stop", "message": {"role": "assistant", "content": "{\"zh_text\": \"你好\"}"}}]},
			"usage": {"total_tokens": 12}
		}`))
	}))
	defer server.Close()

	client, err := NewTongyiClient(WithAPIKey("k"), WithBaseURL(server.URL))
	require.NoError(t, err)
	assert.Equal(t, ModelQwenPlus, client.Name())

	resp, err := client.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hello"}})
	require.NoError(t, err)
	assert.Equal(t, `{"zh_text": "你好"}`, resp.Text)
	assert.Equal(t, 12, resp.TokenCount)

	assert.Equal(t, "message", captured.Parameters.ResultFormat)
	require.NotNil(t, captured.Parameters.Temperature)
	assert.Equal(t, float32(0), *captured.Parameters.Temperature)
}

func TestTongyiClientAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code": "InvalidParameter", "message": "bad input"}`))
	}))
	defer server.Close()

	client, err := NewTongyiClient(WithAPIKey("k"), WithBaseURL(server.URL))
	require.NoError(t, err)

	_, err = client.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hello"}})
	require.Error(t, err)
	assert.Equal(t, ErrCodeServerError, ErrorCode(err))
}

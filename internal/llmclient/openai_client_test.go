package llmclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/pagepilot/api/schemas"
	"github.com/xkilldash9x/pagepilot/internal/config"
)

func openAIConfig(endpoint string) config.LLMConfig {
	cfg := getValidLLMConfig()
	cfg.Provider = config.ProviderOpenAI
	cfg.Endpoint = endpoint
	return cfg
}

func TestChatCompletionsURL(t *testing.T) {
	assert.Equal(t, "https://api.openai.com/v1/chat/completions", chatCompletionsURL(""))
	assert.Equal(t, "http://localhost:8080/v1/chat/completions", chatCompletionsURL("http://localhost:8080/v1/"))
	assert.Equal(t, "http://proxy/chat/completions", chatCompletionsURL("http://proxy/chat/completions"))
}

func TestNewOpenAIClient_Validation(t *testing.T) {
	cfg := openAIConfig("")
	cfg.APIKey = " "
	_, err := NewOpenAIClient(cfg, nil)
	assert.ErrorContains(t, err, "API key is required")

	cfg = openAIConfig("")
	cfg.Model = ""
	_, err = NewOpenAIClient(cfg, nil)
	assert.ErrorContains(t, err, "model is required")
}

func TestOpenAIClient_Invoke(t *testing.T) {
	var captured openAIChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-api-key", r.Header.Get("Authorization"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"choices":[{"message":{"content":"{\"action\":\"click\",\"index\":0}"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":3,"completion_tokens":4,"total_tokens":7}}`)
	}))
	defer srv.Close()

	logger, logs := setupTestLogger(t)
	client, err := NewOpenAIClient(openAIConfig(srv.URL+"/v1"), logger)
	require.NoError(t, err)

	out, err := client.Invoke(context.Background(), conversation(), schemas.InvokeOptions{Structured: true})
	require.NoError(t, err)
	assert.Equal(t, `{"action":"click","index":0}`, out)

	assert.Equal(t, "test-model", captured.Model)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "user", captured.Messages[1].Role)
	require.NotNil(t, captured.ResponseFormat)
	assert.Equal(t, "json_object", captured.ResponseFormat.Type)
	assert.Equal(t, float32(0.7), captured.Temperature)
	assert.Equal(t, 512, captured.MaxTokens)

	entries := logs.FilterMessage("LLM generation complete (OpenAI)").All()
	require.Len(t, entries, 1)
	assert.EqualValues(t, 7, entries[0].ContextMap()["total_tokens"])
}

func TestOpenAIClient_Invoke_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"http error", http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`, "status 429"},
		{"api error", http.StatusOK, `{"error":{"message":"model not found"}}`, "model not found"},
		{"no choices", http.StatusOK, `{"choices":[]}`, "no choices"},
		{"empty content", http.StatusOK, `{"choices":[{"message":{"content":" "},"finish_reason":"length"}]}`, "length"},
		{"garbage", http.StatusOK, `not json`, "decode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			client, err := NewOpenAIClient(openAIConfig(srv.URL), nil)
			require.NoError(t, err)
			_, err = client.Invoke(context.Background(), conversation(), schemas.InvokeOptions{})
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestOpenAIClient_FreeTextOmitsResponseFormat(t *testing.T) {
	var raw map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &raw)
		_, _ = io.WriteString(w, `{"choices":[{"message":{"content":"DONE"}}]}`)
	}))
	defer srv.Close()

	client, err := NewOpenAIClient(openAIConfig(srv.URL), nil)
	require.NoError(t, err)
	out, err := client.Invoke(context.Background(), conversation(), schemas.InvokeOptions{})
	require.NoError(t, err)
	assert.Equal(t, "DONE", out)
	assert.NotContains(t, raw, "response_format")
}

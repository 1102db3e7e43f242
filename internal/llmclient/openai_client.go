// internal/llmclient/openai_client.go
package llmclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagepilot/api/schemas"
	"github.com/xkilldash9x/pagepilot/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	defaultOpenAIBase = "https://api.openai.com/v1"
	maxResponseBytes  = 1 << 20
)

// OpenAIClient implements schemas.Oracle on any OpenAI-compatible chat
// completions endpoint.
type OpenAIClient struct {
	url        string
	apiKey     string
	model      string
	cfg        config.LLMConfig
	httpClient *http.Client
	logger     *zap.Logger
}

var _ schemas.Oracle = (*OpenAIClient)(nil)

// -- Chat Completions Request/Response Structures --

type openAIChatRequest struct {
	Model          string                `json:"model"`
	Messages       []openAIChatMessage   `json:"messages"`
	Temperature    float32               `json:"temperature"`
	MaxTokens      int                   `json:"max_tokens,omitempty"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
}

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponseFormat struct {
	Type string `json:"type"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// NewOpenAIClient initializes the client. cfg.Endpoint is either an API base
// (".../v1") or a full chat completions URL.
func NewOpenAIClient(cfg config.LLMConfig, logger *zap.Logger) (*OpenAIClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("openai API key is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("openai model is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAIClient{
		url:        chatCompletionsURL(cfg.Endpoint),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		model:      cfg.Model,
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.Named("llm_client.openai").With(zap.String("model", cfg.Model)),
	}, nil
}

func chatCompletionsURL(endpoint string) string {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		endpoint = defaultOpenAIBase
	}
	if strings.HasSuffix(endpoint, "/chat/completions") {
		return endpoint
	}
	return endpoint + "/chat/completions"
}

// Invoke sends the conversation and returns the reply text.
func (c *OpenAIClient) Invoke(ctx context.Context, messages []schemas.Message, opts schemas.InvokeOptions) (string, error) {
	payload := openAIChatRequest{
		Model:       c.model,
		Messages:    make([]openAIChatMessage, 0, len(messages)),
		Temperature: pickTemperature(opts, c.cfg),
		MaxTokens:   pickMaxTokens(opts, c.cfg),
	}
	for _, m := range messages {
		payload.Messages = append(payload.Messages, openAIChatMessage{Role: string(m.Role), Content: m.Content})
	}
	if opts.Structured {
		payload.ResponseFormat = &openAIResponseFormat{Type: "json_object"}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute HTTP request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("openai API error (status %d): %s", resp.StatusCode, truncate(strings.TrimSpace(string(respBody)), 300))
	}

	var decoded openAIChatResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return "", fmt.Errorf("failed to decode response payload: %w", err)
	}
	if decoded.Error != nil {
		return "", fmt.Errorf("openai API error: %s", decoded.Error.Message)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("openai API returned no choices")
	}
	text := decoded.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("openai API returned empty content (reason: %s)", decoded.Choices[0].FinishReason)
	}

	c.logger.Debug("LLM generation complete (OpenAI)",
		zap.Duration("duration", time.Since(start)),
		zap.Bool("structured", opts.Structured),
		zap.Int("prompt_tokens", decoded.Usage.PromptTokens),
		zap.Int("completion_tokens", decoded.Usage.CompletionTokens),
		zap.Int("total_tokens", decoded.Usage.TotalTokens))
	return text, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// internal/llmclient/gemini_client.go
package llmclient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/xkilldash9x/pagepilot/api/schemas"
	"github.com/xkilldash9x/pagepilot/internal/config"
)

// contentGenerator is the part of the genai client the oracle uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiClient implements schemas.Oracle on the Gemini API.
type GeminiClient struct {
	models contentGenerator
	model  string
	cfg    config.LLMConfig
	logger *zap.Logger
}

var _ schemas.Oracle = (*GeminiClient)(nil)

// NewGeminiClient initializes the client for cfg.Model.
func NewGeminiClient(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return newGeminiClient(client.Models, cfg, logger), nil
}

func newGeminiClient(models contentGenerator, cfg config.LLMConfig, logger *zap.Logger) *GeminiClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeminiClient{
		models: models,
		model:  cfg.Model,
		cfg:    cfg,
		logger: logger.Named("llm_client.gemini").With(zap.String("model", cfg.Model)),
	}
}

// Invoke sends the conversation and returns the reply text.
func (c *GeminiClient) Invoke(ctx context.Context, messages []schemas.Message, opts schemas.InvokeOptions) (string, error) {
	system, contents := toGeminiContents(messages)
	if len(contents) == 0 {
		return "", fmt.Errorf("gemini request has no user content")
	}

	genConfig := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(pickTemperature(opts, c.cfg)),
		MaxOutputTokens: int32(pickMaxTokens(opts, c.cfg)),
	}
	if system != "" {
		genConfig.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if opts.Structured {
		genConfig.ResponseMIMEType = "application/json"
		genConfig.ResponseSchema = actionListSchema()
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.models.GenerateContent(ctx, c.model, contents, genConfig)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini API returned no candidates")
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("gemini API returned empty content (reason: %s)", resp.Candidates[0].FinishReason)
	}

	fields := []zap.Field{
		zap.Duration("duration", time.Since(start)),
		zap.Bool("structured", opts.Structured),
	}
	if u := resp.UsageMetadata; u != nil {
		fields = append(fields,
			zap.Int32("prompt_tokens", u.PromptTokenCount),
			zap.Int32("completion_tokens", u.CandidatesTokenCount),
			zap.Int32("total_tokens", u.TotalTokenCount))
	}
	c.logger.Debug("LLM generation complete (Gemini)", fields...)
	return text, nil
}

// toGeminiContents folds system messages into one instruction and maps the
// remaining turns onto Gemini roles.
func toGeminiContents(messages []schemas.Message) (string, []*genai.Content) {
	var system []string
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case schemas.RoleSystem:
			system = append(system, m.Content)
		case schemas.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	return strings.Join(system, "\n\n"), contents
}

// actionListSchema constrains structured replies to {actions, summary}.
func actionListSchema() *genai.Schema {
	kinds := make([]string, 0, len(schemas.PlannerActionKinds))
	for _, k := range schemas.PlannerActionKinds {
		kinds = append(kinds, string(k))
	}
	action := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"action":    {Type: genai.TypeString, Enum: kinds},
			"index":     {Type: genai.TypeInteger, Description: "Element index from the page state"},
			"text":      {Type: genai.TypeString},
			"value":     {Type: genai.TypeString},
			"direction": {Type: genai.TypeString, Enum: []string{string(schemas.ScrollUp), string(schemas.ScrollDown)}},
			"ms":        {Type: genai.TypeInteger},
			"reasoning": {Type: genai.TypeString},
		},
		Required: []string{"action", "reasoning"},
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"actions": {Type: genai.TypeArray, Items: action},
			"summary": {Type: genai.TypeString},
		},
		Required: []string{"actions"},
	}
}

func pickTemperature(opts schemas.InvokeOptions, cfg config.LLMConfig) float32 {
	if opts.Temperature > 0 {
		return opts.Temperature
	}
	return cfg.Temperature
}

func pickMaxTokens(opts schemas.InvokeOptions, cfg config.LLMConfig) int {
	if opts.MaxTokens > 0 {
		return opts.MaxTokens
	}
	return cfg.MaxTokens
}

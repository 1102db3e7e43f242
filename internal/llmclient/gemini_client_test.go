package llmclient

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/xkilldash9x/pagepilot/api/schemas"
)

// stubGenerator records the last request and replies with a canned response.
type stubGenerator struct {
	resp *genai.GenerateContentResponse
	err  error

	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

func (s *stubGenerator) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	s.model, s.contents, s.config = model, contents, config
	return s.resp, s.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: genai.NewContentFromText(text, genai.RoleModel)}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount: 10, CandidatesTokenCount: 5, TotalTokenCount: 15,
		},
	}
}

func TestNewGeminiClient_RequiresKey(t *testing.T) {
	cfg := getValidLLMConfig()
	cfg.APIKey = ""
	_, err := NewGeminiClient(context.Background(), cfg, nil)
	assert.ErrorContains(t, err, "API key is required")
}

func TestGeminiClient_Invoke_FreeText(t *testing.T) {
	logger, logs := setupTestLogger(t)
	stub := &stubGenerator{resp: textResponse("Click the Search button [0].")}
	client := newGeminiClient(stub, getValidLLMConfig(), logger)

	out, err := client.Invoke(context.Background(), conversation(), schemas.InvokeOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Click the Search button [0].", out)

	assert.Equal(t, "test-model", stub.model)
	require.Len(t, stub.contents, 1)
	assert.Equal(t, string(genai.RoleUser), stub.contents[0].Role)
	require.NotNil(t, stub.config.SystemInstruction)
	assert.Equal(t, "You are a web agent.", stub.config.SystemInstruction.Parts[0].Text)
	assert.Equal(t, float32(0.7), *stub.config.Temperature)
	assert.Equal(t, int32(512), stub.config.MaxOutputTokens)
	assert.Empty(t, stub.config.ResponseMIMEType)
	assert.Nil(t, stub.config.ResponseSchema)

	entries := logs.FilterMessage("LLM generation complete (Gemini)").All()
	require.Len(t, entries, 1)
	assert.EqualValues(t, 15, entries[0].ContextMap()["total_tokens"])
}

func TestGeminiClient_Invoke_Structured(t *testing.T) {
	stub := &stubGenerator{resp: textResponse(`{"actions":[{"action":"click","index":0,"reasoning":"r"}]}`)}
	client := newGeminiClient(stub, getValidLLMConfig(), nil)

	_, err := client.Invoke(context.Background(), conversation(), schemas.InvokeOptions{Structured: true, Temperature: 0.1, MaxTokens: 64})
	require.NoError(t, err)
	assert.Equal(t, "application/json", stub.config.ResponseMIMEType)
	require.NotNil(t, stub.config.ResponseSchema)
	assert.Equal(t, float32(0.1), *stub.config.Temperature)
	assert.Equal(t, int32(64), stub.config.MaxOutputTokens)

	items := stub.config.ResponseSchema.Properties["actions"].Items
	require.NotNil(t, items)
	assert.ElementsMatch(t, []string{"click", "type", "select", "scroll", "wait", "done"}, items.Properties["action"].Enum)
}

func TestGeminiClient_Invoke_Errors(t *testing.T) {
	tests := []struct {
		name string
		stub *stubGenerator
		msgs []schemas.Message
		want string
	}{
		{"transport", &stubGenerator{err: errors.New("quota exceeded")}, conversation(), "quota exceeded"},
		{"no candidates", &stubGenerator{resp: &genai.GenerateContentResponse{}}, conversation(), "no candidates"},
		{"blocked", &stubGenerator{resp: &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}},
		}}, conversation(), "SAFETY"},
		{"system only", &stubGenerator{resp: textResponse("x")}, []schemas.Message{{Role: schemas.RoleSystem, Content: "s"}}, "no user content"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newGeminiClient(tt.stub, getValidLLMConfig(), nil)
			_, err := client.Invoke(context.Background(), tt.msgs, schemas.InvokeOptions{})
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestToGeminiContents(t *testing.T) {
	system, contents := toGeminiContents([]schemas.Message{
		{Role: schemas.RoleSystem, Content: "a"},
		{Role: schemas.RoleUser, Content: "q"},
		{Role: schemas.RoleAssistant, Content: "r"},
		{Role: schemas.RoleSystem, Content: "b"},
	})
	assert.Equal(t, "a\n\nb", system)
	require.Len(t, contents, 2)
	assert.Equal(t, string(genai.RoleUser), contents[0].Role)
	assert.Equal(t, string(genai.RoleModel), contents[1].Role)
}

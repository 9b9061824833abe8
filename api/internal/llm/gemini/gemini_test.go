package gemini

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sani-bot/api/internal/llm"
)

func TestSplitMessages(t *testing.T) {
	msgs := []llm.Message{
		{Role: llm.RoleSystem, Content: "kamu SANI"},
		{Role: llm.RoleUser, Content: "halo"},
		{Role: llm.RoleAssistant, Content: "hai, ada yang bisa dibantu?"},
		{Role: llm.RoleSystem, Content: "  "},
		{Role: llm.RoleUser, Content: "cara login"},
	}
	system, history, last, err := splitMessages(msgs)
	require.NoError(t, err)
	assert.Equal(t, "kamu SANI", system)
	assert.Equal(t, "cara login", last)
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "model", history[1].Role)
	assert.Equal(t, genai.Text("hai, ada yang bisa dibantu?"), history[1].Parts[0])
}

func TestSplitMessages_LastMustBeUser(t *testing.T) {
	_, _, _, err := splitMessages([]llm.Message{{Role: llm.RoleSystem, Content: "x"}})
	assert.Error(t, err)

	_, _, _, err = splitMessages([]llm.Message{
		{Role: llm.RoleUser, Content: "a"},
		{Role: llm.RoleAssistant, Content: "b"},
	})
	assert.Error(t, err)
}

func TestGenerationConfig(t *testing.T) {
	cfg := generationConfig(llm.Params{MaxTokens: 256, Temperature: 0.3, TopP: 0.8})
	require.NotNil(t, cfg.Temperature)
	assert.InDelta(t, 0.3, *cfg.Temperature, 1e-6)
	require.NotNil(t, cfg.TopP)
	assert.InDelta(t, 0.8, *cfg.TopP, 1e-6)
	require.NotNil(t, cfg.MaxOutputTokens)
	assert.Equal(t, int32(256), *cfg.MaxOutputTokens)
	assert.Empty(t, cfg.ResponseMIMEType)

	cfg = generationConfig(llm.Params{JSON: true})
	assert.Equal(t, "application/json", cfg.ResponseMIMEType)
	assert.Nil(t, cfg.TopP)
	assert.Nil(t, cfg.MaxOutputTokens)
}

func TestFirstText(t *testing.T) {
	assert.Equal(t, "", firstText(nil))
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
		{Content: nil},
		{Content: &genai.Content{Parts: []genai.Part{genai.Text("jawaban")}}},
	}}
	assert.Equal(t, "jawaban", firstText(resp))
}

func TestGenerate_NoKey(t *testing.T) {
	_, err := New("", "gemini-2.0-flash").Generate(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}}, llm.Params{})
	assert.Error(t, err)
}

func TestWithModel(t *testing.T) {
	e := New("key", "gemini-2.5-flash")
	var sw llm.ModelSwitcher = e
	other := sw.WithModel(" gemini-2.5-pro ")
	assert.Equal(t, "gemini-2.5-pro", other.GetModel())
	assert.Equal(t, "gemini-2.5-flash", e.GetModel())
	assert.Equal(t, "gemini", other.Name())
}

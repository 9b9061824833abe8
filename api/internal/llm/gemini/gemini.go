package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"sani-bot/api/internal/llm"
	"sani-bot/api/internal/util"
)

type Engine struct {
	APIKey string
	Model  string
}

func New(apiKey, model string) *Engine {
	return &Engine{
		APIKey: strings.TrimSpace(apiKey),
		Model:  strings.TrimSpace(model),
	}
}

func (e *Engine) Name() string     { return "gemini" }
func (e *Engine) GetModel() string { return e.Model }

// WithModel: копия движка с другой моделью; исходный не меняется.
func (e *Engine) WithModel(model string) llm.Engine {
	c := *e
	c.Model = strings.TrimSpace(model)
	return &c
}

// Generate отправляет историю как chat-сессию: system уходит в SystemInstruction,
// последнее user-сообщение уходит в SendMessage. Ретраев нет: повтор решает вызывающий.
func (e *Engine) Generate(ctx context.Context, msgs []llm.Message, p llm.Params) (string, error) {
	if e.APIKey == "" {
		return "", errors.New("GEMINI_API_KEY is empty")
	}
	system, history, last, err := splitMessages(msgs)
	if err != nil {
		return "", err
	}

	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.APIKey))
	if err != nil {
		return "", err
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.Model)
	if m == nil {
		return "", fmt.Errorf("gemini: model is nil")
	}
	m.GenerationConfig = generationConfig(p)
	if system != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	cs := m.StartChat()
	cs.History = history
	resp, err := cs.SendMessage(ctx, genai.Text(last))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	txt := strings.TrimSpace(firstText(resp))
	if txt == "" {
		return "", fmt.Errorf("gemini generate: empty response")
	}
	if p.JSON || p.Schema != nil {
		txt = util.StripCodeFences(txt)
	}
	return txt, nil
}

func generationConfig(p llm.Params) genai.GenerationConfig {
	cfg := genai.GenerationConfig{
		Temperature: ptrFloat32(p.Temperature),
	}
	if p.TopP > 0 {
		cfg.TopP = ptrFloat32(p.TopP)
	}
	if p.MaxTokens > 0 {
		n := int32(p.MaxTokens)
		cfg.MaxOutputTokens = &n
	}
	if p.JSON || p.Schema != nil {
		cfg.ResponseMIMEType = "application/json"
	}
	return cfg
}

// splitMessages раскладывает сообщения под chat-сессию Gemini.
// Роль assistant в Gemini называется "model".
func splitMessages(msgs []llm.Message) (system string, history []*genai.Content, last string, err error) {
	var sys []string
	var turns []llm.Message
	for _, m := range msgs {
		if m.Role == llm.RoleSystem {
			if s := strings.TrimSpace(m.Content); s != "" {
				sys = append(sys, s)
			}
			continue
		}
		turns = append(turns, m)
	}
	if len(turns) == 0 || turns[len(turns)-1].Role != llm.RoleUser {
		return "", nil, "", errors.New("gemini: last message must be from user")
	}
	for _, t := range turns[:len(turns)-1] {
		role := "user"
		if t.Role == llm.RoleAssistant {
			role = "model"
		}
		history = append(history, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(t.Content)},
		})
	}
	return strings.Join(sys, "\n\n"), history, turns[len(turns)-1].Content, nil
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }

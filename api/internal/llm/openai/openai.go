package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"sani-bot/api/internal/llm"
	"sani-bot/api/internal/util"
)

const (
	DefaultBaseURL  = "https://api.openai.com/v1"
	DeepseekBaseURL = "https://api.deepseek.com/v1"
)

// Engine говорит с любым OpenAI-совместимым /chat/completions (OpenAI, DeepSeek).
type Engine struct {
	APIKey  string
	Model   string
	BaseURL string
	name    string
	httpc   *http.Client
}

func New(key, model string) *Engine {
	return newEngine("gpt", key, model, DefaultBaseURL)
}

// NewDeepseek: тот же протокол, другой base URL.
func NewDeepseek(key, model string) *Engine {
	return newEngine("deepseek", key, model, DeepseekBaseURL)
}

func newEngine(name, key, model, baseURL string) *Engine {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 120 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
	}
	return &Engine{
		APIKey:  strings.TrimSpace(key),
		Model:   strings.TrimSpace(model),
		BaseURL: baseURL,
		name:    name,
		// Timeout=0: дедлайн задаёт ctx вызывающего
		httpc: &http.Client{Transport: tr},
	}
}

// WithHTTPClient overrides the internal HTTP client (e.g., for custom timeouts or tracing).
func (e *Engine) WithHTTPClient(c *http.Client) *Engine {
	if c != nil {
		e.httpc = c
	}
	return e
}

func (e *Engine) WithBaseURL(u string) *Engine {
	if u = strings.TrimSpace(u); u != "" {
		e.BaseURL = strings.TrimRight(u, "/")
	}
	return e
}

func (e *Engine) Name() string     { return e.name }
func (e *Engine) GetModel() string { return e.Model }

// WithModel: копия с другой моделью, HTTP-клиент общий.
func (e *Engine) WithModel(model string) llm.Engine {
	c := *e
	c.Model = strings.TrimSpace(model)
	return &c
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []llm.Message  `json:"messages"`
	MaxTokens      int            `json:"max_tokens,omitempty"`
	Temperature    float32        `json:"temperature"`
	TopP           float32        `json:"top_p,omitempty"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (e *Engine) Generate(ctx context.Context, msgs []llm.Message, p llm.Params) (string, error) {
	if e.APIKey == "" {
		return "", fmt.Errorf("%s: API key not set", e.name)
	}
	body := e.buildRequest(msgs, p)
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.APIKey)

	resp, err := e.httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%s chat: read body: %w", e.name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s chat %d: %s", e.name, resp.StatusCode, util.Truncate(strings.TrimSpace(string(raw)), 1024))
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("%s chat: bad response: %w", e.name, err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%s chat: empty choices; body=%s", e.name, util.Truncate(string(raw), 1024))
	}
	txt := strings.TrimSpace(out.Choices[0].Message.Content)
	if p.JSON || p.Schema != nil {
		txt = util.StripCodeFences(txt)
	}
	return txt, nil
}

func (e *Engine) buildRequest(msgs []llm.Message, p llm.Params) chatRequest {
	r := chatRequest{
		Model:       e.Model,
		Messages:    msgs,
		MaxTokens:   p.MaxTokens,
		Temperature: p.Temperature,
		TopP:        p.TopP,
	}
	switch {
	case p.Schema != nil && e.name != "deepseek":
		schema := cloneSchema(p.Schema.Body)
		util.FixJSONSchemaStrict(schema)
		delete(schema, "$schema")
		r.ResponseFormat = map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   p.Schema.Name,
				"schema": schema,
				"strict": true,
			},
		}
	case p.JSON || p.Schema != nil:
		r.ResponseFormat = map[string]any{"type": "json_object"}
	}
	return r
}

// cloneSchema копирует схему через JSON, чтобы FixJSONSchemaStrict не трогал общий экземпляр.
func cloneSchema(in map[string]any) map[string]any {
	b, err := json.Marshal(in)
	if err != nil {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return map[string]any{}
	}
	return out
}

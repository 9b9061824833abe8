package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Schema: JSON-схема ответа для провайдеров, умеющих structured output.
type Schema struct {
	Name string
	Body map[string]any
}

// Params: параметры сэмплирования одного вызова модели.
type Params struct {
	MaxTokens   int
	Temperature float32
	TopP        float32

	// JSON просит провайдера вернуть чистый JSON (если он это умеет).
	JSON   bool
	Schema *Schema
}

// Generator: единственная возможность модели, которая нужна ядру:
// упорядоченные сообщения на вход, текст на выход. Блокирующий вызов.
type Generator interface {
	Generate(ctx context.Context, msgs []Message, p Params) (string, error)
}

// GeneratorFunc позволяет передать обычную функцию как Generator.
type GeneratorFunc func(ctx context.Context, msgs []Message, p Params) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, msgs []Message, p Params) (string, error) {
	return f(ctx, msgs, p)
}

type Engine interface {
	Generator
	Name() string
	GetModel() string
}

type Engines struct {
	Gemini   Engine
	OpenAI   Engine
	Deepseek Engine

	Default string
}

var (
	ErrUnknownEngine = errors.New("unknown llm_name; use 'gemini', 'gpt' or 'deepseek'")
	ErrNotConfigured = errors.New("is not configured")
)

func (e *Engines) GetEngine(llmName string) (Engine, error) {
	name := strings.ToLower(strings.TrimSpace(llmName))
	if name == "" {
		name = e.Default
	}
	var eng Engine
	switch name {
	case "gemini":
		eng = e.Gemini
	case "gpt", "openai":
		eng = e.OpenAI
	case "deepseek":
		eng = e.Deepseek
	default:
		return nil, ErrUnknownEngine
	}
	if eng == nil {
		return nil, fmt.Errorf("%s %w", name, ErrNotConfigured)
	}
	return eng, nil
}

// Available возвращает имена настроенных движков.
func (e *Engines) Available() []string {
	var out []string
	if e.Gemini != nil {
		out = append(out, "gemini")
	}
	if e.OpenAI != nil {
		out = append(out, "gpt")
	}
	if e.Deepseek != nil {
		out = append(out, "deepseek")
	}
	return out
}

// ModelSwitcher умеют движки, у которых модель выбирается на лету (/engine gemini <model>).
type ModelSwitcher interface {
	WithModel(model string) Engine
}

type Manager struct {
	def string
	m   sync.Map // chatID -> engine name
}

func NewManager(defaultEngine string) *Manager {
	return &Manager{def: defaultEngine}
}

func (m *Manager) Get(chatID int64) string {
	if v, ok := m.m.Load(chatID); ok {
		return v.(string)
	}
	return m.def
}

func (m *Manager) Set(chatID int64, name string) {
	m.m.Store(chatID, name)
}

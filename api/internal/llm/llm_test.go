package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEngine struct{ name string }

func (s stubEngine) Generate(context.Context, []Message, Params) (string, error) { return s.name, nil }
func (s stubEngine) Name() string                                                { return s.name }
func (s stubEngine) GetModel() string                                            { return s.name + "-model" }

func TestEngines_GetEngine(t *testing.T) {
	e := &Engines{Gemini: stubEngine{"gemini"}, OpenAI: stubEngine{"gpt"}, Default: "gemini"}

	got, err := e.GetEngine("")
	require.NoError(t, err)
	assert.Equal(t, "gemini", got.Name())

	got, err = e.GetEngine(" OpenAI ")
	require.NoError(t, err)
	assert.Equal(t, "gpt", got.Name())

	_, err = e.GetEngine("deepseek")
	assert.EqualError(t, err, "deepseek is not configured")
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = e.GetEngine("claude")
	assert.ErrorIs(t, err, ErrUnknownEngine)

	assert.Equal(t, []string{"gemini", "gpt"}, e.Available())
}

func TestManager(t *testing.T) {
	m := NewManager("gemini")
	assert.Equal(t, "gemini", m.Get(1))
	m.Set(1, "gpt")
	assert.Equal(t, "gpt", m.Get(1))
	assert.Equal(t, "gemini", m.Get(2))
}

func TestGeneratorFunc(t *testing.T) {
	g := GeneratorFunc(func(_ context.Context, msgs []Message, _ Params) (string, error) {
		return msgs[len(msgs)-1].Content, nil
	})
	out, err := g.Generate(context.Background(), []Message{{Role: RoleUser, Content: "ping"}}, Params{})
	require.NoError(t, err)
	assert.Equal(t, "ping", out)
}

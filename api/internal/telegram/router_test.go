package telegram

import (
	"context"
	"errors"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sani-bot/api/internal/llm"
	"sani-bot/api/internal/prompt"
	"sani-bot/api/internal/sani"
	"sani-bot/api/internal/service"
)

type sentMessage struct {
	Text     string
	Keyboard bool
}

type fakeSender struct {
	mu       sync.Mutex
	messages []sentMessage
	edits    int
	requests []tgbotapi.Chattable
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch m := c.(type) {
	case tgbotapi.MessageConfig:
		_, kb := m.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
		f.messages = append(f.messages, sentMessage{Text: m.Text, Keyboard: kb})
	case tgbotapi.EditMessageReplyMarkupConfig:
		f.edits++
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.messages))
	for _, m := range f.messages {
		out = append(out, m.Text)
	}
	return out
}

func (f *fakeSender) last() sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.messages[len(f.messages)-1]
}

func (f *fakeSender) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = nil
}

// scriptedEngine answers by system prompt.
type scriptedEngine struct {
	name    string
	model   string
	mu      sync.Mutex
	replies map[string]string
	err     error
	calls   int
}

func (e *scriptedEngine) Generate(_ context.Context, msgs []llm.Message, _ llm.Params) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return "", e.err
	}
	return e.replies[msgs[0].Content], nil
}

func (e *scriptedEngine) Name() string     { return e.name }
func (e *scriptedEngine) GetModel() string { return e.model }

func (e *scriptedEngine) WithModel(model string) llm.Engine {
	return &scriptedEngine{name: e.name, model: model, replies: e.replies, err: e.err}
}

func newRouter(t *testing.T, eng *scriptedEngine) (*Router, *fakeSender) {
	t.Helper()
	svc := service.New(&llm.Engines{Gemini: eng, Default: "gemini"}, service.Options{
		Prompts:    prompt.Set{Assistant: "ASSIST", Chat: "CHAT", NLU: "NLU"},
		ChatParams: service.DefaultChatParams(),
		NLUParams:  service.DefaultNLUParams(),
	})
	bot := &fakeSender{}
	return &Router{
		Bot:          bot,
		Svc:          svc,
		EngManager:   llm.NewManager("gemini"),
		History:      NewMemoryHistory(20),
		HistoryLimit: 10,
	}, bot
}

func textUpdate(chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{Text: text, Chat: &tgbotapi.Chat{ID: chatID}}}
}

func commandUpdate(chatID int64, cmd, args string) tgbotapi.Update {
	text := "/" + cmd
	if args != "" {
		text += " " + args
	}
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: chatID},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd) + 1}},
	}}
}

func callbackUpdate(chatID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		Data:    data,
		Message: &tgbotapi.Message{MessageID: 7, Chat: &tgbotapi.Chat{ID: chatID}},
	}}
}

func queueEngine() *scriptedEngine {
	return &scriptedEngine{name: "gemini", model: "gemini-2.5-flash", replies: map[string]string{
		"CHAT": "Tentu, saya bantu daftar antrean. [ACTION]INTENT: REGISTER_FKTP_QUEUE[/ACTION]",
		"NLU":  `{"intent":"daftar_rs","slots":{"nama":"Budi"}}`,
	}}
}

func TestRouter_TextTurnAsksConfirmation(t *testing.T) {
	r, bot := newRouter(t, queueEngine())
	ctx := context.Background()

	r.HandleUpdate(ctx, textUpdate(1, "saya mau daftar antrian puskesmas"))

	texts := bot.texts()
	require.Len(t, texts, 2)
	assert.Equal(t, "Tentu, saya bantu daftar antrean.", texts[0])
	assert.Contains(t, texts[1], "Budi")
	assert.True(t, bot.last().Keyboard)

	p := r.getPending(1)
	require.NotNil(t, p)
	assert.Equal(t, sani.RegisterFKTPQueue, p.Intent)

	hist, err := r.History.Load(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, sani.RoleAssistant, hist[1].Role)
}

func TestRouter_TypedYesThenTemplate(t *testing.T) {
	eng := queueEngine()
	r, bot := newRouter(t, eng)
	ctx := context.Background()
	r.HandleUpdate(ctx, textUpdate(1, "saya mau daftar antrian puskesmas"))
	calls := eng.calls
	bot.reset()

	r.HandleUpdate(ctx, textUpdate(1, " Iya "))
	texts := bot.texts()
	require.Len(t, texts, 2)
	assert.Equal(t, ackYes, texts[0])
	assert.Contains(t, texts[1], "Nama Peserta:")
	assert.Equal(t, stageTemplate, r.getPending(1).Stage)

	bot.reset()
	r.HandleUpdate(ctx, textUpdate(1, "Nama Peserta: Budi\nPoli: UMUM"))
	assert.Equal(t, []string{templateThanks}, bot.texts())
	assert.Nil(t, r.getPending(1))
	assert.Equal(t, calls, eng.calls, "confirmation flow must not call the model")
}

func TestRouter_NoButton(t *testing.T) {
	r, bot := newRouter(t, queueEngine())
	ctx := context.Background()
	r.HandleUpdate(ctx, textUpdate(1, "saya mau daftar antrian puskesmas"))
	bot.reset()

	r.HandleUpdate(ctx, callbackUpdate(1, cbNo))
	texts := bot.texts()
	require.Len(t, texts, 2)
	assert.Equal(t, ackNo, texts[0])
	assert.Nil(t, r.getPending(1))
	assert.Equal(t, 1, bot.edits)

	bot.reset()
	r.HandleUpdate(ctx, callbackUpdate(1, cbYes))
	assert.Equal(t, []string{"Konfirmasi ini sudah tidak berlaku."}, bot.texts())
}

func TestRouter_OtherTextKeepsPending(t *testing.T) {
	eng := queueEngine()
	r, _ := newRouter(t, eng)
	ctx := context.Background()
	r.HandleUpdate(ctx, textUpdate(1, "saya mau daftar antrian puskesmas"))

	eng.mu.Lock()
	eng.replies["NLU"] = `{"intent":"other"}`
	eng.replies["CHAT"] = "Jam buka puskesmas biasanya pagi."
	eng.mu.Unlock()

	r.HandleUpdate(ctx, textUpdate(1, "jam buka puskesmas?"))
	require.NotNil(t, r.getPending(1))
	assert.Equal(t, sani.RegisterFKTPQueue, r.getPending(1).Intent)
}

func TestRouter_InfoIntentWithoutConfirmation(t *testing.T) {
	eng := &scriptedEngine{name: "gemini", replies: map[string]string{
		"CHAT": "Iuran bisa dibayar lewat bank.",
		"NLU":  `{"intent":"other"}`,
	}}
	r, bot := newRouter(t, eng)
	r.HandleUpdate(context.Background(), textUpdate(2, "cara bayar iuran"))

	texts := bot.texts()
	require.Len(t, texts, 2)
	assert.Contains(t, texts[1], "Info Riwayat Pembayaran")
	assert.False(t, bot.last().Keyboard)
	assert.Nil(t, r.getPending(2))
}

func TestRouter_UpstreamError(t *testing.T) {
	eng := &scriptedEngine{name: "gemini", err: errors.New("quota")}
	r, bot := newRouter(t, eng)
	r.HandleUpdate(context.Background(), textUpdate(3, "halo"))
	assert.Equal(t, []string{upstreamFailText}, bot.texts())

	hist, err := r.History.Load(context.Background(), 3, 10)
	require.NoError(t, err)
	assert.Empty(t, hist)
}

func TestRouter_EngineCommand(t *testing.T) {
	r, bot := newRouter(t, queueEngine())
	ctx := context.Background()

	r.HandleUpdate(ctx, commandUpdate(1, "engine", "gpt"))
	assert.Contains(t, bot.last().Text, "not configured")
	assert.Equal(t, "gemini", r.EngManager.Get(1))

	r.HandleUpdate(ctx, commandUpdate(1, "engine", "claude"))
	assert.Contains(t, bot.last().Text, "unknown llm_name")

	r.HandleUpdate(ctx, commandUpdate(1, "engine", "gemini gemini-2.5-pro"))
	assert.Equal(t, "✅ Engine: gemini (gemini-2.5-pro).", bot.last().Text)
	eng, err := r.engineFor(1)
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-pro", eng.GetModel())

	eng, err = r.engineFor(2)
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-flash", eng.GetModel())

	r.HandleUpdate(ctx, commandUpdate(1, "engine", ""))
	assert.Contains(t, bot.last().Text, "gemini (gemini-2.5-pro)")
}

func TestRouter_ResetAndStart(t *testing.T) {
	r, bot := newRouter(t, queueEngine())
	ctx := context.Background()
	r.HandleUpdate(ctx, textUpdate(1, "saya mau daftar antrian puskesmas"))

	r.HandleUpdate(ctx, commandUpdate(1, "reset", ""))
	assert.Equal(t, "Riwayat percakapan sudah dihapus.", bot.last().Text)
	assert.Nil(t, r.getPending(1))
	hist, err := r.History.Load(ctx, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, hist)

	r.HandleUpdate(ctx, commandUpdate(1, "start", ""))
	assert.Contains(t, bot.last().Text, "SANI")

	r.HandleUpdate(ctx, commandUpdate(1, "health", ""))
	assert.Contains(t, bot.last().Text, "gemini")

	r.HandleUpdate(ctx, commandUpdate(1, "foo", ""))
	assert.Equal(t, "Perintah tidak dikenal", bot.last().Text)
}

func TestPlanFor(t *testing.T) {
	for _, ci := range sani.CanonicalIntents() {
		pl, ok := planFor(sani.IntentParseResult{Intent: ci, Slots: sani.Slots{}})
		switch ci {
		case sani.Other, sani.RegisterBranchQueue:
			assert.False(t, ok, ci)
		default:
			require.True(t, ok, ci)
			assert.NotEmpty(t, pl.Text)
			if pl.Confirm {
				assert.NotEmpty(t, pl.Yes)
			}
		}
	}
	pl, _ := planFor(sani.IntentParseResult{Intent: sani.UpdateProfile, Slots: sani.Slots{sani.SlotField: "No HP"}})
	assert.Contains(t, pl.Text, "Nomor Handphone")
	pl, _ = planFor(sani.IntentParseResult{Intent: sani.RegisterFRTLQueue, Slots: sani.Slots{}})
	assert.Contains(t, pl.Text, "Peserta JKN")
}

func TestAnswer(t *testing.T) {
	assert.Equal(t, 1, answer("OKE"))
	assert.Equal(t, -1, answer(" nggak "))
	assert.Equal(t, 0, answer("ya sudah nanti saja"))
}

func TestMemoryHistory(t *testing.T) {
	h := NewMemoryHistory(3)
	ctx := context.Background()
	for _, c := range []string{"a", "b", "c", "d"} {
		require.NoError(t, h.Append(ctx, 1, sani.ChatTurn{Role: sani.RoleUser, Content: c}))
	}
	got, err := h.Load(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "b", got[0].Content)

	got, _ = h.Load(ctx, 1, 2)
	assert.Equal(t, "c", got[0].Content)

	got, _ = h.Load(ctx, 1, 0)
	assert.Nil(t, got)
}

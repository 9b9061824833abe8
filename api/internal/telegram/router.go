package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"sani-bot/api/internal/llm"
	"sani-bot/api/internal/sani"
	"sani-bot/api/internal/service"
)

// Sender: часть *tgbotapi.BotAPI, которой пользуется роутер.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

const upstreamFailText = "Maaf, ada kendala saat menghubungi SANI. Coba beberapa saat lagi ya."

type Router struct {
	Bot          Sender
	Svc          *service.Service
	EngManager   *llm.Manager
	History      History
	HistoryLimit int
	Timeout      time.Duration
	Log          *zap.Logger

	pending sync.Map // chatID -> *pendingAction
	models  sync.Map // chatID -> model override
}

func (r *Router) logger() *zap.Logger {
	if r.Log == nil {
		return zap.NewNop()
	}
	return r.Log
}

func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	// callback-кнопки
	if upd.CallbackQuery != nil {
		r.handleCallback(ctx, *upd.CallbackQuery)
		return
	}
	if upd.Message == nil || upd.Message.Chat == nil {
		return
	}
	cid := upd.Message.Chat.ID

	if upd.Message.IsCommand() {
		r.HandleCommand(ctx, upd.Message)
		return
	}
	text := strings.TrimSpace(upd.Message.Text)
	if text == "" {
		r.send(cid, "Kirim pertanyaan dalam bentuk teks ya.")
		return
	}

	if p := r.getPending(cid); p != nil {
		switch p.Stage {
		case stageTemplate:
			r.clearPending(cid)
			r.send(cid, templateThanks)
			return
		case stageConfirm:
			switch answer(text) {
			case 1:
				r.onYes(cid)
				return
			case -1:
				r.onNo(cid)
				return
			}
			// не ya/tidak: обычный вопрос
		}
	}

	r.handleText(ctx, cid, text)
}

func (r *Router) handleText(ctx context.Context, cid int64, text string) {
	eng, err := r.engineFor(cid)
	if err != nil {
		r.send(cid, "❌ "+err.Error())
		return
	}
	_, _ = r.Bot.Request(tgbotapi.NewChatAction(cid, tgbotapi.ChatTyping))

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	history, err := r.History.Load(ctx, cid, r.HistoryLimit)
	if err != nil {
		r.logger().Warn("history load failed", zap.Int64("chat_id", cid), zap.Error(err))
	}

	ctx = service.WithConversation(ctx, channel, strconv.FormatInt(cid, 10))
	res, err := r.Svc.TurnWith(ctx, eng, history, text)
	if err != nil {
		r.logger().Error("turn failed", zap.Int64("chat_id", cid), zap.String("engine", eng.Name()), zap.Error(err))
		r.send(cid, upstreamFailText)
		return
	}

	if err := r.History.Append(ctx, cid,
		sani.ChatTurn{Role: sani.RoleUser, Content: text},
		sani.ChatTurn{Role: sani.RoleAssistant, Content: res.Reply},
	); err != nil {
		r.logger().Warn("history append failed", zap.Int64("chat_id", cid), zap.Error(err))
	}
	r.send(cid, res.Reply)

	pl, ok := planFor(res.Intent)
	if !ok {
		return
	}
	if !pl.Confirm {
		r.send(cid, pl.Text)
		return
	}
	r.setPending(cid, &pendingAction{Intent: res.Intent.Intent, Stage: stageConfirm, Plan: pl})
	msg := tgbotapi.NewMessage(cid, pl.Text)
	msg.ReplyMarkup = makeConfirmKeyboard()
	_, _ = r.Bot.Send(msg)
}

func (r *Router) onYes(cid int64) {
	p := r.getPending(cid)
	if p == nil {
		r.send(cid, "Tidak ada bantuan yang menunggu konfirmasi.")
		return
	}
	r.send(cid, ackYes)
	r.send(cid, p.Plan.Yes)
	if p.Plan.Template {
		r.setPending(cid, &pendingAction{Intent: p.Intent, Stage: stageTemplate, Plan: p.Plan})
		return
	}
	r.clearPending(cid)
}

func (r *Router) onNo(cid int64) {
	p := r.getPending(cid)
	if p == nil {
		r.send(cid, "Tidak ada bantuan yang menunggu konfirmasi.")
		return
	}
	r.clearPending(cid)
	r.send(cid, ackNo)
	if p.Plan.No != "" {
		r.send(cid, p.Plan.No)
	}
}

// engineFor: движок чата из EngManager, с моделью из /engine <name> <model>.
func (r *Router) engineFor(cid int64) (llm.Engine, error) {
	eng, err := r.Svc.Engines().GetEngine(r.EngManager.Get(cid))
	if err != nil {
		return nil, err
	}
	if v, ok := r.models.Load(cid); ok {
		if sw, ok := eng.(llm.ModelSwitcher); ok {
			return sw.WithModel(v.(string)), nil
		}
	}
	return eng, nil
}

func (r *Router) HandleCommand(ctx context.Context, m *tgbotapi.Message) {
	cid := m.Chat.ID
	switch m.Command() {
	case "start":
		r.send(cid, "Halo! Saya SANI, asisten Mobile JKN. Tanyakan soal antrean faskes, iuran, akun, atau perubahan data.\n"+
			"Perintah: /engine, /reset, /health")
	case "health":
		r.send(cid, "✅ OK\nEngines: "+strings.Join(r.Svc.Engines().Available(), ", "))
	case "engine":
		r.handleEngineCommand(cid, m.CommandArguments())
	case "reset":
		r.clearPending(cid)
		r.models.Delete(cid)
		if err := r.History.Reset(ctx, cid); err != nil {
			r.logger().Warn("history reset failed", zap.Int64("chat_id", cid), zap.Error(err))
			r.send(cid, "Gagal menghapus riwayat: "+err.Error())
			return
		}
		r.send(cid, "Riwayat percakapan sudah dihapus.")
	default:
		r.send(cid, "Perintah tidak dikenal")
	}
}

// handleEngineCommand переключает движок для чата.
// Форматы:
//
//	/engine
//	/engine gemini [model]
//	/engine gpt [model]
//	/engine deepseek [model]
func (r *Router) handleEngineCommand(chatID int64, argLine string) {
	args := strings.Fields(argLine)
	if len(args) == 0 {
		cur := r.EngManager.Get(chatID)
		if eng, err := r.engineFor(chatID); err == nil {
			cur += " (" + eng.GetModel() + ")"
		}
		r.send(chatID, "Engine saat ini: "+cur+
			"\nPemakaian: /engine {gemini|gpt|deepseek} [model]\nTersedia: "+strings.Join(r.Svc.Engines().Available(), ", "))
		return
	}
	name := strings.ToLower(args[0])
	eng, err := r.Svc.Engines().GetEngine(name)
	if err != nil {
		r.send(chatID, "❌ "+err.Error())
		return
	}
	r.EngManager.Set(chatID, name)
	r.models.Delete(chatID)
	if len(args) > 1 {
		if sw, ok := eng.(llm.ModelSwitcher); ok {
			r.models.Store(chatID, args[1])
			eng = sw.WithModel(args[1])
		}
	}
	r.send(chatID, fmt.Sprintf("✅ Engine: %s (%s).", eng.Name(), eng.GetModel()))
}

func (r *Router) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, clip(text))
	if _, err := r.Bot.Send(msg); err != nil {
		r.logger().Warn("send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

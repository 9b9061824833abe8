package telegram

import (
	"sani-bot/api/internal/sani"
)

type stage int

const (
	stageConfirm  stage = iota // ждём ya/tidak
	stageTemplate              // ждём заполненный шаблон
)

type pendingAction struct {
	Intent sani.CanonicalIntent
	Stage  stage
	Plan   plan
}

func (r *Router) setPending(chatID int64, p *pendingAction) { r.pending.Store(chatID, p) }

func (r *Router) getPending(chatID int64) *pendingAction {
	if v, ok := r.pending.Load(chatID); ok {
		return v.(*pendingAction)
	}
	return nil
}

func (r *Router) clearPending(chatID int64) { r.pending.Delete(chatID) }

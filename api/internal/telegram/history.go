package telegram

import (
	"context"
	"strconv"
	"sync"

	"sani-bot/api/internal/sani"
	"sani-bot/api/internal/store"
)

const channel = "telegram"

// History хранит реплики чата; история принадлежит каналу, а не сервису.
type History interface {
	Load(ctx context.Context, chatID int64, limit int) ([]sani.ChatTurn, error)
	Append(ctx context.Context, chatID int64, turns ...sani.ChatTurn) error
	Reset(ctx context.Context, chatID int64) error
}

// MemoryHistory: история в памяти процесса, не больше max реплик на чат.
type MemoryHistory struct {
	max int
	mu  sync.Mutex
	m   map[int64][]sani.ChatTurn
}

func NewMemoryHistory(max int) *MemoryHistory {
	return &MemoryHistory{max: max, m: make(map[int64][]sani.ChatTurn)}
}

func (h *MemoryHistory) Load(_ context.Context, chatID int64, limit int) ([]sani.ChatTurn, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	turns := h.m[chatID]
	if limit <= 0 {
		return nil, nil
	}
	if len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	out := make([]sani.ChatTurn, len(turns))
	copy(out, turns)
	return out, nil
}

func (h *MemoryHistory) Append(_ context.Context, chatID int64, turns ...sani.ChatTurn) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	all := append(h.m[chatID], turns...)
	if h.max > 0 && len(all) > h.max {
		all = append([]sani.ChatTurn(nil), all[len(all)-h.max:]...)
	}
	h.m[chatID] = all
	return nil
}

func (h *MemoryHistory) Reset(_ context.Context, chatID int64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.m, chatID)
	return nil
}

// RepoHistory читает историю из журнала interactions.
// Append пустой: реплики туда пишет service через Recorder.
type RepoHistory struct {
	Repo *store.InteractionRepo
}

func (h RepoHistory) Load(ctx context.Context, chatID int64, limit int) ([]sani.ChatTurn, error) {
	return h.Repo.History(ctx, channel, strconv.FormatInt(chatID, 10), limit)
}

func (RepoHistory) Append(context.Context, int64, ...sani.ChatTurn) error { return nil }

func (h RepoHistory) Reset(ctx context.Context, chatID int64) error {
	_, err := h.Repo.DeleteChat(ctx, channel, strconv.FormatInt(chatID, 10))
	return err
}

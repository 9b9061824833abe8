package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"sani-bot/api/internal/sani"
)

var ErrNotFound = sql.ErrNoRows

// Schema создаёт таблицу журнала реплик. Выполняется на старте (EnsureSchema).
const Schema = `
create table if not exists interactions (
  id         bigserial primary key,
  created_at timestamptz not null default now(),
  channel    text not null,
  chat_id    text not null,
  role       text not null,
  content    text not null,
  engine     text not null default '',
  intent     text not null default '',
  slots_json jsonb
);
create index if not exists interactions_chat_idx on interactions (channel, chat_id, id desc);`

type InteractionRepo struct{ DB *sql.DB }

func NewInteractionRepo(db *sql.DB) *InteractionRepo { return &InteractionRepo{DB: db} }

// Interaction: одна реплика диалога. Intent/Slots заполнены только у реплик,
// которые прошли классификацию.
type Interaction struct {
	ID        int64
	CreatedAt time.Time
	Channel   string // "http", "telegram"
	ChatID    string
	Role      sani.ChatRole
	Content   string
	Engine    string
	Intent    sani.CanonicalIntent
	Slots     sani.Slots
}

func (r *InteractionRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, Schema)
	return err
}

// Append дописывает реплику в журнал (append-only).
func (r *InteractionRepo) Append(ctx context.Context, it Interaction) error {
	var slots any // NULL без слотов
	if it.Slots != nil {
		b, _ := json.Marshal(it.Slots)
		slots = b
	}
	const q = `
insert into interactions (channel, chat_id, role, content, engine, intent, slots_json)
values ($1,$2,$3,$4,$5,$6,$7)`
	_, err := r.DB.ExecContext(ctx, q,
		it.Channel, it.ChatID, string(it.Role), it.Content, it.Engine, string(it.Intent), slots,
	)
	return err
}

// History возвращает последние limit реплик чата в хронологическом порядке.
func (r *InteractionRepo) History(ctx context.Context, channel, chatID string, limit int) ([]sani.ChatTurn, error) {
	if limit <= 0 {
		return nil, nil
	}
	const q = `
select role, content from (
  select id, role, content
  from interactions
  where channel = $1 and chat_id = $2
  order by id desc
  limit $3
) t
order by id asc`
	rows, err := r.DB.QueryContext(ctx, q, channel, chatID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []sani.ChatTurn
	for rows.Next() {
		var role, content string
		if err := rows.Scan(&role, &content); err != nil {
			return nil, err
		}
		t := sani.ChatTurn{Role: sani.ChatRole(role), Content: content}
		if t.Valid() {
			out = append(out, t)
		}
	}
	return out, rows.Err()
}

// LastIntent достаёт самую свежую классифицированную реплику чата.
func (r *InteractionRepo) LastIntent(ctx context.Context, channel, chatID string) (*Interaction, error) {
	const q = `
select id, created_at, role, content, engine, intent, slots_json
from interactions
where channel = $1 and chat_id = $2 and intent <> ''
order by id desc
limit 1`
	var (
		it    = Interaction{Channel: channel, ChatID: chatID}
		role  string
		ci    string
		slots []byte
	)
	err := r.DB.QueryRowContext(ctx, q, channel, chatID).
		Scan(&it.ID, &it.CreatedAt, &role, &it.Content, &it.Engine, &ci, &slots)
	if err != nil {
		return nil, err
	}
	it.Role = sani.ChatRole(role)
	it.Intent = sani.CanonicalIntent(ci)
	if len(slots) > 0 {
		if err := json.Unmarshal(slots, &it.Slots); err != nil {
			// битый JSON слотов: отдаём запись без них
			it.Slots = nil
		}
	}
	return &it, nil
}

// DeleteChat стирает историю чата (команда /reset).
func (r *InteractionRepo) DeleteChat(ctx context.Context, channel, chatID string) (int64, error) {
	const q = `delete from interactions where channel = $1 and chat_id = $2`
	res, err := r.DB.ExecContext(ctx, q, channel, chatID)
	if err != nil {
		return 0, err
	}
	aff, _ := res.RowsAffected()
	return aff, nil
}

// PurgeOlderThan удаляет старые реплики, чтобы не раздувать БД.
func (r *InteractionRepo) PurgeOlderThan(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, errors.New("olderThan must be > 0")
	}
	cutoff := time.Now().Add(-olderThan)
	const q = `delete from interactions where created_at < $1`
	res, err := r.DB.ExecContext(ctx, q, cutoff)
	if err != nil {
		return 0, err
	}
	aff, _ := res.RowsAffected()
	return aff, nil
}

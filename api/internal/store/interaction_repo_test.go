package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sani-bot/api/internal/sani"
)

func newMock(t *testing.T) (*InteractionRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewInteractionRepo(db), mock
}

func TestAppend(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("insert into interactions")).
		WithArgs("telegram", "42", "user", "mau antri di puskesmas", "gemini", "REGISTER_FKTP_QUEUE", []byte(`{"faskes":"Puskesmas Menteng"}`)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Append(context.Background(), Interaction{
		Channel: "telegram",
		ChatID:  "42",
		Role:    sani.RoleUser,
		Content: "mau antri di puskesmas",
		Engine:  "gemini",
		Intent:  sani.RegisterFKTPQueue,
		Slots:   sani.Slots{"faskes": "Puskesmas Menteng"},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppend_NoSlots(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("insert into interactions")).
		WithArgs("http", "abc", "assistant", "Halo!", "", "", nil).
		WillReturnResult(sqlmock.NewResult(2, 1))

	require.NoError(t, repo.Append(context.Background(), Interaction{
		Channel: "http", ChatID: "abc", Role: sani.RoleAssistant, Content: "Halo!",
	}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHistory(t *testing.T) {
	repo, mock := newMock(t)
	rows := sqlmock.NewRows([]string{"role", "content"}).
		AddRow("user", "halo").
		AddRow("assistant", "hai").
		AddRow("system", "ignored")
	mock.ExpectQuery(regexp.QuoteMeta("select role, content from")).
		WithArgs("telegram", "42", 10).
		WillReturnRows(rows)

	got, err := repo.History(context.Background(), "telegram", "42", 10)
	require.NoError(t, err)
	assert.Equal(t, []sani.ChatTurn{
		{Role: sani.RoleUser, Content: "halo"},
		{Role: sani.RoleAssistant, Content: "hai"},
	}, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHistory_ZeroLimit(t *testing.T) {
	repo, mock := newMock(t)
	got, err := repo.History(context.Background(), "telegram", "42", 0)
	require.NoError(t, err)
	assert.Nil(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLastIntent(t *testing.T) {
	repo, mock := newMock(t)
	ts := time.Date(2025, 1, 12, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("from interactions")).
		WithArgs("telegram", "42").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "role", "content", "engine", "intent", "slots_json"}).
			AddRow(int64(7), ts, "user", "pindah faskes", "gpt", "UPDATE_PROFILE", []byte(`{"field":"faskes"}`)))

	it, err := repo.LastIntent(context.Background(), "telegram", "42")
	require.NoError(t, err)
	assert.Equal(t, int64(7), it.ID)
	assert.Equal(t, sani.UpdateProfile, it.Intent)
	assert.Equal(t, "faskes", it.Slots["field"])
	assert.Equal(t, ts, it.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLastIntent_NotFound(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("from interactions")).
		WithArgs("telegram", "1").
		WillReturnError(ErrNotFound)

	_, err := repo.LastIntent(context.Background(), "telegram", "1")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestDeleteChat(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("delete from interactions where channel")).
		WithArgs("telegram", "42").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteChat(context.Background(), "telegram", "42")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestPurgeOlderThan(t *testing.T) {
	repo, mock := newMock(t)
	_, err := repo.PurgeOlderThan(context.Background(), 0)
	assert.Error(t, err)

	mock.ExpectExec(regexp.QuoteMeta("delete from interactions where created_at")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 5))
	n, err := repo.PurgeOlderThan(context.Background(), 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("create table if not exists interactions")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, repo.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

package session

import (
	"context"
	"encoding/json"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msk-triage-server/internal/interview"
)

func newMockPostgresStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &PostgresStore{db: db}, mock
}

func TestPostgresSaveUpserts(t *testing.T) {
	store, mock := newMockPostgresStore(t)
	s := interview.NewSession("knee_injury")

	mock.ExpectExec("INSERT INTO sessions").
		WithArgs(s.ID, "knee_injury", string(s.State),
			sqlmock.AnyArg(), s.CreatedAt, s.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Save(context.Background(), s))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGet(t *testing.T) {
	store, mock := newMockPostgresStore(t)
	s := interview.NewSession("knee_oa")
	payload, err := json.Marshal(s)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT payload FROM sessions").
		WithArgs(s.ID).
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(payload))

	got, err := store.Get(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, "knee_oa", got.QuestionnaireType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetNotFound(t *testing.T) {
	store, mock := newMockPostgresStore(t)

	mock.ExpectQuery("SELECT payload FROM sessions").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}))

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresList(t *testing.T) {
	store, mock := newMockPostgresStore(t)

	mock.ExpectQuery("SELECT id FROM sessions ORDER BY updated_at DESC").
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("b").AddRow("a"))

	ids, err := store.List(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDelete(t *testing.T) {
	store, mock := newMockPostgresStore(t)

	mock.ExpectExec("DELETE FROM sessions").
		WithArgs("gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, store.Delete(context.Background(), "gone"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

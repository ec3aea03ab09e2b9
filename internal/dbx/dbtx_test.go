package dbx

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func recordRun(ctx context.Context, tx DBTX) error {
	if _, err := tx.ExecContext(ctx, `INSERT INTO history (id, tool) VALUES ($1, $2)`, "h1", "protect"); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO usage_daily (day, tool, count) VALUES ($1, $2, 1)`, "2026-10-18", "protect")
	return err
}

func TestWithTx_CommitsHistoryAndUsage(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO history`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO usage_daily`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, WithTx(context.Background(), db, nil, recordRun))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_UsageFailureRollsBackHistory(t *testing.T) {
	db, mock := newMockDB(t)
	usageErr := errors.New("usage_daily locked")

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO history`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO usage_daily`).WillReturnError(usageErr)
	mock.ExpectRollback()

	err := WithTx(context.Background(), db, nil, recordRun)
	assert.ErrorIs(t, err, usageErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_PanicRollsBack(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.PanicsWithValue(t, "repository bug", func() {
		_ = WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
			panic("repository bug")
		})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_BeginError(t *testing.T) {
	db, mock := newMockDB(t)
	connErr := errors.New("conn refused")

	mock.ExpectBegin().WillReturnError(connErr)

	called := false
	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, connErr)
	assert.ErrorContains(t, err, "begin tx")
	assert.False(t, called)
}

func TestWithTx_CommitError(t *testing.T) {
	db, mock := newMockDB(t)
	commitErr := errors.New("commit failed")

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(commitErr)

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		return nil
	})
	assert.ErrorIs(t, err, commitErr)
	assert.ErrorContains(t, err, "commit tx")
}

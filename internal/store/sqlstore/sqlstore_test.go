package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"presence_dao/sdk"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSQLite(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dao.db")
	s, err := Open(context.Background(), DriverSQLite, path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestSQLiteApplyAndGet(t *testing.T) {
	ctx := context.Background()
	s, _ := openSQLite(t)

	var b sdk.Batch
	b.Set("\x01", "state\x00bytes")
	b.Set("\x10\x00\x00\x00\x00\x00\x00\x00\x00", "event")
	require.NoError(t, s.Apply(ctx, &b))

	v, err := s.Get(ctx, "\x01")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "state\x00bytes", *v)

	var update sdk.Batch
	update.Set("\x01", "state v2")
	update.Delete("\x10\x00\x00\x00\x00\x00\x00\x00\x00")
	require.NoError(t, s.Apply(ctx, &update))

	v, err = s.Get(ctx, "\x01")
	require.NoError(t, err)
	assert.Equal(t, "state v2", *v)
	gone, err := s.Get(ctx, "\x10\x00\x00\x00\x00\x00\x00\x00\x00")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	s, path := openSQLite(t)
	var b sdk.Batch
	b.Set("k", "v")
	require.NoError(t, s.Apply(ctx, &b))
	require.NoError(t, s.Close())

	reopened, err := Open(ctx, DriverSQLite, path, nil)
	require.NoError(t, err)
	defer reopened.Close()
	v, err := reopened.Get(ctx, "k")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "v", *v)
}

func TestUnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "dsn", nil)
	assert.Error(t, err)
}

// =============================================================================
// Statement shape
// =============================================================================

func newMock(t *testing.T, driver string) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	s, err := New(db, driver, nil)
	require.NoError(t, err)
	return s, mock
}

func TestApplyUsesOneTransaction(t *testing.T) {
	s, mock := newMock(t, DriverPostgres)

	mock.ExpectBegin()
	mock.ExpectExec(dialects[DriverPostgres].upsert).
		WithArgs("01", "c3RhdGU=").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(dialects[DriverPostgres].delete).
		WithArgs("02").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	var b sdk.Batch
	b.Set("\x01", "state")
	b.Delete("\x02")
	require.NoError(t, s.Apply(context.Background(), &b))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyRollsBackOnError(t *testing.T) {
	s, mock := newMock(t, DriverSQLite)

	mock.ExpectBegin()
	mock.ExpectExec(dialects[DriverSQLite].upsert).
		WithArgs("01", "YQ==").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(dialects[DriverSQLite].upsert).
		WithArgs("02", "Yg==").
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	var b sdk.Batch
	b.Set("\x01", "a")
	b.Set("\x02", "b")
	err := s.Apply(context.Background(), &b)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEmptyBatchSkipsDatabase(t *testing.T) {
	s, mock := newMock(t, DriverPgx)
	require.NoError(t, s.Apply(context.Background(), &sdk.Batch{}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetMissingKey(t *testing.T) {
	s, mock := newMock(t, DriverPgx)
	mock.ExpectQuery(dialects[DriverPgx].get).
		WithArgs("ff").
		WillReturnError(sql.ErrNoRows)

	v, err := s.Get(context.Background(), "\xff")
	require.NoError(t, err)
	assert.Nil(t, v)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRejectsCorruptValue(t *testing.T) {
	s, mock := newMock(t, DriverPostgres)
	mock.ExpectQuery(dialects[DriverPostgres].get).
		WithArgs("01").
		WillReturnRows(sqlmock.NewRows([]string{"v"}).AddRow("%%%"))

	_, err := s.Get(context.Background(), "\x01")
	assert.Error(t, err)
}

func TestRunMigrationsUsesSeam(t *testing.T) {
	s, _ := newMock(t, DriverPgx)

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		if dir != "." {
			return errors.New("unexpected dir")
		}
		return nil
	}
	defer func() { gooseUpContext = orig }()
	require.NoError(t, s.RunMigrations(context.Background()))

	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	assert.EqualError(t, s.RunMigrations(context.Background()), "boom")
}

package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDBError = "connection refused"

func newMockSQLStorage(t *testing.T) (*SQLStorage, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s, err := NewSQLStorageFromDB(db, DialectPostgres)
	require.NoError(t, err)
	return s, mock
}

func TestSQLStorage_Postgres_Migrate(t *testing.T) {
	s, mock := newMockSQLStorage(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS funnel_store \(name TEXT PRIMARY KEY, data BYTEA NOT NULL`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStorage_Postgres_Write(t *testing.T) {
	s, mock := newMockSQLStorage(t)

	mock.ExpectExec(`INSERT INTO funnel_store \(name,data,updated_at\) VALUES \(\$1,\$2,\$3\) ON CONFLICT \(name\) DO UPDATE`).
		WithArgs("funnel_data", []byte(`{"tiles":[]}`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, s.Write(context.Background(), "funnel_data", []byte(`{"tiles":[]}`)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStorage_Postgres_Write_Error(t *testing.T) {
	s, mock := newMockSQLStorage(t)

	mock.ExpectExec(`INSERT INTO funnel_store`).
		WillReturnError(errors.New(testDBError))

	err := s.Write(context.Background(), "funnel_data", []byte(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), testDBError)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStorage_Postgres_Read(t *testing.T) {
	s, mock := newMockSQLStorage(t)

	mock.ExpectQuery(`SELECT data FROM funnel_store WHERE name = \$1`).
		WithArgs("funnel_data").
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow([]byte(`{"tiles":[1]}`)))

	data, err := s.Read(context.Background(), "funnel_data")
	require.NoError(t, err)
	assert.Equal(t, `{"tiles":[1]}`, string(data))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStorage_Postgres_Read_NotFound(t *testing.T) {
	s, mock := newMockSQLStorage(t)

	mock.ExpectQuery(`SELECT data FROM funnel_store`).
		WithArgs("funnel_data").
		WillReturnRows(sqlmock.NewRows([]string{"data"}))

	_, err := s.Read(context.Background(), "funnel_data")
	assert.ErrorIs(t, err, os.ErrNotExist)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStorage_Postgres_List(t *testing.T) {
	s, mock := newMockSQLStorage(t)

	mock.ExpectQuery(`SELECT name FROM funnel_store WHERE name LIKE \$1 ESCAPE`).
		WithArgs(`funnel\_backup\_%`).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).
			AddRow("funnel_backup_2024-01-01-00-00-00").
			AddRow("funnel_backup_2024-01-03-00-00-00").
			AddRow("funnel_backup_2024-01-02-00-00-00"))

	keys, err := s.List(context.Background(), "funnel_backup_")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"funnel_backup_2024-01-03-00-00-00",
		"funnel_backup_2024-01-02-00-00-00",
		"funnel_backup_2024-01-01-00-00-00",
	}, keys)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStorage_Postgres_Delete(t *testing.T) {
	s, mock := newMockSQLStorage(t)

	mock.ExpectExec(`DELETE FROM funnel_store WHERE name = \$1`).
		WithArgs("funnel_backup_a").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Delete(context.Background(), "funnel_backup_a"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStorage_InvalidConfig(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, err = NewSQLStorageFromDB(db, "mysql")
	require.Error(t, err)
	assert.Implements(t, (*interface{ StackTrace() pkgerrors.StackTrace })(nil), err)

	_, err = NewSQLStorageFromDB(db, DialectSQLite, SQLWithTable("funnel; DROP TABLE x"))
	require.Error(t, err)
}

func TestSQLStorage_SQLite_Persists(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "funnel.sqlite")

	s, err := NewSQLStorage(ctx, DialectSQLite, dsn, SQLWithTable("funnel_test"))
	require.NoError(t, err)
	require.NoError(t, s.Write(ctx, "funnel_data", []byte(`{"tiles":[1],"table":[]}`)))
	require.NoError(t, s.Close())

	s, err = NewSQLStorage(ctx, DialectSQLite, dsn, SQLWithTable("funnel_test"))
	require.NoError(t, err)
	defer s.Close()

	data, err := s.Read(ctx, "funnel_data")
	require.NoError(t, err)
	assert.JSONEq(t, `{"tiles":[1],"table":[]}`, string(data))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `funnel\_backup\_`, escapeLike("funnel_backup_"))
	assert.Equal(t, `100\%\\`, escapeLike(`100%\`))
}

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	// Register the supported database/sql drivers
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"

	defaultSQLTable = "funnel_store"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

type (
	// SQLStorage implements Storage as one row per key in a single table.
	SQLStorage struct {
		db      *sql.DB
		dialect string
		table   string
		builder sq.StatementBuilderType
	}
	SQLOption func(*SQLStorage)
)

// ------------------------------------------------------------------------------------------------
// ~ Options
// ------------------------------------------------------------------------------------------------

// SQLWithTable sets the table name, an empty name keeps the default
func SQLWithTable(v string) SQLOption {
	return func(o *SQLStorage) {
		if v != "" {
			o.table = v
		}
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

// NewSQLStorage opens the database, verifies the connection and creates the table if missing.
// dialect is either "sqlite" or "postgres" and doubles as the driver name.
func NewSQLStorage(ctx context.Context, dialect, dsn string, opts ...SQLOption) (*SQLStorage, error) {
	db, err := sql.Open(dialect, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	if dialect == DialectSQLite {
		// a single connection keeps in-memory databases alive and serializes writers
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}

	s, err := NewSQLStorageFromDB(db, dialect, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStorageFromDB wraps an existing connection pool without touching the schema.
func NewSQLStorageFromDB(db *sql.DB, dialect string, opts ...SQLOption) (*SQLStorage, error) {
	inst := &SQLStorage{
		db:      db,
		dialect: dialect,
		table:   defaultSQLTable,
	}
	for _, opt := range opts {
		opt(inst)
	}

	switch dialect {
	case DialectPostgres:
		inst.builder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	case DialectSQLite:
		inst.builder = sq.StatementBuilder.PlaceholderFormat(sq.Question)
	default:
		return nil, errors.Errorf("unsupported sql dialect: %s (supported: sqlite, postgres)", dialect)
	}
	if !validTableName.MatchString(inst.table) {
		return nil, errors.Errorf("invalid table name: %q", inst.table)
	}
	return inst, nil
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

// Migrate creates the key/value table.
func (s *SQLStorage) Migrate(ctx context.Context) error {
	blobType := "BLOB"
	if s.dialect == DialectPostgres {
		blobType = "BYTEA"
	}
	query := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (name TEXT PRIMARY KEY, data %s NOT NULL, updated_at TIMESTAMP NOT NULL)",
		s.table, blobType,
	)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return errors.Wrap(err, "failed to create table")
	}
	return nil
}

func (s *SQLStorage) Write(ctx context.Context, key string, data []byte) error {
	if data == nil {
		data = []byte{}
	}
	query, args, err := s.builder.
		Insert(s.table).
		Columns("name", "data", "updated_at").
		Values(key, data, time.Now().UTC()).
		Suffix("ON CONFLICT (name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return errors.Wrap(err, "failed to build upsert")
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrapf(err, "failed to write %s", key)
	}
	return nil
}

func (s *SQLStorage) Read(ctx context.Context, key string) ([]byte, error) {
	query, args, err := s.builder.
		Select("data").
		From(s.table).
		Where(sq.Eq{"name": key}).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build select")
	}

	var data []byte
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&data); errors.Is(err, sql.ErrNoRows) {
		return nil, os.ErrNotExist
	} else if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", key)
	}
	return data, nil
}

func (s *SQLStorage) List(ctx context.Context, prefix string) ([]string, error) {
	query, args, err := s.builder.
		Select("name").
		From(s.table).
		Where("name LIKE ? ESCAPE '\\'", escapeLike(prefix)+"%").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build list")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list keys")
	}
	defer func() { _ = rows.Close() }()

	keys := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, errors.Wrap(err, "failed to scan key")
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate keys")
	}
	// collations differ between databases, sort here
	return sortDescending(keys), nil
}

func (s *SQLStorage) Delete(ctx context.Context, key string) error {
	query, args, err := s.builder.
		Delete(s.table).
		Where(sq.Eq{"name": key}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "failed to build delete")
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrapf(err, "failed to delete %s", key)
	}
	return nil
}

func (s *SQLStorage) Close() error {
	return s.db.Close()
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(v string) string {
	return likeEscaper.Replace(v)
}

package remote

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// sqliteTimeLayout keeps stored timestamps fixed width so text ordering
// matches time ordering.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLite is a Backend over a local SQLite database file.
type SQLite struct {
	db    *sql.DB
	store *sqlStore
}

// SQLiteOption configures a SQLite backend.
type SQLiteOption func(*SQLite)

// WithClock overrides the time source used for created_at and updated_at.
func WithClock(now func() time.Time) SQLiteOption {
	return func(s *SQLite) { s.store.now = now }
}

// OpenSQLite opens (or creates) the database at path and ensures the data
// directory exists. The schema must already be migrated; see Migrate.
func OpenSQLite(path string, schema Schema, opts ...SQLiteOption) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	// WAL allows concurrent readers with one writer; the busy timeout makes
	// writers wait instead of failing with SQLITE_BUSY.
	dsn := "file:" + path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=foreign_keys(ON)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)

	s := &SQLite{db: db}
	s.store = newSQLStore(s, dialect{
		placeholder: func(int) string { return "?" },
		encode:      encodeSQLite,
	}, schema)
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Exec runs q.
func (s *SQLite) Exec(ctx context.Context, q *Query) (Result, error) {
	return s.store.exec(ctx, q)
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) query(ctx context.Context, stmt string, args []any) ([]map[string]any, error) {
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		m := make(map[string]any, len(cols))
		for i, c := range cols {
			m[c] = vals[i]
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func encodeSQLite(kind Kind, v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case time.Time:
		if kind == KindDate {
			return x.UTC().Format(DateLayout)
		}
		return x.UTC().Format(sqliteTimeLayout)
	case bool:
		if x {
			return int64(1)
		}
		return int64(0)
	case []byte:
		if kind == KindJSON {
			return string(x)
		}
	case json.RawMessage:
		return string(x)
	}
	return v
}

package remote

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is a Backend over a PostgreSQL database, typically the hosted
// database that also serves the public site.
type Postgres struct {
	pool  *pgxpool.Pool
	store *sqlStore
}

// OpenPostgres connects a pgx pool to dsn and checks the connection.
func OpenPostgres(ctx context.Context, dsn string, schema Schema) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	p := &Postgres{pool: pool}
	p.store = newSQLStore(p, dialect{
		placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
		encode:      encodePostgres,
	}, schema)
	return p, nil
}

// Exec runs q.
func (p *Postgres) Exec(ctx context.Context, q *Query) (Result, error) {
	return p.store.exec(ctx, q)
}

// Close closes the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) query(ctx context.Context, stmt string, args []any) ([]map[string]any, error) {
	rows, err := p.pool.Query(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToMap)
}

func encodePostgres(kind Kind, v any) any {
	if b, ok := v.([]byte); ok && kind == KindJSON {
		return json.RawMessage(b)
	}
	return v
}

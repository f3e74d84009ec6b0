package remote

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// dialect carries the per-database differences of the SQL builder.
type dialect struct {
	placeholder func(n int) string
	encode      func(kind Kind, v any) any
}

// sqlConn runs one statement and returns its rows as column maps.
type sqlConn interface {
	query(ctx context.Context, stmt string, args []any) ([]map[string]any, error)
}

// sqlStore compiles queries for a SQL database and plays the store's role:
// it assigns ids and timestamps and enforces the schema.
type sqlStore struct {
	conn    sqlConn
	dialect dialect
	schema  Schema
	now     func() time.Time
	newID   func() string
}

func newSQLStore(conn sqlConn, d dialect, schema Schema) *sqlStore {
	return &sqlStore{
		conn:    conn,
		dialect: d,
		schema:  schema,
		now:     time.Now,
		newID:   func() string { return uuid.NewString() },
	}
}

func (s *sqlStore) exec(ctx context.Context, q *Query) (Result, error) {
	t, err := s.schema.Table(q.table)
	if err != nil {
		return Result{}, err
	}
	switch q.op {
	case OpSelect:
		return s.selectRows(ctx, t, q)
	case OpInsert:
		return s.insertRows(ctx, t, q)
	case OpUpdate:
		return s.updateRows(ctx, t, q)
	case OpDelete:
		return s.deleteRows(ctx, t, q)
	}
	return Result{}, fmt.Errorf("unsupported op %v", q.op)
}

func (s *sqlStore) selectRows(ctx context.Context, t Table, q *Query) (Result, error) {
	if err := t.checkColumns(q.columns); err != nil {
		return Result{}, err
	}
	where, args, err := s.where(t, q.filters, 1)
	if err != nil {
		return Result{}, err
	}
	cols := "*"
	if !(len(q.columns) == 1 && q.columns[0] == "*") {
		quoted := make([]string, len(q.columns))
		for i, c := range q.columns {
			quoted[i] = quote(c)
		}
		cols = strings.Join(quoted, ", ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s%s", cols, quote(t.Name), where)
	if len(q.orders) > 0 {
		keys := make([]string, len(q.orders))
		for i, o := range q.orders {
			if err := t.checkColumns([]string{o.Column}); err != nil {
				return Result{}, err
			}
			dir := "DESC"
			if o.Ascending {
				dir = "ASC"
			}
			// NULLs sort last in either direction on every dialect.
			keys[i] = quote(o.Column) + " IS NULL, " + quote(o.Column) + " " + dir
		}
		b.WriteString(" ORDER BY " + strings.Join(keys, ", "))
	}
	if q.limit > 0 {
		b.WriteString(" LIMIT " + strconv.Itoa(q.limit))
	}

	raw, err := s.conn.query(ctx, b.String(), args)
	if err != nil {
		return Result{}, err
	}
	data, err := decodeRows(t, raw)
	if err != nil {
		return Result{}, err
	}
	res := Result{Data: data}
	if q.count {
		counted, err := s.conn.query(ctx, "SELECT COUNT(*) AS n FROM "+quote(t.Name)+where, args)
		if err != nil {
			return Result{}, err
		}
		if len(counted) == 1 {
			n, err := normalize(KindInt, counted[0]["n"])
			if err != nil {
				return Result{}, err
			}
			res.Count = int(n.(int64))
		}
	}
	return res, nil
}

func (s *sqlStore) insertRows(ctx context.Context, t Table, q *Query) (Result, error) {
	var res Result
	for _, in := range q.rows {
		row, err := s.prepare(t, in)
		if err != nil {
			return Result{}, err
		}
		if err := t.checkRequired(row, false); err != nil {
			return Result{}, err
		}
		now := s.now().UTC()
		for _, c := range t.Columns {
			switch {
			case c.Name == "id":
				row["id"] = s.newID()
			case c.Name == "created_at", c.Name == "updated_at":
				row[c.Name] = now
			}
		}

		names := sortedKeys(row)
		cols := make([]string, len(names))
		marks := make([]string, len(names))
		args := make([]any, len(names))
		for i, n := range names {
			c, _ := t.Column(n)
			cols[i] = quote(n)
			marks[i] = s.dialect.placeholder(i + 1)
			args[i] = s.dialect.encode(c.Kind, row[n])
		}
		stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
			quote(t.Name), strings.Join(cols, ", "), strings.Join(marks, ", "))
		raw, err := s.conn.query(ctx, stmt, args)
		if err != nil {
			return Result{}, err
		}
		data, err := decodeRows(t, raw)
		if err != nil {
			return Result{}, err
		}
		res.Data = append(res.Data, data...)
	}
	res.Count = len(res.Data)
	return res, nil
}

func (s *sqlStore) updateRows(ctx context.Context, t Table, q *Query) (Result, error) {
	if len(q.filters) == 0 {
		return Result{}, ErrUnfiltered
	}
	patch, err := s.prepare(t, q.patch)
	if err != nil {
		return Result{}, err
	}
	if err := t.checkRequired(patch, true); err != nil {
		return Result{}, err
	}
	if _, ok := t.Column("updated_at"); ok {
		patch["updated_at"] = s.now().UTC()
	}
	if len(patch) == 0 {
		return s.selectRows(ctx, t, &Query{table: t.Name, columns: []string{"*"}, filters: q.filters})
	}

	names := sortedKeys(patch)
	sets := make([]string, len(names))
	args := make([]any, 0, len(names)+len(q.filters))
	for i, n := range names {
		c, _ := t.Column(n)
		sets[i] = quote(n) + " = " + s.dialect.placeholder(i+1)
		args = append(args, s.dialect.encode(c.Kind, patch[n]))
	}
	where, whereArgs, err := s.where(t, q.filters, len(names)+1)
	if err != nil {
		return Result{}, err
	}
	args = append(args, whereArgs...)
	stmt := fmt.Sprintf("UPDATE %s SET %s%s RETURNING *", quote(t.Name), strings.Join(sets, ", "), where)
	raw, err := s.conn.query(ctx, stmt, args)
	if err != nil {
		return Result{}, err
	}
	data, err := decodeRows(t, raw)
	if err != nil {
		return Result{}, err
	}
	return Result{Data: data, Count: len(data)}, nil
}

func (s *sqlStore) deleteRows(ctx context.Context, t Table, q *Query) (Result, error) {
	if len(q.filters) == 0 {
		return Result{}, ErrUnfiltered
	}
	where, args, err := s.where(t, q.filters, 1)
	if err != nil {
		return Result{}, err
	}
	raw, err := s.conn.query(ctx, "DELETE FROM "+quote(t.Name)+where+" RETURNING *", args)
	if err != nil {
		return Result{}, err
	}
	data, err := decodeRows(t, raw)
	if err != nil {
		return Result{}, err
	}
	return Result{Data: data, Count: len(data)}, nil
}

// prepare validates client columns, drops generated ones and coerces values.
func (s *sqlStore) prepare(t Table, in Row) (Row, error) {
	out := make(Row, len(in))
	for name, v := range in {
		c, ok := t.Column(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, t.Name, name)
		}
		if c.Generated {
			continue
		}
		cv, err := coerce(c.Kind, v)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", t.Name, name, err)
		}
		out[name] = cv
	}
	return out, nil
}

func (s *sqlStore) where(t Table, filters []Filter, first int) (string, []any, error) {
	if len(filters) == 0 {
		return "", nil, nil
	}
	conds := make([]string, 0, len(filters))
	args := make([]any, 0, len(filters))
	n := first
	for _, f := range filters {
		c, ok := t.Column(f.Column)
		if !ok {
			return "", nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, t.Name, f.Column)
		}
		v, err := coerce(c.Kind, f.Value)
		if err != nil {
			return "", nil, fmt.Errorf("%s.%s: %w", t.Name, f.Column, err)
		}
		if v == nil {
			conds = append(conds, quote(f.Column)+" IS NULL")
			continue
		}
		conds = append(conds, quote(f.Column)+" = "+s.dialect.placeholder(n))
		args = append(args, s.dialect.encode(c.Kind, v))
		n++
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

func decodeRows(t Table, raw []map[string]any) ([]Row, error) {
	out := make([]Row, 0, len(raw))
	for _, r := range raw {
		row := make(Row, len(r))
		for name, v := range r {
			c, ok := t.Column(name)
			if !ok {
				row[name] = v
				continue
			}
			nv, err := normalize(c.Kind, v)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", t.Name, name, err)
			}
			row[name] = nv
		}
		out = append(out, row)
	}
	return out, nil
}

func sortedKeys(r Row) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func quote(ident string) string {
	return `"` + ident + `"`
}

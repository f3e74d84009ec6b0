// Package remote is the table-scoped query client for the club database.
//
// Callers build a Query with From and the chained filter/order methods and
// run it with Exec. The Backend behind the Client is the store: it owns the
// schema, assigns ids and timestamps, and enforces required columns.
package remote

import (
	"context"
	"errors"
	"fmt"
)

// Row is one table row keyed by column name. Values are normalized to
// string, int64, bool, time.Time, []byte (json columns) or nil.
type Row map[string]any

// Result is the outcome of a successful Exec. Count is the number of rows
// matching the filters for a counted select, or the number of affected rows
// for insert, update and delete.
type Result struct {
	Data  []Row
	Count int
}

// Op is the kind of statement a Query runs.
type Op int

const (
	OpSelect Op = iota
	OpInsert
	OpUpdate
	OpDelete
)

func (o Op) String() string {
	switch o {
	case OpSelect:
		return "select"
	case OpInsert:
		return "insert"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	}
	return "unknown"
}

// Filter is an equality predicate on one column.
type Filter struct {
	Column string
	Value  any
}

// Order sorts the result by one column.
type Order struct {
	Column    string
	Ascending bool
}

// Backend executes compiled queries against a concrete database.
type Backend interface {
	Exec(ctx context.Context, q *Query) (Result, error)
	Close() error
}

// BackendFunc adapts a function to Backend. Close is a no-op.
type BackendFunc func(ctx context.Context, q *Query) (Result, error)

func (f BackendFunc) Exec(ctx context.Context, q *Query) (Result, error) { return f(ctx, q) }

func (f BackendFunc) Close() error { return nil }

// Client starts queries against a Backend.
type Client struct {
	backend Backend
}

// NewClient returns a Client that runs every query on b.
func NewClient(b Backend) *Client {
	return &Client{backend: b}
}

// From starts a query on table. Without a further call it selects every
// column of every row.
func (c *Client) From(table string) *Query {
	return &Query{client: c, table: table, op: OpSelect, columns: []string{"*"}}
}

// Close releases the backend.
func (c *Client) Close() error {
	return c.backend.Close()
}

// Query is a single statement under construction. Builder methods modify
// the query in place and return it for chaining.
type Query struct {
	client  *Client
	table   string
	op      Op
	columns []string
	rows    []Row
	patch   Row
	filters []Filter
	orders  []Order
	limit   int
	count   bool
}

// Select sets the returned columns. No columns or "*" selects all.
func (q *Query) Select(columns ...string) *Query {
	q.op = OpSelect
	if len(columns) == 0 {
		columns = []string{"*"}
	}
	q.columns = columns
	return q
}

// Insert turns the query into an insert of rows.
func (q *Query) Insert(rows ...Row) *Query {
	q.op = OpInsert
	q.rows = rows
	return q
}

// Update turns the query into an update applying patch to matching rows.
func (q *Query) Update(patch Row) *Query {
	q.op = OpUpdate
	q.patch = patch
	return q
}

// Delete turns the query into a delete of matching rows.
func (q *Query) Delete() *Query {
	q.op = OpDelete
	return q
}

// Eq restricts the query to rows where column equals value.
func (q *Query) Eq(column string, value any) *Query {
	q.filters = append(q.filters, Filter{Column: column, Value: value})
	return q
}

// Order appends a sort key.
func (q *Query) Order(column string, ascending bool) *Query {
	q.orders = append(q.orders, Order{Column: column, Ascending: ascending})
	return q
}

// Limit caps the number of returned rows. Zero means no limit.
func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

// Count asks a select for the exact number of matching rows.
func (q *Query) Count() *Query {
	q.count = true
	return q
}

// Exec runs the query. Any failure is returned as *Error.
func (q *Query) Exec(ctx context.Context) (Result, error) {
	if q.client == nil {
		return Result{}, &Error{Op: q.op, Table: q.table, Err: errors.New("query has no client")}
	}
	res, err := q.client.backend.Exec(ctx, q)
	if err != nil {
		var re *Error
		if errors.As(err, &re) {
			return Result{}, err
		}
		return Result{}, &Error{Op: q.op, Table: q.table, Err: err}
	}
	return res, nil
}

func (q *Query) Table() string        { return q.table }
func (q *Query) Op() Op               { return q.op }
func (q *Query) Columns() []string    { return q.columns }
func (q *Query) Rows() []Row          { return q.rows }
func (q *Query) Patch() Row           { return q.patch }
func (q *Query) Filters() []Filter    { return q.filters }
func (q *Query) Orders() []Order      { return q.orders }
func (q *Query) LimitValue() int      { return q.limit }
func (q *Query) CountRequested() bool { return q.count }

func (q *Query) String() string {
	return fmt.Sprintf("%s %s", q.op, q.table)
}

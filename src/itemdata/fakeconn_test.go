package itemdata

import (
	"context"
	"errors"
	"reflect"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeConn scripts query results for pipeline tests that only care about
// which statements run and with what arguments. Stubs are matched against
// the SQL by substring, in registration order; each call to the same stub
// consumes the next scripted result set (the last one repeats). Unmatched
// queries return an empty result set.
type fakeConn struct {
	stubs    []*queryStub
	queryLog []string
	execLog  []execCall
}

type queryStub struct {
	match   string
	results [][][]any
	calls   int
}

type execCall struct {
	sql  string
	args []any
}

func (c *fakeConn) stub(match string, results ...[][]any) {
	c.stubs = append(c.stubs, &queryStub{match: match, results: results})
}

func (c *fakeConn) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	c.queryLog = append(c.queryLog, sql)
	for _, s := range c.stubs {
		if strings.Contains(sql, s.match) {
			idx := s.calls
			if idx >= len(s.results) {
				idx = len(s.results) - 1
			}
			s.calls++
			return &fakeRows{rows: s.results[idx]}, nil
		}
	}
	return &fakeRows{}, nil
}

func (c *fakeConn) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("QueryRow is not scripted")
}

func (c *fakeConn) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	c.execLog = append(c.execLog, execCall{sql: sql, args: args})
	return pgconn.NewCommandTag("OK 1"), nil
}

func (c *fakeConn) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}

func (c *fakeConn) Begin(ctx context.Context) (pgx.Tx, error) {
	return nil, errors.New("transactions are not scripted")
}

func (c *fakeConn) execsMatching(substr string) []execCall {
	var out []execCall
	for _, e := range c.execLog {
		if strings.Contains(e.sql, substr) {
			out = append(out, e)
		}
	}
	return out
}

func (c *fakeConn) queriesMatching(substr string) int {
	n := 0
	for _, q := range c.queryLog {
		if strings.Contains(q, substr) {
			n++
		}
	}
	return n
}

type fakeRows struct {
	rows [][]any
	idx  int
}

var _ pgx.Rows = &fakeRows{}

func (r *fakeRows) Next() bool {
	r.idx++
	return r.idx <= len(r.rows)
}

func (r *fakeRows) Values() ([]any, error)                       { return r.rows[r.idx-1], nil }
func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Scan(dest ...any) error                       { return errors.New("scan is not supported") }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

// rowFromStruct flattens a db-tagged struct into the positional values the
// query layer receives for a $columns select of that struct.
func rowFromStruct(v any) []any {
	val := reflect.ValueOf(v)
	var vals []any
	for _, f := range reflect.VisibleFields(val.Type()) {
		if f.Tag.Get("db") == "" {
			continue
		}
		fv := val.FieldByIndex(f.Index)
		if fv.Kind() == reflect.Ptr {
			if fv.IsNil() {
				vals = append(vals, nil)
				continue
			}
			fv = fv.Elem()
		}
		vals = append(vals, fv.Interface())
	}
	return vals
}

// brokenConn fails every operation, simulating a database outage.
type brokenConn struct{}

var errStorageDown = errors.New("storage down")

func (brokenConn) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errStorageDown
}

func (brokenConn) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return brokenRow{}
}

func (brokenConn) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errStorageDown
}

func (brokenConn) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, errStorageDown
}

func (brokenConn) Begin(ctx context.Context) (pgx.Tx, error) {
	return nil, errStorageDown
}

type brokenRow struct{}

func (brokenRow) Scan(dest ...any) error { return errStorageDown }

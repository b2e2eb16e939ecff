package repository

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"jobmatch/internal/database"
)

type execCall struct {
	query string
	args  []any
}

type fakeRow struct {
	vals []any
	err  error
}

// Scan assigns vals to dest by reflection; a nil value leaves a pointer destination nil.
func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.vals) {
		return fmt.Errorf("scan dest mismatch: got %d want %d", len(dest), len(r.vals))
	}
	for i := range dest {
		dv := reflect.ValueOf(dest[i]).Elem()
		if r.vals[i] == nil {
			dv.Set(reflect.Zero(dv.Type()))
			continue
		}
		v := reflect.ValueOf(r.vals[i])
		if !v.Type().AssignableTo(dv.Type()) {
			return fmt.Errorf("scan type mismatch at %d: %s into %s", i, v.Type(), dv.Type())
		}
		dv.Set(v)
	}
	return nil
}

type fakeRows struct {
	rows [][]any
	pos  int
}

func (r *fakeRows) Close()     {}
func (r *fakeRows) Err() error { return nil }
func (r *fakeRows) Next() bool {
	r.pos++
	return r.pos <= len(r.rows)
}
func (r *fakeRows) Scan(dest ...any) error {
	return fakeRow{vals: r.rows[r.pos-1]}.Scan(dest...)
}

type fakeDB struct {
	mu sync.Mutex

	execs   []execCall
	queries []execCall
	row     func(query string, args []any) fakeRow
	rows    [][]any

	committed  bool
	rolledBack bool
}

func (db *fakeDB) Ping(ctx context.Context) error { return nil }
func (db *fakeDB) Close() error                   { return nil }
func (db *fakeDB) SQLDB() *sql.DB                 { return nil }

func (db *fakeDB) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.execs = append(db.execs, execCall{query: normalizeSQL(query), args: args})
	return 1, nil
}

func (db *fakeDB) Query(ctx context.Context, query string, args ...any) (database.Rows, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.queries = append(db.queries, execCall{query: normalizeSQL(query), args: args})
	return &fakeRows{rows: db.rows}, nil
}

func (db *fakeDB) QueryRow(ctx context.Context, query string, args ...any) database.Row {
	db.mu.Lock()
	defer db.mu.Unlock()
	q := normalizeSQL(query)
	db.queries = append(db.queries, execCall{query: q, args: args})
	if db.row == nil {
		return fakeRow{err: sql.ErrNoRows}
	}
	return db.row(q, args)
}

func (db *fakeDB) Begin(ctx context.Context) (database.Tx, error) {
	return fakeTx{db: db}, nil
}

type fakeTx struct {
	db *fakeDB
}

func (t fakeTx) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	return t.db.Exec(ctx, query, args...)
}

func (t fakeTx) Query(ctx context.Context, query string, args ...any) (database.Rows, error) {
	return t.db.Query(ctx, query, args...)
}

func (t fakeTx) QueryRow(ctx context.Context, query string, args ...any) database.Row {
	return t.db.QueryRow(ctx, query, args...)
}

func (t fakeTx) Commit(ctx context.Context) error {
	t.db.committed = true
	return nil
}

func (t fakeTx) Rollback(ctx context.Context) error {
	if !t.db.committed {
		t.db.rolledBack = true
	}
	return nil
}

func normalizeSQL(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

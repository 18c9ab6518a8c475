package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type call struct {
	sql  string
	args []any
}

// fakeQuerier responde con filas preparadas y registra cada consulta.
type fakeQuerier struct {
	calls    []call
	row      fakeRow
	rows     *fakeRows
	queryErr error
	execErr  error
}

func (f *fakeQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, call{sql: sql, args: args})
	return pgconn.CommandTag{}, f.execErr
}

func (f *fakeQuerier) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.calls = append(f.calls, call{sql: sql, args: args})
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.rows, nil
}

func (f *fakeQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.calls = append(f.calls, call{sql: sql, args: args})
	return f.row
}

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assign(dest, r.values)
}

type fakeRows struct {
	pgx.Rows
	data   [][]any
	pos    int
	closed bool
}

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error { return assign(dest, r.data[r.pos-1]) }
func (r *fakeRows) Err() error             { return nil }
func (r *fakeRows) Close()                 { r.closed = true }

func assign(dest, values []any) error {
	if len(dest) != len(values) {
		return fmt.Errorf("scan: %d destinos para %d valores", len(dest), len(values))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *[]byte:
			*p = values[i].([]byte)
		case *string:
			*p = values[i].(string)
		case *int64:
			*p = values[i].(int64)
		default:
			return fmt.Errorf("scan: tipo no soportado %T", d)
		}
	}
	return nil
}

// fakeTx registra el batch enviado y si hubo commit o rollback.
type fakeTx struct {
	pgx.Tx
	batch      *pgx.Batch
	batchErr   error
	commitErr  error
	committed  bool
	rolledBack bool
}

func (t *fakeTx) SendBatch(_ context.Context, b *pgx.Batch) pgx.BatchResults {
	t.batch = b
	return fakeBatchResults{err: t.batchErr}
}

func (t *fakeTx) Commit(context.Context) error {
	if t.commitErr != nil {
		return t.commitErr
	}
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

type fakeBatchResults struct {
	pgx.BatchResults
	err error
}

func (r fakeBatchResults) Close() error { return r.err }

type fakeBeginner struct {
	tx     *fakeTx
	err    error
	begins int
}

func (b *fakeBeginner) Begin(context.Context) (pgx.Tx, error) {
	b.begins++
	if b.err != nil {
		return nil, b.err
	}
	return b.tx, nil
}

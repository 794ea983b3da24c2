package itf

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Call is one statement observed by StubTx.
type Call struct {
	SQL  string
	Args []any
}

// StubTx is a repo.Tx double for SQL-level unit tests. Unset funcs return
// empty results.
type StubTx struct {
	ExecFunc     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryFunc    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRowFunc func(ctx context.Context, sql string, args ...any) pgx.Row

	mu    sync.Mutex
	calls []Call
}

func (s *StubTx) record(sql string, args []any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{SQL: sql, Args: args})
}

// Calls returns the statements executed so far, in order.
func (s *StubTx) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

func (s *StubTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	s.record(sql, args)
	if s.ExecFunc == nil {
		return pgconn.NewCommandTag("UPDATE 1"), nil
	}
	return s.ExecFunc(ctx, sql, args...)
}

func (s *StubTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	s.record(sql, args)
	if s.QueryFunc == nil {
		return &StubRows{}, nil
	}
	return s.QueryFunc(ctx, sql, args...)
}

func (s *StubTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	s.record(sql, args)
	if s.QueryRowFunc == nil {
		return StubRow{Err: pgx.ErrNoRows}
	}
	return s.QueryRowFunc(ctx, sql, args...)
}

// StubRows serves fixed row values. Scan assigns each value to the matching
// destination pointer, which must have an assignable type.
type StubRows struct {
	Data    [][]any
	RowsErr error
	idx     int
}

func NewRows(data ...[]any) *StubRows {
	return &StubRows{Data: data}
}

func (r *StubRows) Next() bool {
	if r.idx >= len(r.Data) {
		return false
	}
	r.idx++
	return true
}

func (r *StubRows) Scan(dest ...any) error {
	if r.idx == 0 || r.idx > len(r.Data) {
		return errors.New("no current row to scan")
	}
	return assign(r.Data[r.idx-1], dest)
}

func (r *StubRows) Values() ([]any, error) {
	if r.idx == 0 || r.idx > len(r.Data) {
		return nil, errors.New("no current row")
	}
	return r.Data[r.idx-1], nil
}

func (r *StubRows) RawValues() [][]byte                          { return nil }
func (r *StubRows) Err() error                                   { return r.RowsErr }
func (r *StubRows) Close()                                       {}
func (r *StubRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *StubRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *StubRows) Conn() *pgx.Conn                              { return nil }

// StubRow is a single-row result.
type StubRow struct {
	Values []any
	Err    error
}

func (r StubRow) Scan(dest ...any) error {
	if r.Err != nil {
		return r.Err
	}
	return assign(r.Values, dest)
}

func assign(row []any, dest []any) error {
	if len(dest) != len(row) {
		return fmt.Errorf("destination length %d does not match row length %d", len(dest), len(row))
	}
	for i, target := range dest {
		ptr := reflect.ValueOf(target)
		if ptr.Kind() != reflect.Pointer || ptr.IsNil() {
			return fmt.Errorf("scan target %d is not a pointer", i)
		}
		elem := ptr.Elem()
		if row[i] == nil {
			elem.Set(reflect.Zero(elem.Type()))
			continue
		}
		val := reflect.ValueOf(row[i])
		switch {
		case val.Type().AssignableTo(elem.Type()):
			elem.Set(val)
		case elem.Kind() == reflect.Pointer && val.Type().AssignableTo(elem.Type().Elem()):
			p := reflect.New(elem.Type().Elem())
			p.Elem().Set(val)
			elem.Set(p)
		case val.Type().ConvertibleTo(elem.Type()):
			elem.Set(val.Convert(elem.Type()))
		default:
			return fmt.Errorf("cannot scan %T into %s", row[i], elem.Type())
		}
	}
	return nil
}

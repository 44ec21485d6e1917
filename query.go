package ygggo_db

import (
	"context"
	"database/sql"
	"iter"
	"log/slog"
	"reflect"

	"github.com/jmoiron/sqlx"
)

// execTarget returns where statements run: the open handle transaction when
// one exists, the bare connection otherwise.
func (c *Conn) execTarget() execerCtx {
	if c.tx != nil {
		return c.tx
	}
	return c.inner
}

func (c *Conn) queryTarget() queryerCtx {
	if c.tx != nil {
		return c.tx
	}
	return c.inner
}

// Exec executes a statement, inside the handle transaction when one is open.
func (c *Conn) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if c == nil || c.inner == nil {
		return nil, sql.ErrConnDone
	}
	if c.p == nil {
		return c.execTarget().ExecContext(ctx, query, args...)
	}
	return c.p.instrumentedExec(ctx, c.execTarget(), query, args...)
}

// Query runs a query and returns rows, inside the handle transaction when
// one is open.
func (c *Conn) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if c == nil || c.inner == nil {
		return nil, sql.ErrConnDone
	}
	if c.p == nil {
		return c.queryTarget().QueryContext(ctx, query, args...)
	}
	return c.p.instrumentedQuery(ctx, c.queryTarget(), query, args...)
}

// QueryRow runs a query expected to return at most one row.
func (c *Conn) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	if c == nil || c.inner == nil {
		return &sql.Row{}
	}
	if c.tx != nil {
		return c.tx.QueryRowContext(ctx, query, args...)
	}
	return c.inner.QueryRowContext(ctx, query, args...)
}

// QueryStream streams rows through cb, one []any per row, in constant
// memory. The buffer is reused between rows; cb must copy values it keeps.
func (c *Conn) QueryStream(ctx context.Context, query string, cb func([]any) error, args ...any) error {
	rs, err := c.Query(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rs.Close()
	cols, err := rs.Columns()
	if err != nil {
		return err
	}
	buf := make([]any, len(cols))
	scan := make([]any, len(cols))
	for i := range buf {
		scan[i] = &buf[i]
	}
	for rs.Next() {
		if err := rs.Scan(scan...); err != nil {
			return err
		}
		if err := cb(buf); err != nil {
			return err
		}
	}
	return rs.Err()
}

// SelectRows runs query and returns the result as an iterable sequence of
// rows. The fetch is eager: every matching row is materialized before the
// first yield, so memory scales with the result size, not with how much of
// the sequence the caller consumes. A query or scan failure logs and yields
// an empty sequence instead of surfacing an error; use Query or QueryStream
// when failures must be visible.
func (c *Conn) SelectRows(ctx context.Context, query string, args ...any) iter.Seq[[]any] {
	rows := c.fetchAll(ctx, query, args...)
	return func(yield func([]any) bool) {
		for _, r := range rows {
			if !yield(r) {
				return
			}
		}
	}
}

func (c *Conn) fetchAll(ctx context.Context, query string, args ...any) [][]any {
	var out [][]any
	err := c.QueryStream(ctx, query, func(row []any) error {
		cp := make([]any, len(row))
		copy(cp, row)
		out = append(out, cp)
		return nil
	}, args...)
	if err != nil {
		c.degradeLog(ctx, "select degraded to empty result", query, err)
		return nil
	}
	return out
}

// degradeLog records a swallowed error. These log regardless of the pool's
// logging switch; a silently eaten failure is worse than an extra line.
func (c *Conn) degradeLog(ctx context.Context, msg, query string, err error) {
	logger := defaultLogger
	if c != nil && c.p != nil {
		logger = c.p.GetLogger()
	}
	attrs := []slog.Attr{
		slog.String("query", truncateSQL(query)),
		slog.String("error", err.Error()),
		slog.String("error_class", Classify(err).String()),
	}
	if c != nil {
		attrs = append(attrs, slog.String("conn_id", c.id))
	}
	logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
}

// NamedExec executes a query with :named parameters bound from a struct or
// map. A slice argument runs the statement once per element.
func (c *Conn) NamedExec(ctx context.Context, query string, arg any) (sql.Result, error) {
	if c == nil || c.inner == nil {
		return nil, sql.ErrConnDone
	}
	v := reflect.ValueOf(arg)
	if v.IsValid() && v.Kind() == reflect.Slice {
		for i := 0; i < v.Len(); i++ {
			if _, err := c.NamedExec(ctx, query, v.Index(i).Interface()); err != nil {
				return nil, err
			}
		}
		return dummyResult(v.Len()), nil
	}
	bound, args, err := c.bindNamed(query, arg)
	if err != nil {
		return nil, err
	}
	return c.Exec(ctx, bound, args...)
}

// NamedQuery runs a select with :named parameters.
func (c *Conn) NamedQuery(ctx context.Context, query string, arg any) (*sql.Rows, error) {
	if c == nil || c.inner == nil {
		return nil, sql.ErrConnDone
	}
	bound, args, err := c.bindNamed(query, arg)
	if err != nil {
		return nil, err
	}
	return c.Query(ctx, bound, args...)
}

func (c *Conn) bindNamed(query string, arg any) (string, []any, error) {
	bound, args, err := sqlx.Named(query, arg)
	if err != nil {
		return "", nil, err
	}
	return sqlx.Rebind(c.engineOf().bindType(), bound), args, nil
}

// ExpandIn expands slice arguments bound to IN (?) into one placeholder per
// element and rebinds the query for the engine.
func (c *Conn) ExpandIn(query string, args ...any) (string, []any, error) {
	bound, out, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, err
	}
	return c.engineOf().rebind(bound), out, nil
}

// QueryIn is Query with ExpandIn applied first.
func (c *Conn) QueryIn(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	bound, expanded, err := c.ExpandIn(query, args...)
	if err != nil {
		return nil, err
	}
	return c.Query(ctx, bound, expanded...)
}

// ExecCached executes through the connection's prepared-statement cache.
// Without a cache it falls back to Exec.
func (c *Conn) ExecCached(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if c == nil || c.inner == nil {
		return nil, sql.ErrConnDone
	}
	if c.cache == nil {
		return c.Exec(ctx, query, args...)
	}
	st, err := c.cache.getOrPrepare(ctx, c.inner, query)
	if err != nil {
		return nil, err
	}
	if c.tx != nil {
		return c.tx.StmtContext(ctx, st).ExecContext(ctx, args...)
	}
	return st.ExecContext(ctx, args...)
}

// QueryCached queries through the prepared-statement cache, falling back to
// Query when no cache is enabled.
func (c *Conn) QueryCached(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if c == nil || c.inner == nil {
		return nil, sql.ErrConnDone
	}
	if c.cache == nil {
		return c.Query(ctx, query, args...)
	}
	st, err := c.cache.getOrPrepare(ctx, c.inner, query)
	if err != nil {
		return nil, err
	}
	if c.tx != nil {
		return c.tx.StmtContext(ctx, st).QueryContext(ctx, args...)
	}
	return st.QueryContext(ctx, args...)
}

type dummyResult int64

func (d dummyResult) LastInsertId() (int64, error) { return 0, nil }
func (d dummyResult) RowsAffected() (int64, error) { return int64(d), nil }

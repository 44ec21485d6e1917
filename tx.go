package ygggo_db

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Tx wraps *sql.Tx for WithinTx bodies. It shares the statement surface of
// Conn; everything it runs joins the surrounding transaction.
type Tx struct {
	inner *sql.Tx
	p     *Pool
}

// Exec executes a statement within the transaction.
func (tx *Tx) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if tx == nil || tx.inner == nil {
		return nil, sql.ErrTxDone
	}
	if tx.p == nil {
		return tx.inner.ExecContext(ctx, query, args...)
	}
	return tx.p.instrumentedExec(ctx, tx.inner, query, args...)
}

// Query runs a query within the transaction.
func (tx *Tx) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if tx == nil || tx.inner == nil {
		return nil, sql.ErrTxDone
	}
	if tx.p == nil {
		return tx.inner.QueryContext(ctx, query, args...)
	}
	return tx.p.instrumentedQuery(ctx, tx.inner, query, args...)
}

// QueryRow runs a single-row query within the transaction.
func (tx *Tx) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	if tx == nil || tx.inner == nil {
		return &sql.Row{}
	}
	return tx.inner.QueryRowContext(ctx, query, args...)
}

// BulkInsert runs a multi-row parameterized INSERT within the transaction.
func (tx *Tx) BulkInsert(ctx context.Context, table string, columns []string, rows [][]any) (sql.Result, error) {
	if tx == nil || tx.inner == nil {
		return nil, sql.ErrTxDone
	}
	e := EngineMySQL
	if tx.p != nil {
		e = tx.p.engine
	}
	query, args, err := buildInsertSQL(e, table, columns, rows)
	if err != nil {
		return nil, err
	}
	return tx.Exec(ctx, query, args...)
}

// WithinTx runs fn inside a transaction, committing on nil error and rolling
// back otherwise. The whole attempt, begin through commit, is retried under
// the pool's policy when the failure classifies as transient.
func (p *Pool) WithinTx(ctx context.Context, fn func(*Tx) error) error {
	if p == nil || p.db == nil {
		return errors.New("ygggo_db: nil pool")
	}
	op := func() error {
		start := time.Now()
		tx, err := p.db.BeginTx(ctx, nil)
		if err != nil {
			p.logTransaction(ctx, "begin", time.Since(start), err)
			return err
		}
		err = fn(&Tx{inner: tx, p: p})
		if err == nil {
			err = tx.Commit()
		} else {
			_ = tx.Rollback()
		}
		elapsed := time.Since(start)
		p.logTransaction(ctx, "withintx", elapsed, err)
		p.recordTransaction(ctx, elapsed, err)
		return err
	}
	return retryWithPolicy(ctx, p.retry, op, Classify)
}

package ygggo_db

import (
	"context"
	"time"
)

// ExecList executes each statement in its own transaction: begin, exec,
// commit, next. A failing statement rolls back, logs and the run continues,
// so one bad statement never aborts the rest. Reports how many statements
// committed out of how many were given; failures never surface as an error.
// ExecList manages transactions itself and must not run inside an open
// handle transaction.
func (c *Conn) ExecList(ctx context.Context, stmts []string) (succeeded, total int) {
	total = len(stmts)
	start := time.Now()
	for i, stmt := range stmts {
		if ctx.Err() != nil {
			break
		}
		if err := c.execOne(ctx, i, stmt); err != nil {
			c.degradeLog(ctx, "statement failed", stmt, err)
			continue
		}
		succeeded++
	}
	if c != nil && c.p != nil {
		c.p.logExecListSummary(ctx, succeeded, total, time.Since(start))
	}
	return succeeded, total
}

// execOne brackets one statement in begin/exec/commit, rolling back on
// failure.
func (c *Conn) execOne(ctx context.Context, idx int, stmt string) error {
	if err := c.Begin(ctx); err != nil {
		return &StatementError{Index: idx, Stmt: stmt, Err: err}
	}
	if _, err := c.Exec(ctx, stmt); err != nil {
		_ = c.Rollback()
		return &StatementError{Index: idx, Stmt: stmt, Err: err}
	}
	if err := c.Commit(); err != nil {
		return &StatementError{Index: idx, Stmt: stmt, Err: err}
	}
	return nil
}

// ExecListAtomic executes all statements inside one transaction. The first
// failure rolls everything back and surfaces as a *StatementError naming
// the statement; success commits once, after the last statement. Zero
// statements is a no-op.
func (c *Conn) ExecListAtomic(ctx context.Context, stmts []string) error {
	if len(stmts) == 0 {
		return nil
	}
	if err := c.Begin(ctx); err != nil {
		return err
	}
	for i, stmt := range stmts {
		if _, err := c.Exec(ctx, stmt); err != nil {
			_ = c.Rollback()
			return &StatementError{Index: i, Stmt: stmt, Err: err}
		}
	}
	return c.Commit()
}

// ExecList runs the statement list on a fresh connection. When no
// connection can be acquired, zero statements succeed.
func (p *Pool) ExecList(ctx context.Context, stmts []string) (succeeded, total int) {
	err := p.WithConn(ctx, func(c *Conn) error {
		succeeded, total = c.ExecList(ctx, stmts)
		return nil
	})
	if err != nil {
		return 0, len(stmts)
	}
	return succeeded, total
}

// ExecListAtomic runs the statement list all-or-nothing on a fresh
// connection.
func (p *Pool) ExecListAtomic(ctx context.Context, stmts []string) error {
	return p.WithConn(ctx, func(c *Conn) error {
		return c.ExecListAtomic(ctx, stmts)
	})
}

package ygggo_db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrTxAlreadyOpen is returned by Begin when the handle already carries an
// open transaction.
var ErrTxAlreadyOpen = errors.New("ygggo_db: transaction already open on this connection")

// Conn is a single connection checked out of the pool. It serves one
// goroutine at a time and is not safe for concurrent use. After Begin, Exec
// and Query route through the open transaction until Commit or Rollback;
// Close rolls back whatever is still open and returns the connection.
type Conn struct {
	inner *sql.Conn
	p     *Pool
	tx    *sql.Tx
	cache *stmtCache

	id         string
	borrowedAt time.Time
}

// WithConn acquires a connection, runs fn and releases the connection on
// every exit path, including panics inside fn.
func (p *Pool) WithConn(ctx context.Context, fn func(*Conn) error) error {
	conn, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(conn)
}

// Acquire checks a connection out of the pool. The caller owns Close.
func (p *Pool) Acquire(ctx context.Context) (*Conn, error) {
	if p == nil || p.db == nil {
		return nil, errors.New("ygggo_db: nil pool")
	}
	start := time.Now()
	inner, err := p.db.Conn(ctx)
	p.logConnection(ctx, "acquire", time.Since(start), err)
	if err != nil {
		return nil, &ConnectError{Engine: p.engine, Addr: p.cfg.addr(), Err: err}
	}
	c := &Conn{
		inner:      inner,
		p:          p,
		id:         uuid.NewString(),
		borrowedAt: time.Now(),
	}
	if p.stmtCacheSize > 0 {
		c.cache = newStmtCache(p.stmtCacheSize)
	}
	p.onBorrow(ctx)
	return c, nil
}

// ID returns the correlation id this connection carries in log records.
func (c *Conn) ID() string {
	if c == nil {
		return ""
	}
	return c.id
}

// Begin opens the handle transaction. Only one may be open at a time.
func (c *Conn) Begin(ctx context.Context) error {
	if c == nil || c.inner == nil {
		return sql.ErrConnDone
	}
	if c.tx != nil {
		return ErrTxAlreadyOpen
	}
	tx, err := c.inner.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	c.tx = tx
	return nil
}

// Commit commits the open handle transaction. Without one it is a no-op.
func (c *Conn) Commit() error {
	if c == nil || c.tx == nil {
		return nil
	}
	err := c.tx.Commit()
	c.tx = nil
	return err
}

// Rollback rolls back the open handle transaction. Without one it is a
// no-op.
func (c *Conn) Rollback() error {
	if c == nil || c.tx == nil {
		return nil
	}
	err := c.tx.Rollback()
	c.tx = nil
	return err
}

// InTx reports whether a handle transaction is open.
func (c *Conn) InTx() bool {
	return c != nil && c.tx != nil
}

// EnableStmtCache gives this connection a prepared-statement LRU of the
// given capacity, replacing and closing any existing cache.
func (c *Conn) EnableStmtCache(capacity int) {
	if c == nil {
		return
	}
	if c.cache != nil {
		c.cache.closeAll()
	}
	if capacity > 0 {
		c.cache = newStmtCache(capacity)
	} else {
		c.cache = nil
	}
}

// Close rolls back any open transaction, closes cached statements and
// returns the connection to the pool. It is idempotent.
func (c *Conn) Close() error {
	if c == nil || c.inner == nil {
		return nil
	}
	if c.tx != nil {
		_ = c.tx.Rollback()
		c.tx = nil
	}
	if c.cache != nil {
		c.cache.closeAll()
		c.cache = nil
	}
	held := time.Since(c.borrowedAt)
	err := c.inner.Close()
	c.inner = nil
	if c.p != nil {
		c.p.onReturn(context.Background(), c.id, held)
	}
	return err
}

// engineOf returns the engine this connection speaks.
func (c *Conn) engineOf() Engine {
	if c == nil || c.p == nil {
		return EngineMySQL
	}
	return c.p.engine
}

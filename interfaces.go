package ygggo_db

import (
	"context"
	"database/sql"
	"iter"
)

// DatabasePool is the pool-level surface: connection and transaction
// scoping plus the batch operations that manage their own connections.
type DatabasePool interface {
	WithConn(ctx context.Context, fn func(*Conn) error) error
	Acquire(ctx context.Context) (*Conn, error)
	WithinTx(ctx context.Context, fn func(*Tx) error) error

	BulkInsert(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)
	BulkInsertChunks(ctx context.Context, table string, columns []string, rows [][]any, chunkSize int) (int64, error)
	ExecList(ctx context.Context, stmts []string) (succeeded, total int)
	ExecListAtomic(ctx context.Context, stmts []string) error

	ListTables(ctx context.Context) ([]string, error)
	TableExists(ctx context.Context, table string) (bool, error)
	TableRowCounts(ctx context.Context) ([]TableCount, error)
	DescribeTable(ctx context.Context, table string) (TableSchema, error)

	Ping(ctx context.Context) error
	SelfCheck(ctx context.Context) error
	Close() error
}

// DatabaseConn is the handle-level surface.
type DatabaseConn interface {
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) *sql.Row
	QueryStream(ctx context.Context, query string, cb func([]any) error, args ...any) error
	SelectRows(ctx context.Context, query string, args ...any) iter.Seq[[]any]

	Begin(ctx context.Context) error
	Commit() error
	Rollback() error
	InTx() bool

	NamedExec(ctx context.Context, query string, arg any) (sql.Result, error)
	NamedQuery(ctx context.Context, query string, arg any) (*sql.Rows, error)
	ExpandIn(query string, args ...any) (string, []any, error)

	EnableStmtCache(capacity int)
	ExecCached(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryCached(ctx context.Context, query string, args ...any) (*sql.Rows, error)

	BulkInsert(ctx context.Context, table string, columns []string, rows [][]any) (sql.Result, error)
	InsertOnDuplicate(ctx context.Context, table string, columns []string, rows [][]any, updateCols []string) (sql.Result, error)
	InsertOnConflict(ctx context.Context, table string, columns []string, rows [][]any, conflictCols, updateCols []string) (sql.Result, error)
	BulkUpsertLiteral(ctx context.Context, table string, columns []string, rows [][]any, upsertClause string) (succeeded, total int, err error)
	ExecList(ctx context.Context, stmts []string) (succeeded, total int)
	ExecListAtomic(ctx context.Context, stmts []string) error

	ListTables(ctx context.Context) ([]string, error)
	TableExists(ctx context.Context, table string) (bool, error)
	TableRowCounts(ctx context.Context) ([]TableCount, error)
	DescribeTable(ctx context.Context, table string) (TableSchema, error)

	Close() error
}

// DatabaseTx is the transaction-body surface handed to WithinTx callbacks.
type DatabaseTx interface {
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) *sql.Row
	BulkInsert(ctx context.Context, table string, columns []string, rows [][]any) (sql.Result, error)
}

// Compile-time checks that the concrete types cover the surfaces.
var (
	_ DatabasePool = (*Pool)(nil)
	_ DatabaseConn = (*Conn)(nil)
	_ DatabaseTx   = (*Tx)(nil)
)

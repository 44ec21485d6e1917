package ygggo_db

import (
	"context"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// SQLiteConfig holds SQLite-specific settings. The pragma fields map onto
// modernc.org/sqlite's _pragma DSN parameters.
type SQLiteConfig struct {
	// Path is the database file, ":memory:" for an in-memory database.
	Path string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	BusyTimeout time.Duration
	JournalMode string // WAL, DELETE, TRUNCATE, PERSIST, MEMORY, OFF
	Synchronous string // FULL, NORMAL, OFF
	CacheSize   int    // pages

	ForeignKeys bool
}

// DefaultSQLiteConfig returns settings suitable for a file-backed database.
func DefaultSQLiteConfig() SQLiteConfig {
	return SQLiteConfig{
		Path:            ":memory:",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 30 * time.Minute,
		BusyTimeout:     5 * time.Second,
		JournalMode:     "WAL",
		Synchronous:     "NORMAL",
		CacheSize:       2000,
		ForeignKeys:     true,
	}
}

// NewSQLitePool opens a pool backed by SQLite. An in-memory path is pinned
// to a single connection, since each new connection would otherwise see its
// own empty database.
func NewSQLitePool(ctx context.Context, configs ...SQLiteConfig) (*Pool, error) {
	config := DefaultSQLiteConfig()
	if len(configs) > 0 {
		config = configs[0]
	}
	if strings.Contains(config.Path, ":memory:") || config.Path == "" {
		config.MaxOpenConns = 1
		config.MaxIdleConns = 1
	}
	cfg := Config{
		Engine: EngineSQLite,
		DSN:    buildSQLiteDSN(config),
		Pool: PoolConfig{
			MaxOpen:         config.MaxOpenConns,
			MaxIdle:         config.MaxIdleConns,
			ConnMaxLifetime: config.ConnMaxLifetime,
			ConnMaxIdleTime: config.ConnMaxIdleTime,
		},
		Retry: RetryPolicy{
			MaxAttempts: 3,
			BaseBackoff: 100 * time.Millisecond,
			MaxBackoff:  time.Second,
			MaxElapsed:  30 * time.Second,
			Jitter:      true,
		},
	}
	return NewPool(ctx, cfg)
}

// buildSQLiteDSN renders config as a modernc.org/sqlite DSN. Pragmas ride
// in repeated _pragma parameters; a path with parameters needs the file:
// URI form.
func buildSQLiteDSN(config SQLiteConfig) string {
	path := config.Path
	if path == "" {
		path = ":memory:"
	}
	var pragmas []string
	if config.BusyTimeout > 0 {
		pragmas = append(pragmas, fmt.Sprintf("busy_timeout(%d)", config.BusyTimeout.Milliseconds()))
	}
	if config.JournalMode != "" {
		pragmas = append(pragmas, "journal_mode("+config.JournalMode+")")
	}
	if config.Synchronous != "" {
		pragmas = append(pragmas, "synchronous("+config.Synchronous+")")
	}
	if config.CacheSize > 0 {
		pragmas = append(pragmas, fmt.Sprintf("cache_size(%d)", config.CacheSize))
	}
	if config.ForeignKeys {
		pragmas = append(pragmas, "foreign_keys(1)")
	}
	if len(pragmas) == 0 {
		return path
	}
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	parts := make([]string, len(pragmas))
	for i, pr := range pragmas {
		parts[i] = "_pragma=" + pr
	}
	return path + "?" + strings.Join(parts, "&")
}

// NewSQLiteTestPool opens a single-connection in-memory pool tuned for
// tests.
func NewSQLiteTestPool(ctx context.Context) (*Pool, error) {
	return NewSQLitePool(ctx, SQLiteConfig{
		Path:            ":memory:",
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 30 * time.Minute,
		BusyTimeout:     time.Second,
		JournalMode:     "MEMORY",
		Synchronous:     "OFF",
		CacheSize:       1000,
	})
}

// SQLiteTestHelper wraps an in-memory pool with table and data shortcuts
// used across the test suite.
type SQLiteTestHelper struct {
	pool *Pool
}

// NewSQLiteTestHelper creates a helper with a fresh in-memory database.
func NewSQLiteTestHelper(ctx context.Context) (*SQLiteTestHelper, error) {
	pool, err := NewSQLiteTestPool(ctx)
	if err != nil {
		return nil, err
	}
	return &SQLiteTestHelper{pool: pool}, nil
}

// Pool returns the underlying pool.
func (h *SQLiteTestHelper) Pool() *Pool {
	return h.pool
}

// Close closes the helper's pool.
func (h *SQLiteTestHelper) Close() error {
	if h.pool != nil {
		return h.pool.Close()
	}
	return nil
}

// CreateTable creates a table from a column definition list.
func (h *SQLiteTestHelper) CreateTable(ctx context.Context, tableName, schema string) error {
	return h.pool.WithConn(ctx, func(c *Conn) error {
		_, err := c.Exec(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", tableName, schema))
		return err
	})
}

// ExecSQL runs one statement on a fresh connection.
func (h *SQLiteTestHelper) ExecSQL(ctx context.Context, query string, args ...any) error {
	return h.pool.WithConn(ctx, func(c *Conn) error {
		_, err := c.Exec(ctx, query, args...)
		return err
	})
}

// QueryData runs a query and returns the fully materialized rows. Values
// are copied, so the result stays valid after the connection is released.
func (h *SQLiteTestHelper) QueryData(ctx context.Context, query string, args ...any) ([][]any, error) {
	var out [][]any
	err := h.pool.WithConn(ctx, func(c *Conn) error {
		return c.QueryStream(ctx, query, func(row []any) error {
			cp := make([]any, len(row))
			copy(cp, row)
			out = append(out, cp)
			return nil
		}, args...)
	})
	return out, err
}

// CountRows counts rows in a table.
func (h *SQLiteTestHelper) CountRows(ctx context.Context, tableName string) (int, error) {
	var count int
	err := h.pool.WithConn(ctx, func(c *Conn) error {
		return c.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", tableName)).Scan(&count)
	})
	return count, err
}

// SetupUsersTable creates the standard users table used in tests.
func (h *SQLiteTestHelper) SetupUsersTable(ctx context.Context) error {
	return h.CreateTable(ctx, "users", `
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT UNIQUE NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	`)
}

// InsertUser inserts one user and returns its id.
func (h *SQLiteTestHelper) InsertUser(ctx context.Context, name, email string) (int64, error) {
	var id int64
	err := h.pool.WithConn(ctx, func(c *Conn) error {
		result, err := c.Exec(ctx, "INSERT INTO users (name, email) VALUES (?, ?)", name, email)
		if err != nil {
			return err
		}
		id, err = result.LastInsertId()
		return err
	})
	return id, err
}

// GetUser retrieves a user by id.
func (h *SQLiteTestHelper) GetUser(ctx context.Context, id int64) (name, email string, err error) {
	err = h.pool.WithConn(ctx, func(c *Conn) error {
		return c.QueryRow(ctx, "SELECT name, email FROM users WHERE id = ?", id).Scan(&name, &email)
	})
	return name, email, err
}

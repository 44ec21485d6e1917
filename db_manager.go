package ygggo_db

import (
	"context"
	"database/sql"
	"fmt"
)

// DBManager provides administrative database operations on top of a pool.
// Every method returns its error; callers that want the lenient behavior
// use the IfNotExists/IfExists variants, which suppress exactly the
// duplicate and missing error kinds and nothing else.
type DBManager struct {
	db     *sql.DB
	engine Engine
}

// GetDB returns a DBManager bound to the pool's underlying *sql.DB.
func (p *Pool) GetDB() (*DBManager, error) {
	if p == nil || p.db == nil {
		return nil, sql.ErrConnDone
	}
	return &DBManager{db: p.db, engine: p.engine}, nil
}

// ListDatabases returns the server's database names. Template databases are
// excluded on postgres; sqlite reports its single attached database.
func (m *DBManager) ListDatabases(ctx context.Context) ([]string, error) {
	if m == nil || m.db == nil {
		return nil, sql.ErrConnDone
	}
	switch m.engine {
	case EngineSQLite:
		return []string{"main"}, nil
	case EnginePostgres:
		return m.queryNames(ctx, "SELECT datname FROM pg_database WHERE datistemplate = false ORDER BY datname")
	default:
		return m.queryNames(ctx, "SHOW DATABASES")
	}
}

func (m *DBManager) queryNames(ctx context.Context, query string) ([]string, error) {
	rows, err := m.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return names, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// CreateDatabase creates a database, failing if it already exists.
func (m *DBManager) CreateDatabase(ctx context.Context, name string) error {
	if m == nil || m.db == nil {
		return sql.ErrConnDone
	}
	if name == "" {
		return fmt.Errorf("empty database name")
	}
	_, err := m.db.ExecContext(ctx, "CREATE DATABASE "+m.engine.QuoteIdent(name))
	return err
}

// CreateDatabaseIfNotExists creates a database, treating "already exists"
// as success. MySQL uses IF NOT EXISTS natively; postgres has no such
// clause for databases, so the duplicate error kind is matched and
// suppressed instead.
func (m *DBManager) CreateDatabaseIfNotExists(ctx context.Context, name string) error {
	if m == nil || m.db == nil {
		return sql.ErrConnDone
	}
	if name == "" {
		return fmt.Errorf("empty database name")
	}
	switch m.engine {
	case EngineSQLite:
		return nil
	case EnginePostgres:
		_, err := m.db.ExecContext(ctx, "CREATE DATABASE "+m.engine.QuoteIdent(name))
		if err != nil && IsDatabaseExists(err) {
			return nil
		}
		return err
	default:
		_, err := m.db.ExecContext(ctx, "CREATE DATABASE IF NOT EXISTS "+m.engine.QuoteIdent(name))
		return err
	}
}

// DropDatabase drops a database, failing if it does not exist.
func (m *DBManager) DropDatabase(ctx context.Context, name string) error {
	if m == nil || m.db == nil {
		return sql.ErrConnDone
	}
	if name == "" {
		return fmt.Errorf("empty database name")
	}
	_, err := m.db.ExecContext(ctx, "DROP DATABASE "+m.engine.QuoteIdent(name))
	return err
}

// DropDatabaseIfExists drops a database, treating "does not exist" as
// success.
func (m *DBManager) DropDatabaseIfExists(ctx context.Context, name string) error {
	if m == nil || m.db == nil {
		return sql.ErrConnDone
	}
	if name == "" {
		return fmt.Errorf("empty database name")
	}
	switch m.engine {
	case EngineSQLite:
		return nil
	case EnginePostgres:
		_, err := m.db.ExecContext(ctx, "DROP DATABASE "+m.engine.QuoteIdent(name))
		if err != nil && IsDatabaseMissing(err) {
			return nil
		}
		return err
	default:
		_, err := m.db.ExecContext(ctx, "DROP DATABASE IF EXISTS "+m.engine.QuoteIdent(name))
		return err
	}
}

// DatabaseExists reports whether the named database exists on the server.
func (m *DBManager) DatabaseExists(ctx context.Context, name string) (bool, error) {
	if m == nil || m.db == nil {
		return false, sql.ErrConnDone
	}
	var query string
	switch m.engine {
	case EngineSQLite:
		return name == "main", nil
	case EnginePostgres:
		query = "SELECT COUNT(*) FROM pg_database WHERE datname = $1"
	default:
		query = "SELECT COUNT(*) FROM information_schema.schemata WHERE schema_name = ?"
	}
	var n int64
	if err := m.db.QueryRowContext(ctx, query, name).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// CurrentDatabase returns the database this pool is connected to.
func (m *DBManager) CurrentDatabase(ctx context.Context) (string, error) {
	if m == nil || m.db == nil {
		return "", sql.ErrConnDone
	}
	var query string
	switch m.engine {
	case EngineSQLite:
		return "main", nil
	case EnginePostgres:
		query = "SELECT current_database()"
	default:
		query = "SELECT DATABASE()"
	}
	var name sql.NullString
	if err := m.db.QueryRowContext(ctx, query).Scan(&name); err != nil {
		return "", err
	}
	return name.String, nil
}

package ygggo_db

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Engine identifies the database engine family a pool talks to. The engine
// decides the registered driver, the placeholder style, identifier quoting,
// the admin database used for bootstrap and the dialect of the introspection
// and upsert SQL.
type Engine string

const (
	EngineMySQL    Engine = "mysql"
	EnginePostgres Engine = "postgres"
	EngineSQLite   Engine = "sqlite"
)

// ParseEngine normalizes an engine name. Common aliases are accepted:
// mariadb/tidb map to mysql, postgresql/pg/pgsql map to postgres,
// sqlite3 maps to sqlite. The empty string maps to mysql.
func ParseEngine(s string) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mysql", "mariadb", "tidb":
		return EngineMySQL, nil
	case "postgres", "postgresql", "pg", "pgsql":
		return EnginePostgres, nil
	case "sqlite", "sqlite3":
		return EngineSQLite, nil
	}
	return "", fmt.Errorf("unknown engine %q", s)
}

func (e Engine) String() string { return string(e) }

// driverName returns the database/sql driver name registered for the engine.
// Postgres runs through the pgx stdlib adapter so every engine shares the
// same *sql.DB plumbing.
func (e Engine) driverName() string {
	switch e {
	case EnginePostgres:
		return "pgx"
	case EngineSQLite:
		return "sqlite"
	default:
		return "mysql"
	}
}

// bindType returns the sqlx bindvar style used when rebinding ? placeholders.
func (e Engine) bindType() int {
	if e == EnginePostgres {
		return sqlx.DOLLAR
	}
	return sqlx.QUESTION
}

// rebind converts ?-style placeholders to the engine's native style.
// Statements are always built with ? internally; only Postgres needs $N.
func (e Engine) rebind(query string) string {
	if e == EnginePostgres {
		return sqlx.Rebind(sqlx.DOLLAR, query)
	}
	return query
}

// QuoteIdent quotes a single identifier for the engine, doubling embedded
// quote characters. It does not split qualified names; quote each part.
func (e Engine) QuoteIdent(ident string) string {
	if e == EngineMySQL {
		return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// adminDatabase is the maintenance database used for create-on-init work.
// MySQL accepts connections with no schema selected, so it needs none.
func (e Engine) adminDatabase() string {
	if e == EnginePostgres {
		return "postgres"
	}
	return ""
}

// defaultPort returns the conventional server port, zero when the engine
// has no network listener.
func (e Engine) defaultPort() int {
	switch e {
	case EnginePostgres:
		return 5432
	case EngineSQLite:
		return 0
	default:
		return 3306
	}
}

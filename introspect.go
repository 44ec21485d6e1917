package ygggo_db

import (
	"context"
	"database/sql"
	"errors"
)

// ErrTableNotFound is returned by DescribeTable when the table has no
// columns in the default schema.
var ErrTableNotFound = errors.New("ygggo_db: table not found")

// TableCount pairs a table name with its exact row count.
type TableCount struct {
	Table string
	Rows  int64
}

// ColumnInfo describes one column of a table.
type ColumnInfo struct {
	Name       string
	Type       string
	Nullable   bool
	PrimaryKey bool
	Default    string
}

// TableSchema describes a table's columns in ordinal order.
type TableSchema struct {
	Table   string
	Columns []ColumnInfo
}

// ColumnNames returns the column names in ordinal order.
func (s TableSchema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// listTablesSQL returns the engine's base-table listing query. Views and
// system tables are excluded everywhere.
func listTablesSQL(e Engine) string {
	switch e {
	case EnginePostgres:
		return "SELECT table_name FROM information_schema.tables WHERE table_schema = 'public' AND table_type = 'BASE TABLE' ORDER BY table_name"
	case EngineSQLite:
		return "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name"
	default:
		return "SELECT table_name FROM information_schema.tables WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE' ORDER BY table_name"
	}
}

func tableExistsSQL(e Engine) string {
	switch e {
	case EnginePostgres:
		return "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = 'public' AND table_type = 'BASE TABLE' AND table_name = $1"
	case EngineSQLite:
		return "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?"
	default:
		return "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE' AND table_name = ?"
	}
}

// ListTables returns the base tables of the connection's default schema,
// sorted by name.
func (c *Conn) ListTables(ctx context.Context) ([]string, error) {
	if c == nil || c.inner == nil {
		return nil, sql.ErrConnDone
	}
	rs, err := c.Query(ctx, listTablesSQL(c.engineOf()))
	if err != nil {
		return nil, err
	}
	defer rs.Close()
	var tables []string
	for rs.Next() {
		var name string
		if err := rs.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rs.Err()
}

// TableExists reports whether a base table with the given name exists in
// the default schema.
func (c *Conn) TableExists(ctx context.Context, table string) (bool, error) {
	if c == nil || c.inner == nil {
		return false, sql.ErrConnDone
	}
	var n int64
	if err := c.QueryRow(ctx, tableExistsSQL(c.engineOf()), table).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// TableRowCounts returns every base table with its exact row count, one
// COUNT(*) per table. Exact means a full scan on large tables; this is an
// inspection helper, not a monitoring primitive.
func (c *Conn) TableRowCounts(ctx context.Context) ([]TableCount, error) {
	tables, err := c.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	counts := make([]TableCount, 0, len(tables))
	for _, t := range tables {
		var n int64
		if err := c.QueryRow(ctx, "SELECT COUNT(*) FROM "+c.engineOf().QuoteIdent(t)).Scan(&n); err != nil {
			return counts, err
		}
		counts = append(counts, TableCount{Table: t, Rows: n})
	}
	return counts, nil
}

func describeTableSQL(e Engine) string {
	switch e {
	case EnginePostgres:
		return `SELECT c.column_name, c.data_type, c.is_nullable, c.column_default,
			CASE WHEN kcu.column_name IS NOT NULL THEN 'PRI' ELSE '' END
		FROM information_schema.columns c
		LEFT JOIN information_schema.table_constraints tc
			ON tc.table_schema = c.table_schema AND tc.table_name = c.table_name
			AND tc.constraint_type = 'PRIMARY KEY'
		LEFT JOIN information_schema.key_column_usage kcu
			ON kcu.constraint_name = tc.constraint_name AND kcu.table_schema = c.table_schema
			AND kcu.table_name = c.table_name AND kcu.column_name = c.column_name
		WHERE c.table_schema = 'public' AND c.table_name = $1
		ORDER BY c.ordinal_position`
	default:
		return `SELECT column_name, data_type, is_nullable, column_default, column_key
		FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name = ?
		ORDER BY ordinal_position`
	}
}

// DescribeTable returns the column layout of a table in the default schema.
func (c *Conn) DescribeTable(ctx context.Context, table string) (TableSchema, error) {
	schema := TableSchema{Table: table}
	if c == nil || c.inner == nil {
		return schema, sql.ErrConnDone
	}
	if c.engineOf() == EngineSQLite {
		return c.describeSQLiteTable(ctx, table)
	}
	rs, err := c.Query(ctx, describeTableSQL(c.engineOf()), table)
	if err != nil {
		return schema, err
	}
	defer rs.Close()
	for rs.Next() {
		var name, typ, nullable, key string
		var def sql.NullString
		if err := rs.Scan(&name, &typ, &nullable, &def, &key); err != nil {
			return schema, err
		}
		schema.Columns = append(schema.Columns, ColumnInfo{
			Name:       name,
			Type:       typ,
			Nullable:   nullable == "YES",
			PrimaryKey: key == "PRI",
			Default:    def.String,
		})
	}
	if err := rs.Err(); err != nil {
		return schema, err
	}
	if len(schema.Columns) == 0 {
		return schema, ErrTableNotFound
	}
	return schema, nil
}

func (c *Conn) describeSQLiteTable(ctx context.Context, table string) (TableSchema, error) {
	schema := TableSchema{Table: table}
	rs, err := c.Query(ctx, `SELECT name, type, "notnull", dflt_value, pk FROM pragma_table_info(?) ORDER BY cid`, table)
	if err != nil {
		return schema, err
	}
	defer rs.Close()
	for rs.Next() {
		var name, typ string
		var notNull, pk int
		var def sql.NullString
		if err := rs.Scan(&name, &typ, &notNull, &def, &pk); err != nil {
			return schema, err
		}
		schema.Columns = append(schema.Columns, ColumnInfo{
			Name:       name,
			Type:       typ,
			Nullable:   notNull == 0,
			PrimaryKey: pk > 0,
			Default:    def.String,
		})
	}
	if err := rs.Err(); err != nil {
		return schema, err
	}
	if len(schema.Columns) == 0 {
		return schema, ErrTableNotFound
	}
	return schema, nil
}

// ListTables lists base tables on a fresh connection.
func (p *Pool) ListTables(ctx context.Context) (tables []string, err error) {
	err = p.WithConn(ctx, func(c *Conn) error {
		var inner error
		tables, inner = c.ListTables(ctx)
		return inner
	})
	return tables, err
}

// TableExists checks for a base table on a fresh connection.
func (p *Pool) TableExists(ctx context.Context, table string) (exists bool, err error) {
	err = p.WithConn(ctx, func(c *Conn) error {
		var inner error
		exists, inner = c.TableExists(ctx, table)
		return inner
	})
	return exists, err
}

// TableRowCounts counts rows per base table on a fresh connection.
func (p *Pool) TableRowCounts(ctx context.Context) (counts []TableCount, err error) {
	err = p.WithConn(ctx, func(c *Conn) error {
		var inner error
		counts, inner = c.TableRowCounts(ctx)
		return inner
	})
	return counts, err
}

// DescribeTable describes a table's columns on a fresh connection.
func (p *Pool) DescribeTable(ctx context.Context, table string) (schema TableSchema, err error) {
	err = p.WithConn(ctx, func(c *Conn) error {
		var inner error
		schema, inner = c.DescribeTable(ctx, table)
		return inner
	})
	return schema, err
}

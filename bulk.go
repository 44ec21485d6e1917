package ygggo_db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// literalFlushRows is the row count at which the literal renderer closes a
// batch and starts the next statement.
const literalFlushRows = 10000

// buildInsertSQL builds one multi-row parameterized INSERT plus the
// flattened argument list. Placeholders are rebound for the engine. With an
// empty columns slice the column clause is omitted and the first row fixes
// the width.
func buildInsertSQL(e Engine, table string, columns []string, rows [][]any) (string, []any, error) {
	if len(rows) == 0 {
		return "", nil, fmt.Errorf("no rows to insert")
	}
	colN := len(columns)
	if colN == 0 {
		colN = len(rows[0])
	}
	if colN == 0 {
		return "", nil, fmt.Errorf("rows have no values")
	}
	for i, r := range rows {
		if len(r) != colN {
			return "", nil, fmt.Errorf("row %d has %d values, want %d", i, len(r), colN)
		}
	}
	placeOne := "(" + strings.TrimRight(strings.Repeat("?,", colN), ",") + ")"
	var b strings.Builder
	b.Grow(64 + len(rows)*(len(placeOne)+1))
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	if len(columns) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(columns, ","))
		b.WriteString(")")
	}
	b.WriteString(" VALUES ")
	args := make([]any, 0, len(rows)*colN)
	for i, r := range rows {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(placeOne)
		args = append(args, r...)
	}
	return e.rebind(b.String()), args, nil
}

// BulkInsert inserts all rows with a single multi-values INSERT. It joins
// the handle transaction when one is open, otherwise runs in autocommit.
func (c *Conn) BulkInsert(ctx context.Context, table string, columns []string, rows [][]any) (sql.Result, error) {
	if c == nil || c.inner == nil {
		return nil, sql.ErrConnDone
	}
	query, args, err := buildInsertSQL(c.engineOf(), table, columns, rows)
	if err != nil {
		return nil, err
	}
	return c.Exec(ctx, query, args...)
}

// InsertOnDuplicate is BulkInsert with ON DUPLICATE KEY UPDATE for the given
// updateCols. MySQL-family only; postgres callers use InsertOnConflict.
func (c *Conn) InsertOnDuplicate(ctx context.Context, table string, columns []string, rows [][]any, updateCols []string) (sql.Result, error) {
	if len(updateCols) == 0 {
		return c.BulkInsert(ctx, table, columns, rows)
	}
	if c == nil || c.inner == nil {
		return nil, sql.ErrConnDone
	}
	if c.engineOf() == EnginePostgres {
		return nil, fmt.Errorf("ON DUPLICATE KEY UPDATE is mysql-only; use InsertOnConflict on postgres")
	}
	query, args, err := buildInsertSQL(c.engineOf(), table, columns, rows)
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	b.WriteString(query)
	b.WriteString(" ON DUPLICATE KEY UPDATE ")
	for i, col := range updateCols {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(col)
		b.WriteString("=VALUES(")
		b.WriteString(col)
		b.WriteString(")")
	}
	return c.Exec(ctx, b.String(), args...)
}

// InsertOnConflict is BulkInsert with an upsert clause in each engine's
// dialect: ON CONFLICT (...) DO UPDATE SET col=EXCLUDED.col on postgres and
// sqlite, ON DUPLICATE KEY UPDATE on mysql, where conflictCols is implied by
// the table's keys and ignored.
func (c *Conn) InsertOnConflict(ctx context.Context, table string, columns []string, rows [][]any, conflictCols, updateCols []string) (sql.Result, error) {
	if len(updateCols) == 0 {
		return c.BulkInsert(ctx, table, columns, rows)
	}
	if c == nil || c.inner == nil {
		return nil, sql.ErrConnDone
	}
	if c.engineOf() == EngineMySQL {
		return c.InsertOnDuplicate(ctx, table, columns, rows, updateCols)
	}
	if len(conflictCols) == 0 {
		return nil, fmt.Errorf("conflict columns required for ON CONFLICT upsert")
	}
	query, args, err := buildInsertSQL(c.engineOf(), table, columns, rows)
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	b.WriteString(query)
	b.WriteString(" ON CONFLICT (")
	b.WriteString(strings.Join(conflictCols, ","))
	b.WriteString(") DO UPDATE SET ")
	for i, col := range updateCols {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(col)
		b.WriteString("=EXCLUDED.")
		b.WriteString(col)
	}
	return c.Exec(ctx, b.String(), args...)
}

// BulkInsert inserts rows as one parameterized batch inside its own
// transaction. Any failure rolls the whole batch back and surfaces as a
// *BulkError; success commits and reports the full row count. Zero rows is
// a successful no-op.
func (p *Pool) BulkInsert(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	err := p.WithConn(ctx, func(c *Conn) error {
		if err := c.Begin(ctx); err != nil {
			return err
		}
		if _, err := c.BulkInsert(ctx, table, columns, rows); err != nil {
			_ = c.Rollback()
			return err
		}
		return c.Commit()
	})
	if err != nil {
		return 0, &BulkError{Table: table, Rows: len(rows), Err: err}
	}
	return int64(len(rows)), nil
}

// BulkInsertChunks splits rows with Chunk and runs one strict batch per
// chunk. Across chunks it is lenient: a failed chunk logs, contributes
// nothing and the run moves on, so partial success is not an error. Returns
// the summed committed row count.
func (p *Pool) BulkInsertChunks(ctx context.Context, table string, columns []string, rows [][]any, chunkSize int) (int64, error) {
	start := time.Now()
	chunks := Chunk(rows, chunkSize)
	var committed int64
	for i, chunk := range chunks {
		if ctx.Err() != nil {
			break
		}
		n, err := p.BulkInsert(ctx, table, columns, chunk)
		if err != nil {
			p.GetLogger().LogAttrs(ctx, slog.LevelError, "bulk chunk failed",
				slog.String("table", table),
				slog.Int("chunk", i),
				slog.Int("chunk_rows", len(chunk)),
				slog.String("error", err.Error()),
				slog.String("error_class", Classify(err).String()),
			)
			continue
		}
		committed += n
	}
	p.logBulkSummary(ctx, table, len(rows), len(chunks), committed, time.Since(start))
	return committed, nil
}

// BulkUpsertLiteral renders rows as escaped literal tuples and sends them as
// INSERT statements of at most 10,000 rows each, upsertClause appended
// verbatim to every statement (pass "" for plain inserts). The statements
// run through ExecList, so a failed batch logs and the rest still execute.
// Returns how many batch statements committed out of how many were
// dispatched. Values are rendered by type: nil becomes NULL, numbers and
// booleans stay unquoted, everything else is escaped and quoted.
func (c *Conn) BulkUpsertLiteral(ctx context.Context, table string, columns []string, rows [][]any, upsertClause string) (int, int, error) {
	if c == nil || c.inner == nil {
		return 0, 0, sql.ErrConnDone
	}
	if len(rows) == 0 {
		return 0, 0, nil
	}
	colN := len(columns)
	if colN == 0 {
		colN = len(rows[0])
	}
	for i, r := range rows {
		if len(r) != colN {
			return 0, 0, fmt.Errorf("row %d has %d values, want %d", i, len(r), colN)
		}
	}

	var head strings.Builder
	head.WriteString("INSERT INTO ")
	head.WriteString(table)
	if len(columns) > 0 {
		head.WriteString(" (")
		head.WriteString(strings.Join(columns, ","))
		head.WriteString(")")
	}
	head.WriteString(" VALUES ")

	stmts := make([]string, 0, (len(rows)+literalFlushRows-1)/literalFlushRows)
	var values strings.Builder
	pending := 0
	flush := func() {
		if pending == 0 {
			return
		}
		stmt := head.String() + values.String()
		if upsertClause != "" {
			stmt += " " + upsertClause
		}
		stmts = append(stmts, stmt)
		values.Reset()
		pending = 0
	}
	for _, r := range rows {
		if pending > 0 {
			values.WriteByte(',')
		}
		values.WriteString(escapeRow(r))
		pending++
		if pending == literalFlushRows {
			flush()
		}
	}
	flush()

	succeeded, total := c.ExecList(ctx, stmts)
	return succeeded, total, nil
}

package ygggo_db

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// FileFormat selects the on-disk representation for dumps.
type FileFormat string

const (
	FormatSQL  FileFormat = "sql"
	FormatCSV  FileFormat = "csv"
	FormatJSON FileFormat = "json"
)

var (
	ErrUnsupportedFormat = errors.New("ygggo_db: unsupported dump format")
	ErrEmptyTableName    = errors.New("ygggo_db: table name required")
)

const (
	// defaultDumpBatch is how many rows fold into one INSERT in SQL dumps.
	defaultDumpBatch = 1000
	// defaultLoadChunk is how many rows commit per transaction on import.
	defaultLoadChunk = 1000
)

// ExportOptions controls what Export and ExportTable write.
type ExportOptions struct {
	Format FileFormat
	Output io.Writer

	// Tables narrows Export to the named tables. Empty means every base
	// table in the default schema.
	Tables []string

	// Where filters every exported table. Placeholders use ? on all
	// engines and are rebound as needed.
	Where string
	Args  []any

	// WithSchema prepends a CREATE TABLE per table. SQL format only.
	// Column types come from information_schema and lose length
	// qualifiers, so schema dumps seed test databases rather than
	// migrate production ones.
	WithSchema bool

	// RowsPerStmt caps the rows folded into a single INSERT in SQL
	// dumps. Defaults to 1000.
	RowsPerStmt int
}

// ImportOptions controls what Import and ImportTable load.
type ImportOptions struct {
	Format FileFormat
	Input  io.Reader

	// Table names the target for CSV input, which carries no table name
	// of its own. For JSON it overrides the embedded name when set.
	Table string

	// TruncateFirst clears each target table before loading.
	TruncateFirst bool

	// ChunkSize caps the rows committed per transaction. Defaults to 1000.
	ChunkSize int

	// ContinueOnError keeps loading after a failed chunk or statement
	// instead of stopping at the first failure.
	ContinueOnError bool
}

// ExportImportManager moves table data between a pool and flat files in
// SQL, CSV or JSON form. Dumps it writes round-trip through Import.
type ExportImportManager struct {
	p *Pool
}

// NewExportImportManager returns a manager bound to the pool.
func NewExportImportManager(p *Pool) *ExportImportManager {
	return &ExportImportManager{p: p}
}

// tableDump is the JSON shape for one table. Rows are positional arrays so
// column order survives the round trip.
type tableDump struct {
	Table   string   `json:"table"`
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// databaseDump is the multi-table JSON shape. A slice keeps dump files
// deterministic.
type databaseDump struct {
	Tables []tableDump `json:"tables"`
}

// ExportTable writes one table in the chosen format.
func (m *ExportImportManager) ExportTable(ctx context.Context, table string, opt ExportOptions) error {
	if table == "" {
		return ErrEmptyTableName
	}
	switch opt.Format {
	case FormatCSV:
		return m.exportCSV(ctx, table, opt)
	case FormatJSON:
		dump, err := m.fetchTable(ctx, table, opt)
		if err != nil {
			return err
		}
		return writeJSON(opt.Output, dump)
	case FormatSQL:
		return m.exportSQL(ctx, []string{table}, opt)
	default:
		return ErrUnsupportedFormat
	}
}

// Export writes opt.Tables, or every base table when none are named.
func (m *ExportImportManager) Export(ctx context.Context, opt ExportOptions) error {
	tables := opt.Tables
	if len(tables) == 0 {
		var err error
		tables, err = m.p.ListTables(ctx)
		if err != nil {
			return err
		}
	}
	switch opt.Format {
	case FormatCSV:
		if len(tables) != 1 {
			return fmt.Errorf("ygggo_db: csv dumps hold a single table, got %d", len(tables))
		}
		return m.exportCSV(ctx, tables[0], opt)
	case FormatJSON:
		dump := databaseDump{Tables: make([]tableDump, 0, len(tables))}
		for _, t := range tables {
			td, err := m.fetchTable(ctx, t, opt)
			if err != nil {
				return err
			}
			dump.Tables = append(dump.Tables, td)
		}
		return writeJSON(opt.Output, dump)
	case FormatSQL:
		return m.exportSQL(ctx, tables, opt)
	default:
		return ErrUnsupportedFormat
	}
}

// ImportTable loads one table from CSV or single-table JSON input.
func (m *ExportImportManager) ImportTable(ctx context.Context, table string, opt ImportOptions) error {
	switch opt.Format {
	case FormatCSV:
		if table == "" {
			return ErrEmptyTableName
		}
		columns, rows, err := readCSV(opt.Input)
		if err != nil {
			return err
		}
		return m.loadRows(ctx, table, columns, rows, opt)
	case FormatJSON:
		var dump tableDump
		if err := json.NewDecoder(opt.Input).Decode(&dump); err != nil {
			return err
		}
		if table == "" {
			table = dump.Table
		}
		return m.loadRows(ctx, table, dump.Columns, dump.Rows, opt)
	case FormatSQL:
		return fmt.Errorf("ygggo_db: sql dumps are not table-scoped, use Import")
	default:
		return ErrUnsupportedFormat
	}
}

// Import loads a whole dump: statement lists for SQL, the multi-table shape
// Export writes for JSON, and a single table for CSV via opt.Table.
func (m *ExportImportManager) Import(ctx context.Context, opt ImportOptions) error {
	switch opt.Format {
	case FormatSQL:
		return m.importSQL(ctx, opt)
	case FormatJSON:
		var dump databaseDump
		if err := json.NewDecoder(opt.Input).Decode(&dump); err != nil {
			return err
		}
		for _, td := range dump.Tables {
			if err := m.loadRows(ctx, td.Table, td.Columns, td.Rows, opt); err != nil {
				if !opt.ContinueOnError {
					return err
				}
				m.p.GetLogger().LogAttrs(ctx, slog.LevelError, "table import failed",
					slog.String("table", td.Table),
					slog.String("error", err.Error()),
					slog.String("error_class", Classify(err).String()),
				)
			}
		}
		return nil
	case FormatCSV:
		return m.ImportTable(ctx, opt.Table, opt)
	default:
		return ErrUnsupportedFormat
	}
}

func (m *ExportImportManager) exportCSV(ctx context.Context, table string, opt ExportOptions) error {
	return m.p.WithConn(ctx, func(c *Conn) error {
		schema, err := c.DescribeTable(ctx, table)
		if err != nil {
			return err
		}
		w := csv.NewWriter(opt.Output)
		if err := w.Write(schema.ColumnNames()); err != nil {
			return err
		}
		sel := selectDumpSQL(c.engineOf(), schema, opt)
		err = c.QueryStream(ctx, sel, func(vals []any) error {
			rec := make([]string, len(vals))
			for i, v := range vals {
				rec[i] = csvField(v)
			}
			return w.Write(rec)
		}, opt.Args...)
		if err != nil {
			return err
		}
		w.Flush()
		return w.Error()
	})
}

// fetchTable materializes one table as a dump, values normalized so they
// encode cleanly.
func (m *ExportImportManager) fetchTable(ctx context.Context, table string, opt ExportOptions) (tableDump, error) {
	var dump tableDump
	err := m.p.WithConn(ctx, func(c *Conn) error {
		schema, err := c.DescribeTable(ctx, table)
		if err != nil {
			return err
		}
		dump.Table = table
		dump.Columns = schema.ColumnNames()
		dump.Rows = [][]any{}
		sel := selectDumpSQL(c.engineOf(), schema, opt)
		return c.QueryStream(ctx, sel, func(vals []any) error {
			row := make([]any, len(vals))
			for i, v := range vals {
				row[i] = normalizeValue(v)
			}
			dump.Rows = append(dump.Rows, row)
			return nil
		}, opt.Args...)
	})
	return dump, err
}

func (m *ExportImportManager) exportSQL(ctx context.Context, tables []string, opt ExportOptions) error {
	batch := opt.RowsPerStmt
	if batch <= 0 {
		batch = defaultDumpBatch
	}
	bw := bufio.NewWriter(opt.Output)
	for _, table := range tables {
		if err := m.exportTableSQL(ctx, bw, table, batch, opt); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// exportTableSQL writes one table as single-line statements so the reader
// in readStatements can split them back apart.
func (m *ExportImportManager) exportTableSQL(ctx context.Context, w *bufio.Writer, table string, batch int, opt ExportOptions) error {
	return m.p.WithConn(ctx, func(c *Conn) error {
		e := c.engineOf()
		schema, err := c.DescribeTable(ctx, table)
		if err != nil {
			return err
		}
		if opt.WithSchema {
			if _, err := w.WriteString(createTableSQL(e, schema) + "\n"); err != nil {
				return err
			}
		}
		head := dumpInsertHead(e, table, schema.ColumnNames())
		var vals []string
		flush := func() error {
			if len(vals) == 0 {
				return nil
			}
			_, err := w.WriteString(head + strings.Join(vals, ",") + ";\n")
			vals = vals[:0]
			return err
		}
		sel := selectDumpSQL(e, schema, opt)
		if err := c.QueryStream(ctx, sel, func(row []any) error {
			vals = append(vals, escapeRow(row))
			if len(vals) >= batch {
				return flush()
			}
			return nil
		}, opt.Args...); err != nil {
			return err
		}
		return flush()
	})
}

func (m *ExportImportManager) importSQL(ctx context.Context, opt ImportOptions) error {
	stmts, err := readStatements(opt.Input)
	if err != nil {
		return err
	}
	if len(stmts) == 0 {
		return nil
	}
	if opt.ContinueOnError {
		m.p.ExecList(ctx, stmts)
		return nil
	}
	return m.p.ExecListAtomic(ctx, stmts)
}

// loadRows pushes decoded rows through the bulk engine. Lenient loads go
// chunk by chunk and skip failures; strict loads stop at the first failed
// chunk with nothing from that chunk committed.
func (m *ExportImportManager) loadRows(ctx context.Context, table string, columns []string, rows [][]any, opt ImportOptions) error {
	if table == "" {
		return ErrEmptyTableName
	}
	if opt.TruncateFirst {
		if err := m.clearTable(ctx, table); err != nil {
			return err
		}
	}
	if len(rows) == 0 {
		return nil
	}
	chunk := opt.ChunkSize
	if chunk <= 0 {
		chunk = defaultLoadChunk
	}
	if opt.ContinueOnError {
		_, err := m.p.BulkInsertChunks(ctx, table, columns, rows, chunk)
		return err
	}
	for _, part := range ChunkEvery(rows, chunk) {
		if _, err := m.p.BulkInsert(ctx, table, columns, part); err != nil {
			return err
		}
	}
	return nil
}

func (m *ExportImportManager) clearTable(ctx context.Context, table string) error {
	return m.p.WithConn(ctx, func(c *Conn) error {
		quoted := c.engineOf().QuoteIdent(table)
		if c.engineOf() != EngineSQLite {
			if _, err := c.Exec(ctx, "TRUNCATE TABLE "+quoted); err == nil {
				return nil
			}
		}
		// sqlite has no TRUNCATE; elsewhere it fails on referenced tables
		if _, err := c.Exec(ctx, "DELETE FROM "+quoted); err != nil {
			return fmt.Errorf("clear table %s: %w", table, err)
		}
		return nil
	})
}

// selectDumpSQL builds the export query with an explicit column list so row
// order matches the described schema on every engine.
func selectDumpSQL(e Engine, schema TableSchema, opt ExportOptions) string {
	cols := make([]string, len(schema.Columns))
	for i, col := range schema.Columns {
		cols[i] = e.QuoteIdent(col.Name)
	}
	sel := "SELECT " + strings.Join(cols, ", ") + " FROM " + e.QuoteIdent(schema.Table)
	if opt.Where != "" {
		sel = e.rebind(sel + " WHERE " + opt.Where)
	}
	return sel
}

func dumpInsertHead(e Engine, table string, columns []string) string {
	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = e.QuoteIdent(col)
	}
	return "INSERT INTO " + e.QuoteIdent(table) + " (" + strings.Join(quoted, ", ") + ") VALUES "
}

func createTableSQL(e Engine, schema TableSchema) string {
	parts := make([]string, 0, len(schema.Columns))
	for _, col := range schema.Columns {
		def := e.QuoteIdent(col.Name) + " " + col.Type
		if col.PrimaryKey {
			def += " PRIMARY KEY"
		}
		if !col.Nullable {
			def += " NOT NULL"
		}
		if col.Default != "" {
			def += " DEFAULT " + col.Default
		}
		parts = append(parts, def)
	}
	return "CREATE TABLE " + e.QuoteIdent(schema.Table) + " (" + strings.Join(parts, ", ") + ");"
}

// readStatements splits dump input into statements. A statement ends at a
// line whose trimmed text ends in a semicolon; blank lines and -- comments
// are skipped. Literals spanning a semicolon at end of line would confuse
// it, which the dumps this package writes never produce.
func readStatements(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	// dump lines carry whole batches, so the line buffer has to be large
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	var stmts []string
	var buf strings.Builder
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		if buf.Len() > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(line)
		if strings.HasSuffix(line, ";") {
			stmt := strings.TrimSuffix(buf.String(), ";")
			stmts = append(stmts, strings.TrimSpace(stmt))
			buf.Reset()
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if buf.Len() > 0 {
		stmts = append(stmts, buf.String())
	}
	return stmts, nil
}

// readCSV loads the header row as column names and the rest as rows. Empty
// fields load as NULL; CSV cannot tell an empty string from one.
func readCSV(r io.Reader) ([]string, [][]any, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	columns := make([]string, len(header))
	copy(columns, header)
	var rows [][]any
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return columns, rows, err
		}
		row := make([]any, len(rec))
		for i, f := range rec {
			if f == "" {
				row[i] = nil
			} else {
				row[i] = f
			}
		}
		rows = append(rows, row)
	}
	return columns, rows, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func csvField(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(t)
	case string:
		return t
	case time.Time:
		return t.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprint(t)
	}
}

func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

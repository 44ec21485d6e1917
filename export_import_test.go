package ygggo_db

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestExportTable_CSV(t *testing.T) {
	h, ctx := newItemsHelper(t)
	seedItems(t, h)

	var buf bytes.Buffer
	m := NewExportImportManager(h.Pool())
	err := m.ExportTable(ctx, "items", ExportOptions{Format: FormatCSV, Output: &buf})
	if err != nil {
		t.Fatalf("ExportTable: %v", err)
	}

	want := "id,name,qty\n1,bolt,100\n2,nut,250\n3,washer,500\n"
	if buf.String() != want {
		t.Fatalf("csv = %q\nwant %q", buf.String(), want)
	}
}

func TestExportImport_CSVRoundTrip(t *testing.T) {
	src, ctx := newItemsHelper(t)
	seedItems(t, src)

	var buf bytes.Buffer
	if err := NewExportImportManager(src.Pool()).ExportTable(ctx, "items", ExportOptions{Format: FormatCSV, Output: &buf}); err != nil {
		t.Fatalf("export: %v", err)
	}

	dst, _ := newItemsHelper(t)
	err := NewExportImportManager(dst.Pool()).ImportTable(ctx, "items", ImportOptions{Format: FormatCSV, Input: &buf})
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	data, err := dst.QueryData(ctx, "SELECT id, name, qty FROM items ORDER BY id")
	if err != nil {
		t.Fatalf("QueryData: %v", err)
	}
	if len(data) != 3 {
		t.Fatalf("rows = %d, want 3", len(data))
	}
	if data[1][1] != "nut" || data[1][2] != int64(250) {
		t.Fatalf("row 2 = %v", data[1])
	}
}

func TestExportImport_JSONRoundTrip(t *testing.T) {
	src, ctx := newItemsHelper(t)
	seedItems(t, src)

	var buf bytes.Buffer
	if err := NewExportImportManager(src.Pool()).ExportTable(ctx, "items", ExportOptions{Format: FormatJSON, Output: &buf}); err != nil {
		t.Fatalf("export: %v", err)
	}

	var dump tableDump
	if err := json.Unmarshal(buf.Bytes(), &dump); err != nil {
		t.Fatalf("decode dump: %v", err)
	}
	if dump.Table != "items" {
		t.Fatalf("table = %q", dump.Table)
	}
	if !reflect.DeepEqual(dump.Columns, []string{"id", "name", "qty"}) {
		t.Fatalf("columns = %v", dump.Columns)
	}
	if len(dump.Rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(dump.Rows))
	}

	// An empty table name on import falls back to the one in the dump.
	dst, _ := newItemsHelper(t)
	err := NewExportImportManager(dst.Pool()).ImportTable(ctx, "", ImportOptions{Format: FormatJSON, Input: bytes.NewReader(buf.Bytes())})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	count, err := dst.CountRows(ctx, "items")
	if err != nil {
		t.Fatalf("CountRows: %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}
}

func TestExportImport_WholeDatabaseJSON(t *testing.T) {
	src, ctx := newItemsHelper(t)
	seedItems(t, src)

	var buf bytes.Buffer
	if err := NewExportImportManager(src.Pool()).Export(ctx, ExportOptions{Format: FormatJSON, Output: &buf}); err != nil {
		t.Fatalf("export: %v", err)
	}

	var dump databaseDump
	if err := json.Unmarshal(buf.Bytes(), &dump); err != nil {
		t.Fatalf("decode dump: %v", err)
	}
	if len(dump.Tables) != 1 || dump.Tables[0].Table != "items" {
		t.Fatalf("tables = %+v", dump.Tables)
	}

	dst, _ := newItemsHelper(t)
	err := NewExportImportManager(dst.Pool()).Import(ctx, ImportOptions{Format: FormatJSON, Input: bytes.NewReader(buf.Bytes())})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	count, err := dst.CountRows(ctx, "items")
	if err != nil {
		t.Fatalf("CountRows: %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}
}

func TestExportImport_SQLRoundTripWithSchema(t *testing.T) {
	src, ctx := newItemsHelper(t)
	seedItems(t, src)

	var buf bytes.Buffer
	err := NewExportImportManager(src.Pool()).ExportTable(ctx, "items", ExportOptions{
		Format:     FormatSQL,
		Output:     &buf,
		WithSchema: true,
	})
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	dump := buf.String()
	if !strings.Contains(dump, `CREATE TABLE "items"`) {
		t.Fatalf("dump missing schema:\n%s", dump)
	}
	if !strings.Contains(dump, `(1,'bolt',100)`) {
		t.Fatalf("dump missing row literals:\n%s", dump)
	}

	// A fresh database restores from the dump alone.
	dstPool, err := NewSQLiteTestPool(ctx)
	if err != nil {
		t.Fatalf("NewSQLiteTestPool: %v", err)
	}
	t.Cleanup(func() { dstPool.Close() })
	err = NewExportImportManager(dstPool).Import(ctx, ImportOptions{Format: FormatSQL, Input: strings.NewReader(dump)})
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	var count int
	err = dstPool.WithConn(ctx, func(c *Conn) error {
		return c.QueryRow(ctx, "SELECT COUNT(*) FROM items").Scan(&count)
	})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}
}

func TestExportTable_WhereFilter(t *testing.T) {
	h, ctx := newItemsHelper(t)
	seedItems(t, h)

	var buf bytes.Buffer
	err := NewExportImportManager(h.Pool()).ExportTable(ctx, "items", ExportOptions{
		Format: FormatCSV,
		Output: &buf,
		Where:  "qty >= ?",
		Args:   []any{250},
	})
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	// Header plus the two rows passing the filter.
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3:\n%s", len(lines), buf.String())
	}
}

func TestImportTable_TruncateFirst(t *testing.T) {
	h, ctx := newItemsHelper(t)
	if err := h.ExecSQL(ctx, "INSERT INTO items (id, name, qty) VALUES (99, 'stale', 1)"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	csv := "id,name,qty\n1,bolt,100\n2,nut,250\n"
	err := NewExportImportManager(h.Pool()).ImportTable(ctx, "items", ImportOptions{
		Format:        FormatCSV,
		Input:         strings.NewReader(csv),
		TruncateFirst: true,
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	data, err := h.QueryData(ctx, "SELECT id FROM items ORDER BY id")
	if err != nil {
		t.Fatalf("QueryData: %v", err)
	}
	if len(data) != 2 || data[0][0] != int64(1) || data[1][0] != int64(2) {
		t.Fatalf("ids = %v", data)
	}
}

func TestExportImport_FormatValidation(t *testing.T) {
	h, ctx := newItemsHelper(t)
	m := NewExportImportManager(h.Pool())

	var buf bytes.Buffer
	if err := m.ExportTable(ctx, "items", ExportOptions{Format: "xml", Output: &buf}); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
	}
	if err := m.ExportTable(ctx, "", ExportOptions{Format: FormatCSV, Output: &buf}); !errors.Is(err, ErrEmptyTableName) {
		t.Fatalf("err = %v, want ErrEmptyTableName", err)
	}
	if err := m.ImportTable(ctx, "", ImportOptions{Format: FormatCSV, Input: strings.NewReader("")}); !errors.Is(err, ErrEmptyTableName) {
		t.Fatalf("err = %v, want ErrEmptyTableName", err)
	}
	if err := m.ImportTable(ctx, "items", ImportOptions{Format: FormatSQL, Input: strings.NewReader("")}); err == nil {
		t.Fatal("sql dumps are not table-scoped")
	}
}

func TestExport_CSVRejectsMultipleTables(t *testing.T) {
	h, ctx := newItemsHelper(t)
	if err := h.CreateTable(ctx, "extras", "id INTEGER PRIMARY KEY"); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}

	var buf bytes.Buffer
	err := NewExportImportManager(h.Pool()).Export(ctx, ExportOptions{Format: FormatCSV, Output: &buf})
	if err == nil {
		t.Fatal("csv export of two tables should fail")
	}
}

func TestReadStatements(t *testing.T) {
	input := `-- seed data
CREATE TABLE t (id INTEGER);

INSERT INTO t (id)
VALUES (1);
INSERT INTO t (id) VALUES (2)`

	stmts, err := readStatements(strings.NewReader(input))
	if err != nil {
		t.Fatalf("readStatements: %v", err)
	}
	want := []string{
		"CREATE TABLE t (id INTEGER)",
		"INSERT INTO t (id) VALUES (1)",
		"INSERT INTO t (id) VALUES (2)",
	}
	if !reflect.DeepEqual(stmts, want) {
		t.Fatalf("stmts = %q\nwant  %q", stmts, want)
	}
}

func TestReadCSV(t *testing.T) {
	columns, rows, err := readCSV(strings.NewReader("id,name\n1,bolt\n2,\n"))
	if err != nil {
		t.Fatalf("readCSV: %v", err)
	}
	if !reflect.DeepEqual(columns, []string{"id", "name"}) {
		t.Fatalf("columns = %v", columns)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	// Empty fields come back as NULL, not as empty strings.
	if rows[1][1] != nil {
		t.Fatalf("rows[1][1] = %v, want nil", rows[1][1])
	}

	columns, rows, err = readCSV(strings.NewReader(""))
	if err != nil || columns != nil || rows != nil {
		t.Fatalf("empty input: %v %v %v", columns, rows, err)
	}
}

func TestCSVField(t *testing.T) {
	if got := csvField(nil); got != "" {
		t.Fatalf("nil = %q", got)
	}
	if got := csvField([]byte("raw")); got != "raw" {
		t.Fatalf("bytes = %q", got)
	}
	if got := csvField(int64(42)); got != "42" {
		t.Fatalf("int = %q", got)
	}
	ts := time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)
	if got := csvField(ts); got != "2024-03-01 08:30:00" {
		t.Fatalf("time = %q", got)
	}
}

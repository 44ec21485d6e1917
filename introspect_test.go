package ygggo_db

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestListTables_SortedByName(t *testing.T) {
	ctx := context.Background()
	h, err := NewSQLiteTestHelper(ctx)
	if err != nil {
		t.Fatalf("NewSQLiteTestHelper: %v", err)
	}
	defer h.Close()

	for _, table := range []string{"zeta", "alpha", "mid"} {
		if err := h.CreateTable(ctx, table, "id INTEGER PRIMARY KEY"); err != nil {
			t.Fatalf("CreateTable %s: %v", table, err)
		}
	}

	tables, err := h.Pool().ListTables(ctx)
	if err != nil {
		t.Fatalf("ListTables: %v", err)
	}
	want := []string{"alpha", "mid", "zeta"}
	if !reflect.DeepEqual(tables, want) {
		t.Fatalf("tables = %v, want %v", tables, want)
	}
}

func TestListTables_EmptyDatabase(t *testing.T) {
	ctx := context.Background()
	p, err := NewSQLiteTestPool(ctx)
	if err != nil {
		t.Fatalf("NewSQLiteTestPool: %v", err)
	}
	defer p.Close()

	tables, err := p.ListTables(ctx)
	if err != nil {
		t.Fatalf("ListTables: %v", err)
	}
	if len(tables) != 0 {
		t.Fatalf("tables = %v, want none", tables)
	}
}

func TestTableExists(t *testing.T) {
	h, ctx := newItemsHelper(t)

	exists, err := h.Pool().TableExists(ctx, "items")
	if err != nil {
		t.Fatalf("TableExists: %v", err)
	}
	if !exists {
		t.Fatal("items should exist")
	}

	exists, err = h.Pool().TableExists(ctx, "no_such_table")
	if err != nil {
		t.Fatalf("TableExists: %v", err)
	}
	if exists {
		t.Fatal("no_such_table should not exist")
	}
}

func TestTableRowCounts(t *testing.T) {
	h, ctx := newItemsHelper(t)
	seedItems(t, h)

	if err := h.CreateTable(ctx, "empty", "id INTEGER PRIMARY KEY"); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}

	counts, err := h.Pool().TableRowCounts(ctx)
	if err != nil {
		t.Fatalf("TableRowCounts: %v", err)
	}
	want := []TableCount{
		{Table: "empty", Rows: 0},
		{Table: "items", Rows: 3},
	}
	if !reflect.DeepEqual(counts, want) {
		t.Fatalf("counts = %v, want %v", counts, want)
	}
}

func TestDescribeTable(t *testing.T) {
	ctx := context.Background()
	h, err := NewSQLiteTestHelper(ctx)
	if err != nil {
		t.Fatalf("NewSQLiteTestHelper: %v", err)
	}
	defer h.Close()

	schema := "id INTEGER PRIMARY KEY, name TEXT NOT NULL, qty INTEGER DEFAULT 0, note TEXT"
	if err := h.CreateTable(ctx, "parts", schema); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}

	ts, err := h.Pool().DescribeTable(ctx, "parts")
	if err != nil {
		t.Fatalf("DescribeTable: %v", err)
	}
	if ts.Table != "parts" {
		t.Fatalf("Table = %q", ts.Table)
	}
	names := ts.ColumnNames()
	want := []string{"id", "name", "qty", "note"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("columns = %v, want %v", names, want)
	}

	byName := map[string]ColumnInfo{}
	for _, col := range ts.Columns {
		byName[col.Name] = col
	}
	if !byName["id"].PrimaryKey {
		t.Fatal("id should be the primary key")
	}
	if byName["name"].Nullable {
		t.Fatal("name is NOT NULL")
	}
	if !byName["note"].Nullable {
		t.Fatal("note should be nullable")
	}
	if byName["qty"].Default != "0" {
		t.Fatalf("qty default = %q, want %q", byName["qty"].Default, "0")
	}
	if byName["name"].Type != "TEXT" {
		t.Fatalf("name type = %q, want TEXT", byName["name"].Type)
	}
}

func TestDescribeTable_NotFound(t *testing.T) {
	ctx := context.Background()
	p, err := NewSQLiteTestPool(ctx)
	if err != nil {
		t.Fatalf("NewSQLiteTestPool: %v", err)
	}
	defer p.Close()

	_, err = p.DescribeTable(ctx, "ghost")
	if !errors.Is(err, ErrTableNotFound) {
		t.Fatalf("err = %v, want ErrTableNotFound", err)
	}
}

func TestDescribeTableSQL_Placeholders(t *testing.T) {
	// The mysql form binds with ? against information_schema; postgres uses $1
	// against its own catalog join.
	for _, sub := range []string{"information_schema.columns", "DATABASE()", "?"} {
		if !strings.Contains(describeTableSQL(EngineMySQL), sub) {
			t.Fatalf("mysql query missing %q", sub)
		}
	}
	for _, sub := range []string{"information_schema.columns", "'public'", "$1"} {
		if !strings.Contains(describeTableSQL(EnginePostgres), sub) {
			t.Fatalf("postgres query missing %q", sub)
		}
	}
}

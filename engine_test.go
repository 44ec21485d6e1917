package ygggo_db

import (
	"testing"
)

func TestParseEngine_Aliases(t *testing.T) {
	cases := []struct {
		in   string
		want Engine
	}{
		{"", EngineMySQL},
		{"mysql", EngineMySQL},
		{"MySQL", EngineMySQL},
		{"mariadb", EngineMySQL},
		{"tidb", EngineMySQL},
		{"postgres", EnginePostgres},
		{"postgresql", EnginePostgres},
		{"pg", EnginePostgres},
		{"pgsql", EnginePostgres},
		{"  Postgres  ", EnginePostgres},
		{"sqlite", EngineSQLite},
		{"sqlite3", EngineSQLite},
	}
	for _, tc := range cases {
		got, err := ParseEngine(tc.in)
		if err != nil {
			t.Errorf("ParseEngine(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseEngine(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseEngine_Unknown(t *testing.T) {
	if _, err := ParseEngine("oracle"); err == nil {
		t.Fatal("expected error for unknown engine")
	}
}

func TestEngine_DriverName(t *testing.T) {
	if EngineMySQL.driverName() != "mysql" {
		t.Fatal("mysql driver name")
	}
	if EnginePostgres.driverName() != "pgx" {
		t.Fatal("postgres runs through the pgx stdlib driver")
	}
	if EngineSQLite.driverName() != "sqlite" {
		t.Fatal("sqlite driver name")
	}
}

func TestEngine_Rebind(t *testing.T) {
	q := "SELECT * FROM t WHERE a = ? AND b = ?"
	if got := EngineMySQL.rebind(q); got != q {
		t.Fatalf("mysql rebind changed the query: %q", got)
	}
	want := "SELECT * FROM t WHERE a = $1 AND b = $2"
	if got := EnginePostgres.rebind(q); got != want {
		t.Fatalf("postgres rebind = %q, want %q", got, want)
	}
	if got := EngineSQLite.rebind(q); got != q {
		t.Fatalf("sqlite rebind changed the query: %q", got)
	}
}

func TestEngine_QuoteIdent(t *testing.T) {
	if got := EngineMySQL.QuoteIdent("users"); got != "`users`" {
		t.Fatalf("got %q", got)
	}
	if got := EngineMySQL.QuoteIdent("we`ird"); got != "`we``ird`" {
		t.Fatalf("embedded backtick: %q", got)
	}
	if got := EnginePostgres.QuoteIdent("users"); got != `"users"` {
		t.Fatalf("got %q", got)
	}
	if got := EnginePostgres.QuoteIdent(`we"ird`); got != `"we""ird"` {
		t.Fatalf("embedded quote: %q", got)
	}
	if got := EngineSQLite.QuoteIdent("t"); got != `"t"` {
		t.Fatalf("got %q", got)
	}
}

func TestEngine_AdminDatabase(t *testing.T) {
	if EngineMySQL.adminDatabase() != "" {
		t.Fatal("mysql bootstrap connects with no schema selected")
	}
	if EnginePostgres.adminDatabase() != "postgres" {
		t.Fatal("postgres bootstrap connects to the postgres database")
	}
}

func TestEngine_DefaultPort(t *testing.T) {
	if EngineMySQL.defaultPort() != 3306 {
		t.Fatal("mysql port")
	}
	if EnginePostgres.defaultPort() != 5432 {
		t.Fatal("postgres port")
	}
	if EngineSQLite.defaultPort() != 0 {
		t.Fatal("sqlite has no port")
	}
}

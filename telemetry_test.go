package ygggo_db

import (
	"context"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTracedMockPool(t *testing.T) (*Pool, sqlmock.Sqlmock, *tracetest.SpanRecorder) {
	t.Helper()
	p, mock, err := NewMockPool()
	if err != nil {
		t.Fatalf("NewMockPool: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	recorder := tracetest.NewSpanRecorder()
	p.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	p.EnableTelemetry(true)
	return p, mock, recorder
}

func spanAttrs(span sdktrace.ReadOnlySpan) map[attribute.Key]string {
	out := make(map[attribute.Key]string)
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value.AsString()
	}
	return out
}

func TestTelemetry_ExecSpan(t *testing.T) {
	p, mock, recorder := newTracedMockPool(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE items SET qty = ?")).
		WithArgs(9).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ctx := context.Background()
	err := p.WithConn(ctx, func(c *Conn) error {
		_, err := c.Exec(ctx, "UPDATE items SET qty = ?", 9)
		return err
	})
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("len(spans) = %d, want 1", len(spans))
	}
	span := spans[0]
	if span.Name() != "ygggo_db.exec" {
		t.Fatalf("span name = %q", span.Name())
	}
	if span.Status().Code != codes.Ok {
		t.Fatalf("status = %v, want Ok", span.Status().Code)
	}
	attrs := spanAttrs(span)
	if attrs["db.system"] != "mysql" {
		t.Fatalf("db.system = %q", attrs["db.system"])
	}
	if attrs["db.operation"] != "exec" {
		t.Fatalf("db.operation = %q", attrs["db.operation"])
	}
	if !strings.Contains(attrs["db.statement"], "UPDATE items") {
		t.Fatalf("db.statement = %q", attrs["db.statement"])
	}
}

func TestTelemetry_QuerySpan(t *testing.T) {
	p, mock, recorder := newTracedMockPool(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM items")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	ctx := context.Background()
	err := p.WithConn(ctx, func(c *Conn) error {
		rows, err := c.Query(ctx, "SELECT id FROM items")
		if err != nil {
			return err
		}
		return rows.Close()
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("len(spans) = %d, want 1", len(spans))
	}
	if spans[0].Name() != "ygggo_db.query" {
		t.Fatalf("span name = %q", spans[0].Name())
	}
	if attrs := spanAttrs(spans[0]); attrs["db.operation"] != "query" {
		t.Fatalf("db.operation = %q", attrs["db.operation"])
	}
}

func TestTelemetry_ErrorSetsSpanStatus(t *testing.T) {
	p, mock, recorder := newTracedMockPool(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO items (id) VALUES (?)")).
		WillReturnError(mysqlErr(1062))

	ctx := context.Background()
	_ = p.WithConn(ctx, func(c *Conn) error {
		if _, err := c.Exec(ctx, "INSERT INTO items (id) VALUES (?)", 1); err == nil {
			t.Fatal("expected duplicate error")
		}
		return nil
	})

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("len(spans) = %d, want 1", len(spans))
	}
	span := spans[0]
	if span.Status().Code != codes.Error {
		t.Fatalf("status = %v, want Error", span.Status().Code)
	}
	var sawException bool
	for _, ev := range span.Events() {
		if ev.Name == "exception" {
			sawException = true
		}
	}
	if !sawException {
		t.Fatal("error was not recorded on the span")
	}
}

func TestTelemetry_DisabledEmitsNoSpans(t *testing.T) {
	p, mock, err := NewMockPool()
	if err != nil {
		t.Fatalf("NewMockPool: %v", err)
	}
	defer p.Close()
	recorder := tracetest.NewSpanRecorder()
	p.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))

	mock.ExpectExec(regexp.QuoteMeta("SELECT 1")).WillReturnResult(sqlmock.NewResult(0, 0))

	ctx := context.Background()
	_ = p.WithConn(ctx, func(c *Conn) error {
		_, err := c.Exec(ctx, "SELECT 1")
		return err
	})

	if spans := recorder.Ended(); len(spans) != 0 {
		t.Fatalf("len(spans) = %d, want 0", len(spans))
	}
}

func TestDBSystem(t *testing.T) {
	cases := []struct {
		engine Engine
		want   string
	}{
		{EngineMySQL, "mysql"},
		{EnginePostgres, "postgresql"},
		{EngineSQLite, "sqlite"},
	}
	for _, tc := range cases {
		if got := dbSystem(tc.engine); got != tc.want {
			t.Fatalf("dbSystem(%v) = %q, want %q", tc.engine, got, tc.want)
		}
	}
}

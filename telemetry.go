package ygggo_db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName    = "github.com/yggai/ygggo_db"
	instrumentationVersion = "v0.1.0"
)

var defaultTracer = otel.Tracer(instrumentationName,
	trace.WithInstrumentationVersion(instrumentationVersion))

// EnableTelemetry enables or disables OpenTelemetry tracing for this pool.
func (p *Pool) EnableTelemetry(enabled bool) {
	if p == nil {
		return
	}
	p.telemetryEnabled = enabled
}

// SetTracerProvider sets a custom tracer provider for this pool.
func (p *Pool) SetTracerProvider(provider trace.TracerProvider) {
	if p == nil {
		return
	}
	p.tracerProvider = provider
}

func (p *Pool) tracer() trace.Tracer {
	if p != nil && p.tracerProvider != nil {
		return p.tracerProvider.Tracer(instrumentationName,
			trace.WithInstrumentationVersion(instrumentationVersion))
	}
	return defaultTracer
}

// dbSystem is the semantic-convention value for the engine.
func dbSystem(e Engine) string {
	switch e {
	case EnginePostgres:
		return "postgresql"
	case EngineSQLite:
		return "sqlite"
	default:
		return "mysql"
	}
}

// startSpan creates a span with the common database attributes.
func (p *Pool) startSpan(ctx context.Context, operation, query string) (context.Context, trace.Span) {
	if p == nil || !p.telemetryEnabled {
		return ctx, trace.SpanFromContext(ctx)
	}
	ctx, span := p.tracer().Start(ctx, fmt.Sprintf("ygggo_db.%s", operation))
	span.SetAttributes(
		attribute.String("db.system", dbSystem(p.engine)),
		attribute.String("db.operation", operation),
	)
	if query != "" {
		span.SetAttributes(attribute.String("db.statement", truncateSQL(query)))
	}
	return ctx, span
}

// finishSpan completes a span, recording the error when present.
func (p *Pool) finishSpan(span trace.Span, err error) {
	if p == nil || !p.telemetryEnabled || span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// execerCtx and queryerCtx abstract the execution target so the same
// instrumented path serves bare connections, open transactions and the DB.
type execerCtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type queryerCtx interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// instrumentedExec wraps statement execution with tracing, logging and
// metrics. The span does not replace the context handed to the driver.
func (p *Pool) instrumentedExec(ctx context.Context, ex execerCtx, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	var span trace.Span
	if p.telemetryEnabled {
		_, span = p.startSpan(ctx, "exec", query)
	}

	res, err := ex.ExecContext(ctx, query, args...)
	duration := time.Since(start)

	if p.loggingEnabled {
		p.logQuery(ctx, "exec", query, args, duration, err)
	}
	if p.metricsEnabled {
		p.recordQuery(ctx, "exec", duration, err)
	}
	if p.telemetryEnabled {
		p.finishSpan(span, err)
	}
	return res, err
}

// instrumentedQuery wraps row queries the same way.
func (p *Pool) instrumentedQuery(ctx context.Context, q queryerCtx, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	var span trace.Span
	if p.telemetryEnabled {
		_, span = p.startSpan(ctx, "query", query)
	}

	rs, err := q.QueryContext(ctx, query, args...)
	duration := time.Since(start)

	if p.loggingEnabled {
		p.logQuery(ctx, "query", query, args, duration, err)
	}
	if p.metricsEnabled {
		p.recordQuery(ctx, "query", duration, err)
	}
	if p.telemetryEnabled {
		p.finishSpan(span, err)
	}
	return rs, err
}

package ygggo_db

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	mysql "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

// logSink is where pool loggers write; tests swap it for a buffer.
var logSink io.Writer = os.Stderr

var defaultLogger = slog.New(slog.NewJSONHandler(logSink, &slog.HandlerOptions{
	Level: slog.LevelDebug,
}))

// EnableLogging enables or disables structured logging for this pool.
func (p *Pool) EnableLogging(enabled bool) {
	if p == nil {
		return
	}
	p.loggingEnabled = enabled
	if enabled && p.logger == nil {
		p.logger = defaultLogger
	}
}

// SetLogger sets a custom logger for this pool. Logging stays scoped to the
// pool; there is no package-wide mutable logger.
func (p *Pool) SetLogger(logger *slog.Logger) {
	if p == nil {
		return
	}
	p.logger = logger
}

// GetLogger returns the pool's logger, falling back to the default sink.
func (p *Pool) GetLogger() *slog.Logger {
	if p == nil || p.logger == nil {
		return defaultLogger
	}
	return p.logger
}

// SetSlowQueryThreshold sets the duration past which a query logs at WARN.
// Zero disables slow-query detection.
func (p *Pool) SetSlowQueryThreshold(d time.Duration) {
	if p == nil {
		return
	}
	p.slowQueryThreshold = d
}

// logQuery logs one statement execution with structured fields.
func (p *Pool) logQuery(ctx context.Context, operation, query string, args []any, duration time.Duration, err error) {
	if p == nil || !p.loggingEnabled || p.logger == nil {
		return
	}

	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.String("engine", p.engine.String()),
		slog.String("query", truncateSQL(query)),
		slog.Float64("duration_ms", float64(duration.Nanoseconds())/1e6),
	}
	if len(args) > 0 {
		attrs = append(attrs, slog.Int("arg_count", len(args)))
	}

	if err != nil {
		attrs = append(attrs,
			slog.String("status", "error"),
			slog.String("error", err.Error()),
			slog.String("error_class", Classify(err).String()),
		)
		attrs = append(attrs, driverErrAttrs(err)...)
	} else {
		attrs = append(attrs, slog.String("status", "success"))
	}

	if p.slowQueryThreshold > 0 && duration > p.slowQueryThreshold {
		attrs = append(attrs, slog.Bool("slow_query", true))
		p.logger.LogAttrs(ctx, slog.LevelWarn, "slow query detected", attrs...)
		return
	}
	level := slog.LevelInfo
	if err != nil {
		level = slog.LevelError
	}
	p.logger.LogAttrs(ctx, level, "database query executed", attrs...)
}

// driverErrAttrs extracts driver-native codes for the log record.
func driverErrAttrs(err error) []slog.Attr {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return []slog.Attr{slog.Int("error_code", int(me.Number))}
	}
	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		return []slog.Attr{slog.String("sqlstate", pe.Code)}
	}
	return nil
}

// logConnection logs connection lifecycle events (acquire, release, probe).
func (p *Pool) logConnection(ctx context.Context, event string, duration time.Duration, err error) {
	if p == nil || !p.loggingEnabled || p.logger == nil {
		return
	}
	attrs := []slog.Attr{
		slog.String("event", event),
		slog.String("engine", p.engine.String()),
		slog.Float64("duration_ms", float64(duration.Nanoseconds())/1e6),
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("status", "error"),
			slog.String("error", err.Error()),
			slog.String("error_class", Classify(err).String()),
		)
		p.logger.LogAttrs(ctx, slog.LevelError, "database connection event", attrs...)
		return
	}
	attrs = append(attrs, slog.String("status", "success"))
	p.logger.LogAttrs(ctx, slog.LevelDebug, "database connection event", attrs...)
}

// logTransaction logs transaction outcomes.
func (p *Pool) logTransaction(ctx context.Context, event string, duration time.Duration, err error) {
	if p == nil || !p.loggingEnabled || p.logger == nil {
		return
	}
	attrs := []slog.Attr{
		slog.String("event", event),
		slog.String("engine", p.engine.String()),
		slog.Float64("duration_ms", float64(duration.Nanoseconds())/1e6),
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("status", "error"),
			slog.String("error", err.Error()),
		)
		p.logger.LogAttrs(ctx, slog.LevelError, "database transaction event", attrs...)
		return
	}
	attrs = append(attrs, slog.String("status", "success"))
	p.logger.LogAttrs(ctx, slog.LevelInfo, "database transaction event", attrs...)
}

// logBulkSummary logs one bulk run: how many rows landed out of how many,
// across how many batches, and the elapsed wall clock.
func (p *Pool) logBulkSummary(ctx context.Context, table string, totalRows, batches int, committed int64, elapsed time.Duration) {
	if p == nil || !p.loggingEnabled || p.logger == nil {
		return
	}
	p.logger.LogAttrs(ctx, slog.LevelInfo, "bulk insert finished",
		slog.String("table", table),
		slog.String("engine", p.engine.String()),
		slog.Int("rows", totalRows),
		slog.Int("batches", batches),
		slog.Int64("rows_committed", committed),
		slog.Float64("elapsed_ms", float64(elapsed.Nanoseconds())/1e6),
	)
}

// logExecListSummary logs the "executed N of M statements" record.
func (p *Pool) logExecListSummary(ctx context.Context, succeeded, total int, elapsed time.Duration) {
	if p == nil || !p.loggingEnabled || p.logger == nil {
		return
	}
	p.logger.LogAttrs(ctx, slog.LevelInfo, "statement list executed",
		slog.String("engine", p.engine.String()),
		slog.Int("succeeded", succeeded),
		slog.Int("total", total),
		slog.Float64("elapsed_ms", float64(elapsed.Nanoseconds())/1e6),
	)
}

// PoolStats represents connection pool statistics.
type PoolStats struct {
	ActiveConnections int
	IdleConnections   int
	TotalConnections  int
	MaxOpen           int
	WaitCount         int64
}

// GetPoolStats returns current pool statistics.
func (p *Pool) GetPoolStats() PoolStats {
	if p == nil || p.db == nil {
		return PoolStats{}
	}
	stats := p.db.Stats()
	return PoolStats{
		ActiveConnections: stats.InUse,
		IdleConnections:   stats.Idle,
		TotalConnections:  stats.OpenConnections,
		MaxOpen:           stats.MaxOpenConnections,
		WaitCount:         stats.WaitCount,
	}
}

// logConnectionPool logs connection pool statistics.
func (p *Pool) logConnectionPool(ctx context.Context, stats PoolStats) {
	if p == nil || !p.loggingEnabled || p.logger == nil {
		return
	}
	p.logger.LogAttrs(ctx, slog.LevelDebug, "connection pool stats",
		slog.Int("active_connections", stats.ActiveConnections),
		slog.Int("idle_connections", stats.IdleConnections),
		slog.Int("total_connections", stats.TotalConnections),
		slog.Int("max_open", stats.MaxOpen),
		slog.Int64("wait_count", stats.WaitCount),
	)
}

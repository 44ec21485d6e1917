package ygggo_db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/XSAM/otelsql"
	mysql "github.com/go-sql-driver/mysql"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
)

// Pool wraps one *sql.DB for a configured engine and carries the pool-scoped
// logger, retry policy and instrumentation state. A Pool is safe for
// concurrent use; the handles it lends out are not.
type Pool struct {
	db     *sql.DB
	cfg    Config
	engine Engine
	dsn    string

	retry RetryPolicy

	logger             *slog.Logger
	loggingEnabled     bool
	slowQueryThreshold time.Duration

	telemetryEnabled bool
	tracerProvider   trace.TracerProvider

	metricsEnabled bool
	metrics        *Metrics
	meterProvider  metric.MeterProvider

	stmtCacheSize int

	borrowed            int64
	borrowWarnThreshold time.Duration
	leakHandler         func(BorrowLeak)

	closed atomic.Bool
}

// NewPool opens a pool for cfg. When cfg.CreateDatabase is set the target
// database is bootstrapped first through the engine's admin database, with
// only the "already exists" error kind suppressed. The pool is pinged before
// it is returned; open and ping failures surface as *ConnectError.
func NewPool(ctx context.Context, cfg Config) (*Pool, error) {
	if err := cfg.normalize(); err != nil {
		return nil, err
	}

	p := &Pool{
		cfg:                cfg,
		engine:             cfg.Engine,
		retry:              cfg.Retry,
		slowQueryThreshold: cfg.Log.SlowQueryThreshold,
		stmtCacheSize:      cfg.StmtCacheSize,
	}
	if cfg.Log.Enabled {
		p.loggingEnabled = true
		p.logger = slog.New(slog.NewJSONHandler(logSink, &slog.HandlerOptions{Level: cfg.Log.Level}))
	}
	if cfg.Telemetry.Enabled {
		p.telemetryEnabled = true
	}

	if cfg.CreateDatabase && cfg.Database != "" && cfg.Engine != EngineSQLite {
		if err := p.ensureDatabase(ctx, cfg); err != nil {
			return nil, err
		}
	}

	dsn, err := dsnFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	p.dsn = dsn

	db, err := openDB(cfg, dsn)
	if err != nil {
		return nil, &ConnectError{Engine: cfg.Engine, Addr: cfg.addr(), Err: err}
	}
	applyPoolConfig(db, cfg.Pool)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, &ConnectError{Engine: cfg.Engine, Addr: cfg.addr(), Err: err}
	}

	p.db = db
	return p, nil
}

// openDB opens the *sql.DB, through otelsql when driver-level tracing is
// requested so every driver call carries a span.
func openDB(cfg Config, dsn string) (*sql.DB, error) {
	if cfg.Telemetry.DriverTraces {
		return otelsql.Open(cfg.Driver, dsn,
			otelsql.WithAttributes(attribute.String("db.system", dbSystem(cfg.Engine))),
		)
	}
	return sql.Open(cfg.Driver, dsn)
}

func applyPoolConfig(db *sql.DB, pc PoolConfig) {
	if pc.MaxOpen > 0 {
		db.SetMaxOpenConns(pc.MaxOpen)
	}
	if pc.MaxIdle > 0 {
		db.SetMaxIdleConns(pc.MaxIdle)
	}
	if pc.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(pc.ConnMaxLifetime)
	}
	if pc.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(pc.ConnMaxIdleTime)
	}
}

// ensureDatabase connects to the engine's admin database and creates the
// target. A duplicate-database failure is matched by error kind, logged and
// ignored; anything else aborts pool construction.
func (p *Pool) ensureDatabase(ctx context.Context, cfg Config) error {
	dsn, err := adminDSN(cfg)
	if err != nil {
		return fmt.Errorf("derive admin dsn: %w", err)
	}
	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return &ConnectError{Engine: cfg.Engine, Addr: cfg.addr(), Err: err}
	}
	defer db.Close()

	stmt := "CREATE DATABASE " + cfg.Engine.QuoteIdent(cfg.Database)
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		if IsDatabaseExists(err) {
			p.GetLogger().LogAttrs(ctx, slog.LevelDebug, "database already exists",
				slog.String("database", cfg.Database),
				slog.String("engine", cfg.Engine.String()),
			)
			return nil
		}
		return fmt.Errorf("create database %s: %w", cfg.Database, err)
	}
	p.GetLogger().LogAttrs(ctx, slog.LevelInfo, "database created",
		slog.String("database", cfg.Database),
		slog.String("engine", cfg.Engine.String()),
	)
	return nil
}

// adminDSN derives a DSN pointing at the engine's admin database. Field
// configs rebuild cleanly; explicit DSNs are rewritten in place.
func adminDSN(cfg Config) (string, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		admin := cfg
		admin.DSN = ""
		admin.Database = cfg.Engine.adminDatabase()
		return dsnFromConfig(admin)
	}
	switch cfg.Engine {
	case EngineMySQL:
		mc, err := mysql.ParseDSN(cfg.DSN)
		if err != nil {
			return "", err
		}
		mc.DBName = ""
		return mc.FormatDSN(), nil
	case EnginePostgres:
		return rewritePostgresDatabase(cfg.DSN, cfg.Engine.adminDatabase())
	}
	return cfg.DSN, nil
}

// rewritePostgresDatabase points an existing postgres DSN (URL or
// keyword/value form) at another database.
func rewritePostgresDatabase(dsn, database string) (string, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", err
		}
		u.Path = "/" + database
		return u.String(), nil
	}
	fields := strings.Fields(dsn)
	replaced := false
	for i, f := range fields {
		if strings.HasPrefix(f, "dbname=") {
			fields[i] = "dbname=" + database
			replaced = true
		}
	}
	if !replaced {
		fields = append(fields, "dbname="+database)
	}
	return strings.Join(fields, " "), nil
}

// Ping verifies the pool can reach the server.
func (p *Pool) Ping(ctx context.Context) error {
	if p == nil || p.db == nil {
		return errors.New("ygggo_db: nil pool")
	}
	start := time.Now()
	err := p.db.PingContext(ctx)
	p.logConnection(ctx, "ping", time.Since(start), err)
	return err
}

// Close shuts the pool down. It is idempotent.
func (p *Pool) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	if p.closed.Swap(true) {
		return nil
	}
	return p.db.Close()
}

// Engine returns the engine family the pool speaks.
func (p *Pool) Engine() Engine {
	if p == nil {
		return EngineMySQL
	}
	return p.engine
}

// Config returns a copy of the pool's configuration.
func (p *Pool) Config() Config {
	if p == nil {
		return Config{}
	}
	return p.cfg
}

// Stats exposes the underlying sql.DBStats.
func (p *Pool) Stats() sql.DBStats {
	if p == nil || p.db == nil {
		return sql.DBStats{}
	}
	return p.db.Stats()
}

// BorrowLeak carries info about a connection held past the warn threshold.
type BorrowLeak struct {
	ConnID  string
	HeldFor time.Duration
}

// SetBorrowWarnThreshold sets how long a handle may stay checked out before
// its return is reported as a leak. Zero disables the check.
func (p *Pool) SetBorrowWarnThreshold(d time.Duration) {
	if p == nil {
		return
	}
	p.borrowWarnThreshold = d
}

// SetLeakHandler installs a callback invoked alongside the leak warning.
func (p *Pool) SetLeakHandler(fn func(BorrowLeak)) {
	if p == nil {
		return
	}
	p.leakHandler = fn
}

// Borrowed returns how many handles are currently checked out.
func (p *Pool) Borrowed() int {
	if p == nil {
		return 0
	}
	return int(atomic.LoadInt64(&p.borrowed))
}

func (p *Pool) onBorrow(ctx context.Context) {
	atomic.AddInt64(&p.borrowed, 1)
	p.recordConnectionAcquired(ctx)
}

func (p *Pool) onReturn(ctx context.Context, connID string, held time.Duration) {
	atomic.AddInt64(&p.borrowed, -1)
	p.recordConnectionReleased(ctx, held)
	if p.borrowWarnThreshold > 0 && held > p.borrowWarnThreshold {
		if p.leakHandler != nil {
			p.leakHandler(BorrowLeak{ConnID: connID, HeldFor: held})
		}
		p.GetLogger().LogAttrs(ctx, slog.LevelWarn, "connection held past borrow threshold",
			slog.String("conn_id", connID),
			slog.Float64("held_ms", float64(held.Nanoseconds())/1e6),
		)
	}
	p.logConnection(ctx, "release", held, nil)
}

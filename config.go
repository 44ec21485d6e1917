package ygggo_db

import (
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"
)

// PoolConfig holds pool sizing knobs, applied straight onto the *sql.DB.
type PoolConfig struct {
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Enabled            bool
	Level              slog.Level
	SlowQueryThreshold time.Duration
}

// TelemetryConfig holds tracing configuration. DriverTraces opens the
// underlying *sql.DB through otelsql so every driver call is spanned.
type TelemetryConfig struct {
	Enabled        bool
	DriverTraces   bool
	ServiceName    string
	ServiceVersion string
}

// Config describes one pool. Engine picks the dialect; Driver optionally
// overrides the registered database/sql driver (sqlmock and fake drivers in
// tests). When DSN is empty it is built from the connection fields.
type Config struct {
	Engine   Engine
	Driver   string
	DSN      string
	Host     string
	Port     int
	Username string
	Password string
	Database string
	Params   map[string]string

	// CreateDatabase bootstraps the target database before the pool opens,
	// ignoring only the "already exists" error kind.
	CreateDatabase bool

	Pool          PoolConfig
	Retry         RetryPolicy
	Log           LogConfig
	Telemetry     TelemetryConfig
	StmtCacheSize int
}

// normalize resolves the engine, defaults the port and fills the MySQL
// charset/parseTime params the connection contract expects.
func (c *Config) normalize() error {
	e, err := ParseEngine(string(c.Engine))
	if err != nil {
		return err
	}
	c.Engine = e
	if c.Driver == "" {
		c.Driver = e.driverName()
	}
	if c.Port == 0 {
		c.Port = e.defaultPort()
	}
	if e == EngineMySQL && c.DSN == "" {
		if c.Params == nil {
			c.Params = map[string]string{}
		}
		if _, ok := c.Params["charset"]; !ok {
			c.Params["charset"] = "utf8mb4"
		}
		if _, ok := c.Params["parseTime"]; !ok {
			c.Params["parseTime"] = "true"
		}
	}
	return nil
}

// addr renders host:port (or the database path) for error messages and
// logs. Credentials never appear here.
func (c Config) addr() string {
	if c.Engine == EngineSQLite {
		return c.Database
	}
	if c.Port > 0 {
		return fmt.Sprintf("%s:%d", c.Host, c.Port)
	}
	return c.Host
}

// dsnFromConfig returns the DSN for the configured engine. A non-empty
// Config.DSN wins unchanged. Params are emitted in sorted order so the
// result is deterministic.
func dsnFromConfig(c Config) (string, error) {
	if strings.TrimSpace(c.DSN) != "" {
		return c.DSN, nil
	}
	switch c.Engine {
	case EnginePostgres:
		return postgresDSN(c), nil
	case EngineSQLite:
		if c.Database == "" {
			return ":memory:", nil
		}
		return c.Database, nil
	default:
		return mysqlDSN(c), nil
	}
}

// mysqlDSN builds user:pass@tcp(host:port)/db?k=v. The password is kept raw;
// the mysql driver parses it without URL decoding.
func mysqlDSN(c Config) string {
	addr := c.Host
	if c.Port > 0 {
		addr = fmt.Sprintf("%s:%d", c.Host, c.Port)
	}
	auth := ""
	if c.Username != "" {
		if c.Password != "" {
			auth = c.Username + ":" + c.Password + "@"
		} else {
			auth = c.Username + "@"
		}
	}
	dsn := fmt.Sprintf("%stcp(%s)/%s", auth, addr, url.PathEscape(c.Database))
	if q := sortedParams(c.Params, "&", url.QueryEscape); q != "" {
		dsn += "?" + q
	}
	return dsn
}

// postgresDSN builds the keyword/value form pgx accepts:
// host=... port=... user=... password=... dbname=... sslmode=disable.
func postgresDSN(c Config) string {
	kv := make([]string, 0, 8)
	add := func(k, v string) {
		if v != "" {
			kv = append(kv, k+"="+pgQuoteParam(v))
		}
	}
	add("host", c.Host)
	if c.Port > 0 {
		add("port", fmt.Sprintf("%d", c.Port))
	}
	add("user", c.Username)
	add("password", c.Password)
	add("dbname", c.Database)
	if _, ok := c.Params["sslmode"]; !ok {
		add("sslmode", "disable")
	}
	if len(c.Params) > 0 {
		keys := make([]string, 0, len(c.Params))
		for k := range c.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			add(k, c.Params[k])
		}
	}
	return strings.Join(kv, " ")
}

// pgQuoteParam single-quotes a keyword/value entry when it contains spaces
// or quotes, per the libpq connection string rules.
func pgQuoteParam(v string) string {
	if !strings.ContainsAny(v, " '\\") {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// sortedParams joins a param map as k=v pairs in key order.
func sortedParams(params map[string]string, sep string, esc func(string) string) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+esc(params[k]))
	}
	return strings.Join(parts, sep)
}

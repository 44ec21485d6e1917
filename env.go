package ygggo_db

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const envPrefix = "YGGGO_DB_"

// NewPoolEnv builds a pool from YGGGO_DB_* environment variables alone.
// When a database name is configured, bootstrap is on by default; set
// YGGGO_DB_CREATE_DATABASE=false to opt out.
func NewPoolEnv(ctx context.Context) (*Pool, error) {
	cfg := Config{CreateDatabase: true}
	applyEnv(&cfg)
	return NewPool(ctx, cfg)
}

// applyEnv layers YGGGO_DB_* overrides onto cfg. Unset variables leave the
// corresponding field untouched.
func applyEnv(cfg *Config) {
	if v := getenv("ENGINE"); v != "" {
		cfg.Engine = Engine(v)
	}
	if v := getenv("DRIVER"); v != "" {
		cfg.Driver = v
	}
	if v := getenv("DSN"); v != "" {
		cfg.DSN = v
	}
	if v := getenv("HOST"); v != "" {
		cfg.Host = v
	}
	if v := getenv("PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Port = n
		}
	}
	if v := getenv("USERNAME"); v != "" {
		cfg.Username = v
	}
	if v := getenv("PASSWORD"); v != "" {
		cfg.Password = v
	}
	if v := getenv("DATABASE"); v != "" {
		cfg.Database = v
	}
	if v := getenv("PARAMS"); v != "" {
		if cfg.Params == nil {
			cfg.Params = map[string]string{}
		}
		for _, pair := range strings.FieldsFunc(v, func(r rune) bool { return r == '&' || r == ',' }) {
			if k, val, ok := strings.Cut(pair, "="); ok && k != "" {
				cfg.Params[k] = val
			}
		}
	}
	if v := getenv("CREATE_DATABASE"); v != "" {
		cfg.CreateDatabase = parseEnvBool(v)
	}
	if v := getenv("POOL_MAX_OPEN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Pool.MaxOpen = n
		}
	}
	if v := getenv("POOL_MAX_IDLE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Pool.MaxIdle = n
		}
	}
	if v := getenv("POOL_CONN_MAX_LIFETIME"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Pool.ConnMaxLifetime = d
		}
	}
	if v := getenv("POOL_CONN_MAX_IDLE_TIME"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Pool.ConnMaxIdleTime = d
		}
	}
	if v := getenv("LOG_ENABLED"); v != "" {
		cfg.Log.Enabled = parseEnvBool(v)
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = parseEnvLevel(v)
	}
	if v := getenv("SLOW_QUERY_THRESHOLD"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Log.SlowQueryThreshold = d
		}
	}
	if v := getenv("STMT_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.StmtCacheSize = n
		}
	}
}

func getenv(key string) string { return os.Getenv(envPrefix + key) }

func parseEnvBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func parseEnvLevel(v string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

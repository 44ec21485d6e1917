package ygggo_db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mysql"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// DockerTestHelper manages a throwaway database container plus a pool
// connected to it.
type DockerTestHelper struct {
	container testcontainers.Container
	pool      *Pool
	config    Config
}

// DockerTestConfig holds container settings for integration tests.
type DockerTestConfig struct {
	Engine       Engine
	Image        string // e.g. "mysql:8.0" or "postgres:16-alpine"
	Database     string
	Username     string
	Password     string
	RootPassword string // mysql only
	StartTimeout time.Duration
}

// DefaultDockerTestConfig returns container settings for the given engine
// with a unique database name, so parallel test runs never collide.
func DefaultDockerTestConfig(e Engine) DockerTestConfig {
	cfg := DockerTestConfig{
		Engine:       e,
		Database:     "testdb_" + uuid.NewString()[:8],
		Username:     "testuser",
		Password:     "testpass",
		RootPassword: "rootpass",
		StartTimeout: 60 * time.Second,
	}
	switch e {
	case EnginePostgres:
		cfg.Image = "postgres:16-alpine"
	default:
		cfg.Image = "mysql:8.0"
	}
	return cfg
}

// NewDockerTestHelper starts a MySQL container and connects a pool to it.
func NewDockerTestHelper(ctx context.Context) (*DockerTestHelper, error) {
	return NewDockerTestHelperWithConfig(ctx, DefaultDockerTestConfig(EngineMySQL))
}

// NewPostgresTestHelper starts a Postgres container and connects a pool to
// it.
func NewPostgresTestHelper(ctx context.Context) (*DockerTestHelper, error) {
	return NewDockerTestHelperWithConfig(ctx, DefaultDockerTestConfig(EnginePostgres))
}

// NewDockerTestHelperWithConfig starts a container per config, waits for the
// server log line that marks readiness, then opens and pings a pool.
func NewDockerTestHelperWithConfig(ctx context.Context, config DockerTestConfig) (*DockerTestHelper, error) {
	var (
		container testcontainers.Container
		portID    nat.Port
		err       error
	)
	switch config.Engine {
	case EnginePostgres:
		portID = "5432"
		container, err = postgres.Run(ctx,
			config.Image,
			postgres.WithDatabase(config.Database),
			postgres.WithUsername(config.Username),
			postgres.WithPassword(config.Password),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(config.StartTimeout),
			),
		)
	default:
		portID = "3306"
		container, err = mysql.Run(ctx,
			config.Image,
			mysql.WithDatabase(config.Database),
			mysql.WithUsername(config.Username),
			mysql.WithPassword(config.Password),
			testcontainers.WithEnv(map[string]string{
				"MYSQL_ROOT_PASSWORD": config.RootPassword,
			}),
			testcontainers.WithWaitStrategy(
				wait.ForLog("port: 3306  MySQL Community Server").
					WithOccurrence(1).
					WithStartupTimeout(config.StartTimeout),
			),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("start %s container: %w", config.Engine, err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("container host: %w", err)
	}
	port, err := container.MappedPort(ctx, portID)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("container port: %w", err)
	}

	poolConfig := Config{
		Engine:   config.Engine,
		Host:     host,
		Port:     port.Int(),
		Database: config.Database,
		Username: config.Username,
		Password: config.Password,
	}
	pool, err := NewPool(ctx, poolConfig)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("connect pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		_ = pool.Close()
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DockerTestHelper{
		container: container,
		pool:      pool,
		config:    poolConfig,
	}, nil
}

// Pool returns the connected pool.
func (h *DockerTestHelper) Pool() *Pool {
	return h.pool
}

// Config returns the pool configuration used to connect.
func (h *DockerTestHelper) Config() Config {
	return h.config
}

// DSN returns the connection string the pool was opened with.
func (h *DockerTestHelper) DSN() string {
	if h.pool == nil {
		return ""
	}
	return h.pool.dsn
}

// DB returns the underlying sql.DB instance.
func (h *DockerTestHelper) DB() *sql.DB {
	if h.pool == nil {
		return nil
	}
	return h.pool.db
}

// Container returns the underlying testcontainer.
func (h *DockerTestHelper) Container() testcontainers.Container {
	return h.container
}

// Close closes the pool and terminates the container.
func (h *DockerTestHelper) Close() error {
	var err error
	if h.pool != nil {
		if poolErr := h.pool.Close(); poolErr != nil {
			err = fmt.Errorf("close pool: %w", poolErr)
		}
	}
	if h.container != nil {
		if containerErr := h.container.Terminate(context.Background()); containerErr != nil {
			if err != nil {
				err = fmt.Errorf("%w; terminate container: %w", err, containerErr)
			} else {
				err = fmt.Errorf("terminate container: %w", containerErr)
			}
		}
	}
	return err
}

// Reset drops every base table in the test database.
func (h *DockerTestHelper) Reset(ctx context.Context) error {
	if h.pool == nil {
		return fmt.Errorf("pool is not initialized")
	}
	tables, err := h.pool.ListTables(ctx)
	if err != nil {
		return fmt.Errorf("list tables: %w", err)
	}
	return h.pool.WithConn(ctx, func(conn *Conn) error {
		e := h.pool.Engine()
		if e == EngineMySQL {
			if _, err := conn.Exec(ctx, "SET FOREIGN_KEY_CHECKS = 0"); err != nil {
				return err
			}
		}
		for _, table := range tables {
			drop := "DROP TABLE IF EXISTS " + e.QuoteIdent(table)
			if e == EnginePostgres {
				drop += " CASCADE"
			}
			if _, err := conn.Exec(ctx, drop); err != nil {
				return fmt.Errorf("drop table %s: %w", table, err)
			}
		}
		if e == EngineMySQL {
			if _, err := conn.Exec(ctx, "SET FOREIGN_KEY_CHECKS = 1"); err != nil {
				return err
			}
		}
		return nil
	})
}

// CreateTable runs the given DDL.
func (h *DockerTestHelper) CreateTable(ctx context.Context, ddl string) error {
	return h.ExecSQL(ctx, ddl)
}

// ExecSQL executes one statement.
func (h *DockerTestHelper) ExecSQL(ctx context.Context, query string, args ...any) error {
	if h.pool == nil {
		return fmt.Errorf("pool is not initialized")
	}
	return h.pool.WithConn(ctx, func(conn *Conn) error {
		_, err := conn.Exec(ctx, query, args...)
		return err
	})
}

// QuerySQL runs a query and returns the fully materialized rows.
func (h *DockerTestHelper) QuerySQL(ctx context.Context, query string, args ...any) ([][]any, error) {
	if h.pool == nil {
		return nil, fmt.Errorf("pool is not initialized")
	}
	var out [][]any
	err := h.pool.WithConn(ctx, func(conn *Conn) error {
		return conn.QueryStream(ctx, query, func(row []any) error {
			cp := make([]any, len(row))
			copy(cp, row)
			out = append(out, cp)
			return nil
		}, args...)
	})
	return out, err
}

// WaitForReady blocks until the database answers pings or the timeout
// passes.
func (h *DockerTestHelper) WaitForReady(ctx context.Context, timeout time.Duration) error {
	if h.pool == nil {
		return fmt.Errorf("pool is not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return h.pool.PingWithRetry(ctx)
}

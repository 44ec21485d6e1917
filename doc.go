// Package ygggo_db provides a uniform, production-ready access layer over
// MySQL-family and PostgreSQL-family databases for Go.
//
// # Overview
//
// ygggo_db wraps Go's standard database/sql package with the features data
// loaders and services keep rebuilding: pooled connection handles, bulk
// writes that move hundreds of thousands of rows, multi-statement execution
// with both lenient and atomic failure policies, and schema introspection,
// all behind one API that speaks both placeholder dialects.
//
// # Key Features
//
// ## Connection Management
//   - Pooling over database/sql with configurable limits and lifetimes
//   - Scoped handles: WithConn acquires, runs your function and releases
//     on every exit path
//   - Optional database bootstrap on startup (create-if-missing)
//   - Borrow tracking with leak warnings
//
// ## Bulk Writes
//   - Parameterized multi-row INSERT in one round trip
//   - Strict one-transaction batches and lenient chunked loads
//   - Literal-rendered batches of 10,000 rows for legacy upsert pipelines
//   - Upsert clauses in each engine's dialect
//
// ## Statement Lists
//   - ExecList: per-statement transactions, failures log and the run
//     continues
//   - ExecListAtomic: one transaction, first failure rolls everything back
//
// ## Observability
//   - Structured logging via log/slog with slow-query detection
//   - OpenTelemetry spans and metrics, optional down to the driver level
//   - Error classification across both engines' error code spaces
//
// # Quick Start
//
//	package main
//
//	import (
//		"context"
//		"log"
//
//		ggdb "github.com/yggai/ygggo_db"
//	)
//
//	func main() {
//		ctx := context.Background()
//		pool, err := ggdb.NewPool(ctx, ggdb.Config{
//			Engine:   ggdb.EngineMySQL,
//			Host:     "localhost",
//			Port:     3306,
//			Username: "user",
//			Password: "password",
//			Database: "mydb",
//		})
//		if err != nil {
//			log.Fatal(err)
//		}
//		defer pool.Close()
//
//		err = pool.WithConn(ctx, func(conn *ggdb.Conn) error {
//			_, err := conn.Exec(ctx, "INSERT INTO users (name, age) VALUES (?, ?)", "Alice", 30)
//			return err
//		})
//		if err != nil {
//			log.Printf("insert failed: %v", err)
//		}
//	}
//
// Raw SQL passes through verbatim: against PostgreSQL, statements use the
// native $1, $2 placeholders. The bulk and parameter-binding helpers accept
// ? on every engine and rebind it automatically.
//
// ## Bulk Loading
//
//	columns := []string{"name", "email", "age"}
//	rows := [][]any{
//		{"Alice", "alice@example.com", 30},
//		{"Bob", "bob@example.com", 25},
//	}
//
//	// One transaction, all or nothing.
//	n, err := pool.BulkInsert(ctx, "users", columns, rows)
//
//	// Chunked: each chunk is its own transaction, failed chunks are
//	// logged and skipped, the rest still load.
//	n, err = pool.BulkInsertChunks(ctx, "users", columns, rows, 10000)
//
// ## Statement Lists
//
//	stmts := []string{
//		"UPDATE accounts SET balance = 0 WHERE closed = 1",
//		"DELETE FROM sessions WHERE expires_at < NOW()",
//	}
//	succeeded, total := pool.ExecList(ctx, stmts)
//
//	// Or atomically:
//	err = pool.ExecListAtomic(ctx, stmts)
//
// # Configuration
//
// Configuration comes from the Config struct, from YGGGO_DB_* environment
// variables via NewPoolEnv, or from the fluent DSNBuilder. See Config for
// the full set of knobs: pool sizing, retry policy, logging, telemetry and
// statement caching.
//
// # Testing
//
// NewMockPool returns a sqlmock-backed pool for unit tests,
// NewSQLiteTestPool an in-memory database for behavioral tests, and
// DockerTestHelper real MySQL or PostgreSQL containers for integration
// tests.
package ygggo_db

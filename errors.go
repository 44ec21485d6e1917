package ygggo_db

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	mysql "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrorClass buckets driver errors into actionable categories. Retry logic,
// create-on-init bootstrap and logging all key off the class rather than on
// driver-specific types.
type ErrorClass int

const (
	ErrClassUnknown ErrorClass = iota
	ErrClassRetryable
	ErrClassConflict
	ErrClassReadonly
	ErrClassConstraint
	ErrClassConnection
	ErrClassDatabaseExists
	ErrClassDatabaseMissing
)

func (c ErrorClass) String() string {
	switch c {
	case ErrClassRetryable:
		return "retryable"
	case ErrClassConflict:
		return "conflict"
	case ErrClassReadonly:
		return "readonly"
	case ErrClassConstraint:
		return "constraint"
	case ErrClassConnection:
		return "connection"
	case ErrClassDatabaseExists:
		return "database_exists"
	case ErrClassDatabaseMissing:
		return "database_missing"
	default:
		return "unknown"
	}
}

// Classify maps a driver error onto an ErrorClass. It understands
// go-sql-driver/mysql error numbers, pgx SQLSTATE codes, and generic
// transport failures. Unrecognized errors classify as ErrClassUnknown.
func Classify(err error) ErrorClass {
	if err == nil {
		return ErrClassUnknown
	}

	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case 1007: // ER_DB_CREATE_EXISTS
			return ErrClassDatabaseExists
		case 1008, 1049: // ER_DB_DROP_EXISTS, ER_BAD_DB_ERROR
			return ErrClassDatabaseMissing
		case 1213, 1205: // deadlock, lock wait timeout
			return ErrClassRetryable
		case 1290: // read-only mode prevents the statement
			return ErrClassReadonly
		case 1062, 1022: // duplicate entry / duplicate key
			return ErrClassConflict
		case 1048, 1452, 1451, 3819: // NOT NULL, FK both directions, CHECK
			return ErrClassConstraint
		case 1040, 1044, 1045, 1129, 1130: // too many conns, access denied, host blocked
			return ErrClassConnection
		}
		return ErrClassUnknown
	}

	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		switch pe.Code {
		case "42P04": // duplicate_database
			return ErrClassDatabaseExists
		case "3D000": // invalid_catalog_name
			return ErrClassDatabaseMissing
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return ErrClassRetryable
		case "25006": // read_only_sql_transaction
			return ErrClassReadonly
		case "23505": // unique_violation
			return ErrClassConflict
		case "23502", "23503", "23514": // not_null, foreign_key, check
			return ErrClassConstraint
		}
		// class 08 = connection exception, class 28 = invalid authorization
		if len(pe.Code) >= 2 && (pe.Code[:2] == "08" || pe.Code[:2] == "28") {
			return ErrClassConnection
		}
		return ErrClassUnknown
	}

	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, io.EOF) {
		return ErrClassConnection
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ErrClassConnection
	}
	return ErrClassUnknown
}

// IsDatabaseExists reports whether err means the target database already
// exists. Bootstrap suppresses exactly this kind and nothing broader.
func IsDatabaseExists(err error) bool { return Classify(err) == ErrClassDatabaseExists }

// IsDatabaseMissing reports whether err means the named database is absent.
func IsDatabaseMissing(err error) bool { return Classify(err) == ErrClassDatabaseMissing }

// IsRetryable reports whether err is transient and worth retrying.
func IsRetryable(err error) bool {
	switch Classify(err) {
	case ErrClassRetryable, ErrClassReadonly:
		return true
	}
	return false
}

// IsConflict reports a duplicate-key style failure.
func IsConflict(err error) bool { return Classify(err) == ErrClassConflict }

// IsConstraintViolation reports a NOT NULL / FK / CHECK failure.
func IsConstraintViolation(err error) bool { return Classify(err) == ErrClassConstraint }

// ConnectError reports a failure to establish or validate a connection or
// pool. Addr carries host:port or the database path, never credentials.
type ConnectError struct {
	Engine Engine
	Addr   string
	Err    error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("%s: connect %s: %v", e.Engine, e.Addr, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// StatementError reports the failure of one statement inside a list
// execution, carrying its position and (truncated) text.
type StatementError struct {
	Index int
	Stmt  string
	Err   error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("statement %d %q: %v", e.Index, truncateSQL(e.Stmt), e.Err)
}

func (e *StatementError) Unwrap() error { return e.Err }

// BulkError reports a failed bulk insert batch. Rows is the size of the
// batch that rolled back.
type BulkError struct {
	Table string
	Rows  int
	Err   error
}

func (e *BulkError) Error() string {
	return fmt.Sprintf("bulk insert %s (%d rows): %v", e.Table, e.Rows, e.Err)
}

func (e *BulkError) Unwrap() error { return e.Err }

const maxLoggedSQL = 512

// truncateSQL bounds statement text embedded in errors and log records.
func truncateSQL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxLoggedSQL {
		return s
	}
	return s[:maxLoggedSQL] + "..."
}

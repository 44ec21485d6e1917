package ygggo_db

import (
	"github.com/DATA-DOG/go-sqlmock"
)

// NewMockPool returns a pool backed by go-sqlmock plus the expectation
// handle, speaking the MySQL dialect. No server is contacted; expectations
// script every interaction.
func NewMockPool() (*Pool, sqlmock.Sqlmock, error) {
	return NewMockPoolWithEngine(EngineMySQL)
}

// NewMockPoolWithEngine returns a sqlmock-backed pool for the given engine.
// Useful for asserting engine-specific SQL shapes, such as $n placeholders
// on postgres.
func NewMockPoolWithEngine(e Engine) (*Pool, sqlmock.Sqlmock, error) {
	engine, err := ParseEngine(string(e))
	if err != nil {
		return nil, nil, err
	}
	db, mock, err := sqlmock.New()
	if err != nil {
		return nil, nil, err
	}
	p := &Pool{
		db:     db,
		engine: engine,
		cfg:    Config{Engine: engine, Driver: "sqlmock"},
	}
	return p, mock, nil
}

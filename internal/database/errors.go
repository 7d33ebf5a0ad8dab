package database

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedDialect = errors.New("unsupported database dialect")
	ErrNotConnected       = errors.New("no database connection")
)

// ConfigError reports connection fields that cannot form a DSN. Nothing was
// dialed when it is returned.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid connection %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ConnectError wraps a failure to open or probe the database.
type ConnectError struct {
	Dialect Dialect
	Target  string
	Err     error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect to %s %s: %v", e.Dialect, e.Target, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

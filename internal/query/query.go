package query

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var ErrNotReadOnly = errors.New("only read-only statements are allowed")

// Table is a materialized result. A table with columns and no rows is a
// successful empty result, not a failure.
type Table struct {
	Columns  []string      `json:"columns"`
	Rows     [][]any       `json:"rows"`
	Duration time.Duration `json:"-"`
}

func (t *Table) Empty() bool {
	return t == nil || len(t.Rows) == 0
}

func (t *Table) RowCount() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Pool hands out a dedicated connection. *sql.DB satisfies it.
type Pool interface {
	Conn(ctx context.Context) (*sql.Conn, error)
}

type Executor interface {
	Execute(ctx context.Context, pool Pool, sqlText string) (*Table, error)
}

// ExecutionError carries the statement that the database rejected.
type ExecutionError struct {
	SQL string
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execute query: %v", e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

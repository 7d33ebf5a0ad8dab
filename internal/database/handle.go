package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/tmc/langchaingo/tools/sqldatabase"
)

// Handle is a live, probed connection to one database.
type Handle struct {
	dialect Dialect
	params  Params
	db      *sql.DB
	engine  sqldatabase.Engine
	// sampleRows is the number of rows shown per table in Describe.
	sampleRows int

	closeOnce sync.Once
	closeErr  error
}

func (h *Handle) Dialect() Dialect {
	return h.dialect
}

// Params returns the resolved connection fields without the password.
func (h *Handle) Params() Params {
	p := h.params
	p.Password = ""
	return p
}

func (h *Handle) DB() *sql.DB {
	return h.db
}

// Tables lists the tables currently in the database.
func (h *Handle) Tables(ctx context.Context) ([]string, error) {
	tables, err := h.engine.TableNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return tables, nil
}

// Describe renders the table definitions plus sample rows given to the
// language model. The schema is read again on every call so tables created or
// dropped since connect are reflected.
func (h *Handle) Describe(ctx context.Context) (string, error) {
	tables, err := h.Tables(ctx)
	if err != nil {
		return "", fmt.Errorf("describe schema: %w", err)
	}
	if len(tables) == 0 {
		return "", nil
	}
	schema := &sqldatabase.SQLDatabase{Engine: h.engine, SampleRowsNumber: h.sampleRows}
	info, err := schema.TableInfo(ctx, tables)
	if err != nil {
		return "", fmt.Errorf("describe schema: %w", err)
	}
	return info, nil
}

func (h *Handle) Ping(ctx context.Context) error {
	return h.db.PingContext(ctx)
}

// Close releases the pool. It is safe to call more than once.
func (h *Handle) Close() error {
	h.closeOnce.Do(func() {
		h.closeErr = h.db.Close()
	})
	return h.closeErr
}

func (h *Handle) String() string {
	if h.dialect.Embedded() {
		return fmt.Sprintf("%s %s", h.dialect, redactedDSN(h.dialect, h.params))
	}
	return fmt.Sprintf("%s %s@%s:%s/%s", h.dialect, h.params.User, h.params.Host, h.params.Port, h.params.Database)
}

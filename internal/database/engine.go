package database

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/tmc/langchaingo/tools/sqldatabase"
)

var _ sqldatabase.Engine = (*schemaEngine)(nil)

var (
	plainIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	lowerIdentifier = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
)

// schemaEngine adapts the handle's pool to langchaingo's sqldatabase so schema
// description and sample rows share the connection the user opened. The
// handle owns the pool, so Close is a no-op.
type schemaEngine struct {
	dialect Dialect
	db      *sql.DB
}

func newSchemaEngine(dialect Dialect, db *sql.DB) *schemaEngine {
	return &schemaEngine{dialect: dialect, db: db}
}

func (e *schemaEngine) Dialect() string {
	switch e.dialect {
	case PostgreSQL:
		return "postgresql"
	case SQLite:
		return "sqlite3"
	default:
		return strings.ToLower(e.dialect.String())
	}
}

func (e *schemaEngine) Query(ctx context.Context, query string, args ...any) ([]string, [][]string, error) {
	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}
	results := make([][]string, 0)
	for rows.Next() {
		values := make([]sql.NullString, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		row := make([]string, len(cols))
		for i, value := range values {
			if value.Valid {
				row[i] = value.String
			} else {
				row[i] = "NULL"
			}
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return cols, results, nil
}

// TableNames returns identifiers ready to splice into SQL; names that need it
// come back quoted.
func (e *schemaEngine) TableNames(ctx context.Context) ([]string, error) {
	var query string
	switch e.dialect {
	case MySQL:
		query = "SHOW TABLES"
	case PostgreSQL:
		query = `SELECT table_name FROM information_schema.tables WHERE table_schema = current_schema() AND table_type IN ('BASE TABLE', 'VIEW') ORDER BY table_name`
	case DuckDB:
		query = `SELECT table_name FROM information_schema.tables WHERE table_schema = current_schema() ORDER BY table_name`
	case SQLite:
		query = `SELECT name FROM sqlite_master WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%' ORDER BY name`
	default:
		return nil, sqldatabase.ErrUnknownDialect
	}

	_, result, err := e.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	names := make([]string, 0, len(result))
	for _, row := range result {
		if len(row) == 0 {
			return nil, sqldatabase.ErrInvalidResult
		}
		names = append(names, e.quoteIfNeeded(row[0]))
	}
	return names, nil
}

func (e *schemaEngine) TableInfo(ctx context.Context, table string) (string, error) {
	name := e.unquote(table)
	switch e.dialect {
	case MySQL:
		_, result, err := e.Query(ctx, "SHOW CREATE TABLE "+e.quote(name))
		if err != nil {
			return "", err
		}
		if len(result) == 0 {
			return "", sqldatabase.ErrTableNotFound
		}
		if len(result[0]) < 2 {
			return "", sqldatabase.ErrInvalidResult
		}
		return result[0][1], nil
	case SQLite:
		_, result, err := e.Query(ctx, `SELECT sql FROM sqlite_master WHERE type IN ('table', 'view') AND name = ?`, name)
		if err != nil {
			return "", err
		}
		if len(result) == 0 {
			return "", sqldatabase.ErrTableNotFound
		}
		return result[0][0], nil
	case PostgreSQL, DuckDB:
		return e.describeColumns(ctx, name)
	default:
		return "", sqldatabase.ErrUnknownDialect
	}
}

func (e *schemaEngine) Close() error {
	return nil
}

// describeColumns renders a CREATE TABLE statement from information_schema for
// dialects without a SHOW CREATE equivalent.
func (e *schemaEngine) describeColumns(ctx context.Context, table string) (string, error) {
	_, result, err := e.Query(ctx, `SELECT column_name, data_type, is_nullable FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = $1 ORDER BY ordinal_position`, table)
	if err != nil {
		return "", err
	}
	if len(result) == 0 {
		return "", sqldatabase.ErrTableNotFound
	}

	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(e.quoteIfNeeded(table))
	b.WriteString(" (\n")
	for i, row := range result {
		if len(row) < 3 {
			return "", sqldatabase.ErrInvalidResult
		}
		b.WriteString("\t")
		b.WriteString(e.quoteIfNeeded(row[0]))
		b.WriteString(" ")
		b.WriteString(row[1])
		if strings.EqualFold(row[2], "NO") {
			b.WriteString(" NOT NULL")
		}
		if i < len(result)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(")")
	return b.String(), nil
}

func (e *schemaEngine) quoteChar() string {
	if e.dialect == MySQL {
		return "`"
	}
	return `"`
}

func (e *schemaEngine) quote(name string) string {
	q := e.quoteChar()
	return q + strings.ReplaceAll(name, q, q+q) + q
}

// quoteIfNeeded leaves ordinary identifiers bare. PostgreSQL folds unquoted
// names to lower case, so mixed case needs quoting there only.
func (e *schemaEngine) quoteIfNeeded(name string) string {
	pattern := plainIdentifier
	if e.dialect == PostgreSQL {
		pattern = lowerIdentifier
	}
	if pattern.MatchString(name) {
		return name
	}
	return e.quote(name)
}

func (e *schemaEngine) unquote(name string) string {
	q := e.quoteChar()
	if len(name) >= 2 && strings.HasPrefix(name, q) && strings.HasSuffix(name, q) {
		return strings.ReplaceAll(name[1:len(name)-1], q+q, q)
	}
	return name
}

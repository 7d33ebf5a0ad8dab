package query

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/askdb/askdb/internal/config"
	"github.com/askdb/askdb/internal/observability"
)

var readOnlyPrefixes = []string{"select", "with", "show", "describe", "desc", "explain"}

// Engine runs generated SQL verbatim on a scoped connection. It never retries,
// rewrites, or rolls back.
type Engine struct {
	ReadOnly bool
	Logger   *slog.Logger
}

func NewEngine(cfg config.QueryConfig, logger *slog.Logger) *Engine {
	return &Engine{ReadOnly: cfg.ReadOnly, Logger: logger}
}

// Execute returns (nil, nil) when there is nothing to run.
func (e *Engine) Execute(ctx context.Context, pool Pool, sqlText string) (*Table, error) {
	sqlText = stripTrailingSemicolons(sqlText)
	if sqlText == "" {
		return nil, nil
	}
	if pool == nil {
		return nil, &ExecutionError{SQL: sqlText, Err: fmt.Errorf("no database connection")}
	}
	if e.ReadOnly && !IsReadOnly(sqlText) {
		return nil, &ExecutionError{SQL: sqlText, Err: ErrNotReadOnly}
	}

	table, err := e.run(ctx, pool, sqlText)
	observability.ObserveQuery(table.RowCount(), err)
	if err != nil {
		e.logger().Warn("query failed", slog.String("error", err.Error()))
		return nil, &ExecutionError{SQL: sqlText, Err: err}
	}
	e.logger().Debug("query executed",
		slog.Int("rows", table.RowCount()),
		slog.Int("columns", len(table.Columns)),
		slog.Duration("duration", table.Duration),
	)
	return table, nil
}

func (e *Engine) run(ctx context.Context, pool Pool, sqlText string) (*Table, error) {
	start := time.Now()
	conn, err := pool.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	rows, err := conn.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}

	resultRows := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		resultRows = append(resultRows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return &Table{
		Columns:  columns,
		Rows:     resultRows,
		Duration: time.Since(start),
	}, nil
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger == nil {
		return observability.NopLogger()
	}
	return e.Logger
}

// IsReadOnly reports whether a statement starts with a keyword that cannot
// modify data.
func IsReadOnly(sqlText string) bool {
	normalized := strings.ToLower(strings.TrimLeft(strings.TrimSpace(sqlText), "("))
	for _, prefix := range readOnlyPrefixes {
		if !strings.HasPrefix(normalized, prefix) {
			continue
		}
		rest := normalized[len(prefix):]
		if rest == "" || !isWordChar(rest[0]) {
			return true
		}
	}
	return false
}

func isWordChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		case float64:
			normalized[i] = finiteOrString(typed)
		case float32:
			normalized[i] = finiteOrString(float64(typed))
		default:
			normalized[i] = typed
		}
	}
	return normalized
}

// finiteOrString keeps NaN and infinities as text since JSON cannot carry them.
func finiteOrString(value float64) any {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return strconv.FormatFloat(value, 'g', -1, 64)
	}
	return value
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}

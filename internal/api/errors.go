package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/askdb/askdb/internal/database"
	"github.com/askdb/askdb/internal/nl2sql"
	"github.com/askdb/askdb/internal/query"
	"github.com/askdb/askdb/internal/session"
)

type stageError struct {
	status    int
	code      string
	retryable bool
	context   map[string]any
}

// classify maps a stage failure onto the API error taxonomy.
func classify(err error) stageError {
	var (
		cfgErr   *database.ConfigError
		connErr  *database.ConnectError
		transErr *nl2sql.TranslationError
		execErr  *query.ExecutionError
	)
	switch {
	case errors.Is(err, database.ErrUnsupportedDialect):
		return stageError{status: http.StatusBadRequest, code: "UNSUPPORTED_DIALECT"}
	case errors.As(err, &cfgErr):
		return stageError{status: http.StatusBadRequest, code: "INVALID_CONNECTION", context: map[string]any{"field": cfgErr.Field}}
	case errors.As(err, &connErr):
		return stageError{status: http.StatusBadGateway, code: "CONNECT_FAILED", retryable: true}
	case errors.Is(err, database.ErrNotConnected):
		return stageError{status: http.StatusConflict, code: "NOT_CONNECTED"}
	case errors.Is(err, session.ErrEmptyQuestion):
		return stageError{status: http.StatusBadRequest, code: "QUESTION_REQUIRED"}
	case errors.As(err, &transErr):
		return stageError{status: http.StatusBadGateway, code: "TRANSLATE_FAILED", retryable: true, context: map[string]any{"hint": transErr.Hint()}}
	case errors.As(err, &execErr):
		return stageError{status: http.StatusBadRequest, code: "QUERY_EXECUTION_FAILED", context: map[string]any{"sql": execErr.SQL}}
	case errors.Is(err, context.DeadlineExceeded):
		return stageError{status: http.StatusGatewayTimeout, code: "TIMEOUT", retryable: true}
	default:
		return stageError{status: http.StatusInternalServerError, code: "INTERNAL", retryable: true}
	}
}

func writeStageError(ctx context.Context, w http.ResponseWriter, err error) {
	classified := classify(err)
	writeError(ctx, w, classified.status, classified.code, err.Error(), classified.retryable, classified.context)
}

package api

import (
	"errors"
	"net/http"

	"github.com/askdb/askdb/internal/query"
	"github.com/askdb/askdb/internal/session"
)

type questionRequest struct {
	Question string `json:"question"`
}

type sqlRequest struct {
	SQL string `json:"sql"`
}

type tableResponse struct {
	Columns    []string `json:"columns"`
	Rows       [][]any  `json:"rows"`
	RowCount   int      `json:"row_count"`
	DurationMs int64    `json:"duration_ms"`
}

func newTableResponse(table *query.Table) *tableResponse {
	if table == nil {
		return nil
	}
	rows := table.Rows
	if rows == nil {
		rows = [][]any{}
	}
	return &tableResponse{
		Columns:    table.Columns,
		Rows:       rows,
		RowCount:   table.RowCount(),
		DurationMs: table.Duration.Milliseconds(),
	}
}

func handleTranslate(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := deps.Session.Translate(r.Context(), req.Question)
	if err != nil {
		writeStageError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sql":      result.SQL,
		"provider": result.Provider,
		"model":    result.Model,
	})
}

type queryResponse struct {
	SQL     string           `json:"sql"`
	Skipped bool             `json:"skipped"`
	Result  *tableResponse   `json:"result,omitempty"`
	Notices []session.Notice `json:"notices"`
}

// handleQuery executes SQL verbatim. Blank SQL is skipped, and an empty
// result is a success with an informational notice.
func handleQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	var req sqlRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	table, err := deps.Session.Execute(r.Context(), req.SQL)
	if err != nil {
		writeStageError(r.Context(), w, err)
		return
	}
	resp := queryResponse{SQL: req.SQL, Notices: []session.Notice{}}
	switch {
	case table == nil:
		resp.Skipped = true
		resp.Notices = append(resp.Notices, session.Notice{Level: session.LevelInfo, Message: "nothing to execute"})
	case table.Empty():
		resp.Result = newTableResponse(table)
		resp.Notices = append(resp.Notices, session.Notice{Level: session.LevelInfo, Message: "query ran but returned no rows"})
	default:
		resp.Result = newTableResponse(table)
	}
	writeJSON(w, http.StatusOK, resp)
}

type askResponse struct {
	Question  string           `json:"question"`
	SQL       string           `json:"sql,omitempty"`
	ReadOnly  bool             `json:"read_only"`
	Result    *tableResponse   `json:"result,omitempty"`
	Notices   []session.Notice `json:"notices"`
	ErrorCode string           `json:"error_code,omitempty"`
}

// handleAsk always answers 200: stage failures travel as notices plus an
// error code, mirroring the interactive front end.
func handleAsk(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	outcome := deps.Session.Ask(r.Context(), req.Question)
	resp := askResponse{
		Question: outcome.Question,
		SQL:      outcome.SQL,
		ReadOnly: outcome.SQL != "" && query.IsReadOnly(outcome.SQL),
		Result:   newTableResponse(outcome.Table),
		Notices:  outcome.Notices,
	}
	if resp.Notices == nil {
		resp.Notices = []session.Notice{}
	}
	if outcome.Err != nil {
		resp.ErrorCode = classify(outcome.Err).code
		if deps.Logger != nil && !errors.Is(outcome.Err, session.ErrEmptyQuestion) {
			deps.Logger.WarnContext(r.Context(), "ask failed", "error_code", resp.ErrorCode, "error", outcome.Err)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/askdb/askdb/internal/export"
	"github.com/askdb/askdb/internal/query"
)

type exportRequest struct {
	SQL    string `json:"sql"`
	Format string `json:"format"`
	Upload bool   `json:"upload"`
}

// handleExport re-runs the SQL and either streams the encoded result or
// uploads it and returns a presigned link.
func handleExport(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.Trim(req.SQL, "; \t\r\n") == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "SQL_REQUIRED", "sql is required", false, nil)
		return
	}
	// Exports re-run the statement, so only reads are accepted.
	if !query.IsReadOnly(req.SQL) {
		writeError(r.Context(), w, http.StatusBadRequest, "READ_ONLY_REQUIRED", "only read-only statements can be exported", false, nil)
		return
	}
	format, err := export.ParseFormat(req.Format)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_FORMAT", err.Error(), false, nil)
		return
	}
	if req.Upload && deps.Exporter == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "EXPORT_NOT_CONFIGURED", "object storage export is not configured", false, nil)
		return
	}

	table, err := deps.Session.Execute(r.Context(), req.SQL)
	if err != nil {
		writeStageError(r.Context(), w, err)
		return
	}
	if table == nil {
		writeError(r.Context(), w, http.StatusBadRequest, "SQL_REQUIRED", "nothing to execute", false, nil)
		return
	}

	if req.Upload {
		upload, err := deps.Exporter.Upload(r.Context(), table, format)
		if err != nil {
			writeError(r.Context(), w, http.StatusBadGateway, "EXPORT_FAILED", err.Error(), true, nil)
			return
		}
		writeJSON(w, http.StatusOK, upload)
		return
	}

	encoded, err := export.Encode(table, format)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "EXPORT_FAILED", err.Error(), false, nil)
		return
	}
	filename := fmt.Sprintf("askdb-%s.%s", time.Now().UTC().Format("20060102T150405Z"), format.Extension())
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(encoded.Data)))
	w.Header().Set("X-Row-Count", strconv.Itoa(encoded.Rows))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(encoded.Data)
}

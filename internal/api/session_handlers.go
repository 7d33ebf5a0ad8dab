package api

import (
	"net/http"

	"github.com/askdb/askdb/internal/database"
	"github.com/askdb/askdb/internal/session"
)

type dialectInfo struct {
	Name        string `json:"name"`
	DefaultPort string `json:"default_port,omitempty"`
	DefaultUser string `json:"default_user,omitempty"`
	Embedded    bool   `json:"embedded"`
}

func handleDialects(w http.ResponseWriter, _ *http.Request) {
	dialects := database.Supported()
	items := make([]dialectInfo, 0, len(dialects))
	for _, dialect := range dialects {
		items = append(items, dialectInfo{
			Name:        dialect.String(),
			DefaultPort: dialect.DefaultPort(),
			DefaultUser: dialect.DefaultUser(),
			Embedded:    dialect.Embedded(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"dialects": items})
}

type sessionResponse struct {
	Connected bool             `json:"connected"`
	Status    *session.Status  `json:"session,omitempty"`
	Notices   []session.Notice `json:"notices,omitempty"`
}

func handleConnect(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	var params database.Params
	if !decodeJSON(w, r, &params) {
		return
	}
	notice, err := deps.Session.Connect(r.Context(), params)
	if err != nil {
		classified := classify(err)
		extra := map[string]any{"notice": notice}
		for key, value := range classified.context {
			extra[key] = value
		}
		writeError(r.Context(), w, classified.status, classified.code, err.Error(), classified.retryable, extra)
		return
	}
	status, _ := deps.Session.Status(r.Context())
	writeJSON(w, http.StatusOK, sessionResponse{Connected: true, Status: &status, Notices: []session.Notice{notice}})
}

func handleGetSession(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	status, ok := deps.Session.Status(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, sessionResponse{Connected: false})
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Connected: true, Status: &status})
}

func handleDeleteSession(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if err := deps.Session.Disconnect(); err != nil {
		writeStageError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func handleSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	schema, err := deps.Session.Schema(r.Context())
	if err != nil {
		writeStageError(r.Context(), w, err)
		return
	}
	status, _ := deps.Session.Status(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"dialect": status.Dialect,
		"tables":  status.Tables,
		"schema":  schema,
	})
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/askdb/askdb/internal/auth"
	"github.com/askdb/askdb/internal/config"
	"github.com/askdb/askdb/internal/database"
	"github.com/askdb/askdb/internal/export"
	"github.com/askdb/askdb/internal/nl2sql"
	"github.com/askdb/askdb/internal/observability"
	"github.com/askdb/askdb/internal/query"
	"github.com/askdb/askdb/internal/session"
)

const maxRequestBodyBytes = 1 << 20

type ReadinessCheck func(ctx context.Context) error

// SessionService is the single interactive session behind the API.
// *session.Session satisfies it.
type SessionService interface {
	Connect(ctx context.Context, params database.Params) (session.Notice, error)
	Disconnect() error
	Status(ctx context.Context) (session.Status, bool)
	Ping(ctx context.Context) error
	Schema(ctx context.Context) (string, error)
	Translate(ctx context.Context, question string) (nl2sql.Result, error)
	Execute(ctx context.Context, sqlText string) (*query.Table, error)
	Ask(ctx context.Context, question string) session.Outcome
}

type ResultExporter interface {
	Upload(ctx context.Context, table *query.Table, format export.Format) (export.Upload, error)
}

type Dependencies struct {
	Logger           *slog.Logger
	Readiness        ReadinessCheck
	AuthMiddleware   func(http.Handler) http.Handler
	DependencyTimout time.Duration
	Session          SessionService
	Exporter         ResultExporter
	UI               http.Handler
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())
	mux.HandleFunc("GET /v1/dialects", handleDialects)

	protected := http.NewServeMux()
	routes := []struct {
		pattern string
		role    string
		handler func(Dependencies, http.ResponseWriter, *http.Request)
	}{
		{"POST /v1/connect", auth.RoleConnect, handleConnect},
		{"GET /v1/session", auth.RoleQuery, handleGetSession},
		{"DELETE /v1/session", auth.RoleConnect, handleDeleteSession},
		{"GET /v1/schema", auth.RoleQuery, handleSchema},
		{"POST /v1/translate", auth.RoleQuery, handleTranslate},
		{"POST /v1/query", auth.RoleQuery, handleQuery},
		{"POST /v1/ask", auth.RoleQuery, handleAsk},
		{"POST /v1/export", auth.RoleExport, handleExport},
	}
	for _, route := range routes {
		handler := route.handler
		protected.Handle(route.pattern, auth.RequireRole(route.role, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if deps.Session == nil {
				writeError(r.Context(), w, http.StatusNotImplemented, "SESSION_NOT_CONFIGURED", "session is not configured", false, nil)
				return
			}
			handler(deps, w, r)
		})))
	}

	var protectedHandler http.Handler = protected
	if cfg.Auth.Required {
		if deps.AuthMiddleware == nil {
			if deps.Logger != nil {
				deps.Logger.Error("auth required but auth middleware missing")
			}
			protectedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(r.Context(), w, http.StatusInternalServerError, "AUTH_MIDDLEWARE_MISSING", "auth middleware is required by configuration", false, nil)
			})
		} else {
			protectedHandler = deps.AuthMiddleware(protectedHandler)
		}
	}
	for _, route := range routes {
		mux.Handle(route.pattern, protectedHandler)
	}
	if deps.UI != nil {
		mux.Handle("GET /{path...}", deps.UI)
	}

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	return chain(mux, middlewares...)
}

// CheckSession pings the live handle. A disconnected session is still ready.
func CheckSession(svc SessionService) ReadinessCheck {
	return func(ctx context.Context) error {
		if svc == nil {
			return nil
		}
		if err := svc.Ping(ctx); err != nil && !errors.Is(err, database.ErrNotConnected) {
			return fmt.Errorf("database ping failed: %w", err)
		}
		return nil
	}
}

func CheckExportConfig(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		if !cfg.Export.Enabled {
			return nil
		}
		if cfg.Export.Endpoint == "" {
			return errors.New("export endpoint is not configured")
		}
		if cfg.Export.Bucket == "" {
			return errors.New("export bucket is not configured")
		}
		return nil
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

// decodeJSON rejects unknown fields and bodies over 1 MiB.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid request body", false, map[string]any{"details": err.Error()})
		return false
	}
	return true
}

// writeJSON encodes before writing the status so an unencodable payload
// becomes a 500 envelope instead of an empty body.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(map[string]any{
			"error_code": "ENCODE_FAILED",
			"message":    fmt.Sprintf("encode response: %v", err),
			"retryable":  false,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}

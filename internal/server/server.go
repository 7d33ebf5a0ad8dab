package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/askdb/askdb/internal/api"
	"github.com/askdb/askdb/internal/api/uistatic"
	"github.com/askdb/askdb/internal/auth"
	"github.com/askdb/askdb/internal/config"
	"github.com/askdb/askdb/internal/database"
	"github.com/askdb/askdb/internal/export"
	"github.com/askdb/askdb/internal/nl2sql"
	"github.com/askdb/askdb/internal/query"
	"github.com/askdb/askdb/internal/session"
	s3store "github.com/askdb/askdb/internal/storage/s3"
)

const shutdownTimeout = 10 * time.Second

// Server is the web front end plus the session it drives.
type Server struct {
	HTTP    *http.Server
	Session *session.Session
	logger  *slog.Logger
}

// New wires the session, optional export store and HTTP handler from
// configuration. It does not connect to any database.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	translator, err := nl2sql.New(cfg.AI, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize query translator: %w", err)
	}
	svc, err := session.New(database.NewBuilder(cfg.Database, logger), translator, query.NewEngine(cfg.Query, logger), logger)
	if err != nil {
		return nil, err
	}

	deps := api.Dependencies{
		Logger:  logger,
		Session: svc,
		UI:      uistatic.Handler(),
		Readiness: api.CombineReadinessChecks(
			api.CheckSession(svc),
			api.CheckExportConfig(cfg),
		),
		DependencyTimout: 2 * time.Second,
	}

	if cfg.Export.Enabled {
		store, err := s3store.New(ctx, s3store.Config{
			Endpoint:         cfg.Export.Endpoint,
			Region:           cfg.Export.Region,
			Bucket:           cfg.Export.Bucket,
			AccessKeyID:      cfg.Export.AccessKeyID,
			SecretAccessKey:  cfg.Export.SecretAccessKey,
			UseSSL:           cfg.Export.UseSSL,
			Prefix:           cfg.Export.Prefix,
			AutoCreateBucket: cfg.Export.AutoCreateBucket,
		})
		if err != nil {
			return nil, fmt.Errorf("initialize export store: %w", err)
		}
		exporter, err := export.NewExporter(store, cfg.Export.LinkExpiry, logger)
		if err != nil {
			return nil, err
		}
		deps.Exporter = exporter
	}

	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			return nil, fmt.Errorf("parse static auth keys: %w", err)
		}
		if validator.Len() == 0 {
			return nil, errors.New("auth is required but ASKDB_AUTH_STATIC_KEYS is empty")
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	return &Server{
		HTTP: &http.Server{
			Addr:         cfg.HTTP.Address,
			Handler:      api.NewHandler(cfg, deps),
			ReadTimeout:  cfg.HTTP.ReadTimeout,
			WriteTimeout: cfg.HTTP.WriteTimeout,
			IdleTimeout:  cfg.HTTP.IdleTimeout,
		},
		Session: svc,
		logger:  logger,
	}, nil
}

// Run serves until ctx is cancelled, then shuts down gracefully and closes
// the session.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.HTTP.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.HTTP.Addr, err)
	}
	return s.Serve(ctx, listener)
}

func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	defer func() { _ = s.Session.Close() }()

	serveErr := make(chan error, 1)
	go func() {
		s.logger.Info("starting askdb server", slog.String("addr", listener.Addr().String()))
		if err := s.HTTP.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("askdb server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down askdb server")
	if err := s.HTTP.Shutdown(shutdownCtx); err != nil {
		_ = s.HTTP.Close()
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

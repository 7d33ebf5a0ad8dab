package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/askdb/askdb/internal/config"
	"github.com/askdb/askdb/internal/observability"
)

const (
	defaultProbeTimeout = 5 * time.Second
	defaultSampleRows   = 3
)

// OpenFunc matches sql.Open.
type OpenFunc func(driverName, dsn string) (*sql.DB, error)

// Builder turns connection form fields into a probed Handle.
type Builder struct {
	Open            OpenFunc
	ProbeTimeout    time.Duration
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	SampleRows      int
	Logger          *slog.Logger
}

func NewBuilder(cfg config.DatabaseConfig, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Builder{
		Open:            sql.Open,
		ProbeTimeout:    cfg.ProbeTimeout,
		MaxOpenConns:    cfg.MaxOpenConns,
		ConnMaxLifetime: 30 * time.Minute,
		SampleRows:      cfg.SampleRows,
		Logger:          logger,
	}
}

// Connect validates params, opens a pool, and probes it before returning.
// Unsupported dialects and malformed fields fail before the opener is called.
// A failed probe closes the pool and returns no handle.
func (b *Builder) Connect(ctx context.Context, params Params) (*Handle, error) {
	dialect, err := ParseDialect(params.Dialect)
	if err != nil {
		observability.ObserveConnect("unsupported", err)
		return nil, err
	}
	resolved, err := resolve(dialect, params)
	if err != nil {
		observability.ObserveConnect(dialect.String(), err)
		return nil, err
	}

	handle, err := b.open(ctx, dialect, resolved)
	observability.ObserveConnect(dialect.String(), err)
	if err != nil {
		b.logger().Warn("database connect failed",
			slog.String("dialect", dialect.String()),
			slog.String("target", redactedDSN(dialect, resolved)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	b.logger().Info("database connected",
		slog.String("dialect", dialect.String()),
		slog.String("target", redactedDSN(dialect, resolved)),
	)
	return handle, nil
}

func (b *Builder) open(ctx context.Context, dialect Dialect, params Params) (*Handle, error) {
	target := redactedDSN(dialect, params)
	connectErr := func(err error) error {
		return &ConnectError{Dialect: dialect, Target: target, Err: err}
	}

	opener := b.Open
	if opener == nil {
		opener = sql.Open
	}
	db, err := opener(dialect.DriverName(), buildDSN(dialect, params))
	if err != nil {
		return nil, connectErr(fmt.Errorf("open: %w", err))
	}
	b.configurePool(dialect, db)

	probeCtx, cancel := context.WithTimeout(ctx, b.probeTimeout())
	defer cancel()
	if err := db.PingContext(probeCtx); err != nil {
		_ = db.Close()
		return nil, connectErr(fmt.Errorf("ping: %w", err))
	}

	engine := newSchemaEngine(dialect, db)
	if _, err := engine.TableNames(probeCtx); err != nil {
		_ = db.Close()
		return nil, connectErr(fmt.Errorf("load schema: %w", err))
	}

	return &Handle{
		dialect:    dialect,
		params:     params,
		db:         db,
		engine:     engine,
		sampleRows: b.sampleRows(),
	}, nil
}

func (b *Builder) configurePool(dialect Dialect, db *sql.DB) {
	if dialect == SQLite {
		// One connection keeps an in-memory database alive and serializes writers.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		return
	}
	if b.MaxOpenConns > 0 {
		db.SetMaxOpenConns(b.MaxOpenConns)
		db.SetMaxIdleConns(b.MaxOpenConns)
	}
	if b.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(b.ConnMaxLifetime)
	}
}

func (b *Builder) probeTimeout() time.Duration {
	if b.ProbeTimeout <= 0 {
		return defaultProbeTimeout
	}
	return b.ProbeTimeout
}

func (b *Builder) sampleRows() int {
	if b.SampleRows < 0 {
		return defaultSampleRows
	}
	return b.SampleRows
}

func (b *Builder) logger() *slog.Logger {
	if b.Logger == nil {
		return observability.NopLogger()
	}
	return b.Logger
}

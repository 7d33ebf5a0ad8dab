package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/askdb/askdb/internal/database"
	"github.com/askdb/askdb/internal/nl2sql"
	"github.com/askdb/askdb/internal/observability"
	"github.com/askdb/askdb/internal/query"
)

var ErrEmptyQuestion = errors.New("question is required")

// Connector opens probed handles. *database.Builder satisfies it.
type Connector interface {
	Connect(ctx context.Context, params database.Params) (*database.Handle, error)
}

// Outcome is everything one Ask produces. SQL is kept when execution fails so
// the user can inspect it.
type Outcome struct {
	Question string       `json:"question"`
	SQL      string       `json:"sql,omitempty"`
	Table    *query.Table `json:"table,omitempty"`
	Notices  []Notice     `json:"notices"`
	Err      error        `json:"-"`
}

func (o *Outcome) notify(level Level, message, hint string) {
	o.Notices = append(o.Notices, Notice{Level: level, Message: message, Hint: hint})
}

// Session owns the single live database handle and runs one action at a time.
type Session struct {
	mu         sync.Mutex
	connector  Connector
	translator nl2sql.Translator
	executor   query.Executor
	logger     *slog.Logger
	handle     *database.Handle
}

func New(connector Connector, translator nl2sql.Translator, executor query.Executor, logger *slog.Logger) (*Session, error) {
	if connector == nil {
		return nil, fmt.Errorf("connector is required")
	}
	if translator == nil {
		return nil, fmt.Errorf("translator is required")
	}
	if executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Session{
		connector:  connector,
		translator: translator,
		executor:   executor,
		logger:     logger,
	}, nil
}

// Connect replaces the current handle. The previous handle is closed whether
// or not the new connection succeeds; a failed connect leaves the session
// disconnected.
func (s *Session) Connect(ctx context.Context, params database.Params) (Notice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closeHandleLocked()
	handle, err := s.connector.Connect(ctx, params)
	if err != nil {
		return Notice{Level: LevelError, Message: fmt.Sprintf("failed to connect to the database: %v", err)}, err
	}
	s.handle = handle
	observability.SetSessionConnected(true)
	return Notice{Level: LevelSuccess, Message: msgConnected}, nil
}

func (s *Session) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeHandleLocked()
}

// Close is Disconnect for teardown paths.
func (s *Session) Close() error {
	return s.Disconnect()
}

func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle != nil
}

// Status describes the current handle, or reports false when disconnected.
// Tables are listed live; a listing failure leaves them empty.
func (s *Session) Status(ctx context.Context) (Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return Status{}, false
	}
	tables, err := s.handle.Tables(ctx)
	if err != nil {
		s.logger.Warn("list tables failed", slog.String("target", s.handle.String()), slog.String("error", err.Error()))
	}
	return Status{
		Dialect: s.handle.Dialect().String(),
		Params:  s.handle.Params(),
		Tables:  tables,
		Target:  s.handle.String(),
	}, true
}

type Status struct {
	Dialect string          `json:"dialect"`
	Params  database.Params `json:"params"`
	Tables  []string        `json:"tables"`
	Target  string          `json:"target"`
}

func (s *Session) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return database.ErrNotConnected
	}
	return s.handle.Ping(ctx)
}

// Schema returns the description handed to the language model.
func (s *Session) Schema(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return "", database.ErrNotConnected
	}
	return s.handle.Describe(ctx)
}

// Translate runs only the generation stage.
func (s *Session) Translate(ctx context.Context, question string) (nl2sql.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	question = strings.TrimSpace(question)
	if question == "" {
		return nl2sql.Result{}, ErrEmptyQuestion
	}
	if s.handle == nil {
		return nl2sql.Result{}, database.ErrNotConnected
	}
	return s.translateLocked(ctx, question)
}

// Execute runs SQL on the current handle. Blank SQL yields (nil, nil).
func (s *Session) Execute(ctx context.Context, sqlText string) (*query.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(sqlText) == "" {
		return nil, nil
	}
	if s.handle == nil {
		return nil, database.ErrNotConnected
	}
	return s.executor.Execute(ctx, s.handle.DB(), sqlText)
}

// Ask runs connect-generate-execute for one question and reports the result
// as notices. Each stage failure stops the pipeline at that stage.
func (s *Session) Ask(ctx context.Context, question string) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := Outcome{Question: strings.TrimSpace(question)}
	if out.Question == "" {
		out.Err = ErrEmptyQuestion
		out.notify(LevelWarning, msgEmptyQuestion, "")
		return out
	}
	if s.handle == nil {
		out.Err = database.ErrNotConnected
		out.notify(LevelInfo, msgNotConnected, "")
		return out
	}

	result, err := s.translateLocked(ctx, out.Question)
	if err != nil {
		out.Err = err
		hint := nl2sql.Hint
		var tErr *nl2sql.TranslationError
		if errors.As(err, &tErr) {
			hint = tErr.Hint()
		}
		out.notify(LevelError, fmt.Sprintf("%s: %v", msgTranslateFailed, err), hint)
		return out
	}
	out.SQL = result.SQL

	table, err := s.executor.Execute(ctx, s.handle.DB(), result.SQL)
	if err != nil {
		out.Err = err
		out.notify(LevelError, fmt.Sprintf("failed to execute the query: %v", err), "")
		return out
	}
	if table == nil {
		out.notify(LevelInfo, "nothing to execute", "")
		return out
	}
	out.Table = table
	if table.Empty() {
		out.notify(LevelInfo, msgEmptyResult, "")
	}
	return out
}

func (s *Session) translateLocked(ctx context.Context, question string) (nl2sql.Result, error) {
	schema, err := s.handle.Describe(ctx)
	if err != nil {
		return nl2sql.Result{}, &nl2sql.TranslationError{Provider: nl2sql.ProviderSchema, Err: err}
	}
	return s.translator.Translate(ctx, nl2sql.Request{
		Dialect:  s.handle.Dialect().String(),
		Schema:   schema,
		Question: question,
	})
}

func (s *Session) closeHandleLocked() error {
	if s.handle == nil {
		return nil
	}
	handle := s.handle
	s.handle = nil
	observability.SetSessionConnected(false)
	if err := handle.Close(); err != nil {
		s.logger.Warn("close database handle failed", slog.String("target", handle.String()), slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("database handle closed", slog.String("target", handle.String()))
	return nil
}

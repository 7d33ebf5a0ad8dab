package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/askdb/askdb/internal/config"
	"github.com/askdb/askdb/internal/database"
	"github.com/askdb/askdb/internal/nl2sql"
	"github.com/askdb/askdb/internal/observability"
	"github.com/askdb/askdb/internal/query"
	"github.com/askdb/askdb/internal/session"
)

// Options carries process wiring. Connector and Translator replace the
// configured implementations when set.
type Options struct {
	Lookup     config.LookupFunc
	Stdin      io.ReadCloser
	Stdout     io.Writer
	Stderr     io.Writer
	Connector  session.Connector
	Translator nl2sql.Translator
}

type globalFlags struct {
	dialect  string
	host     string
	port     string
	user     string
	password string
	database string
	provider string
	model    string
	aiURL    string
	readOnly bool
	format   string
	verbose  bool
}

type app struct {
	opts   Options
	flags  *globalFlags
	cfg    config.Config
	logger *slog.Logger
}

// Execute runs the askdb command tree and returns the process exit code.
func Execute(ctx context.Context, args []string, opts Options) int {
	root := NewRootCommand(opts)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, errAskFailed) {
			return 1
		}
		printNotice(root.ErrOrStderr(), session.Notice{Level: session.LevelError, Message: err.Error()})
		return 1
	}
	return 0
}

func NewRootCommand(opts Options) *cobra.Command {
	if opts.Lookup == nil {
		opts.Lookup = os.LookupEnv
	}
	a := &app{opts: opts, flags: &globalFlags{}}

	root := &cobra.Command{
		Use:           "askdb",
		Short:         "Ask questions of a SQL database in natural language",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd.Flags())
		},
	}
	if opts.Stdin != nil {
		root.SetIn(opts.Stdin)
	}
	if opts.Stdout != nil {
		root.SetOut(opts.Stdout)
	}
	if opts.Stderr != nil {
		root.SetErr(opts.Stderr)
	}

	fs := root.PersistentFlags()
	fs.StringVar(&a.flags.dialect, "dialect", "", "database dialect: MySQL, PostgreSQL, DuckDB or SQLite (env ASKDB_DB_DIALECT)")
	fs.StringVar(&a.flags.host, "host", "", "database host (env ASKDB_DB_HOST)")
	fs.StringVar(&a.flags.port, "port", "", "database port (env ASKDB_DB_PORT)")
	fs.StringVarP(&a.flags.user, "user", "u", "", "database user (env ASKDB_DB_USER)")
	fs.StringVar(&a.flags.password, "password", "", "database password (env ASKDB_DB_PASSWORD)")
	fs.StringVarP(&a.flags.database, "database", "d", "", "database name, or file path for DuckDB and SQLite (env ASKDB_DB_NAME)")
	fs.StringVar(&a.flags.provider, "provider", "", "language model provider: ollama or openai (env ASKDB_AI_PROVIDER)")
	fs.StringVar(&a.flags.model, "model", "", "language model name (env ASKDB_AI_MODEL)")
	fs.StringVar(&a.flags.aiURL, "ai-url", "", "language model server URL (env ASKDB_AI_BASE_URL)")
	fs.BoolVar(&a.flags.readOnly, "read-only", false, "reject statements that can modify data")
	fs.StringVarP(&a.flags.format, "format", "f", formatTable, "result format: table, csv or json")
	fs.BoolVarP(&a.flags.verbose, "verbose", "v", false, "log at the configured level instead of warnings only")

	root.AddCommand(
		newAskCommand(a),
		newShellCommand(a),
		newServeCommand(a),
		newDialectsCommand(a),
		newRemoteCommand(a),
	)
	return root
}

// load reads ASKDB_* configuration and lets explicitly set flags win.
func (a *app) load(fs *pflag.FlagSet) error {
	cfg, err := config.Load("askdb", a.opts.Lookup)
	if err != nil {
		return err
	}
	overrides := []struct {
		name string
		dst  *string
		val  string
	}{
		{"dialect", &cfg.Database.Dialect, a.flags.dialect},
		{"host", &cfg.Database.Host, a.flags.host},
		{"port", &cfg.Database.Port, a.flags.port},
		{"user", &cfg.Database.User, a.flags.user},
		{"password", &cfg.Database.Password, a.flags.password},
		{"database", &cfg.Database.Name, a.flags.database},
		{"provider", &cfg.AI.Provider, strings.ToLower(a.flags.provider)},
		{"model", &cfg.AI.Model, a.flags.model},
		{"ai-url", &cfg.AI.BaseURL, a.flags.aiURL},
	}
	for _, o := range overrides {
		if fs.Changed(o.name) {
			*o.dst = o.val
		}
	}
	if fs.Changed("read-only") {
		cfg.Query.ReadOnly = a.flags.readOnly
	}
	switch a.flags.format {
	case formatTable, formatCSV, formatJSON:
	default:
		return fmt.Errorf("unsupported format %q", a.flags.format)
	}
	a.cfg = cfg
	return nil
}

func (a *app) params() database.Params {
	return database.Params{
		Dialect:  a.cfg.Database.Dialect,
		Host:     a.cfg.Database.Host,
		Port:     a.cfg.Database.Port,
		User:     a.cfg.Database.User,
		Password: a.cfg.Database.Password,
		Database: a.cfg.Database.Name,
	}
}

// newLogger logs warnings and above unless --verbose is set; terminal output
// belongs to results and notices.
func (a *app) newLogger(w io.Writer) *slog.Logger {
	if a.logger == nil {
		cfg := a.cfg
		if !a.flags.verbose && cfg.Observability.LogLevel < slog.LevelWarn {
			cfg.Observability.LogLevel = slog.LevelWarn
		}
		a.logger = observability.NewLogger(cfg, w)
	}
	return a.logger
}

// newSession builds a disconnected session for the terminal commands.
func (a *app) newSession(logger *slog.Logger) (*session.Session, error) {
	connector := a.opts.Connector
	if connector == nil {
		connector = database.NewBuilder(a.cfg.Database, logger)
	}
	translator := a.opts.Translator
	if translator == nil {
		var err error
		translator, err = nl2sql.New(a.cfg.AI, logger)
		if err != nil {
			return nil, fmt.Errorf("initialize query translator: %w", err)
		}
	}
	return session.New(connector, translator, query.NewEngine(a.cfg.Query, logger), logger)
}

var errAskFailed = errors.New("question could not be answered")

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/askdb/askdb/internal/database"
	"github.com/askdb/askdb/internal/session"
)

const shellPrompt = "askdb> "

// lineReader is the part of *readline.Instance the shell loop needs.
type lineReader interface {
	Readline() (string, error)
	SaveHistory(content string) error
}

func newShellCommand(a *app) *cobra.Command {
	var noConnect bool
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Interactive session: type questions, or dot-commands such as .sql and .schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := a.newLogger(cmd.ErrOrStderr())
			svc, err := a.newSession(logger)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			rl, err := readline.NewEx(&readline.Config{
				Prompt:                 shellPrompt,
				HistoryFile:            historyPath(),
				DisableAutoSaveHistory: true,
				AutoComplete:           newShellCompleter(svc),
				InterruptPrompt:        "^C",
				EOFPrompt:              ".quit",
				Stdin:                  io.NopCloser(cmd.InOrStdin()),
				Stdout:                 cmd.OutOrStdout(),
				Stderr:                 cmd.ErrOrStderr(),
			})
			if err != nil {
				return fmt.Errorf("failed to initialize shell: %w", err)
			}
			defer func() { _ = rl.Close() }()

			sh := &shell{app: a, svc: svc, out: cmd.OutOrStdout(), errOut: cmd.ErrOrStderr()}
			_, _ = fmt.Fprintln(sh.out, "askdb shell. Type a question, .help for commands, .quit to exit")
			if !noConnect {
				sh.connect(cmd.Context(), nil)
			}
			return sh.run(cmd.Context(), rl)
		},
	}
	cmd.Flags().BoolVar(&noConnect, "no-connect", false, "start disconnected; use .connect later")
	return cmd
}

type shell struct {
	app    *app
	svc    *session.Session
	out    io.Writer
	errOut io.Writer
}

func (s *shell) run(ctx context.Context, reader lineReader) error {
	for {
		line, err := reader.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if keepInHistory(line) {
			_ = reader.SaveHistory(line)
		}
		if strings.HasPrefix(line, ".") {
			if quit := s.dotCommand(ctx, line); quit {
				return nil
			}
			continue
		}
		renderOutcome(s.out, s.errOut, s.svc.Ask(ctx, line), s.app.flags.format)
	}
}

// dotCommand handles one dot-command and reports whether the shell should exit.
func (s *shell) dotCommand(ctx context.Context, line string) bool {
	command, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(command) {
	case ".quit", ".exit":
		return true
	case ".help":
		printShellHelp(s.out)
	case ".connect":
		s.connect(ctx, strings.Fields(rest))
	case ".disconnect":
		if err := s.svc.Disconnect(); err != nil {
			s.notice(session.LevelError, err.Error())
			return false
		}
		s.notice(session.LevelInfo, "disconnected")
	case ".tables":
		status, ok := s.svc.Status(ctx)
		if !ok {
			s.notice(session.LevelInfo, "not connected; use .connect")
			return false
		}
		if len(status.Tables) == 0 {
			_, _ = fmt.Fprintln(s.out, "(no tables)")
		}
		for _, name := range status.Tables {
			_, _ = fmt.Fprintln(s.out, name)
		}
	case ".schema":
		schema, err := s.svc.Schema(ctx)
		if err != nil {
			s.notice(session.LevelError, err.Error())
			return false
		}
		if schema == "" {
			schema = "(no tables)"
		}
		_, _ = fmt.Fprintln(s.out, schema)
	case ".sql":
		table, err := s.svc.Execute(ctx, rest)
		switch {
		case err != nil:
			s.notice(session.LevelError, err.Error())
		case table == nil:
			s.notice(session.LevelInfo, "nothing to execute")
		default:
			if err := renderResult(s.out, table, s.app.flags.format); err != nil {
				s.notice(session.LevelError, err.Error())
			}
		}
	default:
		s.notice(session.LevelWarning, fmt.Sprintf("unknown command %s (type .help for commands)", command))
	}
	return false
}

// connect uses the configured parameters, overridden by key=value pairs.
func (s *shell) connect(ctx context.Context, pairs []string) {
	params := s.app.params()
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			s.notice(session.LevelWarning, fmt.Sprintf("ignoring %q: expected key=value", pair))
			continue
		}
		if !setParam(&params, strings.ToLower(key), value) {
			s.notice(session.LevelWarning, fmt.Sprintf("ignoring unknown field %q", key))
		}
	}
	notice, err := s.svc.Connect(ctx, params)
	printNotice(s.errOut, notice)
	if err == nil {
		if status, ok := s.svc.Status(ctx); ok {
			_, _ = fmt.Fprintf(s.out, "connected to %s (%d tables)\n", status.Target, len(status.Tables))
		}
	}
}

// keepInHistory drops .connect lines that carry a password.
func keepInHistory(line string) bool {
	command, rest, _ := strings.Cut(line, " ")
	if !strings.EqualFold(command, ".connect") {
		return true
	}
	for _, pair := range strings.Fields(rest) {
		key, _, _ := strings.Cut(pair, "=")
		if strings.EqualFold(key, "password") {
			return false
		}
	}
	return true
}

func setParam(params *database.Params, key, value string) bool {
	switch key {
	case "dialect":
		params.Dialect = value
	case "host":
		params.Host = value
	case "port":
		params.Port = value
	case "user":
		params.User = value
	case "password":
		params.Password = value
	case "database", "db":
		params.Database = value
	default:
		return false
	}
	return true
}

func (s *shell) notice(level session.Level, message string) {
	printNotice(s.errOut, session.Notice{Level: level, Message: message})
}

func newShellCompleter(svc *session.Session) *readline.PrefixCompleter {
	tables := func(string) []string {
		status, _ := svc.Status(context.Background())
		return status.Tables
	}
	return readline.NewPrefixCompleter(
		readline.PcItem(".help"),
		readline.PcItem(".connect",
			readline.PcItem("dialect="),
			readline.PcItem("host="),
			readline.PcItem("port="),
			readline.PcItem("user="),
			readline.PcItem("password="),
			readline.PcItem("database="),
		),
		readline.PcItem(".disconnect"),
		readline.PcItem(".tables"),
		readline.PcItem(".schema"),
		readline.PcItem(".sql", readline.PcItemDynamic(tables)),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)
}

func historyPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	dir = filepath.Join(dir, "askdb")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return ""
	}
	return filepath.Join(dir, "history")
}

func printShellHelp(w io.Writer) {
	help := `
Anything that does not start with a dot is a question for the language model.

Commands:
  .connect [key=value ...]  Connect with the configured parameters, overriding
                            dialect, host, port, user, password or database
  .disconnect               Close the current connection
  .tables                   List tables of the current database
  .schema                   Show the schema description sent to the model
  .sql <statement>          Run SQL directly
  .help                     Show this help message
  .quit / .exit             Exit the shell
`
	_, _ = fmt.Fprintln(w, help)
}

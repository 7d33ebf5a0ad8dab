package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/askdb/askdb/internal/session"
)

func newAskCommand(a *app) *cobra.Command {
	var sqlOnly bool
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Translate one question to SQL, run it and print the result",
		Example: `  askdb ask --dialect PostgreSQL -u postgres -d school "List all students"
  askdb ask --dialect SQLite -d ./school.db --sql-only "top 3 students by grade"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return session.ErrEmptyQuestion
			}
			logger := a.newLogger(cmd.ErrOrStderr())

			svc, err := a.newSession(logger)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			notice, err := svc.Connect(ctx, a.params())
			if err != nil {
				printNotice(cmd.ErrOrStderr(), notice)
				return errAskFailed
			}

			if sqlOnly {
				result, err := svc.Translate(ctx, question)
				if err != nil {
					return err
				}
				printSQL(out, result.SQL)
				return nil
			}

			outcome := svc.Ask(ctx, question)
			renderOutcome(out, cmd.ErrOrStderr(), outcome, a.flags.format)
			if outcome.Err != nil {
				return errAskFailed
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&sqlOnly, "sql-only", false, "print the generated SQL without running it")
	return cmd
}

package cli

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/askdb/askdb/internal/database"
)

func newDialectsCommand(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dialects",
		Short: "List supported database dialects and their defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Dialect", "Default port", "Default user", "Database field"})
			for _, dialect := range database.Supported() {
				field := "database name"
				if dialect.Embedded() {
					field = "file path"
				}
				t.AppendRow(table.Row{dialect.String(), dialect.DefaultPort(), dialect.DefaultUser(), field})
			}
			t.Render()
			return nil
		},
	}
}

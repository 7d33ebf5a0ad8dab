package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pterm/pterm"

	"github.com/askdb/askdb/internal/export"
	"github.com/askdb/askdb/internal/query"
	"github.com/askdb/askdb/internal/session"
)

const (
	formatTable = "table"
	formatCSV   = "csv"
	formatJSON  = "json"
)

func renderOutcome(out, errOut io.Writer, outcome session.Outcome, format string) {
	if outcome.SQL != "" {
		if format == formatTable {
			printSQL(out, outcome.SQL)
		} else {
			printSQL(errOut, outcome.SQL)
		}
	}
	if outcome.Table != nil {
		if err := renderResult(out, outcome.Table, format); err != nil {
			printNotice(errOut, session.Notice{Level: session.LevelError, Message: err.Error()})
		}
	}
	for _, notice := range outcome.Notices {
		printNotice(errOut, notice)
	}
}

func renderResult(w io.Writer, result *query.Table, format string) error {
	switch format {
	case formatCSV:
		data, err := export.EncodeCSV(result)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case formatJSON:
		return renderJSON(w, result)
	default:
		renderTable(w, result)
		return nil
	}
}

func renderTable(w io.Writer, result *query.Table) {
	if result.Empty() {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(result.Columns))
	for i, column := range result.Columns {
		header[i] = column
	}
	t.AppendHeader(header)

	for _, values := range result.Rows {
		row := make(table.Row, len(values))
		for i, value := range values {
			row[i] = displayValue(value)
		}
		t.AppendRow(row)
	}

	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", result.RowCount())
}

// renderJSON writes one object per row keyed by column name. Repeated names
// from joins get the same suffixes as file exports.
func renderJSON(w io.Writer, result *query.Table) error {
	columns := export.UniqueColumnNames(result.Columns)
	records := make([]map[string]any, 0, len(result.Rows))
	for _, values := range result.Rows {
		record := make(map[string]any, len(columns))
		for i, column := range columns {
			if i < len(values) {
				record[column] = values[i]
			}
		}
		records = append(records, record)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func displayValue(value any) string {
	text, ok := query.FormatValue(value)
	if !ok {
		return "NULL"
	}
	return text
}

func printSQL(w io.Writer, sqlText string) {
	_, _ = fmt.Fprintln(w, pterm.FgCyan.Sprint(sqlText))
}

func printNotice(w io.Writer, notice session.Notice) {
	var printer pterm.PrefixPrinter
	switch notice.Level {
	case session.LevelSuccess:
		printer = pterm.Success
	case session.LevelWarning:
		printer = pterm.Warning
	case session.LevelError:
		printer = pterm.Error
	default:
		printer = pterm.Info
	}
	_, _ = fmt.Fprint(w, printer.Sprintln(notice.Message))
	if notice.Hint != "" {
		_, _ = fmt.Fprint(w, pterm.Description.Sprintln(notice.Hint))
	}
}

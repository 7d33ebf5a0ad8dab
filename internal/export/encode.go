package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/askdb/askdb/internal/query"
)

type Format string

const (
	FormatParquet Format = "parquet"
	FormatCSV     Format = "csv"
)

func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case FormatParquet, "":
		return FormatParquet, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", raw)
	}
}

func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv"
	}
	return "application/vnd.apache.parquet"
}

func (f Format) Extension() string {
	return string(f)
}

// Encoded is a serialized result table.
type Encoded struct {
	Format Format
	Data   []byte
	Rows   int
}

func Encode(table *query.Table, format Format) (Encoded, error) {
	if table == nil {
		return Encoded{}, fmt.Errorf("result table is required")
	}
	var (
		data []byte
		err  error
	)
	switch format {
	case FormatParquet:
		data, err = EncodeParquet(table)
	case FormatCSV:
		data, err = EncodeCSV(table)
	default:
		return Encoded{}, fmt.Errorf("unsupported export format %q", format)
	}
	if err != nil {
		return Encoded{}, err
	}
	return Encoded{Format: format, Data: data, Rows: table.RowCount()}, nil
}

// EncodeParquet writes every result column as an optional string column.
// Result sets are untyped text by the time they reach the user, and NULLs
// survive as parquet nulls.
func EncodeParquet(table *query.Table) ([]byte, error) {
	if len(table.Columns) == 0 {
		return nil, fmt.Errorf("result table has no columns")
	}
	names := UniqueColumnNames(table.Columns)
	group := parquet.Group{}
	for _, name := range names {
		group[name] = parquet.Optional(parquet.String())
	}
	schema := parquet.NewSchema("result", group)

	// Group fields are ordered by name; map each result column to its leaf.
	leaf := make(map[string]int, len(names))
	for i, field := range schema.Fields() {
		leaf[field.Name()] = i
	}

	rows := make([]parquet.Row, 0, len(table.Rows))
	for _, values := range table.Rows {
		row := make(parquet.Row, len(names))
		for col, name := range names {
			idx := leaf[name]
			var value any
			if col < len(values) {
				value = values[col]
			}
			text, ok := query.FormatValue(value)
			if !ok {
				row[idx] = parquet.NullValue().Level(0, 0, idx)
				continue
			}
			row[idx] = parquet.ValueOf(text).Level(0, 1, idx)
		}
		rows = append(rows, row)
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewWriter(buf, schema)
	if _, err := writer.WriteRows(rows); err != nil {
		return nil, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeCSV writes a header row followed by the data. NULL becomes an empty
// field.
func EncodeCSV(table *query.Table) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	writer := csv.NewWriter(buf)
	if err := writer.Write(table.Columns); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	record := make([]string, len(table.Columns))
	for _, values := range table.Rows {
		for i := range record {
			record[i] = ""
			if i < len(values) {
				record[i], _ = query.FormatValue(values[i])
			}
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// UniqueColumnNames suffixes repeated or blank names, e.g. two "id" columns
// from a join become "id" and "id_2".
func UniqueColumnNames(columns []string) []string {
	seen := make(map[string]bool, len(columns))
	out := make([]string, len(columns))
	for i, column := range columns {
		base := strings.TrimSpace(column)
		if base == "" {
			base = "column_" + strconv.Itoa(i+1)
		}
		name := base
		for n := 2; seen[name]; n++ {
			name = base + "_" + strconv.Itoa(n)
		}
		seen[name] = true
		out[i] = name
	}
	return out
}

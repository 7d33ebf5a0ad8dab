package query

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	_ "modernc.org/sqlite"
)

func TestExecuteEmptySQLSkipsWithoutError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	engine := &Engine{}
	for _, sqlText := range []string{"", "   ", "\n\t", " ; ;"} {
		table, err := engine.Execute(context.Background(), db, sqlText)
		if err != nil || table != nil {
			t.Fatalf("Execute(%q) = %v, %v; want nil, nil", sqlText, table, err)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected database activity: %v", err)
	}
}

func TestExecuteStripsTrailingSemicolons(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT name FROM students").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow([]byte("Ana")))

	table, err := (&Engine{}).Execute(context.Background(), db, "SELECT name FROM students;;\n")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := table.Rows[0][0]; got != "Ana" {
		t.Fatalf("row value = %#v, want normalized string", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestExecuteKeepsNonFiniteFloatsAsText(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT").
		WillReturnRows(sqlmock.NewRows([]string{"big", "small", "missing", "plain"}).
			AddRow(math.Inf(1), math.Inf(-1), math.NaN(), 1.5))

	table, err := (&Engine{}).Execute(context.Background(), db, "SELECT big, small, missing, plain FROM readings")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	want := []any{"+Inf", "-Inf", "NaN", 1.5}
	if !reflect.DeepEqual(table.Rows[0], want) {
		t.Fatalf("row = %#v, want %#v", table.Rows[0], want)
	}
}

func TestExecuteWrapsDriverFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	driverErr := errors.New(`relation "alunos" does not exist`)
	mock.ExpectQuery("SELECT").WillReturnError(driverErr)

	table, err := (&Engine{}).Execute(context.Background(), db, "SELECT * FROM alunos")
	if table != nil {
		t.Fatal("expected no table on failure")
	}
	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("Execute() error = %v, want ExecutionError", err)
	}
	if execErr.SQL != "SELECT * FROM alunos" {
		t.Fatalf("ExecutionError.SQL = %q", execErr.SQL)
	}
	if !errors.Is(err, driverErr) {
		t.Fatalf("Execute() error does not wrap driver error: %v", err)
	}
}

func TestExecuteSQLiteEmptyResultIsNotFailure(t *testing.T) {
	db := openSchoolDB(t)

	table, err := (&Engine{}).Execute(context.Background(), db, "SELECT id, name FROM students WHERE name = 'nobody'")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if table == nil || !table.Empty() {
		t.Fatalf("table = %#v, want empty table", table)
	}
	if !reflect.DeepEqual(table.Columns, []string{"id", "name"}) {
		t.Fatalf("Columns = %v", table.Columns)
	}
}

func TestExecuteIsIdempotentForReads(t *testing.T) {
	db := openSchoolDB(t)
	engine := &Engine{}

	first, err := engine.Execute(context.Background(), db, "SELECT id, name FROM students ORDER BY id")
	if err != nil {
		t.Fatalf("first Execute() error = %v", err)
	}
	second, err := engine.Execute(context.Background(), db, "SELECT id, name FROM students ORDER BY id")
	if err != nil {
		t.Fatalf("second Execute() error = %v", err)
	}
	if !reflect.DeepEqual(first.Columns, second.Columns) || !reflect.DeepEqual(first.Rows, second.Rows) {
		t.Fatalf("results differ:\n%v\n%v", first.Rows, second.Rows)
	}
	if first.RowCount() != 3 {
		t.Fatalf("RowCount() = %d, want 3", first.RowCount())
	}
	if inUse := db.Stats().InUse; inUse != 0 {
		t.Fatalf("connections in use after execution = %d", inUse)
	}
}

func TestExecuteReleasesConnectionOnFailure(t *testing.T) {
	db := openSchoolDB(t)
	if _, err := (&Engine{}).Execute(context.Background(), db, "SELECT nope FROM missing"); err == nil {
		t.Fatal("expected execution error")
	}
	if inUse := db.Stats().InUse; inUse != 0 {
		t.Fatalf("connections in use after failure = %d", inUse)
	}
}

func TestExecuteRunsDestructiveSQLVerbatimByDefault(t *testing.T) {
	db := openSchoolDB(t)
	if _, err := (&Engine{}).Execute(context.Background(), db, "DELETE FROM students WHERE id = 1"); err != nil {
		t.Fatalf("Execute(DELETE) error = %v", err)
	}
	table, err := (&Engine{}).Execute(context.Background(), db, "SELECT COUNT(*) FROM students")
	if err != nil {
		t.Fatalf("Execute(count) error = %v", err)
	}
	if got := table.Rows[0][0]; got != int64(2) {
		t.Fatalf("count = %#v, want 2", got)
	}
}

func TestReadOnlyEngineRejectsWrites(t *testing.T) {
	db := openSchoolDB(t)
	_, err := (&Engine{ReadOnly: true}).Execute(context.Background(), db, "DROP TABLE students")
	if !errors.Is(err, ErrNotReadOnly) {
		t.Fatalf("Execute() error = %v, want ErrNotReadOnly", err)
	}
	if _, err := (&Engine{ReadOnly: true}).Execute(context.Background(), db, "WITH s AS (SELECT 1) SELECT * FROM s"); err != nil {
		t.Fatalf("Execute(WITH) error = %v", err)
	}
}

func TestIsReadOnly(t *testing.T) {
	cases := map[string]bool{
		"SELECT 1":                    true,
		"  with x as (select 1) x":    true,
		"(SELECT 1) UNION (SELECT 2)": true,
		"EXPLAIN SELECT 1":            true,
		"show tables":                 true,
		"DESC students":               true,
		"selection_log":               false,
		"UPDATE students SET x=1":     false,
		"":                            false,
	}
	for sqlText, want := range cases {
		if got := IsReadOnly(sqlText); got != want {
			t.Fatalf("IsReadOnly(%q) = %v, want %v", sqlText, got, want)
		}
	}
}

func TestTableEmptyOnNil(t *testing.T) {
	var table *Table
	if !table.Empty() || table.RowCount() != 0 {
		t.Fatal("nil table should be empty")
	}
}

func openSchoolDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("sql.Open() error = %v", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = db.Close() })

	for _, stmt := range []string{
		`CREATE TABLE students (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`,
		`INSERT INTO students (id, name) VALUES (1, 'Ana'), (2, 'Bruno'), (3, 'Carla')`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("seed %q: %v", stmt, err)
		}
	}
	return db
}

func TestFormatValue(t *testing.T) {
	if _, ok := FormatValue(nil); ok {
		t.Fatal("nil should format as NULL")
	}
	if got, _ := FormatValue(2.50); got != "2.5" {
		t.Fatalf("FormatValue(2.5) = %q", got)
	}
	if got, _ := FormatValue([]byte("ab")); got != "ab" {
		t.Fatalf("FormatValue([]byte) = %q", got)
	}
	if got, _ := FormatValue(int64(7)); got != "7" {
		t.Fatalf("FormatValue(int64) = %q", got)
	}
}

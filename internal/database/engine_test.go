package database

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/askdb/askdb/internal/config"
)

func TestQuoteIfNeeded(t *testing.T) {
	pg := newSchemaEngine(PostgreSQL, nil)
	if got := pg.quoteIfNeeded("students"); got != "students" {
		t.Fatalf("pg students = %q", got)
	}
	if got := pg.quoteIfNeeded("Students"); got != `"Students"` {
		t.Fatalf("pg Students = %q", got)
	}
	my := newSchemaEngine(MySQL, nil)
	if got := my.quoteIfNeeded("Students"); got != "Students" {
		t.Fatalf("mysql Students = %q", got)
	}
	if got := my.quoteIfNeeded("grade log"); got != "`grade log`" {
		t.Fatalf("mysql grade log = %q", got)
	}
	if got := my.unquote("`odd``name`"); got != "odd`name" {
		t.Fatalf("unquote = %q", got)
	}
}

func TestMySQLEngineUsesShowCreateTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	engine := newSchemaEngine(MySQL, db)
	mock.ExpectQuery(regexp.QuoteMeta("SHOW TABLES")).
		WillReturnRows(sqlmock.NewRows([]string{"Tables_in_school"}).AddRow("students").AddRow("grade log"))
	mock.ExpectQuery(regexp.QuoteMeta("SHOW CREATE TABLE `grade log`")).
		WillReturnRows(sqlmock.NewRows([]string{"Table", "Create Table"}).AddRow("grade log", "CREATE TABLE `grade log` (grade int)"))

	names, err := engine.TableNames(context.Background())
	if err != nil {
		t.Fatalf("TableNames() error = %v", err)
	}
	if len(names) != 2 || names[1] != "`grade log`" {
		t.Fatalf("TableNames() = %v", names)
	}
	info, err := engine.TableInfo(context.Background(), names[1])
	if err != nil {
		t.Fatalf("TableInfo() error = %v", err)
	}
	if info != "CREATE TABLE `grade log` (grade int)" {
		t.Fatalf("TableInfo() = %q", info)
	}
	if engine.Dialect() != "mysql" {
		t.Fatalf("Dialect() = %q", engine.Dialect())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func testDatabaseConfig() config.DatabaseConfig {
	return config.DatabaseConfig{ProbeTimeout: 0, MaxOpenConns: 2, SampleRows: 3}
}

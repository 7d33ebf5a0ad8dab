package database

import (
	"fmt"
	"strings"
)

type Dialect string

const (
	MySQL      Dialect = "MySQL"
	PostgreSQL Dialect = "PostgreSQL"
	DuckDB     Dialect = "DuckDB"
	SQLite     Dialect = "SQLite"
)

var dialectAliases = map[string]Dialect{
	"mysql":      MySQL,
	"postgresql": PostgreSQL,
	"postgres":   PostgreSQL,
	"pg":         PostgreSQL,
	"duckdb":     DuckDB,
	"sqlite":     SQLite,
	"sqlite3":    SQLite,
}

// ParseDialect matches a dialect tag case-insensitively.
func ParseDialect(raw string) (Dialect, error) {
	dialect, ok := dialectAliases[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDialect, raw)
	}
	return dialect, nil
}

// Supported lists dialects in the order the connection form offers them.
func Supported() []Dialect {
	return []Dialect{MySQL, PostgreSQL, DuckDB, SQLite}
}

func (d Dialect) DefaultPort() string {
	switch d {
	case MySQL:
		return "3306"
	case PostgreSQL:
		return "5432"
	default:
		return ""
	}
}

func (d Dialect) DefaultUser() string {
	switch d {
	case MySQL:
		return "root"
	case PostgreSQL:
		return "postgres"
	default:
		return ""
	}
}

func (d Dialect) DriverName() string {
	switch d {
	case MySQL:
		return "mysql"
	case PostgreSQL:
		return "pgx"
	case DuckDB:
		return "duckdb"
	case SQLite:
		return "sqlite"
	default:
		return ""
	}
}

// Embedded reports whether the dialect opens a local file instead of a server.
func (d Dialect) Embedded() bool {
	return d == DuckDB || d == SQLite
}

func (d Dialect) String() string {
	return string(d)
}

package database

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// Params are the credential fields of the connection form.
type Params struct {
	Dialect  string `json:"dialect"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password,omitempty"`
	Database string `json:"database"`
}

// LogValue keeps the password out of structured logs.
func (p Params) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("dialect", p.Dialect),
		slog.String("host", p.Host),
		slog.String("port", p.Port),
		slog.String("user", p.User),
		slog.String("database", p.Database),
	)
}

// resolve fills dialect defaults and validates the fields that end up in the DSN.
func resolve(dialect Dialect, p Params) (Params, error) {
	out := Params{
		Dialect:  dialect.String(),
		Host:     strings.TrimSpace(p.Host),
		Port:     strings.TrimSpace(p.Port),
		User:     strings.TrimSpace(p.User),
		Password: p.Password,
		Database: strings.TrimSpace(p.Database),
	}
	if dialect.Embedded() {
		out.Host, out.Port, out.User, out.Password = "", "", "", ""
		if dialect == SQLite && out.Database == "" {
			return Params{}, &ConfigError{Field: "database", Err: fmt.Errorf("sqlite file path is required")}
		}
		return out, nil
	}

	if out.Host == "" {
		out.Host = "localhost"
	}
	if out.Port == "" {
		out.Port = dialect.DefaultPort()
	}
	port, err := strconv.Atoi(out.Port)
	if err != nil {
		return Params{}, &ConfigError{Field: "port", Err: fmt.Errorf("%q is not a number", out.Port)}
	}
	if port < 1 || port > 65535 {
		return Params{}, &ConfigError{Field: "port", Err: fmt.Errorf("%d is out of range", port)}
	}
	if out.User == "" {
		out.User = dialect.DefaultUser()
	}
	return out, nil
}

func buildDSN(dialect Dialect, p Params) string {
	switch dialect {
	case PostgreSQL:
		return postgresURL(p).String()
	case MySQL:
		return mysqlConfig(p).FormatDSN()
	default:
		return p.Database
	}
}

// redactedDSN is safe to log.
func redactedDSN(dialect Dialect, p Params) string {
	switch dialect {
	case PostgreSQL:
		return postgresURL(p).Redacted()
	case MySQL:
		cfg := mysqlConfig(p)
		if cfg.Passwd != "" {
			cfg.Passwd = "xxxxx"
		}
		return cfg.FormatDSN()
	default:
		if p.Database == "" {
			return ":memory:"
		}
		return p.Database
	}
}

func postgresURL(p Params) *url.URL {
	u := &url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(p.Host, p.Port),
		Path:   "/" + p.Database,
	}
	if p.Password != "" {
		u.User = url.UserPassword(p.User, p.Password)
	} else {
		u.User = url.User(p.User)
	}
	return u
}

func mysqlConfig(p Params) *mysql.Config {
	cfg := mysql.NewConfig()
	cfg.User = p.User
	cfg.Passwd = p.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(p.Host, p.Port)
	cfg.DBName = p.Database
	cfg.ParseTime = true
	return cfg
}

package results

import (
	"regexp"
	"strings"

	"github.com/pressly/goose/v3"
)

// Dialect is the SQL database a [Repo] runs on.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// ParseDialect accepts the dialect names used in configuration.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(s) {
	case "", "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "postgres", "postgresql", "pg":
		return DialectPostgres, nil
	default:
		return "", &UnsupportedDialectError{Name: s}
	}
}

type UnsupportedDialectError struct {
	Name string
}

func (e *UnsupportedDialectError) Error() string {
	return "unsupported results database driver: " + e.Name
}

// driverName is the database/sql driver registered for the dialect.
func (d Dialect) driverName() string {
	if d == DialectPostgres {
		return "postgres"
	}
	return "sqlite"
}

// bindName is the driver name sqlx knows the dialect's placeholders by.
func (d Dialect) bindName() string {
	if d == DialectPostgres {
		return "postgres"
	}
	return "sqlite3"
}

func (d Dialect) goose() goose.Dialect {
	if d == DialectPostgres {
		return goose.DialectPostgres
	}
	return goose.DialectSQLite3
}

var pragmaRe = regexp.MustCompile(`(?mi)^\s*PRAGMA\s+[^;]*;\s*$`)

// TransformSQL adapts SQL written in SQLite dialect for the target dialect.
// For SQLite, it returns the input unchanged. For Postgres:
//   - Removes PRAGMA statements
//   - Removes the STRICT keyword from CREATE TABLE
//   - Replaces INTEGER with BIGINT (SQLite INTEGER is 64-bit; Postgres INTEGER is 32-bit)
func TransformSQL(sql string, dialect Dialect) string {
	if dialect == DialectSQLite {
		return sql
	}

	sql = pragmaRe.ReplaceAllString(sql, "")
	sql = strings.ReplaceAll(sql, ") STRICT;", ");")
	sql = strings.ReplaceAll(sql, " INTEGER", " BIGINT")

	return sql
}

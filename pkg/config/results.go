package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/e3sm/warehouse/pkg/results"
)

// ResultsConfig locates the database of past check runs. With neither a DSN
// nor a data dir, runs are not stored.
type ResultsConfig struct {
	Dir    string `mapstructure:"data_dir" yaml:"data_dir"`
	Driver string `mapstructure:"driver" yaml:"driver" validate:"omitempty,oneof=sqlite postgres"`
	DSN    string `mapstructure:"dsn" yaml:"dsn"`
}

func (r ResultsConfig) Validate() error {
	if r.Dialect() == results.DialectPostgres && r.DSN == "" {
		return fmt.Errorf("results.dsn is required for the postgres driver")
	}
	return nil
}

// Enabled reports whether runs should be stored.
func (r ResultsConfig) Enabled() bool {
	return r.DSN != "" || r.Dir != ""
}

// Dialect is the configured driver, or PostgreSQL if the DSN is a postgres
// URL, or SQLite.
func (r ResultsConfig) Dialect() results.Dialect {
	if r.Driver != "" {
		d, err := results.ParseDialect(r.Driver)
		if err == nil {
			return d
		}
	}
	if r.IsPostgres() {
		return results.DialectPostgres
	}
	return results.DialectSQLite
}

// DataSourceName is the DSN to open, defaulting to a SQLite file in Dir.
func (r ResultsConfig) DataSourceName() string {
	if r.DSN != "" {
		return r.DSN
	}
	return r.DatabasePath()
}

func (r ResultsConfig) DatabasePath() string {
	return filepath.Join(r.Dir, "results.db")
}

// IsPostgres returns true if the configured DSN points to a PostgreSQL server.
func (r ResultsConfig) IsPostgres() bool {
	return strings.HasPrefix(r.DSN, "postgres://") ||
		strings.HasPrefix(r.DSN, "postgresql://")
}

package results

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrationVersionRe extracts the numeric version prefix from a migration filename.
var migrationVersionRe = regexp.MustCompile(`^(\d+)_`)

// GooseMigrations reads the embedded .sql migration files, transforms the SQL
// for the given dialect, and returns goose Migration objects.
func GooseMigrations(dialect Dialect) ([]*goose.Migration, error) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("reading embedded migrations: %w", err)
	}
	slices.SortFunc(entries, func(a, b fs.DirEntry) int { return strings.Compare(a.Name(), b.Name()) })

	var migrations []*goose.Migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		match := migrationVersionRe.FindStringSubmatch(entry.Name())
		if match == nil {
			return nil, fmt.Errorf("migration file %q does not have a version prefix", entry.Name())
		}
		version, err := strconv.ParseInt(match[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("migration file %q has invalid version: %w", entry.Name(), err)
		}

		raw, err := migrationsFS.ReadFile(path.Join("migrations", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading migration file %q: %w", entry.Name(), err)
		}

		upSQL, downSQL := parseGooseSQL(string(raw))
		migrations = append(migrations, goose.NewGoMigration(version,
			execFunc(TransformSQL(upSQL, dialect)),
			execFunc(TransformSQL(downSQL, dialect))))
	}
	return migrations, nil
}

func execFunc(s string) *goose.GoFunc {
	if s == "" {
		return nil
	}
	return &goose.GoFunc{RunTx: func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, s)
		return err
	}}
}

// parseGooseSQL splits a goose-annotated SQL file into up and down sections.
// It looks for "-- +goose Up" and "-- +goose Down" markers, stripping
// "-- +goose StatementBegin" / "-- +goose StatementEnd" annotations.
func parseGooseSQL(content string) (upSQL, downSQL string) {
	var upLines, downLines []string
	var current *[]string

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "-- +goose Up":
			current = &upLines
		case trimmed == "-- +goose Down":
			current = &downLines
		case trimmed == "-- +goose StatementBegin",
			trimmed == "-- +goose StatementEnd":
			// Each section runs as a single statement.
			continue
		default:
			if current != nil {
				*current = append(*current, line)
			}
		}
	}

	return strings.TrimSpace(strings.Join(upLines, "\n")),
		strings.TrimSpace(strings.Join(downLines, "\n"))
}

// Migrate brings the schema of db up to date.
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect) error {
	migrations, err := GooseMigrations(dialect)
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(dialect.goose(), db, nil, goose.WithGoMigrations(migrations...))
	if err != nil {
		return fmt.Errorf("creating migration provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}
	for _, r := range results {
		log.Debugw("applied migration", "version", r.Source.Version, "duration", r.Duration)
	}
	return nil
}

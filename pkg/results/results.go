// Package results stores the outcome of every dataset check, so reports can be
// produced without checking the warehouse again.
package results

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	logging "github.com/ipfs/go-log/v2"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

var log = logging.Logger("pkg/results")

const (
	defaultJournalMode = "WAL"
	defaultSynchronous = "NORMAL"
	defaultBusyTimeout = 60 * time.Second
	defaultForeignKeys = true
)

const DefaultPreparedStmtCacheSize = 32

type Option func(*Repo)

// WithPreparedStmtCacheSize sets how many prepared statements are kept open.
func WithPreparedStmtCacheSize(n int) Option {
	return func(r *Repo) {
		r.stmtCacheSize = n
	}
}

type Repo struct {
	db            *sqlx.DB
	dialect       Dialect
	stmtCacheSize int
	preparedStmts *lru.Cache[string, *sqlx.Stmt]
}

// Open connects to the results database and applies any pending migrations.
// For SQLite, dsn is a file path.
func Open(ctx context.Context, dialect Dialect, dsn string, opts ...Option) (*Repo, error) {
	connStr := dsn
	if dialect == DialectSQLite {
		var pragmas []string
		pragmas = append(pragmas, fmt.Sprintf("_pragma=journal_mode(%s)", defaultJournalMode))
		pragmas = append(pragmas, fmt.Sprintf("_pragma=busy_timeout(%d)", defaultBusyTimeout.Milliseconds()))
		pragmas = append(pragmas, fmt.Sprintf("_pragma=synchronous(%s)", defaultSynchronous))
		pragmas = append(pragmas, fmt.Sprintf("_pragma=foreign_keys(%d)", bool2int(defaultForeignKeys)))
		connStr = fmt.Sprintf("file:%s?%s", dsn, strings.Join(pragmas, "&"))
	}

	db, err := sql.Open(dialect.driverName(), connStr)
	if err != nil {
		return nil, fmt.Errorf("opening %s results database: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to %s results database: %w", dialect, err)
	}
	if err := Migrate(ctx, db, dialect); err != nil {
		db.Close()
		return nil, err
	}

	r, err := New(db, dialect, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

// New wraps an already migrated database.
func New(db *sql.DB, dialect Dialect, opts ...Option) (*Repo, error) {
	r := &Repo{
		db:            sqlx.NewDb(db, dialect.bindName()),
		dialect:       dialect,
		stmtCacheSize: DefaultPreparedStmtCacheSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	cache, err := lru.NewWithEvict(r.stmtCacheSize, func(_ string, stmt *sqlx.Stmt) {
		stmt.Close()
	})
	if err != nil {
		return nil, fmt.Errorf("creating prepared statement cache: %w", err)
	}
	r.preparedStmts = cache
	return r, nil
}

// prepareStmt prepares query, written with "?" placeholders, for the repo's
// dialect.
func (r *Repo) prepareStmt(ctx context.Context, query string) (*sqlx.Stmt, error) {
	if stmt, ok := r.preparedStmts.Get(query); ok {
		return stmt, nil
	}
	stmt, err := r.db.PreparexContext(ctx, r.db.Rebind(query))
	if err != nil {
		return nil, err
	}
	_ = r.preparedStmts.Add(query, stmt)
	return stmt, nil
}

func (r *Repo) Dialect() Dialect {
	return r.dialect
}

func (r *Repo) Close() error {
	r.preparedStmts.Purge()
	return r.db.Close()
}

func bool2int(b bool) int {
	if b {
		return 1
	}
	return 0
}

package results

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/e3sm/warehouse/pkg/types/id"
	"github.com/e3sm/warehouse/pkg/types/timestamp"
)

// Run is one invocation of the checker over a batch of datasets.
type Run struct {
	ID         id.RunID            `db:"id"`
	StartedAt  timestamp.Timestamp `db:"started_at"`
	FinishedAt timestamp.Timestamp `db:"finished_at"`
	Total      int                 `db:"total"`
	Error      string              `db:"error"`
}

// Finished reports whether the run completed, successfully or not.
func (r Run) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// Result is the outcome of checking one dataset.
type Result struct {
	ID           id.ResultID         `db:"id"`
	RunID        id.RunID            `db:"run_id"`
	DatasetID    string              `db:"dataset_id"`
	Kind         string              `db:"kind"`
	Outcome      string              `db:"outcome"`
	Version      string              `db:"version"`
	StartYear    sql.NullInt64       `db:"start_year"`
	EndYear      sql.NullInt64       `db:"end_year"`
	MissingCount int                 `db:"missing_count"`
	Missing      Lines               `db:"missing"`
	Error        string              `db:"error"`
	CheckedAt    timestamp.Timestamp `db:"checked_at"`
}

// Lines is a list of strings stored as one newline separated column.
type Lines []string

var (
	_ driver.Valuer = Lines(nil)
	_ sql.Scanner   = (*Lines)(nil)
)

func (l Lines) Value() (driver.Value, error) {
	return strings.Join(l, "\n"), nil
}

func (l *Lines) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case nil:
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("unsupported type for lines scanning: %T (%v)", v, v)
	}
	if s == "" {
		*l = nil
		return nil
	}
	*l = strings.Split(s, "\n")
	return nil
}

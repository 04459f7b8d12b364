package results

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/e3sm/warehouse/pkg/types/id"
	"github.com/e3sm/warehouse/pkg/types/timestamp"
)

const resultColumns = `id, run_id, dataset_id, kind, outcome, version, start_year, end_year,
	missing_count, missing, error, checked_at`

// StartRun records the start of a new run.
func (r *Repo) StartRun(ctx context.Context) (Run, error) {
	run := Run{ID: id.New(), StartedAt: timestamp.Now()}
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`INSERT INTO runs (id, started_at) VALUES (?, ?)`), run.ID, run.StartedAt)
	if err != nil {
		return Run{}, fmt.Errorf("starting run: %w", err)
	}
	return run, nil
}

// FinishRun records the end of a run, and the error that ended it early, if
// any.
func (r *Repo) FinishRun(ctx context.Context, runID id.RunID, total int, runErr error) error {
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}
	res, err := r.db.ExecContext(ctx,
		r.db.Rebind(`UPDATE runs SET finished_at = ?, total = ?, error = ? WHERE id = ?`),
		timestamp.Now(), total, msg, runID)
	if err != nil {
		return fmt.Errorf("finishing run %s: %w", runID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finishing run %s: %w", runID, sql.ErrNoRows)
	}
	return nil
}

// GetRun returns the run with the given ID, or nil if there is none.
func (r *Repo) GetRun(ctx context.Context, runID id.RunID) (*Run, error) {
	var run Run
	err := r.db.GetContext(ctx, &run,
		r.db.Rebind(`SELECT id, started_at, finished_at, total, error FROM runs WHERE id = ?`), runID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting run %s: %w", runID, err)
	}
	return &run, nil
}

// RecordResult stores the outcome of one dataset check. An ID and check time
// are assigned if missing.
func (r *Repo) RecordResult(ctx context.Context, res *Result) error {
	if res.ID == id.Nil {
		res.ID = id.New()
	}
	if res.CheckedAt.IsZero() {
		res.CheckedAt = timestamp.Now()
	}
	res.MissingCount = len(res.Missing)

	stmt, err := r.prepareStmt(ctx, `INSERT INTO dataset_checks (`+resultColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing result insert: %w", err)
	}
	_, err = stmt.ExecContext(ctx,
		res.ID, res.RunID, res.DatasetID, res.Kind, res.Outcome, res.Version,
		res.StartYear, res.EndYear, res.MissingCount, res.Missing, res.Error, res.CheckedAt)
	if err != nil {
		return fmt.Errorf("recording result for %s: %w", res.DatasetID, err)
	}
	return nil
}

// RunResults returns the results of one run, ordered by dataset.
func (r *Repo) RunResults(ctx context.Context, runID id.RunID) ([]Result, error) {
	var out []Result
	err := r.db.SelectContext(ctx, &out,
		r.db.Rebind(`SELECT `+resultColumns+` FROM dataset_checks WHERE run_id = ? ORDER BY dataset_id`), runID)
	if err != nil {
		return nil, fmt.Errorf("listing results of run %s: %w", runID, err)
	}
	return out, nil
}

// LatestResults returns the most recent result of every dataset ever checked,
// ordered by dataset.
func (r *Repo) LatestResults(ctx context.Context) ([]Result, error) {
	var rows []Result
	err := r.db.SelectContext(ctx, &rows, `SELECT c.id, c.run_id, c.dataset_id, c.kind, c.outcome, c.version,
			c.start_year, c.end_year, c.missing_count, c.missing, c.error, c.checked_at
		FROM dataset_checks c
		JOIN (
			SELECT dataset_id, MAX(checked_at) AS checked_at
			FROM dataset_checks
			GROUP BY dataset_id
		) latest ON latest.dataset_id = c.dataset_id AND latest.checked_at = c.checked_at
		JOIN runs ON runs.id = c.run_id
		ORDER BY c.dataset_id, runs.started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing latest results: %w", err)
	}

	// Two checks of a dataset in the same second both match; keep the one from
	// the later run.
	var out []Result
	for _, row := range rows {
		if len(out) > 0 && out[len(out)-1].DatasetID == row.DatasetID {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

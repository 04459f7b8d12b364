// Package check runs completeness checks over batches of datasets, records
// each outcome in the dataset's status log and keeps a history of runs.
package check

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/e3sm/warehouse/internal/ctxutil"
	"github.com/e3sm/warehouse/pkg/bettererrgroup"
	"github.com/e3sm/warehouse/pkg/bus"
	"github.com/e3sm/warehouse/pkg/bus/events"
	"github.com/e3sm/warehouse/pkg/catalog"
	"github.com/e3sm/warehouse/pkg/dataset"
	"github.com/e3sm/warehouse/pkg/dsspec"
	"github.com/e3sm/warehouse/pkg/gaps"
	"github.com/e3sm/warehouse/pkg/naming"
	"github.com/e3sm/warehouse/pkg/results"
	"github.com/e3sm/warehouse/pkg/statuslog"
	"github.com/e3sm/warehouse/pkg/types/id"
)

var (
	log    = logging.Logger("pkg/check")
	tracer = otel.Tracer("check")
	meter  = otel.Meter("check")
)

var datasetsChecked, _ = meter.Int64Counter(
	"check.datasets",
	metric.WithDescription("Datasets checked, by outcome"),
)

var checkDuration, _ = meter.Float64Histogram(
	"check.duration",
	metric.WithDescription("Time spent checking one dataset"),
	metric.WithUnit("s"),
)

// Status log fields of the records written by the checker.
const (
	RecordMajor = "WAREHOUSE"
	RecordMinor = "Validation"
)

// DefaultParallelism is the number of datasets checked at once unless
// [WithParallelism] says otherwise.
const DefaultParallelism = 4

// ErrDuplicateDataset is matched by a [DuplicateDatasetError].
var ErrDuplicateDataset = errors.New("dataset requested more than once")

// DuplicateDatasetError rejects a batch naming the same dataset twice, which
// would append two records to one status log.
type DuplicateDatasetError struct {
	DatasetID string
}

func (e *DuplicateDatasetError) Error() string {
	return fmt.Sprintf("dataset %s requested more than once", e.DatasetID)
}

func (e *DuplicateDatasetError) Is(target error) bool {
	return target == ErrDuplicateDataset
}

// ResultStore keeps the history of check runs. [*results.Repo] implements it.
type ResultStore interface {
	StartRun(ctx context.Context) (results.Run, error)
	RecordResult(ctx context.Context, res *results.Result) error
	FinishRun(ctx context.Context, runID id.RunID, total int, runErr error) error
}

var _ ResultStore = (*results.Repo)(nil)

// Checker checks datasets against a catalog. Only Catalog is required.
type Checker struct {
	Catalog dataset.Catalog

	// Fs and Dir locate each dataset's directory, which holds its status log.
	// Without them nothing can be recorded.
	Fs  afero.Fs
	Dir func(datasetID string) string

	// Spec supplies declared spans and variables.
	Spec *dsspec.Spec
	// Results, if set, stores every run and result.
	Results ResultStore
	// Bus, if set, receives progress events.
	Bus bus.Publisher
}

// Request asks for one dataset to be checked. Options are applied after those
// derived from the checker's Spec, so they take precedence.
type Request struct {
	DatasetID string
	Options   []dataset.Option
}

// Option configures the check behavior.
type Option func(*config)

type config struct {
	record        bool
	parallelism   int
	failFast      bool
	lookupTimeout time.Duration
}

// WithRecording appends the outcome of each checked dataset to its status
// log. Without this option, checks run in dry-run mode (report only).
func WithRecording() Option {
	return func(c *config) {
		c.record = true
	}
}

// WithParallelism sets how many datasets are checked at once.
func WithParallelism(n int) Option {
	return func(c *config) {
		c.parallelism = n
	}
}

// WithFailFast stops the batch at the first dataset that fails. Datasets
// still in flight are cancelled and record nothing.
func WithFailFast() Option {
	return func(c *config) {
		c.failFast = true
	}
}

// WithLookupTimeout bounds each catalog lookup.
func WithLookupTimeout(d time.Duration) Option {
	return func(c *config) {
		c.lookupTimeout = d
	}
}

// CheckDatasets checks every requested dataset and returns a report in
// request order. Each dataset that could be checked gets exactly one status
// record when recording is enabled; unavailable datasets get none.
//
// The error is non-nil only if the batch was rejected or aborted, by fail-fast
// or by ctx. The report is returned either way, holding whatever finished.
func (c *Checker) CheckDatasets(ctx context.Context, reqs []Request, opts ...Option) (_ *Report, retErr error) {
	cfg := &config{parallelism: DefaultParallelism}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.parallelism < 1 {
		cfg.parallelism = 1
	}

	seen := make(map[string]struct{}, len(reqs))
	for _, req := range reqs {
		if _, ok := seen[req.DatasetID]; ok {
			return nil, &DuplicateDatasetError{DatasetID: req.DatasetID}
		}
		seen[req.DatasetID] = struct{}{}
	}

	ctx, span := tracer.Start(ctx, "check-datasets", trace.WithAttributes(
		attribute.Int("datasets", len(reqs)),
		attribute.Bool("record", cfg.record),
		attribute.Int("parallelism", cfg.parallelism),
	))
	defer func() {
		if retErr != nil {
			span.SetStatus(codes.Error, retErr.Error())
			span.RecordError(retErr)
		}
		span.End()
	}()

	run := results.Run{ID: id.New()}
	if c.Results != nil {
		var err error
		run, err = c.Results.StartRun(ctx)
		if err != nil {
			return nil, fmt.Errorf("starting run: %w", err)
		}
	}
	span.SetAttributes(attribute.String("run.id", run.ID.String()))
	started := events.RunEvent{RunID: run.ID, Status: events.Started, Total: len(reqs)}
	c.publish(events.TopicRunStarted, started)
	c.publish(events.TopicRun(run.ID), started)

	cat := catalog.WithTimeout(c.Catalog, cfg.lookupTimeout)
	report := &Report{RunID: run.ID, Results: make([]Result, len(reqs))}

	eg, egCtx := bettererrgroup.WithContext(ctx)
	eg.SetLimit(cfg.parallelism)
	for i, req := range reqs {
		if egCtx.Err() != nil {
			break
		}
		eg.GoTask(req.DatasetID, func() error {
			res := c.checkOne(egCtx, run.ID, req, cat, cfg)
			report.Results[i] = res
			if cfg.failFast && res.Outcome == OutcomeFailed && res.Err != nil {
				return fmt.Errorf("checking %s: %w", req.DatasetID, res.Err)
			}
			return nil
		})
	}
	runErr := eg.Wait()
	if runErr == nil {
		runErr = ctxutil.CausedError(ctx)
	}

	report.OverallPass = runErr == nil
	for i, res := range report.Results {
		if res.DatasetID == "" {
			// Never started.
			report.Results[i] = Result{DatasetID: reqs[i].DatasetID, Outcome: OutcomeFailed, Err: runErr}
			report.OverallPass = false
			continue
		}
		if !res.Passed() {
			report.OverallPass = false
		}
		if res.Recorded {
			report.Recorded++
		}
	}

	if c.Results != nil {
		// Finish the run even when ctx is what ended it.
		if err := c.Results.FinishRun(context.WithoutCancel(ctx), run.ID, len(reqs), runErr); err != nil {
			log.Errorf("finishing run %s: %v", run.ID, err)
		}
	}

	if runErr != nil {
		c.publish(events.TopicRun(run.ID), events.RunEvent{RunID: run.ID, Status: events.Aborted, Total: len(reqs), Error: runErr})
		return report, fmt.Errorf("run %s aborted: %w", run.ID, runErr)
	}
	c.publish(events.TopicRun(run.ID), events.RunEvent{RunID: run.ID, Status: events.Finished, Total: len(reqs)})
	log.Infow("run finished", "run", run.ID, "datasets", len(reqs), "recorded", report.Recorded)
	return report, nil
}

func (c *Checker) checkOne(ctx context.Context, runID id.RunID, req Request, cat dataset.Catalog, cfg *config) (res Result) {
	res = Result{DatasetID: req.DatasetID}
	start := time.Now()

	ctx, span := tracer.Start(ctx, "check-dataset", trace.WithAttributes(
		attribute.String("dataset.id", req.DatasetID),
	))
	defer func() {
		res.Elapsed = time.Since(start)
		if res.Err != nil {
			span.SetStatus(codes.Error, res.Err.Error())
			span.RecordError(res.Err)
		}
		span.SetAttributes(attribute.String("outcome", string(res.Outcome)), attribute.Bool("recorded", res.Recorded))
		span.End()

		outcome := metric.WithAttributes(attribute.String("outcome", string(res.Outcome)))
		datasetsChecked.Add(ctx, 1, outcome)
		checkDuration.Record(ctx, res.Elapsed.Seconds(), outcome)

		view := events.DatasetCheckedView{
			RunID:     runID,
			DatasetID: res.DatasetID,
			Kind:      res.Kind,
			Outcome:   string(res.Outcome),
			Missing:   len(res.Missing),
			Err:       res.Err,
			Elapsed:   res.Elapsed,
		}
		c.publish(events.TopicDatasetChecked(runID), view)
		c.publish(events.TopicAnyDatasetChecked, view)
	}()

	ds, err := c.newDataset(req)
	if err != nil {
		res.fail(err)
		return res
	}
	res.Kind = ds.Kind().String()

	status, err := ds.FindStatus(ctx, cat)
	switch {
	case errors.Is(err, gaps.ErrEmptyDataset):
		res.Outcome = OutcomeUnavailable
		res.Issues = append(res.Issues, Issue{Type: IssueTypeWarning, Description: "no usable files published", Details: err.Error()})
	case err != nil:
		res.fail(err)
	case status == dataset.StatusUninitialized:
		res.Outcome = OutcomeUnavailable
		res.Issues = append(res.Issues, Issue{Type: IssueTypeWarning, Description: "no files published"})
	case status == dataset.StatusSuccess:
		res.Outcome = OutcomeSuccess
	case status == dataset.StatusPartial:
		res.Outcome = OutcomePartial
		res.Missing = ds.Missing()
		res.Issues = append(res.Issues, Issue{
			Type:        IssueTypeWarning,
			Description: fmt.Sprintf("%d gaps", len(res.Missing)),
			Details:     summarize(res.Missing, 5),
		})
	default:
		res.fail(fmt.Errorf("unexpected status %s", status))
	}
	res.Version = ds.LatestVersion()
	res.Span, res.HasSpan = ds.Span()

	if res.Outcome == OutcomeUnavailable {
		log.Debugw("dataset unavailable", "dataset", req.DatasetID)
	} else if cfg.record {
		c.record(ctx, ds, &res)
	}
	c.store(ctx, runID, &res)
	return res
}

func (c *Checker) newDataset(req Request) (*dataset.Dataset, error) {
	facets, err := dataset.ParseID(req.DatasetID)
	if err != nil {
		return nil, err
	}
	var opts []dataset.Option
	if c.Fs != nil && c.Dir != nil {
		opts = append(opts, dataset.WithPath(c.Fs, c.Dir(req.DatasetID)))
	}
	if c.Spec != nil {
		opts = append(opts, c.Spec.Resolve(req.DatasetID, facets).Options()...)
	}
	opts = append(opts, req.Options...)
	return dataset.New(req.DatasetID, opts...)
}

// record appends the single status record of res, unless ctx is done.
func (c *Checker) record(ctx context.Context, ds *dataset.Dataset, res *Result) {
	if ds.Path() == "" {
		res.Issues = append(res.Issues, Issue{Type: IssueTypeWarning, Description: "not recorded", Details: "dataset has no directory"})
		return
	}
	if err := ctxutil.CausedError(ctx); err != nil {
		log.Debugw("not recording cancelled check", "dataset", res.DatasetID, "err", err)
		return
	}
	rec := statuslog.NewRecord(RecordMajor, RecordMinor, string(res.Outcome), recordArgs(res)...)
	if err := ds.Record(rec); err != nil {
		log.Warnw("recording status", "dataset", res.DatasetID, "err", err)
		res.Issues = append(res.Issues, Issue{Type: IssueTypeError, Description: "status not recorded", Details: err.Error()})
		return
	}
	res.Recorded = true
}

func (c *Checker) store(ctx context.Context, runID id.RunID, res *Result) {
	if c.Results == nil || ctx.Err() != nil {
		return
	}
	row := &results.Result{
		RunID:     runID,
		DatasetID: res.DatasetID,
		Kind:      res.Kind,
		Outcome:   string(res.Outcome),
		Version:   res.Version,
		Missing:   res.Missing,
	}
	if res.HasSpan {
		row.StartYear.Int64, row.StartYear.Valid = int64(res.Span.Start), true
		row.EndYear.Int64, row.EndYear.Valid = int64(res.Span.End), true
	}
	if res.Err != nil {
		row.Error = res.Err.Error()
	}
	if err := c.Results.RecordResult(ctx, row); err != nil {
		log.Warnw("storing result", "dataset", res.DatasetID, "err", err)
		res.Issues = append(res.Issues, Issue{Type: IssueTypeError, Description: "result not stored", Details: err.Error()})
	}
}

func (c *Checker) publish(topic string, event any) {
	if c.Bus != nil {
		c.Bus.Publish(topic, event)
	}
}

func (r *Result) fail(err error) {
	r.Outcome = OutcomeFailed
	r.Err = err
	r.Issues = append(r.Issues, Issue{Type: IssueTypeError, Description: Reason(err), Details: err.Error()})
}

// Reason names the class of a check failure, as written to the status log.
func Reason(err error) string {
	switch {
	case errors.Is(err, naming.ErrMalformedFilename):
		return "malformed-filename"
	case errors.Is(err, gaps.ErrMissingVariableConfig):
		return "missing-datavars"
	case errors.Is(err, gaps.ErrInvalidSpan):
		return "invalid-span"
	case errors.Is(err, dataset.ErrMalformedID):
		return "malformed-id"
	case errors.Is(err, catalog.ErrLookupTimeout):
		return "lookup-timeout"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}

func recordArgs(res *Result) []string {
	var args []string
	switch res.Outcome {
	case OutcomeFailed:
		args = append(args, "reason="+Reason(res.Err))
	default:
		args = append(args, fmt.Sprintf("missing=%d", len(res.Missing)))
	}
	if res.Version != "" && !strings.ContainsAny(res.Version, ":\r\n") {
		args = append(args, "version="+res.Version)
	}
	return args
}

func summarize(lines []string, n int) string {
	if len(lines) <= n {
		return strings.Join(lines, ", ")
	}
	return fmt.Sprintf("%s and %d more", strings.Join(lines[:n], ", "), len(lines)-n)
}

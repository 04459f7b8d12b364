// Package dataset models one publishable dataset: its identity, the span of
// years it should cover, and the status its completeness check arrived at.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"path"
	"slices"
	"strings"

	logging "github.com/ipfs/go-log/v2"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/e3sm/warehouse/pkg/gaps"
	"github.com/e3sm/warehouse/pkg/naming"
	"github.com/e3sm/warehouse/pkg/statuslog"
)

var (
	log    = logging.Logger("pkg/dataset")
	tracer = otel.Tracer("dataset")
)

// ErrNoPath is returned when recording a status for a dataset that was not
// given a directory.
var ErrNoPath = errors.New("dataset has no path")

// Catalog finds the files published for a dataset. An empty result means the
// dataset is not available yet, and is not an error.
type Catalog interface {
	Lookup(ctx context.Context, datasetID string) ([]string, error)
}

// Dataset is a single dataset under check. It is not safe for concurrent use;
// one status computation is expected per instance.
type Dataset struct {
	id     string
	facets Facets

	fs   afero.Fs
	path string

	span      gaps.Span
	spanKnown bool
	datavars  []string
	versions  map[string]int
	log       *statuslog.Log

	status Status
	files  []string
	gaps   []gaps.Gap
}

// Option configures a [Dataset].
type Option func(*Dataset) error

// WithPath sets the dataset's directory. When it exists, its status log is
// loaded, and unless versions were given, each "v*" subdirectory is counted
// as a version.
func WithPath(fsys afero.Fs, dir string) Option {
	return func(d *Dataset) error {
		d.fs = fsys
		d.path = dir
		return nil
	}
}

// WithSpan declares the years the dataset must cover, inclusive.
func WithSpan(start, end int) Option {
	return func(d *Dataset) error {
		s := gaps.Span{Start: start, End: end}
		if err := s.Validate(); err != nil {
			return err
		}
		d.span = s
		d.spanKnown = true
		return nil
	}
}

// WithDatavars sets the variables a time-series dataset must contain.
func WithDatavars(vars ...string) Option {
	return func(d *Dataset) error {
		d.datavars = append(d.datavars, vars...)
		return nil
	}
}

// WithVersions sets the known versions and their file counts.
func WithVersions(versions map[string]int) Option {
	return func(d *Dataset) error {
		maps.Copy(d.versions, versions)
		return nil
	}
}

// New creates a dataset from its id.
func New(id string, opts ...Option) (*Dataset, error) {
	facets, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	d := &Dataset{
		id:       id,
		facets:   facets,
		versions: make(map[string]int),
		log:      statuslog.New(),
		status:   StatusUninitialized,
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, fmt.Errorf("configuring dataset %s: %w", id, err)
		}
	}
	if err := d.load(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dataset) load() error {
	if d.fs == nil || d.path == "" {
		return nil
	}
	info, err := d.fs.Stat(d.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading dataset directory %s: %w", d.path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("dataset path %s is not a directory", d.path)
	}

	l, err := statuslog.Load(d.fs, d.path)
	if err != nil {
		return err
	}
	d.log = l

	if len(d.versions) > 0 {
		return nil
	}
	entries, err := afero.ReadDir(d.fs, d.path)
	if err != nil {
		return fmt.Errorf("listing versions of %s: %w", d.id, err)
	}
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "v") {
			continue
		}
		n, err := countFiles(d.fs, path.Join(d.path, e.Name()))
		if err != nil {
			return fmt.Errorf("counting files of %s version %s: %w", d.id, e.Name(), err)
		}
		d.versions[e.Name()] = n
	}
	return nil
}

func countFiles(fsys afero.Fs, root string) (int, error) {
	n := 0
	err := afero.Walk(fsys, root, func(_ string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			n++
		}
		return nil
	})
	return n, err
}

func (d *Dataset) ID() string { return d.id }

func (d *Dataset) Facets() Facets { return d.facets }

func (d *Dataset) Kind() Kind { return d.facets.Kind }

func (d *Dataset) Path() string { return d.path }

func (d *Dataset) Status() Status { return d.status }

func (d *Dataset) Datavars() []string { return slices.Clone(d.datavars) }

// Span returns the years the dataset covers, and whether they are known yet.
func (d *Dataset) Span() (gaps.Span, bool) {
	return d.span, d.spanKnown
}

// Versions returns a copy of the version to file count map.
func (d *Dataset) Versions() map[string]int {
	return maps.Clone(d.versions)
}

// LatestVersion returns the greatest version label, or "" if there are none.
func (d *Dataset) LatestVersion() string {
	if len(d.versions) == 0 {
		return ""
	}
	return slices.Max(slices.Collect(maps.Keys(d.versions)))
}

// Files returns the files of the latest version found by [Dataset.FindStatus].
func (d *Dataset) Files() []string {
	return slices.Clone(d.files)
}

// Gaps returns the gaps found by [Dataset.FindStatus].
func (d *Dataset) Gaps() []gaps.Gap {
	return slices.Clone(d.gaps)
}

// Missing returns the gaps found by [Dataset.FindStatus] in string form. It
// is empty, never nil, for a complete dataset.
func (d *Dataset) Missing() []string {
	return gaps.Strings(d.gaps)
}

// Log returns the dataset's status log.
func (d *Dataset) Log() *statuslog.Log {
	return d.log
}

// LatestStatus returns the most recent record of the status log.
func (d *Dataset) LatestStatus() (statuslog.Entry, bool) {
	return d.log.Latest()
}

// FindStatus looks the dataset's files up in catalog, checks them for gaps
// and moves the dataset to [StatusSuccess] or [StatusPartial].
//
// Once a status has been found it is returned again without another lookup.
// If the catalog has no files, the status stays [StatusUninitialized] and no
// error is returned. On error the status is left as it was. Nothing is
// written to the status log; see [Dataset.Record].
func (d *Dataset) FindStatus(ctx context.Context, catalog Catalog) (_ Status, retErr error) {
	ctx, span := tracer.Start(ctx, "find-status", trace.WithAttributes(
		attribute.String("dataset.id", d.id),
		attribute.String("dataset.kind", d.facets.Kind.String()),
	))
	defer func() {
		if retErr != nil {
			span.SetStatus(codes.Error, retErr.Error())
			span.RecordError(retErr)
		}
		span.End()
	}()

	if d.status != StatusUninitialized {
		return d.status, nil
	}

	files, err := catalog.Lookup(ctx, d.id)
	if err != nil {
		return d.status, fmt.Errorf("looking up files of %s: %w", d.id, err)
	}
	if len(files) == 0 {
		log.Debugw("no files published yet", "dataset", d.id)
		return d.status, nil
	}

	files = d.latestVersionFiles(files)

	checkSpan := d.span
	if !d.spanKnown && d.facets.Kind != KindFixed {
		checkSpan, err = inferSpan(d.facets.Kind, files)
		if err != nil {
			return d.status, fmt.Errorf("inferring span of %s: %w", d.id, err)
		}
	}

	found, err := d.check(files, checkSpan)
	if err != nil {
		return d.status, fmt.Errorf("checking %s: %w", d.id, err)
	}

	if d.facets.Kind != KindFixed {
		d.span, d.spanKnown = checkSpan, true
	}
	d.files = files
	d.gaps = found
	if len(found) == 0 {
		d.status = StatusSuccess
	} else {
		d.status = StatusPartial
	}
	span.SetAttributes(attribute.Int("dataset.gaps", len(found)), attribute.String("dataset.status", d.status.String()))
	log.Debugw("found status", "dataset", d.id, "status", d.status, "gaps", len(found))
	return d.status, nil
}

// latestVersionFiles records how many files each version directory holds and
// returns the files of the greatest one.
func (d *Dataset) latestVersionFiles(files []string) []string {
	byVersion := make(map[string][]string)
	for _, f := range files {
		v := versionOf(f)
		byVersion[v] = append(byVersion[v], f)
	}
	for v, vf := range byVersion {
		d.versions[v] = len(vf)
	}
	latest := slices.Max(slices.Collect(maps.Keys(byVersion)))
	return byVersion[latest]
}

// versionOf is the name of the directory holding a file, "" for a bare name.
func versionOf(file string) string {
	dir := path.Dir(file)
	if dir == "." || dir == "/" {
		return ""
	}
	return path.Base(dir)
}

func inferSpan(kind Kind, files []string) (gaps.Span, error) {
	var (
		s   gaps.Span
		err error
	)
	switch kind {
	case KindCMIP:
		s.Start, s.End, err = naming.CMIPSpan(files)
	case KindMonthly, KindSubmonthly:
		var start, end naming.Period
		start, end, err = naming.E3SMSpan(files)
		s = gaps.Span{Start: start.Year, End: end.Year}
	case KindTimeSeries:
		s.Start, s.End, err = naming.TimeSeriesSpan(files)
	case KindClimo:
		s.Start, s.End, err = naming.ClimoSpan(files)
	default:
		return gaps.Span{}, fmt.Errorf("no span convention for %s datasets", kind)
	}
	return s, err
}

func (d *Dataset) check(files []string, span gaps.Span) ([]gaps.Gap, error) {
	switch d.facets.Kind {
	case KindMonthly:
		return gaps.CheckMonthly(files, span)
	case KindSubmonthly:
		return gaps.CheckSubmonthly(files, span)
	case KindTimeSeries:
		return gaps.CheckTimeSeries(d.id, files, span, d.datavars)
	case KindClimo:
		return gaps.CheckClimos(files, span)
	case KindCMIP:
		return gaps.CheckSpans(d.id, files, span)
	case KindFixed:
		return nil, nil
	default:
		return nil, fmt.Errorf("no check for %s datasets", d.facets.Kind)
	}
}

// Record appends r to the dataset's status log on disk and to the loaded log.
func (d *Dataset) Record(r statuslog.Record) error {
	if d.fs == nil || d.path == "" {
		return fmt.Errorf("recording status of %s: %w", d.id, ErrNoPath)
	}
	if err := statuslog.AppendRecord(d.fs, d.path, r); err != nil {
		return fmt.Errorf("recording status of %s: %w", d.id, err)
	}
	d.log.Add(r.String())
	return nil
}

func (d *Dataset) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "id: %s\n", d.id)
	fmt.Fprintf(&b, "kind: %s\n", d.facets.Kind)
	if d.path != "" {
		fmt.Fprintf(&b, "path: %s\n", d.path)
	}
	if s, ok := d.Span(); ok {
		fmt.Fprintf(&b, "span: %s\n", s)
	}
	versions := slices.Sorted(maps.Keys(d.versions))
	fmt.Fprintf(&b, "versions: %s\n", strings.Join(versions, ", "))
	fmt.Fprintf(&b, "status: %s\n", d.status)
	if latest, ok := d.LatestStatus(); ok {
		fmt.Fprintf(&b, "latest: %s %s\n", latest.Timestamp, latest.Value)
	}
	fmt.Fprintf(&b, "comments: %d", len(d.log.Comm))
	return b.String()
}

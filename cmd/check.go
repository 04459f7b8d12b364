package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/briandowns/spinner"
	"github.com/dustin/go-humanize"
	"github.com/mitchellh/go-wordwrap"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/e3sm/warehouse/internal/cmdutil"
	"github.com/e3sm/warehouse/internal/output"
	"github.com/e3sm/warehouse/pkg/bus"
	"github.com/e3sm/warehouse/pkg/bus/events"
	"github.com/e3sm/warehouse/pkg/check"
	"github.com/e3sm/warehouse/pkg/dataset"
)

var checkFlags struct {
	fromFile string
	start    int
	end      int
	datavars []string
	json     bool
	failFast bool
}

func init() {
	checkCmd.Flags().StringVarP(&checkFlags.fromFile, "from-file", "f", "", "Read dataset ids from this file, one per line (- for stdin)")
	checkCmd.Flags().IntVar(&checkFlags.start, "start", -1, "First year the datasets must cover")
	checkCmd.Flags().IntVar(&checkFlags.end, "end", -1, "Last year the datasets must cover")
	checkCmd.MarkFlagsRequiredTogether("start", "end")
	checkCmd.Flags().StringSliceVar(&checkFlags.datavars, "datavars", nil, "Variables every time-series dataset must contain")
	checkCmd.Flags().BoolVar(&checkFlags.json, "json", false, "Print the report as JSON")
	checkCmd.Flags().BoolVar(&checkFlags.failFast, "fail-fast", false, "Stop at the first dataset that cannot be checked")

	checkCmd.Flags().Bool("record", false, "Append each outcome to the dataset's status log (default: dry-run mode)")
	cobra.CheckErr(viper.BindPFlag("check.record", checkCmd.Flags().Lookup("record")))
	checkCmd.Flags().Int("parallelism", check.DefaultParallelism, "Number of datasets to check at once")
	cobra.CheckErr(viper.BindPFlag("check.parallelism", checkCmd.Flags().Lookup("parallelism")))
	checkCmd.Flags().String("spec", "", "Dataset spec file declaring spans and time-series variables")
	cobra.CheckErr(viper.BindPFlag("check.spec_file", checkCmd.Flags().Lookup("spec")))

	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check [dataset-id...]",
	Short: "Check datasets for missing files",
	Long: wordwrap.WrapString(
		"Looks up the published files of each dataset and checks them for gaps. "+
			"Monthly output must have every month of every year, sub-monthly output "+
			"one file per year, time series and CMIP datasets contiguous chunks, and "+
			"climatologies all twelve months and five seasons.\n\n"+
			"Each dataset ends as SUCCESS, PARTIAL (files are missing), FAILED (the "+
			"files could not be checked) or UNAVAILABLE (nothing is published yet).\n\n"+
			"By default, runs in dry-run mode (reports without writing). Use --record "+
			"to append the outcome to each dataset's status log. Unavailable datasets "+
			"are never recorded, so a later run tries them again.",
		80),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		fsys := afero.NewOsFs()

		ids := args
		if checkFlags.fromFile != "" {
			fromFile, err := cmdutil.ReadIDsFile(fsys, checkFlags.fromFile)
			if err != nil {
				return err
			}
			ids = append(ids, fromFile...)
		}
		if len(ids) == 0 {
			return fmt.Errorf("no datasets to check: give dataset ids or --from-file")
		}

		wh, err := cmdutil.OpenWarehouse(fsys, cfg)
		if err != nil {
			return err
		}
		spec, err := cmdutil.LoadSpec(fsys, cfg.Check.SpecFile)
		if err != nil {
			return err
		}
		repo, err := cmdutil.OpenResults(ctx, cfg.Results)
		if err != nil {
			return err
		}

		eventBus := bus.New()
		checker := &check.Checker{
			Catalog: wh.Catalog,
			Fs:      fsys,
			Dir:     wh.Tree.Dir,
			Spec:    spec,
			Bus:     eventBus,
		}
		if repo != nil {
			defer repo.Close()
			checker.Results = repo
		}

		var dsOpts []dataset.Option
		if cmd.Flags().Changed("start") {
			dsOpts = append(dsOpts, dataset.WithSpan(checkFlags.start, checkFlags.end))
		}
		if len(checkFlags.datavars) > 0 {
			dsOpts = append(dsOpts, dataset.WithDatavars(checkFlags.datavars...))
		}
		reqs := make([]check.Request, len(ids))
		for i, id := range ids {
			reqs[i] = check.Request{DatasetID: id, Options: dsOpts}
		}

		opts := []check.Option{
			check.WithParallelism(cfg.Check.Parallelism),
			check.WithLookupTimeout(cfg.Catalog.LookupTimeout),
		}
		if cfg.Check.Record {
			opts = append(opts, check.WithRecording())
		}
		if checkFlags.failFast {
			opts = append(opts, check.WithFailFast())
		}

		if !checkFlags.json && output.IsTerminal(os.Stderr) {
			stop := showProgress(eventBus, len(reqs))
			defer stop()
		}

		report, runErr := checker.CheckDatasets(ctx, reqs, opts...)
		if report == nil {
			return runErr
		}

		if checkFlags.json {
			if err := output.JSON(cmd.OutOrStdout(), newReportView(report)); err != nil {
				return err
			}
		} else {
			printReport(cmd.OutOrStdout(), report, cfg.Check.Record)
		}

		if runErr != nil {
			return runErr
		}
		if n := report.Count(check.OutcomeFailed); n > 0 {
			return fmt.Errorf("%s could not be checked", pluralDatasets(n))
		}
		return nil
	},
}

// showProgress spins on stderr, counting the datasets checked so far, until
// the returned func is called.
func showProgress(b bus.Bus, total int) func() {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = fmt.Sprintf(" checking %s", pluralDatasets(total))

	var done atomic.Int64
	onChecked := func(events.DatasetCheckedView) {
		s.Lock()
		s.Suffix = fmt.Sprintf(" checked %d of %s", done.Add(1), pluralDatasets(total))
		s.Unlock()
	}
	// Handlers run under the bus lock, so everything is subscribed up front.
	stop, err := bus.Watch(b, events.TopicAnyDatasetChecked, onChecked)
	if err != nil {
		log.Warnf("showing progress: %v", err)
		stop = func() {}
	}

	s.Start()
	return func() {
		s.Stop()
		stop()
	}
}

func pluralDatasets(n int) string {
	if n == 1 {
		return "1 dataset"
	}
	return humanize.Comma(int64(n)) + " datasets"
}

func printReport(w io.Writer, report *check.Report, recorded bool) {
	rows := [][]string{{"DATASET", "KIND", "OUTCOME", "VERSION", "SPAN", "MISSING"}}
	for _, res := range report.Results {
		span := "-"
		if res.HasSpan {
			span = res.Span.String()
		}
		missing := "-"
		if res.Outcome == check.OutcomePartial {
			missing = humanize.Comma(int64(len(res.Missing)))
		}
		rows = append(rows, []string{res.DatasetID, orDash(res.Kind), output.Status(string(res.Outcome)), orDash(res.Version), span, missing})
	}
	fmt.Fprintln(w, output.Heading(fmt.Sprintf("Run %s", report.RunID)))
	output.Table(w, rows)

	for _, res := range report.Results {
		if len(res.Issues) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s\n", res.DatasetID)
		for _, issue := range res.Issues {
			symbol := "⚠"
			if issue.Type == check.IssueTypeError {
				symbol = "✗"
			}
			fmt.Fprintf(w, "  %s %s\n", symbol, issue.Description)
			if issue.Details != "" {
				fmt.Fprintf(w, "    %s\n", output.Dim(issue.Details))
			}
		}
	}

	fmt.Fprintln(w, "\n"+strings.Repeat("-", 60))
	var counts []string
	for _, o := range check.Outcomes {
		if n := report.Count(o); n > 0 {
			counts = append(counts, fmt.Sprintf("%d %s", n, output.Status(string(o))))
		}
	}
	fmt.Fprintf(w, "Checked %s: %s\n", pluralDatasets(len(report.Results)), strings.Join(counts, ", "))
	if recorded {
		fmt.Fprintf(w, "Recorded %d status(es)\n", report.Recorded)
	} else {
		fmt.Fprintln(w, output.Dim("Dry run: nothing recorded (use --record)"))
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

type resultView struct {
	DatasetID string   `json:"dataset_id"`
	Kind      string   `json:"kind,omitempty"`
	Outcome   string   `json:"outcome"`
	Version   string   `json:"version,omitempty"`
	Start     *int     `json:"start,omitempty"`
	End       *int     `json:"end,omitempty"`
	Missing   []string `json:"missing,omitempty"`
	Error     string   `json:"error,omitempty"`
	Recorded  bool     `json:"recorded"`
	ElapsedMS int64    `json:"elapsed_ms"`
}

type reportView struct {
	RunID    string       `json:"run_id"`
	Pass     bool         `json:"pass"`
	Recorded int          `json:"recorded"`
	Results  []resultView `json:"results"`
}

func newReportView(report *check.Report) reportView {
	v := reportView{RunID: report.RunID.String(), Pass: report.OverallPass, Recorded: report.Recorded}
	for _, res := range report.Results {
		rv := resultView{
			DatasetID: res.DatasetID,
			Kind:      res.Kind,
			Outcome:   string(res.Outcome),
			Version:   res.Version,
			Missing:   res.Missing,
			Recorded:  res.Recorded,
			ElapsedMS: res.Elapsed.Milliseconds(),
		}
		if res.HasSpan {
			rv.Start, rv.End = &res.Span.Start, &res.Span.End
		}
		if res.Err != nil {
			rv.Error = res.Err.Error()
		}
		v.Results = append(v.Results, rv)
	}
	return v
}

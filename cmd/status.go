package cmd

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mitchellh/go-wordwrap"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/e3sm/warehouse/internal/cmdutil"
	"github.com/e3sm/warehouse/internal/output"
	"github.com/e3sm/warehouse/pkg/catalog"
	"github.com/e3sm/warehouse/pkg/dataset"
	"github.com/e3sm/warehouse/pkg/statuslog"
)

var statusFlags struct {
	find bool
	json bool
}

func init() {
	statusCmd.Flags().BoolVar(&statusFlags.find, "find", false, "Also look the dataset's files up and check them for gaps, without recording anything")
	statusCmd.Flags().BoolVar(&statusFlags.json, "json", false, "Print the status as JSON")

	statusCmd.AddCommand(statusRecordCmd)
	statusCmd.AddCommand(statusCommentCmd)
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status <dataset-id>",
	Short: "Show a dataset's status log",
	Long: wordwrap.WrapString(
		"Shows what is known about a dataset from its directory in the warehouse: "+
			"its kind, its versions and the records of its status log, latest first. "+
			"With --find, the dataset's files are also looked up and checked for gaps.",
		80),
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		fsys := afero.NewOsFs()
		wh, err := cmdutil.OpenWarehouse(fsys, cfg)
		if err != nil {
			return err
		}

		d, err := dataset.New(args[0], dataset.WithPath(fsys, wh.Tree.Dir(args[0])))
		if err != nil {
			return err
		}
		if statusFlags.find {
			spec, err := cmdutil.LoadSpec(fsys, cfg.Check.SpecFile)
			if err != nil {
				return err
			}
			if spec != nil {
				// Re-create the dataset with the declared span and variables.
				opts := append([]dataset.Option{dataset.WithPath(fsys, wh.Tree.Dir(args[0]))},
					spec.Resolve(d.ID(), d.Facets()).Options()...)
				if d, err = dataset.New(args[0], opts...); err != nil {
					return err
				}
			}
			if _, err := d.FindStatus(ctx, catalog.WithTimeout(wh.Catalog, cfg.Catalog.LookupTimeout)); err != nil {
				return err
			}
		}

		if statusFlags.json {
			return output.JSON(cmd.OutOrStdout(), newStatusView(d))
		}
		printStatus(cmd.OutOrStdout(), d)
		return nil
	},
}

var statusRecordCmd = &cobra.Command{
	Use:   "record <dataset-id> <major> <minor> <status> [arg...]",
	Short: "Append a STAT record to a dataset's status log",
	Long: wordwrap.WrapString(
		"Appends one STAT record, stamped with the current time, to the dataset's "+
			"status log. Fields may not contain ':' or line breaks.",
		80),
	Args: cobra.MinimumNArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDataset(cmd, args[0])
		if err != nil {
			return err
		}
		rec := statuslog.NewRecord(args[1], args[2], args[3], args[4:]...)
		if err := d.Record(rec); err != nil {
			return err
		}
		output.Success(cmd.OutOrStdout(), "recorded %s", rec)
		return nil
	},
}

var statusCommentCmd = &cobra.Command{
	Use:   "comment <dataset-id> <text...>",
	Short: "Append a comment to a dataset's status log",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDataset(cmd, args[0])
		if err != nil {
			return err
		}
		if d.Path() == "" {
			return dataset.ErrNoPath
		}
		line := statuslog.Comment(strings.Join(args[1:], " "))
		return statuslog.Append(afero.NewOsFs(), d.Path(), line)
	},
}

func openDataset(cmd *cobra.Command, id string) (*dataset.Dataset, error) {
	cfg, err := loadConfig(cmd.Context())
	if err != nil {
		return nil, err
	}
	fsys := afero.NewOsFs()
	tree := catalog.NewFS(fsys, cfg.Warehouse.Base)
	return dataset.New(id, dataset.WithPath(fsys, tree.Dir(id)))
}

type entryView struct {
	Major     string `json:"major"`
	Minor     string `json:"minor"`
	Timestamp string `json:"timestamp"`
	Value     string `json:"value"`
}

type statusView struct {
	ID       string         `json:"id"`
	Kind     string         `json:"kind"`
	Path     string         `json:"path"`
	Status   string         `json:"status"`
	Versions map[string]int `json:"versions"`
	Latest   *entryView     `json:"latest,omitempty"`
	Missing  []string       `json:"missing,omitempty"`
	Records  []entryView    `json:"records"`
	Comments []string       `json:"comments"`
}

func newStatusView(d *dataset.Dataset) statusView {
	v := statusView{
		ID:       d.ID(),
		Kind:     d.Kind().String(),
		Path:     d.Path(),
		Status:   d.Status().String(),
		Versions: d.Versions(),
		Missing:  d.Missing(),
		Records:  records(d.Log()),
		Comments: d.Log().Comm,
	}
	if latest, ok := d.LatestStatus(); ok {
		v.Latest = &entryView{Timestamp: latest.Timestamp, Value: latest.Value}
	}
	return v
}

// records flattens a log, latest first.
func records(l *statuslog.Log) []entryView {
	var out []entryView
	for major, byMinor := range l.Stat {
		for minor, entries := range byMinor {
			for _, e := range entries {
				out = append(out, entryView{Major: major, Minor: minor, Timestamp: e.Timestamp, Value: e.Value})
			}
		}
	}
	slices.SortStableFunc(out, func(a, b entryView) int {
		if c := strings.Compare(b.Timestamp, a.Timestamp); c != 0 {
			return c
		}
		return strings.Compare(a.Major+":"+a.Minor, b.Major+":"+b.Minor)
	})
	return out
}

func printStatus(w io.Writer, d *dataset.Dataset) {
	fmt.Fprintln(w, output.Heading(d.ID()))
	rows := [][]string{
		{"kind", d.Kind().String()},
		{"path", orDash(d.Path())},
	}
	versions := d.Versions()
	var vs []string
	for _, v := range slices.Sorted(maps.Keys(versions)) {
		vs = append(vs, fmt.Sprintf("%s (%s files)", orDash(v), humanize.Comma(int64(versions[v]))))
	}
	rows = append(rows, []string{"versions", orDash(strings.Join(vs, ", "))})
	if span, ok := d.Span(); ok {
		rows = append(rows, []string{"span", span.String()})
	}
	if d.Status() != dataset.StatusUninitialized {
		rows = append(rows, []string{"status", output.Status(d.Status().String())})
	}
	if latest, ok := d.LatestStatus(); ok {
		age := latest.Timestamp
		if ts, err := latest.Time(); err == nil {
			age = humanize.Time(ts.UTC())
		}
		rows = append(rows, []string{"latest", fmt.Sprintf("%s (%s)", latest.Value, age)})
	}
	output.Table(w, rows)

	if missing := d.Missing(); len(missing) > 0 {
		fmt.Fprintf(w, "\n%s\n", output.Heading("Missing"))
		for _, m := range missing {
			fmt.Fprintf(w, "  %s\n", m)
		}
	}

	recs := records(d.Log())
	if len(recs) > 0 {
		fmt.Fprintf(w, "\n%s\n", output.Heading("Records"))
		rows := make([][]string, 0, len(recs))
		for _, r := range recs {
			rows = append(rows, []string{r.Timestamp, r.Major, r.Minor, r.Value})
		}
		output.Table(w, rows)
	}
	if len(d.Log().Comm) > 0 {
		fmt.Fprintf(w, "\n%s\n", output.Heading("Comments"))
		for _, c := range d.Log().Comm {
			fmt.Fprintf(w, "  %s\n", output.Dim(c))
		}
	}
}

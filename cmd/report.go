package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/mitchellh/go-wordwrap"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/e3sm/warehouse/internal/cmdutil"
	"github.com/e3sm/warehouse/internal/output"
	"github.com/e3sm/warehouse/pkg/results"
	"github.com/e3sm/warehouse/pkg/statuslog"
)

var reportFlags struct {
	statusFiles bool
	json        bool
}

func init() {
	reportCmd.Flags().BoolVar(&reportFlags.statusFiles, "status-files", false, "Read the latest status from every status log in the warehouse instead of the results database")
	reportCmd.Flags().BoolVar(&reportFlags.json, "json", false, "Print the report as JSON")
	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize the latest status of every dataset",
	Long: wordwrap.WrapString(
		"Lists every dataset that has been checked with the outcome of its most "+
			"recent check, from the results database. With --status-files, walks the "+
			"warehouse instead and lists the latest record of every status log found.",
		80),
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}

		var rows []reportRow
		if reportFlags.statusFiles {
			fsys := afero.NewOsFs()
			wh, err := cmdutil.OpenWarehouse(fsys, cfg)
			if err != nil {
				return err
			}
			ids, err := wh.Tree.Datasets(ctx)
			if err != nil {
				return err
			}
			for _, id := range ids {
				l, err := statuslog.Load(fsys, wh.Tree.Dir(id))
				if err != nil {
					log.Warnf("reading status log of %s: %v", id, err)
					continue
				}
				rows = append(rows, statusRow(id, l))
			}
		} else {
			repo, err := cmdutil.OpenResults(ctx, cfg.Results)
			if err != nil {
				return err
			}
			if repo == nil {
				return errors.New("no results database configured: set results.data_dir or use --status-files")
			}
			defer repo.Close()
			latest, err := repo.LatestResults(ctx)
			if err != nil {
				return err
			}
			for _, res := range latest {
				rows = append(rows, resultRow(res))
			}
		}

		if reportFlags.json {
			if rows == nil {
				rows = []reportRow{}
			}
			return output.JSON(cmd.OutOrStdout(), rows)
		}
		printRows(cmd.OutOrStdout(), rows)
		return nil
	},
}

type reportRow struct {
	DatasetID string `json:"dataset_id"`
	Kind      string `json:"kind,omitempty"`
	Status    string `json:"status"`
	Missing   *int   `json:"missing,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	age       string
}

func resultRow(res results.Result) reportRow {
	missing := res.MissingCount
	return reportRow{
		DatasetID: res.DatasetID,
		Kind:      res.Kind,
		Status:    res.Outcome,
		Missing:   &missing,
		Timestamp: res.CheckedAt.LogString(),
		age:       humanize.Time(res.CheckedAt.UTC()),
	}
}

func statusRow(id string, l *statuslog.Log) reportRow {
	row := reportRow{DatasetID: id, Status: "-"}
	latest, ok := l.Latest()
	if !ok {
		return row
	}
	row.Status = latest.Value
	row.Timestamp = latest.Timestamp
	row.age = latest.Timestamp
	if ts, err := latest.Time(); err == nil {
		row.age = humanize.Time(ts.UTC())
	}
	return row
}

func printRows(w io.Writer, rows []reportRow) {
	if len(rows) == 0 {
		output.Warning(w, "no datasets found")
		return
	}
	table := [][]string{{"DATASET", "KIND", "STATUS", "MISSING", "WHEN"}}
	for _, r := range rows {
		missing := "-"
		if r.Missing != nil {
			missing = humanize.Comma(int64(*r.Missing))
		}
		table = append(table, []string{r.DatasetID, orDash(r.Kind), output.Status(r.Status), missing, orDash(r.age)})
	}
	output.Table(w, table)
	fmt.Fprintf(w, "\n%s\n", output.Dim(pluralDatasets(len(rows))))
}

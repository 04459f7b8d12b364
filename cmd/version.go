package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/e3sm/warehouse/pkg/build"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of warehouse",
	Long:  `Print the version of warehouse including the git revision.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "version: %s\n", build.Version)
		fmt.Fprintf(out, "commit: %s\n", build.Commit)
		fmt.Fprintf(out, "built at: %s\n", build.Date)
		fmt.Fprintf(out, "built by: %s\n", build.BuiltBy)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

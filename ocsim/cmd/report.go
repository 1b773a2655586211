package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/sarchlab/ocsim/datarecording"
	"github.com/sarchlab/ocsim/simulation"
)

var reportCmd = &cobra.Command{
	Use:   "report <database>",
	Short: "Print the summaries recorded in a database.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reader, err := datarecording.NewReader(args[0])
		if err != nil {
			return err
		}
		defer reader.Close()

		reader.MapTable(simulation.SummaryTableName, simulation.Summary{})

		rows, _, err := reader.Query(context.Background(),
			simulation.SummaryTableName, datarecording.QueryParams{})
		if err != nil {
			return err
		}

		summaries := make([]simulation.Summary, 0, len(rows))
		for _, r := range rows {
			summaries = append(summaries, *r.(*simulation.Summary))
		}

		printSummaries(cmd.OutOrStdout(), summaries)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

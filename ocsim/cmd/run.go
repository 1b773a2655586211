package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/sarchlab/ocsim/simulation"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a workload on one cache configuration.",
	Long: "`run` drives one overlay cache with a trace or a synthetic " +
		"workload and prints the statistics of the run.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		f := cmd.Flags()
		if f.Changed("record") {
			cfg.Recording.Enabled, _ = f.GetBool("record")
		}

		if f.Changed("record-events") {
			cfg.Recording.Events, _ = f.GetBool("record-events")
			cfg.Recording.Enabled = cfg.Recording.Enabled || cfg.Recording.Events
		}

		if f.Changed("output") {
			cfg.Recording.Path, _ = f.GetString("output")
			cfg.Recording.Enabled = true
		}

		if f.Changed("monitor") {
			cfg.Monitor.Enabled, _ = f.GetBool("monitor")
		}

		if f.Changed("open-monitor") {
			cfg.Monitor.OpenBrowser, _ = f.GetBool("open-monitor")
			cfg.Monitor.Enabled = cfg.Monitor.Enabled || cfg.Monitor.OpenBrowser
		}

		if err := cfg.Validate(); err != nil {
			return err
		}

		s := simulation.MakeBuilder().WithConfig(cfg).Build()

		src, closer, err := s.OpenWorkload()
		if err != nil {
			return err
		}
		defer closer.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		runErr := s.Run(ctx, src)

		s.Report(cmd.OutOrStdout())

		if err := s.Terminate(); err != nil {
			return err
		}

		if errors.Is(runErr, context.Canceled) {
			return nil
		}

		return runErr
	},
}

func init() {
	addCacheFlags(runCmd)

	runCmd.Flags().Bool("record", false, "record the run into a SQLite database")
	runCmd.Flags().Bool("record-events", false, "also record every cache event")
	runCmd.Flags().StringP("output", "o", "", "database name, without extension")
	runCmd.Flags().Bool("monitor", false, "serve the monitoring page")
	runCmd.Flags().Bool("open-monitor", false, "open the monitoring page in a browser")

	rootCmd.AddCommand(runCmd)
}

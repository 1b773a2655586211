package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sarchlab/ocsim/workload"
)

var generateCmd = &cobra.Command{
	Use:   "generate <trace file>",
	Short: "Write the synthetic workload to a trace file.",
	Long: "`generate` writes the configured synthetic workload as a text " +
		"trace. Files ending in .zst or .lz4 are compressed.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		genCfg, err := cfg.Generator()
		if err != nil {
			return err
		}

		gen, err := workload.NewGenerator(genCfg)
		if err != nil {
			return err
		}

		n, err := writeTrace(args[0], gen, fmt.Sprintf("seed %d", genCfg.Seed))
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d records to %s\n", n, args[0])

		return nil
	},
}

func init() {
	addCacheFlags(generateCmd)
	rootCmd.AddCommand(generateCmd)
}

func writeTrace(path string, src workload.Source, comment string) (n int, err error) {
	w, err := workload.Create(path)
	if err != nil {
		return 0, err
	}

	defer func() {
		err = errors.Join(err, w.Close())
	}()

	if err := w.Comment(comment); err != nil {
		return 0, err
	}

	for {
		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			return n, nil
		}

		if err != nil {
			return n, err
		}

		if err := w.Write(rec); err != nil {
			return n, err
		}

		n++
	}
}

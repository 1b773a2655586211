package cmd

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sarchlab/ocsim/config"
	"github.com/sarchlab/ocsim/datarecording"
	"github.com/sarchlab/ocsim/simulation"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run a workload on many cache configurations.",
	Long: "`sweep` runs the workload on every combination of the given " +
		"codecs, shapes and sizes. The runs are independent and execute " +
		"concurrently.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		base, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		f := cmd.Flags()
		kinds, _ := f.GetStringSlice("kinds")
		shapes, _ := f.GetStringSlice("shapes")
		sizes, _ := f.GetStringSlice("sizes")
		jobs, _ := f.GetInt("jobs")
		output, _ := f.GetString("output")

		configs, err := expandSweep(base, kinds, shapes, sizes)
		if err != nil {
			return err
		}

		summaries, err := runSweep(cmd.Context(), configs, jobs)
		if err != nil {
			return err
		}

		printSummaries(cmd.OutOrStdout(), summaries)

		if output != "" {
			recordSummaries(output, summaries)
		}

		return nil
	},
}

func init() {
	addCacheFlags(sweepCmd)

	f := sweepCmd.Flags()
	f.StringSlice("kinds", []string{"none", "bdi", "fpc", "cpack", "mbd"},
		"codecs to sweep")
	f.StringSlice("shapes", []string{"4x1", "1x4", "2x2"},
		"page shapes to sweep")
	f.StringSlice("sizes", nil, "cache sizes to sweep, such as 32KB,64KB")
	f.IntP("jobs", "j", runtime.NumCPU(), "number of concurrent runs")
	f.StringP("output", "o", "", "record the summaries into this database")

	rootCmd.AddCommand(sweepCmd)
}

// expandSweep builds the cartesian product of the swept values. An
// uncompressed cache has no shape, so it is run once per size.
func expandSweep(
	base *config.Config,
	kinds, shapes, sizes []string,
) ([]*config.Config, error) {
	if len(sizes) == 0 {
		sizes = []string{base.Cache.Size.String()}
	}

	var configs []*config.Config

	for _, sizeStr := range sizes {
		size, err := config.ParseByteSize(sizeStr)
		if err != nil {
			return nil, err
		}

		for _, kind := range kinds {
			kindShapes := shapes
			if strings.EqualFold(kind, "none") {
				kindShapes = []string{"None"}
			}

			for _, shape := range kindShapes {
				cfg := *base
				cfg.Cache.Size = size
				cfg.Compression.Kind = kind
				cfg.Compression.Shape = shape
				cfg.Recording = config.RecordingConfig{}
				cfg.Monitor = config.MonitorConfig{}

				if err := cfg.Validate(); err != nil {
					return nil, fmt.Errorf("%s %s %s: %w", size, kind, shape, err)
				}

				configs = append(configs, &cfg)
			}
		}
	}

	return configs, nil
}

func runSweep(
	ctx context.Context,
	configs []*config.Config,
	jobs int,
) ([]simulation.Summary, error) {
	summaries := make([]simulation.Summary, len(configs))

	g, ctx := errgroup.WithContext(ctx)
	if jobs > 0 {
		g.SetLimit(jobs)
	}

	for i, cfg := range configs {
		i, cfg := i, cfg
		g.Go(func() error {
			s := simulation.MakeBuilder().WithConfig(cfg).Build()

			src, closer, err := s.OpenWorkload()
			if err != nil {
				return err
			}
			defer closer.Close()

			if err := s.Run(ctx, src); err != nil {
				return err
			}

			summaries[i] = s.Summarize()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return summaries, nil
}

func printSummaries(w io.Writer, summaries []simulation.Summary) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	fmt.Fprintln(tw, "size\tkind\tshape\thit rate\tcompressed hits\t"+
		"lines/sb\tratio\tcycles\t")

	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.4f\t%d\t%.2f\t%.3f\t%d\t\n",
			config.ByteSize(s.Size), s.Kind, s.Shape, s.HitRate,
			s.CompressedHits, s.LinesPerSuperBlock, s.CompressionRatio, s.Cycles)
	}

	tw.Flush()
}

func recordSummaries(path string, summaries []simulation.Summary) {
	recorder := datarecording.New(path)
	defer recorder.Close()

	exec := datarecording.NewExecRecorder(recorder)
	exec.Start()

	recorder.CreateTable(simulation.SummaryTableName, simulation.Summary{})
	for _, s := range summaries {
		recorder.InsertData(simulation.SummaryTableName, s)
	}

	exec.Add("Runs", fmt.Sprint(len(summaries)))
	exec.End()
}

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/sarchlab/ocsim/config"
)

func addCacheFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("size", "", "cache size, such as 32KB")
	f.Int("ways", 0, "cache associativity")
	f.Uint64("latency", 0, "cache hit latency in cycles")
	f.Bool("repack", false, "repack super-blocks that span several slots")
	f.String("kind", "", "codec: none, bdi, fpc, cpack or mbd")
	f.String("shape", "", "default page shape: None, 4x1, 1x4 or 2x2")
	f.Uint64("memory-latency", 0, "cycles a miss waits for memory")
	f.String("trace", "", "trace file (.zst and .lz4 are decompressed)")
	f.Int("records", 0, "number of synthetic records")
}

// applyCacheFlags copies the flags the user set into the configuration.
func applyCacheFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()

	if f.Lookup("size") == nil {
		return nil
	}

	if f.Changed("size") {
		v, _ := f.GetString("size")

		size, err := config.ParseByteSize(v)
		if err != nil {
			return err
		}

		cfg.Cache.Size = size
	}

	if f.Changed("ways") {
		cfg.Cache.Ways, _ = f.GetInt("ways")
	}

	if f.Changed("latency") {
		cfg.Cache.Latency, _ = f.GetUint64("latency")
	}

	if f.Changed("repack") {
		cfg.Cache.Repack, _ = f.GetBool("repack")
	}

	if f.Changed("kind") {
		cfg.Compression.Kind, _ = f.GetString("kind")
	}

	if f.Changed("shape") {
		cfg.Compression.Shape, _ = f.GetString("shape")
	}

	if f.Changed("memory-latency") {
		cfg.Memory.Latency, _ = f.GetUint64("memory-latency")
	}

	if f.Changed("trace") {
		cfg.Workload.Trace, _ = f.GetString("trace")
	}

	if f.Changed("records") {
		cfg.Workload.Records, _ = f.GetInt("records")
	}

	return nil
}

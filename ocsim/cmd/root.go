// Package cmd provides the command-line interface of ocsim.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/ocsim/config"
)

var (
	configFile string
	envFile    string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ocsim",
	Short: "ocsim simulates compressed super-block caches.",
	Long: `ocsim simulates an overlay cache that packs compressed lines of ` +
		`a super-block into one slot. It can run a workload on one cache ` +
		`configuration, sweep many configurations and inspect how the ` +
		`codecs compress a line.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env",
		"file of OCSIM_* variables loaded before the environment is read")
}

// loadConfig reads the configuration and applies the flags of a command that
// were set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configFile, envFile)
	if err != nil {
		return nil, err
	}

	if err := applyCacheFlags(cmd, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Rodario/dash/internal/config"
	"github.com/Rodario/dash/internal/nlog"
)

var (
	verbose    bool
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "dashctl",
	Short: "Demo CLI for the dash partitioned-address-space runtime",
	Long: `dashctl builds a loopback team in this process and drives
containers, views and collectives over it, so the distribution and
synchronization logic can be inspected without a real cluster.`,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		if verbose {
			nlog.SetLevel(nlog.LevelVerbose)
		}
		if configFile != "" {
			if err := config.Load(configFile); err != nil {
				return err
			}
		}
		return nil
	},
}

// Execute runs the root command, exiting the process on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "optional YAML config file (internal/config.Load)")
}

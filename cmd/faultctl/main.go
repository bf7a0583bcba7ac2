package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
	version = "dev" // Will be set by build flags
)

var rootCmd = &cobra.Command{
	Use:   "faultctl",
	Short: "Network fault injection controller",
	Long: `faultctl drives tc/netem/tbf/mirred, ifconfig, nsenter and stress-ng
to inject and retract link and node faults against an externally provided
network topology, replaying a YAML fault schedule or an iterative
random/most-used-link strategy.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "fault configuration file (YAML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(advanceCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(controllerCmd)
}

// Commands are defined in separate files:
// - runCmd in run.go
// - advanceCmd in advance.go
// - stopCmd in stop.go
// - statusCmd in status.go
// - controllerCmd in controller.go (hidden, injector-side entry point)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

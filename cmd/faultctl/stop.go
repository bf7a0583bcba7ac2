package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/netfault/faultctl/pkg/emergency"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Args:  cobra.NoArgs,
	Short: "Request an emergency stop of a running fault run",
	Long: `Creates the emergency stop file a running faultctl run watches,
which shuts down every active fault and exits the run.`,
	RunE: runStop,
}

func init() {
	stopCmd.Flags().String("stop-file", defaultStopFile, "path to the running process's stop file")
}

func runStop(cmd *cobra.Command, _ []string) error {
	stopFile, _ := cmd.Flags().GetString("stop-file")

	ctrl := emergency.New(emergency.Config{StopFile: stopFile})
	if err := ctrl.CreateStopFile(); err != nil {
		return fmt.Errorf("failed to request stop: %w", err)
	}
	fmt.Printf("stop requested via %s\n", stopFile)
	return nil
}

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var advanceCmd = &cobra.Command{
	Use:   "advance",
	Args:  cobra.NoArgs,
	Short: "Advance a running iterative fault run to its next round",
	Long: `Creates the advance request file a running faultctl run polls
for. A no-op against a config-file strategy run; random-links and
most-used-link runs in manual mode wait for this before choosing their
next set of links.`,
	RunE: runAdvance,
}

func init() {
	advanceCmd.Flags().String("advance-file", defaultAdvanceFile, "path to the running process's advance file")
}

func runAdvance(cmd *cobra.Command, _ []string) error {
	advanceFile, _ := cmd.Flags().GetString("advance-file")

	f, err := os.Create(advanceFile)
	if err != nil {
		return fmt.Errorf("failed to request advance: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(fmt.Sprintf("advance requested at %s\n", time.Now().Format(time.RFC3339))); err != nil {
		return fmt.Errorf("failed to request advance: %w", err)
	}

	fmt.Printf("advance requested via %s\n", advanceFile)
	return nil
}

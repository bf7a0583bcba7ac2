package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Args:  cobra.NoArgs,
	Short: "Report whether a fault run is active",
	Long:  `Reads the status file a running faultctl run periodically updates.`,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().String("status-file", defaultStatusFile, "path to the running process's status file")
}

func runStatus(cmd *cobra.Command, _ []string) error {
	statusFile, _ := cmd.Flags().GetString("status-file")

	data, err := os.ReadFile(statusFile)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("no fault run appears to be active")
			return nil
		}
		return fmt.Errorf("failed to read status file: %w", err)
	}

	var doc statusDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse status file: %w", err)
	}

	age := time.Since(doc.UpdatedAt)
	fmt.Printf("pid=%d active=%t updated=%s (%s ago)\n", doc.PID, doc.Active, doc.UpdatedAt.Format(time.RFC3339), age.Round(time.Second))
	if age > 10*time.Second {
		fmt.Println("warning: status is stale, the run may have exited uncleanly")
	}
	return nil
}

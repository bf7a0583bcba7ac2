package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/netfault/faultctl/pkg/ipc"
	"github.com/netfault/faultctl/pkg/logging"
	"github.com/netfault/faultctl/pkg/starter"
)

// controllerFD is the first inherited ExtraFiles descriptor number; fd 0-2
// are stdin/stdout/stderr, so a Starter's two ExtraFiles land at fd 3
// and fd 4 in the child.
const controllerFD = 3

var controllerCmd = &cobra.Command{
	Use:    starter.ControllerArg,
	Args:   cobra.ExactArgs(1),
	Hidden: true,
	Short:  "Injector-side entry point (spawned by a Starter, not run directly)",
	RunE:   runController,
}

func runController(_ *cobra.Command, args []string) error {
	statePath := args[0]

	recvFile := os.NewFile(controllerFD, "controller-recv")
	sendFile := os.NewFile(controllerFD+1, "controller-send")
	if recvFile == nil || sendFile == nil {
		return fmt.Errorf("controller subcommand must be spawned with its IPC pipes on fd %d/%d", controllerFD, controllerFD+1)
	}
	channel := ipc.ChannelFromFiles(recvFile, sendFile)

	logLevel := logging.LevelInfo
	if verbose {
		logLevel = logging.LevelDebug
	}
	logger := logging.New(logging.Config{Level: logLevel, Format: logging.FormatText, Output: os.Stderr})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return starter.RunInjector(ctx, statePath, channel, logger)
}

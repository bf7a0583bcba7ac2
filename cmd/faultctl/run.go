package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/netfault/faultctl/pkg/logging"
	"github.com/netfault/faultctl/pkg/starter"
	"github.com/netfault/faultctl/pkg/topology"
	"github.com/netfault/faultctl/pkg/topology/docker"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Args:  cobra.NoArgs,
	Short: "Start a fault injection run",
	Long: `Loads a fault configuration file, resolves it against a topology
snapshot, and spawns the injector subprocess that renders and runs the
tc/ifconfig/nsenter/stress-ng commands.

run blocks for the lifetime of the fault run. Use faultctl advance,
faultctl stop and faultctl status from another invocation to control
and inspect it while it runs.`,
	RunE: runFaults,
}

func init() {
	runCmd.Flags().String("strategy", "config-file", "starter strategy: config-file, random-links, most-used-link")
	runCmd.Flags().String("topology", "", "path to a JSON topology snapshot (see pkg/topology.LoadSnapshot)")
	runCmd.Flags().String("docker-project", "", "discover the topology from a running Docker Compose project instead of --topology")
	runCmd.Flags().String("metrics-addr", "", "address to serve Prometheus metrics on (e.g. :9100); empty disables")
	runCmd.Flags().String("pid-file", defaultPIDFile, "path this process records its PID to")
	runCmd.Flags().String("advance-file", defaultAdvanceFile, "path polled for an advance request")
	runCmd.Flags().String("status-file", defaultStatusFile, "path this process writes its status to")
	runCmd.Flags().String("stop-file", defaultStopFile, "path polled for an emergency stop request")
}

func runFaults(cmd *cobra.Command, _ []string) error {
	if cfgFile == "" {
		return fmt.Errorf("--config is required")
	}

	strategyFlag, _ := cmd.Flags().GetString("strategy")
	kind, err := parseKind(strategyFlag)
	if err != nil {
		return err
	}

	topologyPath, _ := cmd.Flags().GetString("topology")
	dockerProject, _ := cmd.Flags().GetString("docker-project")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
	pidFile, _ := cmd.Flags().GetString("pid-file")
	advanceFile, _ := cmd.Flags().GetString("advance-file")
	statusFile, _ := cmd.Flags().GetString("status-file")
	stopFile, _ := cmd.Flags().GetString("stop-file")

	if topologyPath == "" && dockerProject == "" {
		return fmt.Errorf("one of --topology or --docker-project is required")
	}

	logLevel := logging.LevelInfo
	if verbose {
		logLevel = logging.LevelDebug
	}
	logger := logging.New(logging.Config{Level: logLevel, Format: logging.FormatText, Output: os.Stdout})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	snapshot, err := loadSnapshot(ctx, topologyPath, dockerProject)
	if err != nil {
		return fmt.Errorf("failed to acquire topology snapshot: %w", err)
	}

	s, err := starter.New(ctx, kind, snapshot, cfgFile, logger, starter.Options{MetricsAddr: metricsAddr, StopFile: stopFile})
	if err != nil {
		return fmt.Errorf("failed to construct starter: %w", err)
	}

	if err := writePIDFile(pidFile); err != nil {
		logger.Warn("failed to write pid file", "path", pidFile, "error", err.Error())
	}
	defer os.Remove(pidFile)

	if err := s.Start(ctx); err != nil {
		return fmt.Errorf("failed to start injection: %w", err)
	}
	logger.Info("fault run started", "strategy", string(kind), "config", cfgFile)

	statusDone := make(chan struct{})
	go watchStatusFile(ctx, s, statusFile, statusDone)
	go watchAdvanceFile(ctx, s, advanceFile, logger)

	err = s.Wait()
	close(statusDone)
	os.Remove(statusFile)

	if err != nil {
		return fmt.Errorf("fault run ended with error: %w", err)
	}
	logger.Info("fault run completed")
	return nil
}

// parseKind validates a --strategy flag value against the known
// starter.Kind values.
func parseKind(raw string) (starter.Kind, error) {
	switch starter.Kind(raw) {
	case starter.KindConfigFile, starter.KindRandomLinks, starter.KindMostUsedLink:
		return starter.Kind(raw), nil
	default:
		return "", fmt.Errorf("unknown --strategy %q (want config-file, random-links, or most-used-link)", raw)
	}
}

// loadSnapshot acquires a topology.Snapshot from whichever of
// --topology/--docker-project was supplied.
func loadSnapshot(ctx context.Context, topologyPath, dockerProject string) (topology.Snapshot, error) {
	if dockerProject != "" {
		client, err := docker.New()
		if err != nil {
			return topology.Snapshot{}, fmt.Errorf("failed to connect to docker: %w", err)
		}
		defer client.Close()
		return client.Discover(ctx, dockerProject)
	}
	return topology.LoadSnapshot(topologyPath)
}

// writePIDFile records the current process id at path, so a later
// faultctl invocation can confirm a run is active.
func writePIDFile(path string) error {
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

// statusDoc is the JSON shape faultctl status reads back.
type statusDoc struct {
	PID       int       `json:"pid"`
	Active    bool      `json:"active"`
	UpdatedAt time.Time `json:"updated_at"`
}

// watchStatusFile periodically records s's activity state to path until
// done closes.
func watchStatusFile(ctx context.Context, s *starter.Starter, path string, done <-chan struct{}) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	write := func() {
		doc := statusDoc{PID: os.Getpid(), Active: s.IsActive(), UpdatedAt: time.Now()}
		data, err := json.Marshal(doc)
		if err != nil {
			return
		}
		_ = os.WriteFile(path, data, 0o644)
	}

	write()
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			write()
		}
	}
}

// watchAdvanceFile polls for an operator-created advance request file,
// the advance-side counterpart to pkg/emergency's stop-file poll: a
// separate faultctl advance invocation cannot reach this process's
// starter.Starter directly, so it leaves a file behind instead.
func watchAdvanceFile(ctx context.Context, s *starter.Starter, path string, logger *logging.Logger) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := os.Stat(path); err != nil {
				continue
			}
			os.Remove(path)
			if err := s.Advance(); err != nil {
				logger.Warn("failed to advance fault run", "error", err.Error())
			} else {
				logger.Info("advance requested")
			}
		}
	}
}

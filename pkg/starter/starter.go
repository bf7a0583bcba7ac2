// Package starter implements the Starter API consumed by the network
// emulator: construct, start, advance, stop, is_active. The Starter
// runs in the emulator's process, loads and resolves a YAML
// configuration against a topology snapshot, spawns the injector as a
// subprocess, and exchanges the five IPC messages with it. Grounded on
// BaseFaultControllerStarter and its three subclasses in
// original_source/mininet/fault_controllers/BaseFaultController.py,
// ConfigFileFaultController.py, RandomLinkFaultController.py and
// MostUsedLinkFaultController.py.
package starter

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/netfault/faultctl/pkg/config"
	"github.com/netfault/faultctl/pkg/emergency"
	"github.com/netfault/faultctl/pkg/ipc"
	"github.com/netfault/faultctl/pkg/logging"
	"github.com/netfault/faultctl/pkg/strategy"
	"github.com/netfault/faultctl/pkg/topology"
)

// Kind selects which of the three strategies a Starter resolves its
// configuration into. The original expresses this as three distinct
// Starter subclasses, each instantiated explicitly by its caller rather
// than inferred from the YAML shape; Kind is the Go equivalent of that
// choice.
type Kind string

const (
	KindConfigFile   Kind = "config-file"
	KindRandomLinks  Kind = "random-links"
	KindMostUsedLink Kind = "most-used-link"
)

// ControllerArg is the faultctl subcommand name __controller (the
// injector-side entry point, see cmd/faultctl) registers itself under.
// A Starter execs itself with this argv plus the runtime state file
// path to become the injector process.
const ControllerArg = "__controller"

// Starter is one construct/start/advance/stop/is_active lifecycle
// around a single spawned injector subprocess.
type Starter struct {
	cmd       *exec.Cmd
	channel   *ipc.Channel
	emcy      *emergency.Controller
	logger    *logging.Logger
	statePath string
	stopFile  string

	mu     sync.Mutex
	active bool
}

// Self returns the argv0 a Starter execs to re-enter itself as the
// injector-side controller subcommand. Overridable for tests.
var Self = func() (string, error) { return os.Executable() }

// Options carries the pieces of a Starter's construction that have no
// home in the YAML configuration itself.
type Options struct {
	// MetricsAddr, if set, tells the injector subprocess to serve
	// Prometheus metrics on this address.
	MetricsAddr string

	// StopFile, if set, overrides the path the emergency-stop watcher
	// armed by Start polls. Empty keeps pkg/emergency's own default.
	StopFile string
}

// New constructs a Starter: it loads configPath, resolves every
// identifier in it against snapshot, writes the resolved runtime state
// to a temp file, spawns the injector subprocess, and blocks until the
// subprocess reports SETUP_DONE. Grounded on
// construct(topology_snapshot, config_path).
func New(ctx context.Context, kind Kind, snapshot topology.Snapshot, configPath string, logger *logging.Logger, opts Options) (*Starter, error) {
	state, err := resolve(kind, snapshot, configPath, logger)
	if err != nil {
		return nil, err
	}
	state.MetricsAddr = opts.MetricsAddr

	statePath, err := WriteRuntimeState(state)
	if err != nil {
		return nil, err
	}

	pipes, err := ipc.NewPipes()
	if err != nil {
		os.Remove(statePath)
		return nil, fmt.Errorf("failed to allocate controller pipes: %w", err)
	}

	self, err := Self()
	if err != nil {
		os.Remove(statePath)
		return nil, fmt.Errorf("failed to resolve faultctl executable path: %w", err)
	}

	recvFile, sendFile := pipes.ControllerFiles()
	cmd := exec.CommandContext(ctx, self, ControllerArg, statePath)
	cmd.ExtraFiles = []*os.File{recvFile, sendFile}
	cmd.Stdout, cmd.Stderr = os.Stdout, os.Stderr

	if err := cmd.Start(); err != nil {
		os.Remove(statePath)
		return nil, fmt.Errorf("failed to spawn injector subprocess: %w", err)
	}

	starterChannel := pipes.StarterChannel()
	msg, err := starterChannel.Recv()
	if err != nil {
		return nil, fmt.Errorf("failed to receive setup confirmation: %w", err)
	}
	if msg != ipc.MsgSetupDone {
		return nil, fmt.Errorf("unexpected message while waiting for setup: %q", msg)
	}

	return &Starter{cmd: cmd, channel: starterChannel, logger: logger, statePath: statePath, stopFile: opts.StopFile}, nil
}

// resolve loads configPath under kind's schema and turns it into a
// RuntimeState, the only thing handed across the subprocess boundary.
func resolve(kind Kind, snapshot topology.Snapshot, configPath string, logger *logging.Logger) (RuntimeState, error) {
	switch kind {
	case KindConfigFile:
		cfg, err := config.LoadConfigFile(configPath)
		if err != nil {
			return RuntimeState{}, fmt.Errorf("failed to load config file: %w", err)
		}
		state := RuntimeState{Kind: kind, ConfigFileSpecs: resolveConfigFile(cfg, snapshot, logger)}
		applyLog(&state, cfg.Log, snapshot, logger)
		return state, nil

	case KindRandomLinks, KindMostUsedLink:
		cfg, err := config.LoadIterative(configPath)
		if err != nil {
			return RuntimeState{}, fmt.Errorf("failed to load config file: %w", err)
		}
		template, candidates, err := resolveIterative(cfg, snapshot, logger)
		if err != nil {
			return RuntimeState{}, fmt.Errorf("failed to resolve config: %w", err)
		}
		state := RuntimeState{
			Kind:             kind,
			StartLinks:       cfg.StartLinks,
			EndLinks:         cfg.EndLinks,
			InjectionSeconds: cfg.InjectionTime,
			Mode:             strategy.Mode(cfg.Mode),
			Template:         template,
			Candidates:       candidates,
		}
		applyLog(&state, cfg.Log, snapshot, logger)
		return state, nil

	default:
		return RuntimeState{}, fmt.Errorf("unknown starter kind %q", kind)
	}
}

func applyLog(state *RuntimeState, logCfg *config.LogConfig, snapshot topology.Snapshot, logger *logging.Logger) {
	if logCfg == nil {
		return
	}
	state.LogIntervalMS = logCfg.IntervalMS
	state.LogPath = logCfg.Path
	state.LogCommands = resolveDebugCommands(logCfg.Commands, snapshot, logger)
	if !state.HasLog() {
		defaults := config.DefaultLogConfig()
		state.LogIntervalMS, state.LogPath = defaults.IntervalMS, defaults.Path
	}
}

// Start sends START_INJECTING and arms the emergency-stop watcher that
// sends SHUTDOWN if an operator creates the stop file or sends
// SIGINT/SIGTERM, the Go equivalent of the original's at-exit SHUTDOWN
// hook.
func (s *Starter) Start(ctx context.Context) error {
	s.mu.Lock()
	s.active = true
	s.mu.Unlock()

	s.emcy = emergency.New(emergency.Config{StopFile: s.stopFile, Logger: s.logger, EnableSignalHandlers: true})
	s.emcy.OnStop(func() { _ = s.Stop() })
	s.emcy.Start(ctx)

	return s.channel.Send(ipc.MsgStartInjecting)
}

// Advance sends START_NEXT_RUN. A no-op for automatic-mode strategies
// is the injector's responsibility (ConfigFile does not implement the
// advancer interface; RandomLinks/MostUsedLink only react to it while
// waiting).
func (s *Starter) Advance() error {
	return s.channel.Send(ipc.MsgStartNextRun)
}

// Stop sends SHUTDOWN.
func (s *Starter) Stop() error {
	s.mu.Lock()
	s.active = false
	s.mu.Unlock()
	return s.channel.Send(ipc.MsgShutdown)
}

// IsActive reports false once INJECTION_DONE has been received. Wait
// must run concurrently (typically in its own goroutine) for this to
// ever flip.
func (s *Starter) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Wait blocks for INJECTION_DONE, clears the active flag, waits for the
// subprocess to exit, and removes the runtime state temp file.
func (s *Starter) Wait() error {
	msg, err := s.channel.Recv()
	s.mu.Lock()
	s.active = false
	s.mu.Unlock()

	if s.statePath != "" {
		defer os.Remove(s.statePath)
	}

	if err != nil {
		return fmt.Errorf("failed to receive injection-done message: %w", err)
	}
	if msg != ipc.MsgInjectionDone {
		return fmt.Errorf("unexpected message while waiting for completion: %q", msg)
	}
	if s.cmd != nil {
		return s.cmd.Wait()
	}
	return nil
}

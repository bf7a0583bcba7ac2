package starter

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/netfault/faultctl/pkg/controller"
	"github.com/netfault/faultctl/pkg/faultlog"
	"github.com/netfault/faultctl/pkg/faultspec"
	"github.com/netfault/faultctl/pkg/ipc"
	"github.com/netfault/faultctl/pkg/logging"
	"github.com/netfault/faultctl/pkg/metrics"
	"github.com/netfault/faultctl/pkg/registry"
	"github.com/netfault/faultctl/pkg/strategy"
)

// RuntimeState is the fully-resolved configuration handed across the
// process boundary to the spawned injector subcommand. Everything in it
// is a plain JSON-serializable value: the Starter has already resolved
// every topology identifier before this struct is built, so the
// injector process never needs the topology snapshot itself, matching
// "the injector never touches the topology snapshot" in the identifier
// resolution rules this module implements.
type RuntimeState struct {
	Kind Kind `json:"kind"`

	// ConfigFileSpecs is populated when Kind == KindConfigFile.
	ConfigFileSpecs []faultspec.Spec `json:"config_file_specs,omitempty"`

	// The remaining fields are populated when Kind is KindRandomLinks or
	// KindMostUsedLink.
	StartLinks       int                      `json:"start_links,omitempty"`
	EndLinks         int                      `json:"end_links,omitempty"`
	InjectionSeconds int                      `json:"injection_seconds,omitempty"`
	Mode             strategy.Mode            `json:"mode,omitempty"`
	Template         faultspec.Spec           `json:"template,omitempty"`
	Candidates       []strategy.CandidateLink `json:"candidates,omitempty"`

	LogIntervalMS int                     `json:"log_interval_ms,omitempty"`
	LogPath       string                  `json:"log_path,omitempty"`
	LogCommands   []faultlog.DebugCommand `json:"log_commands,omitempty"`

	// MetricsAddr, when non-empty, is the listen address the injector
	// subprocess serves /metrics on.
	MetricsAddr string `json:"metrics_addr,omitempty"`
}

// HasLog reports whether a 'log:' block was configured.
func (s RuntimeState) HasLog() bool { return s.LogPath != "" || s.LogIntervalMS != 0 || len(s.LogCommands) > 0 }

// WriteRuntimeState serializes state to a fresh temp file and returns
// its path. The spawned injector subprocess is told this path as its
// first argument.
func WriteRuntimeState(state RuntimeState) (string, error) {
	f, err := os.CreateTemp("", "faultctl-state-*.json")
	if err != nil {
		return "", fmt.Errorf("failed to create runtime state file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	if err := enc.Encode(state); err != nil {
		return "", fmt.Errorf("failed to encode runtime state: %w", err)
	}
	return f.Name(), nil
}

// ReadRuntimeState loads a RuntimeState previously written by
// WriteRuntimeState, the injector subcommand's first step before
// constructing its Strategy.
func ReadRuntimeState(path string) (RuntimeState, error) {
	var state RuntimeState
	data, err := os.ReadFile(path)
	if err != nil {
		return state, fmt.Errorf("failed to read runtime state file: %w", err)
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return state, fmt.Errorf("failed to decode runtime state: %w", err)
	}
	return state, nil
}

// BuildStrategy reconstructs the Strategy (and, if configured, the
// faultlog.Logger) a RuntimeState describes, wiring both to reg and
// logger. This is the injector subcommand's counterpart to the
// Starter-side resolve.go functions: everything identifier-shaped has
// already been resolved by the time this runs.
func BuildStrategy(state RuntimeState, reg *registry.Registry, logger *logging.Logger) (strategy.Strategy, *faultlog.Logger) {
	var strat strategy.Strategy

	switch state.Kind {
	case KindConfigFile:
		strat = &strategy.ConfigFile{Specs: state.ConfigFileSpecs, Registry: reg, Logger: logger}

	case KindRandomLinks:
		r := strategy.NewRandomLinks()
		r.StartLinks, r.EndLinks = state.StartLinks, state.EndLinks
		r.InjectionSeconds = state.InjectionSeconds
		r.Mode = state.Mode
		r.Template, r.Candidates = state.Template, state.Candidates
		r.Registry, r.Logger = reg, logger
		strat = r

	case KindMostUsedLink:
		m := strategy.NewMostUsedLink()
		m.EndLinks = state.EndLinks
		m.InjectionSeconds = state.InjectionSeconds
		m.Mode = state.Mode
		m.Template, m.Candidates = state.Template, state.Candidates
		m.Registry, m.Logger = reg, logger
		strat = m
	}

	var faultLogger *faultlog.Logger
	if state.HasLog() {
		faultLogger = faultlog.New(faultlog.Config{
			Interval: time.Duration(state.LogIntervalMS) * time.Millisecond,
			Path:     state.LogPath,
			Commands: state.LogCommands,
			Registry: reg,
			Logger:   logger,
		})
	}
	return strat, faultLogger
}

// RunInjector is the injector subcommand's entire body: read the
// runtime state file at statePath, reconstruct the Strategy, wait for
// the Starter's go signal over channel, run to completion, and report
// back. Grounded on BaseFaultController's construct-then-run sequence,
// with the config-resolution half of that sequence already done on the
// Starter side by the time this runs.
func RunInjector(ctx context.Context, statePath string, channel *ipc.Channel, logger *logging.Logger) error {
	state, err := ReadRuntimeState(statePath)
	if err != nil {
		return err
	}

	controller.CheckPrerequisites(logger)

	reg := registry.New(logger)
	strat, faultLogger := BuildStrategy(state, reg, logger)
	if strat == nil {
		return fmt.Errorf("runtime state named unknown strategy kind %q", state.Kind)
	}

	if state.MetricsAddr != "" {
		metricsReg := metrics.NewRegistry()
		metricsReg.Install(reg)
		server := metrics.NewServer(state.MetricsAddr, metricsReg)
		go func() {
			if err := server.Start(ctx, logger); err != nil && logger != nil {
				logger.Warn("metrics server exited with error", "error", err.Error())
			}
		}()
	}

	ctrl := controller.New(strat, channel, logger, faultLogger)
	if err := ctrl.SignalSetupDone(); err != nil {
		return fmt.Errorf("failed to signal setup done: %w", err)
	}
	return ctrl.WaitUntilGo(ctx)
}

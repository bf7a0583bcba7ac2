package injector

import (
	"context"
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/netfault/faultctl/pkg/cgroup"
	"github.com/netfault/faultctl/pkg/command"
	"github.com/netfault/faultctl/pkg/faultspec"
	"github.com/netfault/faultctl/pkg/logging"
	"github.com/netfault/faultctl/pkg/pattern"
	"github.com/netfault/faultctl/pkg/registry"
	"github.com/netfault/faultctl/pkg/shellexec"
)

var errMissingFaultArgs = errors.New("fault_args is empty")

// NodeInjector drives one node fault's window (stress_cpu or custom).
// Constructed and run the same way as LinkInjector; the two are kept as
// separate types rather than a single parameterized one because their
// rendering rules and cgroup-fraction handling diverge enough that a
// shared struct would need a kind switch at every step anyway — the
// split mirrors LinkInjector/NodeInjector as two distinct classes in
// original_source/mininet/fault_injectors.py.
type NodeInjector struct {
	Spec     faultspec.Spec
	Registry *registry.Registry
	Logger   *logging.Logger
}

// NewNodeInjector constructs a NodeInjector.
func NewNodeInjector(spec faultspec.Spec, reg *registry.Registry, logger *logging.Logger) *NodeInjector {
	return &NodeInjector{Spec: spec, Registry: reg, Logger: logger}
}

// Run executes the full pre/pattern-loop/post window for a node fault.
func (ni *NodeInjector) Run(ctx context.Context) error {
	if sleepCtx(ctx, time.Duration(ni.Spec.PreSeconds)*time.Second) {
		return nil
	}

	switch ni.Spec.Pattern {
	case faultspec.PatternBurst:
		ni.runBurst(ctx)
	case faultspec.PatternDegradation:
		if err := ni.runDegradation(ctx); err != nil {
			ni.warn("degradation pattern failed", err)
		}
	default:
		ni.runPersistent(ctx)
	}

	sleepCtx(ctx, time.Duration(ni.Spec.PostSeconds)*time.Second)
	return nil
}

func (ni *NodeInjector) runPersistent(ctx context.Context) {
	active := time.Duration(ni.Spec.ActiveSeconds) * time.Second
	ni.stepOnce(ctx, ni.requestedPct(), active)
}

func (ni *NodeInjector) runBurst(ctx context.Context) {
	args, err := pattern.ParseBurstArgs(ni.Spec.PatternArgs)
	if err != nil {
		ni.warn("failed to parse burst pattern_args", err)
		return
	}
	n := pattern.BurstCount(time.Duration(ni.Spec.ActiveSeconds)*time.Second, args)
	remaining := args.Period - args.Duration
	pct := ni.requestedPct()

	for i := 0; i < n; i++ {
		if ni.stepOnce(ctx, pct, args.Duration) {
			return
		}
		if sleepCtx(ctx, remaining) {
			return
		}
	}
}

// requestedPct reads the configured stress_cpu intensity from
// FaultArgs[0], defaulting to 50 when absent, matching
// _inject_burst/_inject_persistent's fault_args[0] handling in
// original_source/mininet/fault_injectors.py.
func (ni *NodeInjector) requestedPct() int {
	if len(ni.Spec.FaultArgs) == 0 {
		ni.warn("missing stress intensity, defaulting to 50%", errMissingFaultArgs)
		return 50
	}
	pct, err := strconv.Atoi(ni.Spec.FaultArgs[0])
	if err != nil {
		ni.warn("invalid stress intensity, defaulting to 50%", err)
		return 50
	}
	return pct
}

func (ni *NodeInjector) runDegradation(ctx context.Context) error {
	args, err := pattern.ParseDegradationArgs(ni.Spec.PatternArgs)
	if err != nil {
		return err
	}
	seq := pattern.DegradationSequence(time.Duration(ni.Spec.ActiveSeconds)*time.Second, args)

	for _, v := range seq {
		if ni.stepOnce(ctx, v, args.StepTime) {
			return nil
		}
	}
	return nil
}

// stepOnce enables at the given requested percentage/intensity for
// duration, then disables, returning whether ctx was cancelled. The
// requested percentage is only meaningful for stress_cpu; custom faults
// pass it through as the {} substitution value.
func (ni *NodeInjector) stepOnce(ctx context.Context, requestedPct int, duration time.Duration) bool {
	var enableCmd, disableCmd []string
	var err error

	switch ni.Spec.NodeType {
	case faultspec.NodeCustom:
		enableCmd, err = command.RenderCustomStart(ni.Spec, command.FormatIntensity(requestedPct))
		if err != nil {
			ni.warn("failed to render custom start command", err)
			return false
		}
		if end, ok := command.RenderCustomEnd(ni.Spec); ok {
			disableCmd = end
		}
	default:
		// stress_cpu: clamp the burst-step duration to a 1s minimum
		// (stress-ng's -t resolution), and normalize the
		// requested percentage against the target's cgroup CPU
		// fraction so "50%" means 50% of the cgroup's own quota, not
		// 50% of a full core.
		durationSeconds := int(math.Max(1, math.Round(duration.Seconds())))
		pct := ni.normalizedPct(ctx, requestedPct)
		enableCmd = command.RenderStressCPU(ni.Spec, pct, durationSeconds)
		disableCmd = command.RenderStressCPUStop(ni.Spec)
	}

	res := shellexec.Run(ctx, ni.Logger, enableCmd)
	ni.recordEnable(enableCmd, res)

	cancelled := sleepCtx(ctx, duration)

	if disableCmd != nil {
		disableCtx, cancel := context.WithTimeout(context.Background(), disableTimeout)
		shellexec.Run(disableCtx, ni.Logger, disableCmd)
		cancel()
	}
	ni.recordDisable()

	return cancelled
}

// normalizedPct scales requestedPct by the target's cgroup CPU
// fraction. A lookup failure falls back to the unscaled request and
// logs a warning rather than aborting the fault.
func (ni *NodeInjector) normalizedPct(ctx context.Context, requestedPct int) int {
	if ni.Spec.Target.PID == nil {
		return requestedPct
	}
	frac, err := cgroup.FractionForPID(ctx, *ni.Spec.Target.PID)
	if err != nil {
		ni.warn("failed to resolve cgroup CPU fraction, using unscaled percentage", err)
		return requestedPct
	}
	return int(math.Round(float64(requestedPct) * frac))
}

func (ni *NodeInjector) recordEnable(cmd []string, res shellexec.Result) {
	if ni.Registry == nil {
		return
	}
	ni.Registry.SetActive(ni.Spec.Tag, string(ni.Spec.NodeType), joinCmd(cmd), res.ExitCode)
}

func (ni *NodeInjector) recordDisable() {
	if ni.Registry == nil {
		return
	}
	ni.Registry.SetInactive(ni.Spec.Tag)
}

func (ni *NodeInjector) warn(msg string, err error) {
	if ni.Logger != nil {
		ni.Logger.Warn(msg, "tag", ni.Spec.Tag, "error", err.Error())
	}
}

// Package injector implements the Link and Node Injector state
// machines: per-target goroutines that drive a pre/active/post window,
// applying the pattern-specific enable/disable sequence built by
// pkg/command. Grounded on LinkInjector/NodeInjector.do_injection in
// original_source/mininet/fault_injectors.py, translated from asyncio
// tasks to goroutines: a shared context.Context is the sole
// cancellation signal, and every enable is paired with a best-effort
// disable even on cancel.
package injector

import (
	"context"
	"fmt"
	"time"

	"github.com/netfault/faultctl/pkg/command"
	"github.com/netfault/faultctl/pkg/faultspec"
	"github.com/netfault/faultctl/pkg/logging"
	"github.com/netfault/faultctl/pkg/pattern"
	"github.com/netfault/faultctl/pkg/registry"
	"github.com/netfault/faultctl/pkg/shellexec"
)

// disableTimeout bounds the fresh context every disable command runs
// under, so a hung teardown cannot block shutdown forever.
const disableTimeout = 10 * time.Second

// LinkInjector drives one link fault's window.
type LinkInjector struct {
	Spec     faultspec.Spec
	Registry *registry.Registry
	Logger   *logging.Logger
}

// NewLinkInjector constructs a LinkInjector.
func NewLinkInjector(spec faultspec.Spec, reg *registry.Registry, logger *logging.Logger) *LinkInjector {
	return &LinkInjector{Spec: spec, Registry: reg, Logger: logger}
}

// Run executes the full pre/pattern-loop/post window. It returns nil on
// normal completion or cancellation (cancellation is not an error
// condition per the concurrency model — SHUTDOWN is the only
// cancellation signal and the injector exits quietly once its current
// step's paired disable has been attempted).
func (li *LinkInjector) Run(ctx context.Context) error {
	if sleepCtx(ctx, time.Duration(li.Spec.PreSeconds)*time.Second) {
		return nil
	}

	switch li.Spec.Pattern {
	case faultspec.PatternBurst:
		li.runBurst(ctx)
	case faultspec.PatternDegradation:
		if err := li.runDegradation(ctx); err != nil {
			li.warn("degradation pattern failed", err)
		}
	default:
		li.runPersistent(ctx)
	}

	sleepCtx(ctx, time.Duration(li.Spec.PostSeconds)*time.Second)
	return nil
}

func (li *LinkInjector) runPersistent(ctx context.Context) {
	enableCmd, err := command.RenderLinkEnable(li.Spec, command.Persistent, "")
	if err != nil {
		li.warn("failed to render enable command", err)
		return
	}
	disableCmd, err := command.RenderLinkDisable(li.Spec)
	if err != nil {
		li.warn("failed to render disable command", err)
		return
	}
	li.step(ctx, enableCmd, disableCmd, string(li.Spec.LinkType), time.Duration(li.Spec.ActiveSeconds)*time.Second)
}

func (li *LinkInjector) runBurst(ctx context.Context) {
	args, err := pattern.ParseBurstArgs(li.Spec.PatternArgs)
	if err != nil {
		li.warn("failed to parse burst pattern_args", err)
		return
	}
	n := pattern.BurstCount(time.Duration(li.Spec.ActiveSeconds)*time.Second, args)

	enableCmd, err := command.RenderLinkEnable(li.Spec, command.Persistent, "")
	if err != nil {
		li.warn("failed to render enable command", err)
		return
	}
	disableCmd, err := command.RenderLinkDisable(li.Spec)
	if err != nil {
		li.warn("failed to render disable command", err)
		return
	}

	remaining := args.Period - args.Duration
	for i := 0; i < n; i++ {
		if li.step(ctx, enableCmd, disableCmd, string(li.Spec.LinkType), args.Duration) {
			return
		}
		if sleepCtx(ctx, remaining) {
			return
		}
	}
}

func (li *LinkInjector) runDegradation(ctx context.Context) error {
	if li.Spec.LinkType == faultspec.LinkRedirect {
		return fmt.Errorf("unsupported combination: degradation pattern with redirect fault type")
	}
	args, err := pattern.ParseDegradationArgs(li.Spec.PatternArgs)
	if err != nil {
		return err
	}
	seq := pattern.DegradationSequence(time.Duration(li.Spec.ActiveSeconds)*time.Second, args)

	disableCmd, err := command.RenderLinkDisable(li.Spec)
	if err != nil {
		return err
	}

	for _, v := range seq {
		intensity := command.FormatIntensity(v)
		enableCmd, err := command.RenderLinkEnable(li.Spec, command.Random, intensity)
		if err != nil {
			li.warn("failed to render degradation step", err)
			continue
		}
		if li.step(ctx, enableCmd, disableCmd, string(li.Spec.LinkType), args.StepTime) {
			return nil
		}
	}
	return nil
}

// step enables, sleeps for duration (or until cancelled), and always
// attempts the paired disable before returning. It reports whether the
// context was cancelled, so callers can stop iterating.
//
// The disable command deliberately does not run under ctx: once ctx is
// cancelled, exec.CommandContext refuses to even start a new process
// against it, which would silently break the pairing invariant on
// every cancelled step. Disable gets its own bounded context instead.
func (li *LinkInjector) step(ctx context.Context, enableCmd, disableCmd []string, faultType string, duration time.Duration) bool {
	res := shellexec.Run(ctx, li.Logger, enableCmd)
	li.recordEnable(faultType, enableCmd, res)

	cancelled := sleepCtx(ctx, duration)

	disableCtx, cancel := context.WithTimeout(context.Background(), disableTimeout)
	shellexec.Run(disableCtx, li.Logger, disableCmd)
	cancel()
	li.recordDisable()

	return cancelled
}

func (li *LinkInjector) recordEnable(faultType string, cmd []string, res shellexec.Result) {
	if li.Registry == nil {
		return
	}
	li.Registry.SetActive(li.Spec.Tag, faultType, joinCmd(cmd), res.ExitCode)
}

func (li *LinkInjector) recordDisable() {
	if li.Registry == nil {
		return
	}
	li.Registry.SetInactive(li.Spec.Tag)
}

func (li *LinkInjector) warn(msg string, err error) {
	if li.Logger != nil {
		li.Logger.Warn(msg, "tag", li.Spec.Tag, "error", err.Error())
	}
}

func joinCmd(cmd []string) string {
	out := ""
	for i, c := range cmd {
		if i > 0 {
			out += " "
		}
		out += c
	}
	return out
}

// sleepCtx sleeps for d or until ctx is cancelled, whichever comes
// first, returning true if it was cancelled. A zero or negative
// duration returns immediately without cancellation.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		select {
		case <-ctx.Done():
			return true
		default:
			return false
		}
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return true
	case <-timer.C:
		return false
	}
}
